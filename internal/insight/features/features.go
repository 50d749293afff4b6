// Package features encodes raw flow labels and computes descriptive statistics
// over numeric cycle history.
package features

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/HerbHall/cycleinsight/pkg/analytics"
)

// Flow intensity levels produced by EncodeFlow.
const (
	FlowLow    = 1
	FlowMedium = 2
	FlowHigh   = 3
)

// flowTable maps the logged flow labels to ordinal intensities.
var flowTable = map[string]int{
	"L": FlowLow,
	"M": FlowMedium,
	"H": FlowHigh,
}

// EncodeFlow maps each per-cycle label sequence to ordinal intensities.
// Any label outside {L, M, H} fails with analytics.ErrInvalidFlowLabel.
func EncodeFlow(logs [][]string) ([][]int, error) {
	encoded := make([][]int, len(logs))
	for i, cycle := range logs {
		row := make([]int, len(cycle))
		for j, label := range cycle {
			v, ok := flowTable[label]
			if !ok {
				return nil, fmt.Errorf("cycle %d day %d: label %q: %w", i, j, label, analytics.ErrInvalidFlowLabel)
			}
			row[j] = v
		}
		encoded[i] = row
	}
	return encoded, nil
}

// ExtractCycleFeatures returns the mean, population standard deviation and
// count of the given cycle lengths.
func ExtractCycleFeatures(cycleLengths []int) (analytics.CycleStats, error) {
	if len(cycleLengths) == 0 {
		return analytics.CycleStats{}, fmt.Errorf("cycle features: %w", analytics.ErrInsufficientData)
	}
	mean, std := popMeanStd(cycleLengths)
	return analytics.CycleStats{Mean: mean, Std: std, Count: len(cycleLengths)}, nil
}

// ExtractPeriodFeatures returns the mean and population standard deviation of
// the given period durations.
func ExtractPeriodFeatures(periodDurations []int) (analytics.PeriodStats, error) {
	if len(periodDurations) == 0 {
		return analytics.PeriodStats{}, fmt.Errorf("period features: %w", analytics.ErrInsufficientData)
	}
	mean, std := popMeanStd(periodDurations)
	return analytics.PeriodStats{Mean: mean, Std: std}, nil
}

// Floats converts integer day counts to float64 for numeric routines.
func Floats(xs []int) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}

func popMeanStd(xs []int) (mean, std float64) {
	return stat.PopMeanStdDev(Floats(xs), nil)
}
