package analytics

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDeviationSignal_Escalate(t *testing.T) {
	tests := []struct {
		in   DeviationSignal
		want DeviationSignal
	}{
		{DeviationNone, DeviationMild},
		{DeviationMild, DeviationModerate},
		{DeviationModerate, DeviationSevere},
		{DeviationSevere, DeviationSevere},
	}
	for _, tt := range tests {
		if got := tt.in.Escalate(); got != tt.want {
			t.Errorf("%v.Escalate() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAnalysisResult_JSONNames(t *testing.T) {
	r := AnalysisResult{
		DeviationType: DeviationModerate,
		Confidence:    ConfidencePersonalized,
		CycleWindow:   PredictedWindow{Low: 26, High: 31},
		HeavyFlowRisk: HeavyFlowLow,
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"deviation_type":"moderate","confidence":"personalized","cycle_window":{"low":26,"high":31},"heavy_flow_risk":"low"}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}

	var back AnalysisResult
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.DeviationType != DeviationModerate || back.Confidence != ConfidencePersonalized {
		t.Errorf("Unmarshal() = %+v", back)
	}
}

func TestUnmarshalText_RejectsUnknown(t *testing.T) {
	var d DeviationSignal
	if err := json.Unmarshal([]byte(`"extreme"`), &d); err == nil {
		t.Error("expected error for unknown deviation signal")
	}
	var c ConfidenceTier
	if err := json.Unmarshal([]byte(`"expert"`), &c); err == nil {
		t.Error("expected error for unknown confidence tier")
	}
}

func TestValidationError_Is(t *testing.T) {
	err := Validation("flow_logs", "label \"X\" at cycle 0 day 1", ErrInvalidFlowLabel)
	if !errors.Is(err, ErrValidation) {
		t.Error("errors.Is(err, ErrValidation) = false, want true")
	}
	if !errors.Is(err, ErrInvalidFlowLabel) {
		t.Error("errors.Is(err, ErrInvalidFlowLabel) = false, want true")
	}
	if errors.Is(err, ErrInsufficientData) {
		t.Error("errors.Is(err, ErrInsufficientData) = true, want false")
	}
}

func TestCycleHistory_Split(t *testing.T) {
	h := CycleHistory{
		CycleLengths:    []int{28, 29, 31},
		PeriodDurations: []int{5, 5, 6},
		FlowLogs:        [][]string{{"L"}, {"M"}, {"H"}},
	}
	hist, latest := h.Split()
	if latest != 31 {
		t.Errorf("latest = %d, want 31", latest)
	}
	if len(hist.CycleLengths) != 2 || len(hist.PeriodDurations) != 2 || len(hist.FlowLogs) != 2 {
		t.Errorf("history lengths = %d/%d/%d, want 2/2/2",
			len(hist.CycleLengths), len(hist.PeriodDurations), len(hist.FlowLogs))
	}
}
