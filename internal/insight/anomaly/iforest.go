package anomaly

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/HerbHall/cycleinsight/pkg/analytics"
)

// Isolation forest defaults.
const (
	DefaultTrees      = 100
	DefaultSampleSize = 256
)

// eulerGamma approximates the harmonic number tail in c(n).
const eulerGamma = 0.5772156649

// IsolationForest is an ensemble of random partition trees over 1-D data.
// Values isolated by few random splits have short average paths and score low.
//
// Seed fixes the random source. With Seed == 0 each Fit draws a fresh seed, so
// scores for borderline values can vary from run to run.
type IsolationForest struct {
	Trees      int
	SampleSize int
	Seed       uint64

	trees []*isolationNode
	psi   int
}

// isolationNode is either a split or a leaf holding size training points.
// lo and hi bound the training points that reached the node.
type isolationNode struct {
	split       float64
	left, right *isolationNode
	lo, hi      float64
	size        int
	leaf        bool
}

// NewIsolationForest returns a forest with default size and the given seed.
func NewIsolationForest(seed uint64) *IsolationForest {
	return &IsolationForest{Trees: DefaultTrees, SampleSize: DefaultSampleSize, Seed: seed}
}

// Fit builds the ensemble. It needs at least two points.
func (f *IsolationForest) Fit(history []float64) error {
	if len(history) < 2 {
		return fmt.Errorf("isolation forest: %d points: %w", len(history), analytics.ErrInsufficientData)
	}
	trees := f.Trees
	if trees <= 0 {
		trees = DefaultTrees
	}
	psi := f.SampleSize
	if psi <= 0 {
		psi = DefaultSampleSize
	}
	psi = max(min(psi, len(history)), 2)

	seed := f.Seed
	if seed == 0 {
		seed = rand.Uint64() //nolint:gosec // G404: partitioning randomness, not security
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // G404

	maxDepth := int(math.Ceil(math.Log2(float64(psi))))
	f.trees = make([]*isolationNode, trees)
	for i := range f.trees {
		f.trees[i] = buildNode(rng, subsample(rng, history, psi), 0, maxDepth)
	}
	f.psi = psi
	return nil
}

// Score returns (E[h(value)] - 1) / c(psi) clipped to [0, 1]. A value split
// off by the first partition of every tree scores 0.
//
// h(value) is the depth at which value would be isolated had it been part of
// the sample. Where value falls outside a node's training range, a split drawn
// over the widened range would land in the gap with probability
// gap/(hi-lo+gap) and isolate it at the next level.
func (f *IsolationForest) Score(value float64) (float64, error) {
	if len(f.trees) == 0 {
		return 0, ErrNotFitted
	}
	var total float64
	for _, root := range f.trees {
		total += pathLength(root, value)
	}
	mean := total / float64(len(f.trees))
	return min(max((mean-1)/averagePath(f.psi), 0), 1), nil
}

// subsample draws size points without replacement.
func subsample(rng *rand.Rand, data []float64, size int) []float64 {
	out := make([]float64, len(data))
	copy(out, data)
	if size >= len(out) {
		return out
	}
	for i := 0; i < size; i++ {
		j := i + rng.IntN(len(out)-i)
		out[i], out[j] = out[j], out[i]
	}
	return out[:size]
}

func buildNode(rng *rand.Rand, data []float64, depth, maxDepth int) *isolationNode {
	lo, hi := data[0], data[0]
	for _, v := range data[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if len(data) <= 1 || depth >= maxDepth || lo == hi {
		return &isolationNode{lo: lo, hi: hi, leaf: true, size: len(data)}
	}

	split := lo + rng.Float64()*(hi-lo)
	var left, right []float64
	for _, v := range data {
		if v < split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}
	// split can equal lo when Float64 returns 0.
	if len(left) == 0 || len(right) == 0 {
		return &isolationNode{lo: lo, hi: hi, leaf: true, size: len(data)}
	}
	return &isolationNode{
		split: split,
		left:  buildNode(rng, left, depth+1, maxDepth),
		right: buildNode(rng, right, depth+1, maxDepth),
		lo:    lo,
		hi:    hi,
		size:  len(data),
	}
}

// pathLength is the expected isolation depth of value in the tree rooted at n.
// A leaf reached without isolation holds value plus its size training points,
// which c(size+1) further splits would separate.
func pathLength(n *isolationNode, value float64) float64 {
	var expected float64
	remaining := 1.0
	for depth := 0; ; depth++ {
		if gap := max(n.lo-value, value-n.hi); gap > 0 {
			p := gap / (n.hi - n.lo + gap)
			expected += remaining * p * float64(depth+1)
			remaining *= 1 - p
		}
		if n.leaf {
			return expected + remaining*(float64(depth)+averagePath(n.size+1))
		}
		if value < n.split {
			n = n.left
		} else {
			n = n.right
		}
	}
}

// averagePath is c(n), the mean path length of an unsuccessful BST search.
func averagePath(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}
