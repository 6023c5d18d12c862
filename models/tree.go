package models

import (
	"errors"
	"math"
	"math/rand/v2"
	"slices"
)

var (
	ErrNegativeDepth      = errors.New("negative max depth")
	ErrInvalidLeafSize    = errors.New("min samples per leaf must be at least 1")
	ErrInvalidMaxFeatures = errors.New("max features fraction must be within (0, 1]")
)

// TreeOptions configures a single CART regression tree
type TreeOptions struct {
	// MaxDepth bounds the number of splits from the root to a leaf. 0 produces a single leaf.
	MaxDepth int `json:"max_depth"`

	// MinSamplesLeaf is the smallest number of observations allowed in either side of a split.
	MinSamplesLeaf int `json:"min_samples_leaf"`

	// MaxFeatures is the fraction of features sampled as split candidates at each node. 1.0
	// considers every feature.
	MaxFeatures float64 `json:"max_features"`
}

// Validate runs basic validation on tree options
func (t *TreeOptions) Validate() (*TreeOptions, error) {
	if t == nil {
		t = NewDefaultTreeOptions()
	}
	if t.MaxDepth < 0 {
		return nil, ErrNegativeDepth
	}
	if t.MinSamplesLeaf < 1 {
		return nil, ErrInvalidLeafSize
	}
	if t.MaxFeatures <= 0 || t.MaxFeatures > 1 {
		return nil, ErrInvalidMaxFeatures
	}
	return t, nil
}

func NewDefaultTreeOptions() *TreeOptions {
	return &TreeOptions{
		MaxDepth:       8,
		MinSamplesLeaf: 2,
		MaxFeatures:    1.0,
	}
}

// node is either a leaf holding a value or a split on feature <= threshold
type node struct {
	feature   int
	threshold float64
	value     float64
	left      *node
	right     *node
}

func (n *node) leaf() bool {
	return n.left == nil
}

func (n *node) predict(row []float64) float64 {
	curr := n
	for !curr.leaf() {
		if row[curr.feature] <= curr.threshold {
			curr = curr.left
		} else {
			curr = curr.right
		}
	}
	return curr.value
}

// treeBuilder grows a regression tree minimizing the sum of squared errors of each split
type treeBuilder struct {
	opt  *TreeOptions
	cols [][]float64
	y    []float64
	rng  *rand.Rand
}

func (b *treeBuilder) build(idx []int, depth int) *node {
	mean := 0.0
	for _, i := range idx {
		mean += b.y[i]
	}
	mean /= float64(len(idx))

	n := &node{value: mean}
	if depth >= b.opt.MaxDepth || len(idx) < 2*b.opt.MinSamplesLeaf {
		return n
	}

	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return n
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.cols[feature][i] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	n.feature = feature
	n.threshold = threshold
	n.left = b.build(left, depth+1)
	n.right = b.build(right, depth+1)
	return n
}

func (b *treeBuilder) candidates() []int {
	nFeat := len(b.cols)
	all := make([]int, nFeat)
	for i := range all {
		all[i] = i
	}
	k := int(math.Ceil(b.opt.MaxFeatures * float64(nFeat)))
	if k >= nFeat || b.rng == nil {
		return all
	}
	b.rng.Shuffle(nFeat, func(i, j int) {
		all[i], all[j] = all[j], all[i]
	})
	return all[:k]
}

func (b *treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	total := 0.0
	totalSq := 0.0
	for _, i := range idx {
		total += b.y[i]
		totalSq += b.y[i] * b.y[i]
	}
	cnt := float64(len(idx))
	parentSSE := totalSq - total*total/cnt

	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	sorted := make([]int, len(idx))
	for _, f := range b.candidates() {
		col := b.cols[f]
		copy(sorted, idx)
		slices.SortFunc(sorted, func(i, j int) int {
			switch {
			case col[i] < col[j]:
				return -1
			case col[i] > col[j]:
				return 1
			}
			return i - j
		})

		leftSum := 0.0
		leftSq := 0.0
		for k := 0; k < len(sorted)-1; k++ {
			yk := b.y[sorted[k]]
			leftSum += yk
			leftSq += yk * yk

			nLeft := k + 1
			nRight := len(sorted) - nLeft
			if nLeft < b.opt.MinSamplesLeaf || nRight < b.opt.MinSamplesLeaf {
				continue
			}
			curr, next := col[sorted[k]], col[sorted[k+1]]
			if curr == next {
				continue
			}

			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			sse := leftSq - leftSum*leftSum/float64(nLeft) +
				rightSq - rightSum*rightSum/float64(nRight)
			gain := parentSSE - sse
			if gain > bestGain+1e-12 {
				bestGain = gain
				bestFeature = f
				bestThreshold = (curr + next) / 2.0
			}
		}
	}
	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

// columns transposes row major observations into per feature columns
func columns(rows [][]float64, n int) [][]float64 {
	cols := make([][]float64, n)
	for j := 0; j < n; j++ {
		cols[j] = make([]float64, len(rows))
		for i, row := range rows {
			cols[j][i] = row[j]
		}
	}
	return cols
}
