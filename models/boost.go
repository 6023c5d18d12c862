package models

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidRounds       = errors.New("number of boosting rounds must be at least 1")
	ErrInvalidLearningRate = errors.New("learning rate must be within (0, 1]")
	ErrInvalidSubsample    = errors.New("subsample fraction must be within (0, 1]")
)

// BoostOptions configures gradient boosted regression trees on squared error
type BoostOptions struct {
	Tree TreeOptions `json:"tree"`

	// Rounds is the number of trees added to the ensemble
	Rounds int `json:"rounds"`

	// LearningRate shrinks each tree's contribution
	LearningRate float64 `json:"learning_rate"`

	// Subsample is the fraction of rows sampled without replacement for each round
	Subsample float64 `json:"subsample"`

	Seed uint64 `json:"seed"`
}

// Validate runs basic validation on boost options
func (b *BoostOptions) Validate() (*BoostOptions, error) {
	if b == nil {
		b = NewDefaultBoostOptions()
	}
	if b.Rounds < 1 {
		return nil, ErrInvalidRounds
	}
	if b.LearningRate <= 0 || b.LearningRate > 1 {
		return nil, ErrInvalidLearningRate
	}
	if b.Subsample <= 0 || b.Subsample > 1 {
		return nil, ErrInvalidSubsample
	}
	if _, err := b.Tree.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func NewDefaultBoostOptions() *BoostOptions {
	return &BoostOptions{
		Tree: TreeOptions{
			MaxDepth:       3,
			MinSamplesLeaf: 1,
			MaxFeatures:    1.0,
		},
		Rounds:       200,
		LearningRate: 0.1,
		Subsample:    1.0,
		Seed:         42,
	}
}

// BoostRegression fits each tree to the residual of the ensemble so far
type BoostRegression struct {
	opt      *BoostOptions
	base     float64
	trees    []*node
	features int
}

func NewBoostRegression(opt *BoostOptions) (*BoostRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &BoostRegression{opt: opt}, nil
}

func (b *BoostRegression) Fit(x, y mat.Matrix) error {
	rows, yArr, err := treeFitValidate(x, y)
	if err != nil {
		return err
	}
	m := len(rows)
	n := len(rows[0])
	cols := columns(rows, n)

	base := floats.Sum(yArr) / float64(m)
	pred := make([]float64, m)
	floats.AddConst(base, pred)
	residual := make([]float64, m)

	rng := rand.New(rand.NewPCG(b.opt.Seed, 0))
	sampleSize := int(math.Max(1, math.Round(b.opt.Subsample*float64(m))))
	all := make([]int, m)
	for i := range all {
		all[i] = i
	}

	trees := make([]*node, 0, b.opt.Rounds)
	for r := 0; r < b.opt.Rounds; r++ {
		floats.SubTo(residual, yArr, pred)

		idx := all
		if sampleSize < m {
			idx = make([]int, m)
			copy(idx, all)
			rng.Shuffle(m, func(i, j int) {
				idx[i], idx[j] = idx[j], idx[i]
			})
			idx = idx[:sampleSize]
		}

		builder := &treeBuilder{opt: &b.opt.Tree, cols: cols, y: residual, rng: rng}
		tree := builder.build(idx, 0)
		trees = append(trees, tree)

		for i, row := range rows {
			pred[i] += b.opt.LearningRate * tree.predict(row)
		}
	}

	b.base = base
	b.trees = trees
	b.features = n
	return nil
}

func (b *BoostRegression) Predict(x mat.Matrix) ([]float64, error) {
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	if len(b.trees) == 0 {
		return nil, ErrNotFitted
	}
	m, n := x.Dims()
	if n != b.features {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", n, b.features, ErrFeatureLenMismatch)
	}

	res := make([]float64, m)
	row := make([]float64, n)
	for i := 0; i < m; i++ {
		mat.Row(row, i, x)
		v := b.base
		for _, tree := range b.trees {
			v += b.opt.LearningRate * tree.predict(row)
		}
		res[i] = v
	}
	return res, nil
}

func (b *BoostRegression) Score(x, y mat.Matrix) (float64, error) {
	return predictScore(b, x, y)
}
