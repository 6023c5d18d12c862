package models

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"

	mat_ "github.com/aouyang1/go-pricecast/mat"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var ErrInvalidNumTrees = errors.New("number of trees must be at least 1")

// ForestOptions configures a bagged ensemble of regression trees
type ForestOptions struct {
	Tree TreeOptions `json:"tree"`

	// NumTrees is the number of bootstrap trees averaged for a prediction
	NumTrees int `json:"num_trees"`

	// Seed makes bootstrap samples and feature sampling reproducible
	Seed uint64 `json:"seed"`

	// Parallelization sets how many trees are grown at once. 0 uses the number of CPUs.
	Parallelization int `json:"parallelization"`
}

// Validate runs basic validation on forest options. Defaults are filled on a copy so the
// caller's options can be shared between fits.
func (f *ForestOptions) Validate() (*ForestOptions, error) {
	if f == nil {
		f = NewDefaultForestOptions()
	}
	cp := *f
	f = &cp
	if f.NumTrees < 1 {
		return nil, ErrInvalidNumTrees
	}
	if _, err := f.Tree.Validate(); err != nil {
		return nil, err
	}
	if f.Parallelization <= 0 {
		f.Parallelization = runtime.NumCPU()
	}
	if f.Parallelization > f.NumTrees {
		f.Parallelization = f.NumTrees
	}
	return f, nil
}

func NewDefaultForestOptions() *ForestOptions {
	return &ForestOptions{
		Tree: TreeOptions{
			MaxDepth:       10,
			MinSamplesLeaf: 2,
			MaxFeatures:    1.0,
		},
		NumTrees:        100,
		Seed:            42,
		Parallelization: 0,
	}
}

// ForestRegression averages regression trees grown on bootstrap samples of the training data
type ForestRegression struct {
	opt      *ForestOptions
	trees    []*node
	features int
}

func NewForestRegression(opt *ForestOptions) (*ForestRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &ForestRegression{opt: opt}, nil
}

// Fit grows every tree of the forest. Trees are fit concurrently, bounded by Parallelization.
func (f *ForestRegression) Fit(x, y mat.Matrix) error {
	rows, yArr, err := treeFitValidate(x, y)
	if err != nil {
		return err
	}
	n := len(rows[0])
	cols := columns(rows, n)

	trees := make([]*node, f.opt.NumTrees)
	sem := make(chan struct{}, f.opt.Parallelization)
	var wg sync.WaitGroup
	for t := 0; t < f.opt.NumTrees; t++ {
		sem <- struct{}{}
		wg.Add(1)

		go func(t int) {
			defer func() {
				wg.Done()
				<-sem
			}()
			rng := rand.New(rand.NewPCG(f.opt.Seed, uint64(t)))
			idx := make([]int, len(rows))
			for i := range idx {
				idx[i] = rng.IntN(len(rows))
			}
			b := &treeBuilder{opt: &f.opt.Tree, cols: cols, y: yArr, rng: rng}
			trees[t] = b.build(idx, 0)
		}(t)
	}
	wg.Wait()

	f.trees = trees
	f.features = n
	return nil
}

func (f *ForestRegression) Predict(x mat.Matrix) ([]float64, error) {
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	if len(f.trees) == 0 {
		return nil, ErrNotFitted
	}
	m, n := x.Dims()
	if n != f.features {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", n, f.features, ErrFeatureLenMismatch)
	}

	res := make([]float64, m)
	row := make([]float64, n)
	for i := 0; i < m; i++ {
		mat.Row(row, i, x)
		sum := 0.0
		for _, tree := range f.trees {
			sum += tree.predict(row)
		}
		res[i] = sum / float64(len(f.trees))
	}
	return res, nil
}

func (f *ForestRegression) Score(x, y mat.Matrix) (float64, error) {
	return predictScore(f, x, y)
}

func treeFitValidate(x, y mat.Matrix) ([][]float64, []float64, error) {
	if x == nil {
		return nil, nil, ErrNoTrainingMatrix
	}
	if y == nil {
		return nil, nil, ErrNoTargetMatrix
	}
	m, n := x.Dims()
	ym, _ := y.Dims()
	if ym != m {
		return nil, nil, fmt.Errorf("training data has %d rows and target has %d row, %w", m, ym, ErrTargetLenMismatch)
	}
	if m == 0 || n == 0 {
		return nil, nil, ErrNoObservations
	}
	return mat_.ToArray(x), mat.Col(nil, 0, y), nil
}

func predictScore(model Model, x, y mat.Matrix) (float64, error) {
	if x == nil {
		return 0.0, ErrNoDesignMatrix
	}
	if y == nil {
		return 0.0, ErrNoTargetMatrix
	}
	m, _ := x.Dims()
	ym, _ := y.Dims()
	if m != ym {
		return 0.0, fmt.Errorf("design matrix has %d rows and target has %d rows, %w", m, ym, ErrTargetLenMismatch)
	}
	res, err := model.Predict(x)
	if err != nil {
		return 0.0, err
	}
	score := stat.RSquaredFrom(res, mat.Col(nil, 0, y), nil)
	if math.IsNaN(score) {
		score = 1.0
	}
	return score, nil
}
