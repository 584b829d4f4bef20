package alpha

import (
	"math/rand"
)

// forestRegressor averages bootstrap-aggregated regression trees with
// per-node feature subsampling.
type forestRegressor struct {
	nTrees      int
	maxDepth    int
	minSplit    int
	minLeaf     int
	sqrtFeature bool
	seed        int64

	trees []*treeNode
	imp   []float64
}

func (f *forestRegressor) fit(X [][]float64, y []float64) error {
	n, p, err := checkShape(X, y)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(f.seed))
	params := treeParams{
		maxDepth:    f.maxDepth,
		minSplit:    f.minSplit,
		minLeaf:     f.minLeaf,
		sqrtFeature: f.sqrtFeature,
	}

	f.trees = make([]*treeNode, 0, f.nTrees)
	f.imp = make([]float64, p)
	for t := 0; t < f.nTrees; t++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		tree := buildTree(X, y, idx, 0, params, rng)
		tree.accumulateImportance(f.imp, 1)
		f.trees = append(f.trees, tree)
	}

	normalizeImportance(f.imp)
	return nil
}

func (f *forestRegressor) predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		var s float64
		for _, tree := range f.trees {
			s += tree.predictRow(row)
		}
		out[i] = s / float64(len(f.trees))
	}
	return out
}

func (f *forestRegressor) importance() []float64 {
	return f.imp
}

func normalizeImportance(imp []float64) {
	var total float64
	for _, v := range imp {
		total += v
	}
	if total == 0 {
		return
	}
	for i := range imp {
		imp[i] /= total
	}
}

// boostingRegressor fits shallow trees sequentially on residuals with
// shrinkage and row subsampling.
type boostingRegressor struct {
	nTrees       int
	learningRate float64
	maxDepth     int
	minSplit     int
	minLeaf      int
	subsample    float64
	seed         int64

	base  float64
	trees []*treeNode
	imp   []float64
}

func (b *boostingRegressor) fit(X [][]float64, y []float64) error {
	n, p, err := checkShape(X, y)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(b.seed))
	params := treeParams{
		maxDepth: b.maxDepth,
		minSplit: b.minSplit,
		minLeaf:  b.minLeaf,
	}

	b.base = mean(y)
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = b.base
	}

	subN := int(b.subsample * float64(n))
	if subN < 1 {
		subN = n
	}

	resid := make([]float64, n)
	b.trees = make([]*treeNode, 0, b.nTrees)
	b.imp = make([]float64, p)
	for t := 0; t < b.nTrees; t++ {
		for i := 0; i < n; i++ {
			resid[i] = y[i] - pred[i]
		}

		perm := rng.Perm(n)
		idx := perm[:subN]

		tree := buildTree(X, resid, idx, 0, params, rng)
		tree.accumulateImportance(b.imp, 1)
		b.trees = append(b.trees, tree)

		for i := 0; i < n; i++ {
			pred[i] += b.learningRate * tree.predictRow(X[i])
		}
	}

	normalizeImportance(b.imp)
	return nil
}

func (b *boostingRegressor) predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		s := b.base
		for _, tree := range b.trees {
			s += b.learningRate * tree.predictRow(row)
		}
		out[i] = s
	}
	return out
}

func (b *boostingRegressor) importance() []float64 {
	return b.imp
}
