package alpha

import (
	"math"
	"math/rand"
	"sort"
)

// treeNode is one node of a CART regression tree.
type treeNode struct {
	feature   int
	threshold float64
	value     float64
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) isLeaf() bool { return n.left == nil }

type treeParams struct {
	maxDepth    int
	minSplit    int
	minLeaf     int
	sqrtFeature bool
}

// buildTree grows a variance-minimizing regression tree over the row indices
// in idx. Split candidates are midpoints between consecutive distinct values.
func buildTree(X [][]float64, y []float64, idx []int, depth int, params treeParams, rng *rand.Rand) *treeNode {
	node := &treeNode{value: meanAt(y, idx)}
	if depth >= params.maxDepth || len(idx) < params.minSplit {
		return node
	}

	nFeatures := len(X[0])
	candidates := featureCandidates(nFeatures, params.sqrtFeature, rng)

	bestImp := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0

	sorted := make([]int, len(idx))
	for _, j := range candidates {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool { return X[sorted[a]][j] < X[sorted[b]][j] })

		// prefix sums over the sorted order let each split cost O(1)
		var leftSum, leftSq float64
		totalSum, totalSq := sumAt(y, sorted)

		for i := 0; i < len(sorted)-1; i++ {
			v := y[sorted[i]]
			leftSum += v
			leftSq += v * v

			nl := i + 1
			nr := len(sorted) - nl
			if nl < params.minLeaf || nr < params.minLeaf {
				continue
			}
			if X[sorted[i]][j] == X[sorted[i+1]][j] {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			imp := (leftSq - leftSum*leftSum/float64(nl)) +
				(rightSq - rightSum*rightSum/float64(nr))
			if imp < bestImp {
				bestImp = imp
				bestFeature = j
				bestThreshold = (X[sorted[i]][j] + X[sorted[i+1]][j]) / 2
			}
		}
	}

	if bestFeature < 0 {
		return node
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if X[i][bestFeature] <= bestThreshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) < params.minLeaf || len(rightIdx) < params.minLeaf {
		return node
	}

	node.feature = bestFeature
	node.threshold = bestThreshold
	node.left = buildTree(X, y, leftIdx, depth+1, params, rng)
	node.right = buildTree(X, y, rightIdx, depth+1, params, rng)
	return node
}

func (n *treeNode) predictRow(row []float64) float64 {
	for !n.isLeaf() {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// accumulateImportance counts split usage weighted by subtree size share.
func (n *treeNode) accumulateImportance(imp []float64, weight float64) {
	if n.isLeaf() {
		return
	}
	imp[n.feature] += weight
	n.left.accumulateImportance(imp, weight/2)
	n.right.accumulateImportance(imp, weight/2)
}

func featureCandidates(nFeatures int, sqrtFeature bool, rng *rand.Rand) []int {
	if !sqrtFeature {
		all := make([]int, nFeatures)
		for i := range all {
			all[i] = i
		}
		return all
	}
	k := int(math.Ceil(math.Sqrt(float64(nFeatures))))
	perm := rng.Perm(nFeatures)
	return perm[:k]
}

func meanAt(y []float64, idx []int) float64 {
	var s float64
	for _, i := range idx {
		s += y[i]
	}
	return s / float64(len(idx))
}

func sumAt(y []float64, idx []int) (sum, sq float64) {
	for _, i := range idx {
		sum += y[i]
		sq += y[i] * y[i]
	}
	return sum, sq
}
