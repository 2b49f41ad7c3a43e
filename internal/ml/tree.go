package ml

import (
	"math"
	"sort"
)

// TreeNode is one node of a regression tree. Feature == -1 marks a leaf,
// in which case Value holds the leaf weight; otherwise rows with
// x[Feature] < Threshold descend Left, the rest Right.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

// Tree is a regression tree stored as a flat node array, root at index 0.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// Predict walks the tree for one feature vector.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for t.Nodes[i].Feature >= 0 {
		n := t.Nodes[i]
		if x[n.Feature] < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Value
}

// treeBuilder grows a single tree on gradient/hessian statistics using exact
// greedy splits with second-order gain, as gradient boosting defines it.
type treeBuilder struct {
	X              [][]float64
	grad, hess     []float64
	cols           []int // candidate features after column subsampling
	maxDepth       int
	lambda         float64
	minChildWeight float64
	nodes          []TreeNode
}

func (b *treeBuilder) fit(rows []int) Tree {
	b.nodes = b.nodes[:0]
	b.grow(rows, 0)
	// The builder's node buffer is reused across trees; the finished tree
	// needs its own copy.
	nodes := make([]TreeNode, len(b.nodes))
	copy(nodes, b.nodes)
	return Tree{Nodes: nodes}
}

// grow appends the subtree for rows and returns its root index.
func (b *treeBuilder) grow(rows []int, depth int) int {
	var sumG, sumH float64
	for _, i := range rows {
		sumG += b.grad[i]
		sumH += b.hess[i]
	}

	if depth >= b.maxDepth || len(rows) < 2 {
		return b.leaf(sumG, sumH)
	}

	feature, threshold, gain := b.bestSplit(rows, sumG, sumH)
	if gain <= 0 {
		return b.leaf(sumG, sumH)
	}

	left := make([]int, 0, len(rows))
	right := make([]int, 0, len(rows))
	for _, i := range rows {
		if b.X[i][feature] < threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return b.leaf(sumG, sumH)
	}

	idx := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{Feature: feature, Threshold: threshold})
	// The recursive calls append to b.nodes; resolve them before indexing so
	// the stores land in the current backing array.
	leftIdx := b.grow(left, depth+1)
	b.nodes[idx].Left = leftIdx
	rightIdx := b.grow(right, depth+1)
	b.nodes[idx].Right = rightIdx
	return idx
}

func (b *treeBuilder) leaf(sumG, sumH float64) int {
	idx := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{Feature: -1, Value: -sumG / (sumH + b.lambda)})
	return idx
}

// bestSplit scans every candidate feature with a sorted prefix sweep and
// returns the split maximizing the regularized gain.
func (b *treeBuilder) bestSplit(rows []int, sumG, sumH float64) (feature int, threshold, gain float64) {
	feature = -1
	parentScore := sumG * sumG / (sumH + b.lambda)

	order := make([]int, len(rows))
	for _, f := range b.cols {
		copy(order, rows)
		sort.Slice(order, func(i, j int) bool { return b.X[order[i]][f] < b.X[order[j]][f] })

		var gL, hL float64
		for k := 0; k < len(order)-1; k++ {
			i := order[k]
			gL += b.grad[i]
			hL += b.hess[i]

			// Can't split between equal feature values.
			v, next := b.X[i][f], b.X[order[k+1]][f]
			if v == next {
				continue
			}
			hR := sumH - hL
			if hL < b.minChildWeight || hR < b.minChildWeight {
				continue
			}
			gR := sumG - gL
			g := gL*gL/(hL+b.lambda) + gR*gR/(hR+b.lambda) - parentScore
			if g > gain {
				gain = g
				feature = f
				threshold = (v + next) / 2
			}
		}
	}

	if math.IsNaN(gain) || math.IsInf(gain, 0) {
		return -1, 0, 0
	}
	return feature, threshold, gain
}
