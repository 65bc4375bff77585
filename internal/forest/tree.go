package forest

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"
)

// leafMarker marks a node without children.
const leafMarker = -1

// impurityTolerance treats nodes with Gini impurity below it as pure.
const impurityTolerance = 1e-12

// Node is one node of a fitted decision tree. Leaves have Left == Right == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int

	// Value is the weighted class distribution of the training samples that
	// reached the node, normalized to sum to 1.
	Value []float64

	Samples  int
	Impurity float64
}

// IsLeaf reports whether the node has no children.
func (n Node) IsLeaf() bool {
	return n.Left == leafMarker
}

// Tree is a fitted CART classification tree.
type Tree struct {
	Nodes     []Node
	NFeatures int
	NClasses  int

	// Importances holds the normalized weighted impurity decrease per feature.
	Importances []float64
}

// TreeParams controls tree growth.
type TreeParams struct {
	// MaxDepth limits tree depth; 0 grows until leaves are pure.
	MaxDepth int

	// MinSamplesSplit is the minimum number of samples required to split a node.
	MinSamplesSplit int

	// MinSamplesLeaf is the minimum number of samples in each child.
	MinSamplesLeaf int

	// MaxFeatures is the number of features examined per split.
	MaxFeatures int
}

// Proba returns the class distribution of the leaf row falls into.
func (t *Tree) Proba(row []float64) []float64 {
	id := 0
	for {
		n := t.Nodes[id]
		if n.IsLeaf() {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			id = n.Left
		} else {
			id = n.Right
		}
	}
}

// Depth returns the depth of the tree; a single leaf has depth 0.
func (t *Tree) Depth() int {
	var walk func(id int) int
	walk = func(id int) int {
		n := t.Nodes[id]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0)
}

// treeBuilder grows one tree over a fixed training matrix.
type treeBuilder struct {
	x        [][]float64
	y        []int
	weights  []float64
	nClasses int
	params   TreeParams
	rng      *rand.Rand
	tree     *Tree
}

// growTree fits a tree on the rows selected by idx. idx may contain
// duplicates (bootstrap samples).
func growTree(x [][]float64, y []int, weights []float64, nClasses int, params TreeParams, rng *rand.Rand, idx []int) *Tree {
	nFeatures := len(x[0])
	b := &treeBuilder{
		x:        x,
		y:        y,
		weights:  weights,
		nClasses: nClasses,
		params:   params,
		rng:      rng,
		tree: &Tree{
			NFeatures:   nFeatures,
			NClasses:    nClasses,
			Importances: make([]float64, nFeatures),
		},
	}
	b.build(idx, 0)

	var total float64
	for _, v := range b.tree.Importances {
		total += v
	}
	if total > 0 {
		for i := range b.tree.Importances {
			b.tree.Importances[i] /= total
		}
	}
	return b.tree
}

// split describes the best partition found for a node.
type split struct {
	feature   int
	threshold float64
	left      []int
	right     []int
	leftW     float64
	rightW    float64
	leftImp   float64
	rightImp  float64
}

// build appends the subtree for idx and returns its root id.
func (b *treeBuilder) build(idx []int, depth int) int {
	counts, total := b.classCounts(idx)
	impurity := gini(counts, total)

	value := make([]float64, len(counts))
	if total > 0 {
		for i, c := range counts {
			value[i] = c / total
		}
	}

	id := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{
		Feature:  leafMarker,
		Left:     leafMarker,
		Right:    leafMarker,
		Value:    value,
		Samples:  len(idx),
		Impurity: impurity,
	})

	if b.stop(len(idx), depth, impurity) {
		return id
	}

	best, ok := b.bestSplit(idx, counts, total)
	if !ok {
		return id
	}

	b.tree.Importances[best.feature] += total*impurity - best.leftW*best.leftImp - best.rightW*best.rightImp

	left := b.build(best.left, depth+1)
	right := b.build(best.right, depth+1)

	n := &b.tree.Nodes[id]
	n.Feature = best.feature
	n.Threshold = best.threshold
	n.Left = left
	n.Right = right
	return id
}

// stop reports whether a node must become a leaf before any split search.
func (b *treeBuilder) stop(n, depth int, impurity float64) bool {
	switch {
	case b.params.MaxDepth > 0 && depth >= b.params.MaxDepth:
		return true
	case n < b.params.MinSamplesSplit:
		return true
	case n < 2*b.params.MinSamplesLeaf:
		return true
	case impurity <= impurityTolerance:
		return true
	}
	return false
}

// bestSplit searches MaxFeatures randomly drawn features for the threshold
// that minimizes the weighted Gini impurity of the children.
func (b *treeBuilder) bestSplit(idx []int, counts []float64, total float64) (split, bool) {
	nFeatures := b.tree.NFeatures
	features := b.rng.Perm(nFeatures)
	k := b.params.MaxFeatures
	if k <= 0 || k > nFeatures {
		k = nFeatures
	}

	n := len(idx)
	sorted := make([]int, n)
	leftCounts := make([]float64, b.nClasses)
	rightCounts := make([]float64, b.nClasses)

	var best split
	bestScore := math.Inf(1)
	found := false

	for examined, f := range features {
		// Keep drawing features past k until one yields a valid split.
		if examined >= k && found {
			break
		}
		copy(sorted, idx)
		slices.SortFunc(sorted, func(a, c int) int {
			return cmp.Compare(b.x[a][f], b.x[c][f])
		})

		clear(leftCounts)
		var leftW float64
		for pos := 0; pos < n-1; pos++ {
			i := sorted[pos]
			leftCounts[b.y[i]] += b.weights[i]
			leftW += b.weights[i]

			v, next := b.x[i][f], b.x[sorted[pos+1]][f]
			if next <= v {
				continue
			}
			nLeft := pos + 1
			if nLeft < b.params.MinSamplesLeaf || n-nLeft < b.params.MinSamplesLeaf {
				continue
			}

			for c := range rightCounts {
				rightCounts[c] = counts[c] - leftCounts[c]
			}
			rightW := total - leftW
			leftImp := gini(leftCounts, leftW)
			rightImp := gini(rightCounts, rightW)
			score := leftW*leftImp + rightW*rightImp
			if score < bestScore-impurityTolerance {
				threshold := v + (next-v)/2
				if threshold >= next {
					threshold = v
				}
				bestScore = score
				found = true
				best = split{
					feature:   f,
					threshold: threshold,
					leftW:     leftW,
					rightW:    rightW,
					leftImp:   leftImp,
					rightImp:  rightImp,
				}
			}
		}
	}

	if !found {
		return split{}, false
	}

	for _, i := range idx {
		if b.x[i][best.feature] <= best.threshold {
			best.left = append(best.left, i)
		} else {
			best.right = append(best.right, i)
		}
	}
	return best, true
}

// classCounts returns the weighted class histogram of idx and its total.
func (b *treeBuilder) classCounts(idx []int) ([]float64, float64) {
	counts := make([]float64, b.nClasses)
	var total float64
	for _, i := range idx {
		counts[b.y[i]] += b.weights[i]
		total += b.weights[i]
	}
	return counts, total
}

// gini returns the Gini impurity of a weighted class histogram.
func gini(counts []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := c / total
		sum += p * p
	}
	return 1 - sum
}
