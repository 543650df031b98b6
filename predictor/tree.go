package predictor

import (
	"fmt"
	"slices"
)

// Tree ensemble objectives.
const (
	ObjectiveRegression     = "regression"
	ObjectiveClassification = "classification"
)

type nodeSpec struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Value     float64 `json:"value,omitempty"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
}

type treeSpec struct {
	Weight *float64   `json:"weight,omitempty"`
	Nodes  []nodeSpec `json:"nodes"`
}

type tree struct {
	weight float64
	nodes  []nodeSpec
}

// eval walks from the root; a row goes left when x[feature] <= threshold.
func (t tree) eval(x []float64) float64 {
	i := 0
	for !t.nodes[i].Leaf {
		n := t.nodes[i]
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.nodes[i].Value
}

// TreeEnsemble covers boosted regressors (base score plus weighted leaf sums)
// and boosted classifiers (weighted vote over leaf classes, ties to the class
// listed first).
type TreeEnsemble struct {
	features  []string
	objective string
	baseScore float64
	classes   []int
	trees     []tree
}

func newTreeEnsemble(a artifact) (*TreeEnsemble, error) {
	if len(a.Trees) == 0 {
		return nil, fmt.Errorf("tree_ensemble: no trees")
	}
	switch a.Objective {
	case ObjectiveRegression:
	case ObjectiveClassification:
		if len(a.Classes) < 2 {
			return nil, fmt.Errorf("tree_ensemble: classification needs at least 2 classes")
		}
	default:
		return nil, fmt.Errorf("tree_ensemble: unknown objective %q", a.Objective)
	}

	te := &TreeEnsemble{
		features:  slices.Clone(a.Features),
		objective: a.Objective,
		baseScore: a.BaseScore,
		classes:   slices.Clone(a.Classes),
		trees:     make([]tree, 0, len(a.Trees)),
	}
	for ti, spec := range a.Trees {
		if err := te.checkTree(spec); err != nil {
			return nil, fmt.Errorf("tree_ensemble: tree %d: %w", ti, err)
		}
		w := 1.0
		if spec.Weight != nil {
			w = *spec.Weight
		}
		te.trees = append(te.trees, tree{weight: w, nodes: slices.Clone(spec.Nodes)})
	}
	return te, nil
}

// checkTree rejects trees that could index out of range or loop: children
// must come after their parent.
func (te *TreeEnsemble) checkTree(spec treeSpec) error {
	if len(spec.Nodes) == 0 {
		return fmt.Errorf("no nodes")
	}
	for i, n := range spec.Nodes {
		if n.Leaf {
			if te.objective == ObjectiveClassification && !slices.Contains(te.classes, int(n.Value)) {
				return fmt.Errorf("node %d: leaf class %v not in classes %v", i, n.Value, te.classes)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= len(te.features) {
			return fmt.Errorf("node %d: feature index %d out of range", i, n.Feature)
		}
		if n.Left <= i || n.Left >= len(spec.Nodes) || n.Right <= i || n.Right >= len(spec.Nodes) {
			return fmt.Errorf("node %d: children %d/%d out of order", i, n.Left, n.Right)
		}
	}
	return nil
}

func (te *TreeEnsemble) Features() []string { return slices.Clone(te.features) }

func (te *TreeEnsemble) Predict(batch [][]float64) ([]float64, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	if err := checkBatch(batch, len(te.features)); err != nil {
		return nil, err
	}
	out := make([]float64, len(batch))
	for i, x := range batch {
		if te.objective == ObjectiveRegression {
			out[i] = te.regress(x)
		} else {
			out[i] = te.vote(x)
		}
	}
	return out, nil
}

func (te *TreeEnsemble) regress(x []float64) float64 {
	sum := te.baseScore
	for _, t := range te.trees {
		sum += t.weight * t.eval(x)
	}
	return sum
}

func (te *TreeEnsemble) vote(x []float64) float64 {
	scores := make([]float64, len(te.classes))
	for _, t := range te.trees {
		scores[slices.Index(te.classes, int(t.eval(x)))] += t.weight
	}
	best := 0
	for c := 1; c < len(scores); c++ {
		if scores[c] > scores[best] {
			best = c
		}
	}
	return float64(te.classes[best])
}
