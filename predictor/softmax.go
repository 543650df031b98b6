package predictor

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Softmax is a multinomial logistic classifier. The predicted code is the
// class with the largest logit; ties go to the class listed first.
type Softmax struct {
	features   []string
	classes    []int
	coef       *mat.Dense // classes × features
	intercepts []float64
}

func newSoftmax(a artifact) (*Softmax, error) {
	nc, nf := len(a.Classes), len(a.Features)
	if nc < 2 {
		return nil, fmt.Errorf("softmax: need at least 2 classes, got %d", nc)
	}
	if len(a.Coefficients) != nc {
		return nil, fmt.Errorf("softmax: %d coefficient rows for %d classes", len(a.Coefficients), nc)
	}
	if len(a.Intercepts) != nc {
		return nil, fmt.Errorf("softmax: %d intercepts for %d classes", len(a.Intercepts), nc)
	}
	data := make([]float64, 0, nc*nf)
	for i, row := range a.Coefficients {
		if len(row) != nf {
			return nil, fmt.Errorf("softmax: class %d has %d coefficients for %d features", a.Classes[i], len(row), nf)
		}
		data = append(data, row...)
	}
	return &Softmax{
		features:   slices.Clone(a.Features),
		classes:    slices.Clone(a.Classes),
		coef:       mat.NewDense(nc, nf, data),
		intercepts: slices.Clone(a.Intercepts),
	}, nil
}

func (s *Softmax) Features() []string { return slices.Clone(s.features) }

func (s *Softmax) Predict(batch [][]float64) ([]float64, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	if err := checkBatch(batch, len(s.features)); err != nil {
		return nil, err
	}
	x := denseRows(batch, len(s.features))
	var logits mat.Dense
	logits.Mul(x, s.coef.T())

	out := make([]float64, len(batch))
	for i := range out {
		best := 0
		bestScore := logits.At(i, 0) + s.intercepts[0]
		for c := 1; c < len(s.classes); c++ {
			if score := logits.At(i, c) + s.intercepts[c]; score > bestScore {
				best, bestScore = c, score
			}
		}
		out[i] = float64(s.classes[best])
	}
	return out, nil
}
