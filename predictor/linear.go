package predictor

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Linear is a linear regressor: y = X·w + b.
type Linear struct {
	features  []string
	weights   *mat.VecDense
	intercept float64
}

func newLinear(a artifact) (*Linear, error) {
	if len(a.Weights) != len(a.Features) {
		return nil, fmt.Errorf("linear: %d weights for %d features", len(a.Weights), len(a.Features))
	}
	return &Linear{
		features:  slices.Clone(a.Features),
		weights:   mat.NewVecDense(len(a.Weights), slices.Clone(a.Weights)),
		intercept: a.Intercept,
	}, nil
}

func (l *Linear) Features() []string { return slices.Clone(l.features) }

func (l *Linear) Predict(batch [][]float64) ([]float64, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	if err := checkBatch(batch, len(l.features)); err != nil {
		return nil, err
	}
	x := denseRows(batch, len(l.features))
	var y mat.VecDense
	y.MulVec(x, l.weights)

	out := make([]float64, len(batch))
	for i := range out {
		out[i] = y.AtVec(i) + l.intercept
	}
	return out, nil
}

func denseRows(batch [][]float64, width int) *mat.Dense {
	data := make([]float64, 0, len(batch)*width)
	for _, row := range batch {
		data = append(data, row...)
	}
	return mat.NewDense(len(batch), width, data)
}
