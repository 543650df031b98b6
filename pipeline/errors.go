package pipeline

import (
	"errors"
	"fmt"

	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/predictor"
)

// ErrUnmappedCode is wrapped by RemapError.
var ErrUnmappedCode = errors.New("predicted code has no label")

// RemapError reports a model output outside its stage's label table.
type RemapError struct {
	Stage predictor.Stage
	Code  int
	Raw   float64
}

func (e *RemapError) Error() string {
	return fmt.Sprintf("stage %s: code %d (raw %v) has no label", e.Stage, e.Code, e.Raw)
}

func (e *RemapError) Unwrap() error { return ErrUnmappedCode }
