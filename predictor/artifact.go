package predictor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
)

// Artifact kinds.
const (
	KindLinear       = "linear"
	KindSoftmax      = "softmax"
	KindTreeEnsemble = "tree_ensemble"
)

// artifact is the on-disk JSON form shared by all model families.
type artifact struct {
	Kind     string   `json:"kind"`
	Stage    Stage    `json:"stage,omitempty"`
	Features []string `json:"features"`

	// linear
	Weights   []float64 `json:"weights,omitempty"`
	Intercept float64   `json:"intercept,omitempty"`

	// softmax
	Classes      []int       `json:"classes,omitempty"`
	Coefficients [][]float64 `json:"coefficients,omitempty"`
	Intercepts   []float64   `json:"intercepts,omitempty"`

	// tree_ensemble
	Objective string     `json:"objective,omitempty"`
	BaseScore float64    `json:"base_score,omitempty"`
	Trees     []treeSpec `json:"trees,omitempty"`
}

// LoadFile reads the artifact at path and builds the predictor for stage.
func LoadFile(path string, stage Stage) (Predictor, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read model file %s: %w", path, err)
	}
	p, err := Decode(data, stage)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Decode builds a predictor for stage from an artifact document.
func Decode(data []byte, stage Stage) (Predictor, error) {
	if !stage.valid() {
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatibleArtifact, err)
	}
	if a.Stage != "" && a.Stage != stage {
		return nil, fmt.Errorf("%w: artifact trained for stage %s, loaded as %s", ErrIncompatibleArtifact, a.Stage, stage)
	}
	if !slices.Equal(a.Features, stageColumns[stage]) {
		return nil, fmt.Errorf("%w: features %v, stage %s expects %v", ErrIncompatibleArtifact, a.Features, stage, stageColumns[stage])
	}

	var (
		p   Predictor
		err error
	)
	switch a.Kind {
	case KindLinear:
		p, err = newLinear(a)
	case KindSoftmax:
		p, err = newSoftmax(a)
	case KindTreeEnsemble:
		p, err = newTreeEnsemble(a)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrIncompatibleArtifact, a.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatibleArtifact, err)
	}
	return p, nil
}

func checkBatch(batch [][]float64, width int) error {
	for i, row := range batch {
		if len(row) != width {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), width)
		}
	}
	return nil
}
