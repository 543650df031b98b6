package predictor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func linearDoc(stage Stage, weights []float64, intercept float64) map[string]any {
	return map[string]any{
		"kind":      KindLinear,
		"features":  stage.Features(),
		"weights":   weights,
		"intercept": intercept,
	}
}

func TestStageFeatures(t *testing.T) {
	assert.Equal(t,
		[]string{"Cabin_No", "hour", "dayofweek", "quarter", "month", "dayofyear", "dayofmonth", "weekofyear"},
		StageStatus.Features())
	assert.Equal(t,
		[]string{"Cabin_No", "hour", "Idu_Status", "FanSpeed", "Temperature", "dayofweek", "quarter", "month", "dayofyear", "dayofmonth", "weekofyear"},
		StageMode.Features())

	f := StageStatus.Features()
	f[0] = "changed"
	assert.Equal(t, "Cabin_No", StageStatus.Features()[0], "Features must return a copy")
}

func TestLinearPredict(t *testing.T) {
	weights := make([]float64, 9)
	weights[0] = 1 // Cabin_No
	weights[2] = 2 // Idu_Status
	p, err := Decode(mustJSON(t, linearDoc(StageTemperature, weights, 20)), StageTemperature)
	require.NoError(t, err)

	out, err := p.Predict([][]float64{
		{1, 10, 0, 0, 1, 1, 1, 1, 1},
		{3, 10, 1, 0, 1, 1, 1, 1, 1},
	})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{21, 25}, out, 1e-9)

	_, err = p.Predict([][]float64{{1, 2}})
	assert.Error(t, err)
}

func TestSoftmaxPredict(t *testing.T) {
	nf := len(StageStatus.Features())
	off := make([]float64, nf)
	on := make([]float64, nf)
	on[1] = 1 // hour pushes towards ON
	doc := map[string]any{
		"kind":         KindSoftmax,
		"features":     StageStatus.Features(),
		"classes":      []int{0, 1},
		"coefficients": [][]float64{off, on},
		"intercepts":   []float64{0, -8.5},
	}
	p, err := Decode(mustJSON(t, doc), StageStatus)
	require.NoError(t, err)

	night := []float64{1, 3, 0, 1, 1, 1, 1, 1}
	day := []float64{1, 10, 0, 1, 1, 1, 1, 1}
	out, err := p.Predict([][]float64{night, day})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, out)
}

func TestTreeEnsembleClassificationVote(t *testing.T) {
	w := func(x float64) *float64 { return &x }
	doc := artifact{
		Kind:      KindTreeEnsemble,
		Features:  StageFanSpeed.Features(),
		Objective: ObjectiveClassification,
		Classes:   []int{0, 1, 2},
		Trees: []treeSpec{
			{Weight: w(0.6), Nodes: []nodeSpec{
				{Feature: 2, Threshold: 0.5, Left: 1, Right: 2},
				{Leaf: true, Value: 0},
				{Leaf: true, Value: 1},
			}},
			{Weight: w(0.5), Nodes: []nodeSpec{
				{Feature: 3, Threshold: 3.5, Left: 1, Right: 2},
				{Leaf: true, Value: 2},
				{Leaf: true, Value: 1},
			}},
		},
	}
	p, err := Decode(mustJSON(t, doc), StageFanSpeed)
	require.NoError(t, err)

	out, err := p.Predict([][]float64{
		{1, 10, 0, 0, 0, 1, 1, 1, 1, 1}, // tree1 -> 0 (0.6), tree2 -> 2 (0.5)
		{1, 10, 1, 2, 0, 1, 1, 1, 1, 1}, // tree1 -> 1 (0.6), tree2 -> 2 (0.5)
		{1, 10, 1, 5, 0, 1, 1, 1, 1, 1}, // both -> 1
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 1}, out)
}

func TestTreeEnsembleRegression(t *testing.T) {
	doc := artifact{
		Kind:      KindTreeEnsemble,
		Features:  StageTemperature.Features(),
		Objective: ObjectiveRegression,
		BaseScore: 1.5,
		Trees: []treeSpec{
			{Nodes: []nodeSpec{
				{Feature: 2, Threshold: 0.5, Left: 1, Right: 2},
				{Leaf: true, Value: -1.5},
				{Leaf: true, Value: 20},
			}},
		},
	}
	p, err := Decode(mustJSON(t, doc), StageTemperature)
	require.NoError(t, err)

	out, err := p.Predict([][]float64{
		{1, 10, 0, 0, 1, 1, 1, 1, 1},
		{1, 10, 1, 0, 1, 1, 1, 1, 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 21.5}, out)
}

func TestDecodeRejectsIncompatibleArtifacts(t *testing.T) {
	tests := []struct {
		name string
		doc  any
	}{
		{"not json", "{"},
		{"unknown kind", map[string]any{"kind": "svm", "features": StageStatus.Features()}},
		{"wrong feature order", map[string]any{"kind": KindLinear, "features": StageTemperature.Features(), "weights": make([]float64, 9)}},
		{"wrong stage tag", map[string]any{"kind": KindLinear, "stage": "mode", "features": StageStatus.Features(), "weights": make([]float64, 8)}},
		{"weights length", linearDoc(StageStatus, make([]float64, 3), 0)},
		{"softmax single class", map[string]any{"kind": KindSoftmax, "features": StageStatus.Features(), "classes": []int{1}, "coefficients": [][]float64{make([]float64, 8)}, "intercepts": []float64{0}}},
		{"tree cycle", artifact{Kind: KindTreeEnsemble, Features: StageStatus.Features(), Objective: ObjectiveRegression,
			Trees: []treeSpec{{Nodes: []nodeSpec{{Feature: 0, Left: 0, Right: 0}}}}}},
		{"tree leaf class unknown", artifact{Kind: KindTreeEnsemble, Features: StageStatus.Features(), Objective: ObjectiveClassification, Classes: []int{0, 1},
			Trees: []treeSpec{{Nodes: []nodeSpec{{Leaf: true, Value: 4}}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var data []byte
			if s, ok := tt.doc.(string); ok {
				data = []byte(s)
			} else {
				data = mustJSON(t, tt.doc)
			}
			_, err := Decode(data, StageStatus)
			assert.ErrorIs(t, err, ErrIncompatibleArtifact)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"), StageStatus)
	assert.ErrorIs(t, err, ErrArtifactMissing)
}

func writeArtifacts(t *testing.T, dir string) map[Stage]string {
	t.Helper()
	paths := make(map[Stage]string)
	for _, s := range Stages {
		path := filepath.Join(dir, string(s)+".json")
		doc := linearDoc(s, make([]float64, len(s.Features())), 0)
		require.NoError(t, os.WriteFile(path, mustJSON(t, doc), 0o644))
		paths[s] = path
	}
	return paths
}

func TestRegistryLoad(t *testing.T) {
	logger := logrus.New()
	paths := writeArtifacts(t, t.TempDir())

	models, err := NewRegistry(paths, logger).Load()
	require.NoError(t, err)
	for _, s := range Stages {
		require.NotNil(t, models.For(s), "stage %s", s)
		assert.Equal(t, s.Features(), models.For(s).Features())
	}

	delete(paths, StageMode)
	_, err = NewRegistry(paths, logger).Load()
	assert.ErrorIs(t, err, ErrArtifactMissing)
}

func TestShippedArtifactsLoad(t *testing.T) {
	paths := map[Stage]string{}
	for _, s := range Stages {
		paths[s] = filepath.Join("..", "artifacts", string(s)+".json")
	}
	models, err := NewRegistry(paths, logrus.New()).Load()
	require.NoError(t, err)
	assert.NotNil(t, models.For(StageMode))
}

func TestNewModelsChecksFeatures(t *testing.T) {
	p, err := Decode(mustJSON(t, linearDoc(StageStatus, make([]float64, 8), 0)), StageStatus)
	require.NoError(t, err)

	_, err = NewModels(map[Stage]Predictor{
		StageStatus:      p,
		StageTemperature: p,
		StageFanSpeed:    p,
		StageMode:        p,
	})
	assert.ErrorIs(t, err, ErrIncompatibleArtifact)
}
