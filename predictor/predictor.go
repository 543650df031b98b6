// Package predictor loads the pre-trained stage models and exposes them behind
// a single batch prediction capability.
package predictor

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/features"
)

var (
	ErrArtifactMissing      = errors.New("model artifact missing")
	ErrIncompatibleArtifact = errors.New("model artifact incompatible")
)

// Predictor scores a batch of feature rows in one call. Rows follow the
// column order returned by Features. Classifiers return class codes,
// regressors return raw values.
type Predictor interface {
	Predict(batch [][]float64) ([]float64, error)
	Features() []string
}

// Stage names one step of the chained inference.
type Stage string

const (
	StageStatus      Stage = "status"
	StageTemperature Stage = "temperature"
	StageFanSpeed    Stage = "fanspeed"
	StageMode        Stage = "mode"
)

// Stages lists the stages in execution order.
var Stages = []Stage{StageStatus, StageTemperature, StageFanSpeed, StageMode}

var calendarTail = []string{
	features.DayOfWeek, features.Quarter, features.Month,
	features.DayOfYear, features.DayOfMonth, features.WeekOfYear,
}

func columns(head ...string) []string {
	return append(head, calendarTail...)
}

var stageColumns = map[Stage][]string{
	StageStatus:      columns(features.CabinNo, features.Hour),
	StageTemperature: columns(features.CabinNo, features.Hour, features.IduStatus),
	StageFanSpeed:    columns(features.CabinNo, features.Hour, features.IduStatus, features.Temperature),
	StageMode:        columns(features.CabinNo, features.Hour, features.IduStatus, features.FanSpeed, features.Temperature),
}

// Features returns the input column order the stage's model was trained with.
func (s Stage) Features() []string {
	return slices.Clone(stageColumns[s])
}

func (s Stage) valid() bool {
	_, ok := stageColumns[s]
	return ok
}

// Models holds one predictor per stage.
type Models struct {
	byStage map[Stage]Predictor
}

// NewModels checks that every stage has a predictor trained on that stage's
// columns.
func NewModels(byStage map[Stage]Predictor) (*Models, error) {
	m := &Models{byStage: make(map[Stage]Predictor, len(Stages))}
	for _, s := range Stages {
		p, ok := byStage[s]
		if !ok || p == nil {
			return nil, fmt.Errorf("%w: no predictor for stage %s", ErrArtifactMissing, s)
		}
		if !slices.Equal(p.Features(), stageColumns[s]) {
			return nil, fmt.Errorf("%w: stage %s expects features %v, got %v",
				ErrIncompatibleArtifact, s, stageColumns[s], p.Features())
		}
		m.byStage[s] = p
	}
	return m, nil
}

// For returns the predictor of stage s.
func (m *Models) For(s Stage) Predictor {
	return m.byStage[s]
}
