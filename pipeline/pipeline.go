// Package pipeline runs the chained status → temperature → fan speed → mode
// inference for a set of cabins at one timestamp.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/features"
	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/models"
	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/predictor"
)

// TemperatureFloor is the regressor output below which a cabin has no demand.
const TemperatureFloor = 5.0

type Pipeline struct {
	source ModelSource
	loc    *time.Location
	logger logrus.FieldLogger
}

func New(source ModelSource, loc *time.Location, logger logrus.FieldLogger) *Pipeline {
	return &Pipeline{source: source, loc: loc, logger: logger}
}

// Location is the zone rows are formatted in.
func (p *Pipeline) Location() *time.Location { return p.loc }

// Run predicts one row per cabin, in cabin order, for ts.
func (p *Pipeline) Run(ctx context.Context, ts time.Time, cabins []int) ([]models.Row, error) {
	if len(cabins) == 0 {
		return nil, errors.New("pipeline: no cabins")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := p.source.Models()
	if err != nil {
		return nil, fmt.Errorf("pipeline: models: %w", err)
	}

	local := ts.In(p.loc)
	vecs := make([]features.Vector, len(cabins))
	for i, cabin := range cabins {
		vecs[i] = features.Extract(local, cabin)
	}

	status, err := predictCodes(m, predictor.StageStatus, vecs)
	if err != nil {
		return nil, err
	}
	vecs = extend(vecs, features.IduStatus, status)

	raw, err := predictStage(m, predictor.StageTemperature, vecs)
	if err != nil {
		return nil, err
	}
	temperature := make([]int, len(raw))
	for i, v := range raw {
		temperature[i] = TemperatureCode(v)
	}
	vecs = extend(vecs, features.Temperature, temperature)

	fan, err := predictCodes(m, predictor.StageFanSpeed, vecs)
	if err != nil {
		return nil, err
	}
	vecs = extend(vecs, features.FanSpeed, fan)

	mode, err := predictCodes(m, predictor.StageMode, vecs)
	if err != nil {
		return nil, err
	}

	formatted := local.Format(models.TimeLayout)
	rows := make([]models.Row, len(cabins))
	for i, cabin := range cabins {
		row, err := remap(formatted, cabin, status[i], temperature[i], fan[i], mode[i], raw[i])
		if err != nil {
			return nil, err
		}
		rows[i] = row
	}
	p.logger.WithFields(logrus.Fields{"ts": formatted, "cabins": len(cabins)}).Debug("pipeline run complete")
	return rows, nil
}

// TemperatureCode turns the raw regressor output into a temperature code.
// Values under TemperatureFloor mean no demand (code 0). Otherwise the value
// is rounded half to even; a rounded value equal to a temperature label (20..26 degrees)
// maps to that label's code, anything else is clamped into the code range.
// NaN yields -1, which has no label.
func TemperatureCode(v float64) int {
	if math.IsNaN(v) {
		return -1
	}
	if v < TemperatureFloor {
		return 0
	}
	r := math.RoundToEven(v)
	if r > models.MaxTemperatureCode {
		if code, ok := models.TemperatureCodeFor(int(math.Min(r, math.MaxInt32))); ok {
			return code
		}
		return models.MaxTemperatureCode
	}
	return int(r)
}

func predictStage(m *predictor.Models, stage predictor.Stage, vecs []features.Vector) ([]float64, error) {
	p := m.For(stage)
	cols := p.Features()
	batch := make([][]float64, len(vecs))
	for i, v := range vecs {
		row, err := v.Select(cols)
		if err != nil {
			return nil, fmt.Errorf("pipeline: stage %s: %w", stage, err)
		}
		batch[i] = row
	}
	out, err := p.Predict(batch)
	if err != nil {
		return nil, fmt.Errorf("pipeline: stage %s predict: %w", stage, err)
	}
	if len(out) != len(batch) {
		return nil, fmt.Errorf("pipeline: stage %s returned %d outputs for %d rows", stage, len(out), len(batch))
	}
	return out, nil
}

func predictCodes(m *predictor.Models, stage predictor.Stage, vecs []features.Vector) ([]int, error) {
	out, err := predictStage(m, stage, vecs)
	if err != nil {
		return nil, err
	}
	codes := make([]int, len(out))
	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &RemapError{Stage: stage, Code: -1, Raw: v}
		}
		codes[i] = int(math.Round(v))
	}
	return codes, nil
}

func extend(vecs []features.Vector, name string, codes []int) []features.Vector {
	out := make([]features.Vector, len(vecs))
	for i, v := range vecs {
		out[i] = v.With(name, float64(codes[i]))
	}
	return out
}

func remap(ts string, cabin, status, temperature, fan, mode int, rawTemperature float64) (models.Row, error) {
	statusLabel, ok := models.IduStatusLabels[status]
	if !ok {
		return models.Row{}, &RemapError{Stage: predictor.StageStatus, Code: status, Raw: float64(status)}
	}
	degrees, ok := models.TemperatureLabels[temperature]
	if !ok {
		return models.Row{}, &RemapError{Stage: predictor.StageTemperature, Code: temperature, Raw: rawTemperature}
	}
	fanLabel, ok := models.FanSpeedLabels[fan]
	if !ok {
		return models.Row{}, &RemapError{Stage: predictor.StageFanSpeed, Code: fan, Raw: float64(fan)}
	}
	modeLabel, ok := models.ModeLabels[mode]
	if !ok {
		return models.Row{}, &RemapError{Stage: predictor.StageMode, Code: mode, Raw: float64(mode)}
	}
	return models.Row{
		Time:        ts,
		CabinNo:     cabin,
		IduStatus:   statusLabel,
		Temperature: degrees,
		FanSpeed:    fanLabel,
		Mode:        modeLabel,
		Source:      models.SourcePrediction,
	}, nil
}
