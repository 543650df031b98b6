// Package scheduler drives the prediction pipeline on a wall-clock aligned
// fixed step and appends the results to the result table.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/models"
)

// ErrAppendFailed is returned once every append attempt for a batch failed.
var ErrAppendFailed = errors.New("append to result table failed")

// Runner produces the rows for one timestamp.
type Runner interface {
	Run(ctx context.Context, ts time.Time, cabins []int) ([]models.Row, error)
	Location() *time.Location
}

// Appender is the result table.
type Appender interface {
	Append(rows []models.Row, createHeader bool) error
}

// Sink receives rows after they reach the result table.
type Sink interface {
	Name() string
	Publish(ctx context.Context, rows []models.Row) error
}

type Options struct {
	Cabins        []int
	Step          time.Duration
	AppendRetries int
	AppendBackoff time.Duration
}

type Scheduler struct {
	runner Runner
	store  Appender
	clock  Clock
	sinks  []Sink
	opts   Options
	logger logrus.FieldLogger

	// rows whose append failed; written ahead of the next batch
	pending []models.Row
}

func New(runner Runner, store Appender, clock Clock, opts Options, logger logrus.FieldLogger, sinks ...Sink) *Scheduler {
	return &Scheduler{
		runner: runner,
		store:  store,
		clock:  clock,
		sinks:  sinks,
		opts:   opts,
		logger: logger,
	}
}

// Pending returns the number of rows waiting for a successful append.
func (s *Scheduler) Pending() int { return len(s.pending) }

// Run waits for the next step boundary, then runs one cycle per step until
// ctx is cancelled or the pipeline fails.
func (s *Scheduler) Run(ctx context.Context) error {
	loc := s.runner.Location()
	now := s.clock.Now().In(loc)
	start := Align(now, s.opts.Step)
	wait := start.Sub(now)

	s.logger.WithFields(logrus.Fields{
		"now":     now.Format(time.DateTime),
		"aligned": start.Format(time.DateTime),
		"wait":    wait.String(),
		"cabins":  s.opts.Cabins,
	}).Info("aligned scheduler start")

	if wait > 0 {
		if err := s.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}

	seq := NewSequence(start, s.opts.Step)
	nextSave := start
	for {
		var (
			ts  time.Time
			err error
		)
		ts, seq = seq.Next()
		nextSave, err = s.cycle(ctx, ts, nextSave)
		if err != nil {
			return err
		}

		sleep := max(nextSave.Sub(s.clock.Now()), 0)
		s.logger.WithFields(logrus.Fields{"next": nextSave.Format(time.DateTime), "sleep": sleep.String()}).Debug("waiting for next step")
		if err := s.clock.Sleep(ctx, sleep); err != nil {
			return err
		}
	}
}

// cycle runs the pipeline for ts and saves the rows once ts reaches nextSave.
// It returns the updated save boundary.
func (s *Scheduler) cycle(ctx context.Context, ts time.Time, nextSave time.Time) (time.Time, error) {
	started := s.clock.Now()
	defer func() {
		cycleDuration.Observe(s.clock.Now().Sub(started).Seconds())
	}()
	cyclesTotal.Inc()

	rows, err := s.runner.Run(ctx, ts, s.opts.Cabins)
	if err != nil {
		cyclesFailed.Inc()
		return nextSave, fmt.Errorf("predict %s: %w", ts.Format(time.DateTime), err)
	}
	rowsPredicted.Add(float64(len(rows)))

	label := ts.In(s.runner.Location()).Format(models.TimeLayout)
	batch := make([]models.Row, 0, len(rows))
	for _, r := range rows {
		if r.Time == label {
			batch = append(batch, r)
		}
	}

	if ts.Before(nextSave) {
		return nextSave, nil
	}
	if len(batch) == 0 {
		s.logger.WithField("ts", label).Warn("no results to append")
	} else {
		s.save(ctx, label, batch)
	}
	return ts.Add(s.opts.Step), nil
}

// save appends pending rows followed by batch. On failure everything stays
// pending for the next cycle.
func (s *Scheduler) save(ctx context.Context, label string, batch []models.Row) {
	rows := append(s.pending, batch...)
	if err := s.appendWithRetry(ctx, rows); err != nil {
		s.pending = rows
		pendingRows.Set(float64(len(s.pending)))
		s.logger.WithError(err).WithFields(logrus.Fields{"ts": label, "pending": len(s.pending)}).Error("rows kept in memory until the table is writable")
		return
	}
	s.pending = nil
	pendingRows.Set(0)
	rowsAppended.Add(float64(len(rows)))
	s.logger.WithFields(logrus.Fields{"ts": label, "rows": len(rows)}).Info("appended results")

	s.publish(ctx, rows)
}

func (s *Scheduler) appendWithRetry(ctx context.Context, rows []models.Row) error {
	backoff := s.opts.AppendBackoff
	var err error
	for attempt := 0; ; attempt++ {
		if err = s.store.Append(rows, true); err == nil {
			return nil
		}
		appendFailures.Inc()
		if attempt >= s.opts.AppendRetries {
			break
		}
		s.logger.WithError(err).WithFields(logrus.Fields{"attempt": attempt + 1, "backoff": backoff.String()}).Warn("append failed, retrying")
		if serr := s.clock.Sleep(ctx, backoff); serr != nil {
			break
		}
		backoff *= 2
	}
	return fmt.Errorf("%w: %v", ErrAppendFailed, err)
}

func (s *Scheduler) publish(ctx context.Context, rows []models.Row) {
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, rows); err != nil {
			sinkFailures.WithLabelValues(sink.Name()).Inc()
			s.logger.WithError(err).WithField("sink", sink.Name()).Warn("publish failed")
		}
	}
}
