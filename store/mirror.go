package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/models"
)

const createMirrorTable = `
CREATE TABLE IF NOT EXISTS cabin_predictions (
	id          BIGSERIAL PRIMARY KEY,
	ts          TIMESTAMPTZ NOT NULL,
	cabin_no    INTEGER NOT NULL,
	idu_status  TEXT NOT NULL,
	temperature INTEGER NOT NULL,
	fan_speed   TEXT NOT NULL,
	mode        TEXT NOT NULL,
	source      TEXT NOT NULL DEFAULT 'Prediction',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS cabin_predictions_cabin_ts ON cabin_predictions (cabin_no, ts DESC);
`

const insertMirrorRow = `
INSERT INTO cabin_predictions (ts, cabin_no, idu_status, temperature, fan_speed, mode, source)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// PGMirror copies appended rows into Postgres for history queries. The CSV
// table stays the source of truth; duplicates are kept as in the table.
type PGMirror struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewPGMirror connects, pings and creates the mirror table if needed.
func NewPGMirror(ctx context.Context, dsn string, loc *time.Location) (*PGMirror, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db pool init: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if _, err := pool.Exec(ctx, createMirrorTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create mirror table: %w", err)
	}
	return &PGMirror{pool: pool, loc: loc}, nil
}

func (m *PGMirror) Name() string { return "postgres" }

// Publish inserts rows in one batch.
func (m *PGMirror) Publish(ctx context.Context, rows []models.Row) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range rows {
		p, err := r.ToCabinPrediction(m.loc)
		if err != nil {
			return fmt.Errorf("mirror row cabin=%d time=%q: %w", r.CabinNo, r.Time, err)
		}
		batch.Queue(insertMirrorRow, p.TS, p.CabinNo, p.IduStatus, p.Temperature, p.FanSpeed, p.Mode, p.Source)
	}
	br := m.pool.SendBatch(ctx, batch)
	for range rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("mirror insert: %w", err)
		}
	}
	return br.Close()
}

func (m *PGMirror) Close() { m.pool.Close() }
