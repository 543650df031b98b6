// Package store persists result rows as an append-only CSV table.
package store

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/models"
)

var (
	// ErrNotFound means the table does not exist or holds no data rows.
	ErrNotFound = errors.New("result table not found or empty")

	ErrMissingColumns = errors.New("table is missing one or more required columns")
	ErrInvalidValue   = errors.New("invalid value in table")
	ErrUnreadable     = errors.New("table could not be read")
)

// CSVStore is the result table. Rows are only ever appended; each Append is a
// single O_APPEND write so concurrent writers in other processes never
// interleave inside a batch.
type CSVStore struct {
	path string
	mu   sync.Mutex
}

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

func (s *CSVStore) Path() string { return s.path }

// Append writes rows at the end of the table. When createHeader is set and the
// file is absent or empty, the header is written first. A new table appears on
// disk with its header and first rows already in place.
func (s *CSVStore) Append(rows []models.Row, createHeader bool) error {
	if len(rows) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	for {
		f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
		if errors.Is(err, fs.ErrNotExist) {
			err = s.create(rows, createHeader)
			if errors.Is(err, fs.ErrExist) {
				// another writer created the table first
				continue
			}
			return err
		}
		if err != nil {
			return err
		}
		return appendTo(f, rows, createHeader && isEmpty(f))
	}
}

// create publishes a fully written table with a hard link, which fails with
// fs.ErrExist when the path already exists.
func (s *CSVStore) create(rows []models.Row, header bool) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := appendTo(tmp, rows, header); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Link(tmp.Name(), s.path)
}

// appendTo encodes the batch into one buffer and writes it with a single call.
func appendTo(f *os.File, rows []models.Row, header bool) error {
	defer f.Close()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if header {
		if err := w.Write(models.Columns); err != nil {
			return err
		}
	}
	for _, r := range rows {
		if err := w.Write(encodeRow(r)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return err
	}
	return f.Close()
}

// ReadHead returns the first n rows (fewer if the table is shorter).
func (s *CSVStore) ReadHead(n int) ([]models.Row, error) {
	rows, err := s.readAll(n)
	if err != nil {
		return nil, err
	}
	return rows[:min(n, len(rows))], nil
}

// ReadTail returns the last n rows (fewer if the table is shorter).
func (s *CSVStore) ReadTail(n int) ([]models.Row, error) {
	rows, err := s.readAll(n)
	if err != nil {
		return nil, err
	}
	return rows[len(rows)-min(n, len(rows)):], nil
}

// Len counts data rows. An absent table has none.
func (s *CSVStore) Len() (int, error) {
	rows, err := s.readAll(1)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	return len(rows), err
}

// Version identifies the current table contents for cache keys.
func (s *CSVStore) Version() (string, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "absent", nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%d", info.Size(), info.ModTime().UnixNano()), nil
}

func (s *CSVStore) readAll(n int) ([]models.Row, error) {
	if n < 1 {
		return nil, fmt.Errorf("row count must be at least 1, got %d", n)
	}
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := ParseTable(f)
	if errors.Is(err, ErrUnreadable) && isEmpty(f) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows, nil
}

func isEmpty(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Size() == 0
}

// ParseTable decodes a table with a header naming every required column.
// Column order is free and extra columns are ignored. An empty Source cell
// defaults to "Prediction".
func ParseTable(r io.Reader) ([]models.Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no header", ErrUnreadable)
	}

	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	var missing []string
	for _, col := range models.Columns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	rows := make([]models.Row, 0, len(records)-1)
	for line, rec := range records[1:] {
		row, err := decodeRow(rec, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func encodeRow(r models.Row) []string {
	return []string{
		r.Time,
		strconv.Itoa(r.CabinNo),
		r.IduStatus,
		strconv.Itoa(r.Temperature),
		r.FanSpeed,
		r.Mode,
		r.Source,
	}
}

func decodeRow(rec []string, index map[string]int) (models.Row, error) {
	get := func(col string) string { return strings.TrimSpace(rec[index[col]]) }

	cabin, err := parseInt(get("Cabin_No"))
	if err != nil {
		return models.Row{}, fmt.Errorf("%w: Cabin_No %q", ErrInvalidValue, get("Cabin_No"))
	}
	temperature, err := parseInt(get("Temperature"))
	if err != nil {
		return models.Row{}, fmt.Errorf("%w: Temperature %q", ErrInvalidValue, get("Temperature"))
	}
	source := get("Source")
	if source == "" {
		source = models.SourcePrediction
	}
	return models.Row{
		Time:        get("Time"),
		CabinNo:     cabin,
		IduStatus:   get("Idu_Status"),
		Temperature: temperature,
		FanSpeed:    get("FanSpeed"),
		Mode:        get("Mode"),
		Source:      source,
	}, nil
}

// parseInt accepts integral floats ("21.0") as written by dataframe tools.
func parseInt(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(f), nil
}
