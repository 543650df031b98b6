package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/models"
	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// dryRunDB builds statements without a server; queries return no rows.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=hvac dbname=hvac sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func paginationFor(t *testing.T, query string) PaginationParams {
	t.Helper()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/data/history"+query, nil)
	return ParsePagination(c)
}

// mirrorRows returns one row per cabin per timestamp, newest first, with ids
// assigned in insertion order.
func mirrorRows(stamps []time.Time, cabins []int) []models.CabinPrediction {
	var rows []models.CabinPrediction
	id := int64(0)
	for _, ts := range stamps {
		for _, cabin := range cabins {
			id++
			rows = append([]models.CabinPrediction{{ID: id, TS: ts, CabinNo: cabin, IduStatus: "ON", Source: "Prediction"}}, rows...)
		}
	}
	return rows
}

// afterCursor applies the keyset predicate of historyQuery to rows already in (ts, id) descending order.
func afterCursor(rows []models.CabinPrediction, p PaginationParams) []models.CabinPrediction {
	var out []models.CabinPrediction
	for _, r := range rows {
		if p.Before != nil {
			b := *p.Before
			if r.TS.After(b) || (r.TS.Equal(b) && (p.BeforeID == 0 || r.ID >= p.BeforeID)) {
				continue
			}
		}
		out = append(out, r)
		if len(out) == p.Limit+1 {
			break
		}
	}
	return out
}

func TestHistoryPagesVisitEveryRowOnce(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC)
	all := mirrorRows([]time.Time{t0, t0.Add(5 * time.Minute)}, []int{1, 2, 3})

	var seen []int64
	query := "?limit=2"
	for pages := 0; pages < 10; pages++ {
		p := paginationFor(t, query)
		page := historyPage(afterCursor(all, p), p.Limit)
		for _, r := range page.Data.([]models.CabinPrediction) {
			seen = append(seen, r.ID)
		}
		if !page.HasMore {
			break
		}
		query = "?limit=2&before=" + url.QueryEscape(page.NextCursor)
	}

	assert.Equal(t, []int64{6, 5, 4, 3, 2, 1}, seen)
}

func TestCursorRoundTrip(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	ts := time.Date(2024, 1, 1, 10, 5, 0, 0, ist)

	p := paginationFor(t, "?before="+url.QueryEscape(EncodeCursor(ts, 42)))
	require.NotNil(t, p.Before)
	assert.True(t, ts.Equal(*p.Before))
	assert.Equal(t, int64(42), p.BeforeID)

	for _, bad := range []string{"2024-01-01T10:05:00Z,x", "2024-01-01T10:05:00Z,-1", "soon,3"} {
		p := paginationFor(t, "?before="+url.QueryEscape(bad))
		assert.Nil(t, p.Before, bad)
		assert.Zero(t, p.BeforeID, bad)
	}
}

func TestHistoryQueryUsesCompositeCursor(t *testing.T) {
	db := dryRunDB(t)
	ts := time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC)

	var rows []models.CabinPrediction
	stmt := historyQuery(db, PaginationParams{Limit: 2, Before: &ts, BeforeID: 42}, "2").Find(&rows).Statement
	sql := stmt.SQL.String()

	assert.Contains(t, sql, `FROM "cabin_predictions"`)
	assert.Contains(t, sql, "(ts, id) < ($1, $2)")
	assert.Contains(t, sql, "cabin_no = $3")
	assert.Contains(t, sql, "ORDER BY ts DESC, id DESC")
	require.GreaterOrEqual(t, len(stmt.Vars), 3)
	assert.Equal(t, ts, stmt.Vars[0])
	assert.Equal(t, int64(42), stmt.Vars[1])
	assert.Equal(t, "2", stmt.Vars[2])

	legacy := historyQuery(db, PaginationParams{Limit: 2, Before: &ts}, "").Find(&rows).Statement
	assert.Contains(t, legacy.SQL.String(), "ts < $1")
}

func TestHistoryPageCursorPointsAtLastRow(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC)
	rows := mirrorRows([]time.Time{t0}, []int{1, 2, 3})

	page := historyPage(rows, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, EncodeCursor(t0, 2), page.NextCursor)
	assert.Len(t, page.Data, 2)

	last := historyPage(rows, 3)
	assert.False(t, last.HasMore)
	assert.Empty(t, last.NextCursor)
}

func TestHistoryHandler(t *testing.T) {
	router := gin.New()
	router.GET("/data/history", NewHistoryHandler(dryRunDB(t), &services.CacheService{}, time.Second).Get)

	w := do(router, httptest.NewRequest(http.MethodGet, "/data/history?cabin=2&limit=5", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp CursorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.HasMore)
	assert.Empty(t, resp.NextCursor)

	w = do(router, httptest.NewRequest(http.MethodGet, "/data/history?cabin=two", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
