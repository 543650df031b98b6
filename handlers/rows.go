package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/models"
	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/services"
	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/store"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var errNoPayload = errors.New("no JSON data or file uploaded")

// rowPayload is one submitted row. Source is optional.
type rowPayload struct {
	Time        *string `json:"Time" binding:"required"`
	CabinNo     *int    `json:"Cabin_No" binding:"required"`
	IduStatus   *string `json:"Idu_Status" binding:"required"`
	Temperature *int    `json:"Temperature" binding:"required"`
	FanSpeed    *string `json:"FanSpeed" binding:"required"`
	Mode        *string `json:"Mode" binding:"required"`
	Source      string  `json:"Source"`
}

func (p rowPayload) row() models.Row {
	source := p.Source
	if source == "" {
		source = models.SourcePrediction
	}
	return models.Row{
		Time:        *p.Time,
		CabinNo:     *p.CabinNo,
		IduStatus:   *p.IduStatus,
		Temperature: *p.Temperature,
		FanSpeed:    *p.FanSpeed,
		Mode:        *p.Mode,
		Source:      source,
	}
}

type RowsHandler struct {
	store   *store.CSVStore
	cache   *services.CacheService
	db      *gorm.DB
	channel string
	ttl     time.Duration
	loc     *time.Location
	logger  logrus.FieldLogger
}

type RowsOptions struct {
	Channel  string
	CacheTTL time.Duration
	Location *time.Location
}

func NewRowsHandler(st *store.CSVStore, cache *services.CacheService, db *gorm.DB, opts RowsOptions, logger logrus.FieldLogger) *RowsHandler {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	return &RowsHandler{
		store:   st,
		cache:   cache,
		db:      db,
		channel: opts.Channel,
		ttl:     opts.CacheTTL,
		loc:     loc,
		logger:  logger,
	}
}

// Get serves GET /data/?count=N&order=first|last.
func (h *RowsHandler) Get(c *gin.Context) {
	count := 1
	if countStr := c.Query("count"); countStr != "" {
		n, err := strconv.Atoi(countStr)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "count must be an integer >= 1"})
			return
		}
		count = n
	}
	order := c.DefaultQuery("order", "last")
	if order != "first" && order != "last" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order must be 'first' or 'last'"})
		return
	}

	version, err := h.store.Version()
	if err != nil {
		h.logger.WithError(err).Error("stat result table")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal server error occurred"})
		return
	}
	cacheKey := fmt.Sprintf("hvac:rows:%s:%d:%s", order, count, version)

	var cached []models.Row
	if found, err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && found {
		c.JSON(http.StatusOK, cached)
		return
	}

	var rows []models.Row
	if order == "last" {
		rows, err = h.store.ReadTail(count)
	} else {
		rows, err = h.store.ReadHead(count)
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "No data found in the CSV file"})
		return
	case err != nil:
		h.logger.WithError(err).Error("read result table")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "The CSV file is empty or could not be read"})
		return
	}

	go h.cache.Set(context.Background(), cacheKey, rows, h.ttl)

	c.JSON(http.StatusOK, rows)
}

// Post serves POST /data/ with a JSON array body, a json_data form field or a
// file upload.
func (h *RowsHandler) Post(c *gin.Context) {
	rows, err := h.readPayload(c)
	if err != nil {
		status, msg := payloadError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	if err := h.store.Append(rows, true); err != nil {
		h.logger.WithError(err).Error("append submitted rows")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal server error occurred"})
		return
	}
	rowsSubmitted.Add(float64(len(rows)))
	h.logger.WithField("rows", len(rows)).Info("rows appended")

	h.fanOut(c.Request.Context(), rows)

	c.JSON(http.StatusOK, gin.H{"message": "Data saved successfully"})
}

func (h *RowsHandler) readPayload(c *gin.Context) ([]models.Row, error) {
	switch c.ContentType() {
	case binding.MIMEJSON:
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrUnreadable, err)
		}
		return decodeRows(body)
	case binding.MIMEMultipartPOSTForm, binding.MIMEPOSTForm:
		if data := c.PostForm("json_data"); strings.TrimSpace(data) != "" {
			return decodeRows([]byte(data))
		}
		header, err := c.FormFile("file")
		if err != nil {
			return nil, errNoPayload
		}
		f, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrUnreadable, err)
		}
		defer f.Close()
		return store.ParseTable(f)
	default:
		return nil, errNoPayload
	}
}

func decodeRows(data []byte) ([]models.Row, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errNoPayload
	}
	var payload []rowPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidValue, err)
	}
	if len(payload) == 0 {
		return nil, errNoPayload
	}
	rows := make([]models.Row, 0, len(payload))
	for i := range payload {
		if err := binding.Validator.ValidateStruct(&payload[i]); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", store.ErrInvalidValue, i, err)
		}
		rows = append(rows, payload[i].row())
	}
	return rows, nil
}

func payloadError(err error) (int, string) {
	switch {
	case errors.Is(err, errNoPayload):
		return http.StatusBadRequest, "No JSON data or file uploaded"
	case errors.Is(err, store.ErrMissingColumns):
		return http.StatusBadRequest, "CSV file is missing one or more required columns"
	case errors.Is(err, store.ErrInvalidValue):
		return http.StatusBadRequest, "Value Error: " + err.Error()
	case errors.Is(err, store.ErrUnreadable):
		return http.StatusInternalServerError, "Error occurred while reading the uploaded CSV file"
	default:
		return http.StatusInternalServerError, "An internal server error occurred"
	}
}

// fanOut publishes accepted rows and mirrors them into Postgres. Failures here
// are logged; the rows are already in the result table.
func (h *RowsHandler) fanOut(ctx context.Context, rows []models.Row) {
	if len(rows) == 0 {
		return
	}
	if err := h.cache.Publish(ctx, h.channel, rows); err != nil {
		h.logger.WithError(err).Warn("publish submitted rows")
	}
	if h.db == nil {
		return
	}
	mirrored := make([]models.CabinPrediction, 0, len(rows))
	for _, r := range rows {
		p, err := r.ToCabinPrediction(h.loc)
		if err != nil {
			h.logger.WithError(err).WithField("time", r.Time).Warn("row not mirrored")
			continue
		}
		mirrored = append(mirrored, p)
	}
	if len(mirrored) == 0 {
		return
	}
	if err := h.db.WithContext(ctx).Create(&mirrored).Error; err != nil {
		h.logger.WithError(err).Warn("mirror submitted rows")
	}
}
