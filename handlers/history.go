package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/models"
	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HistoryHandler struct {
	db    *gorm.DB
	cache *services.CacheService
	ttl   time.Duration
}

func NewHistoryHandler(db *gorm.DB, cache *services.CacheService, ttl time.Duration) *HistoryHandler {
	return &HistoryHandler{db: db, cache: cache, ttl: ttl}
}

// Get serves GET /data/history?cabin=&limit=&before= from the Postgres mirror, newest first.
func (h *HistoryHandler) Get(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history database is not configured"})
		return
	}

	p := ParsePagination(c)
	cabinStr := c.Query("cabin")
	if cabinStr != "" {
		if _, err := strconv.Atoi(cabinStr); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cabin must be an integer"})
			return
		}
	}

	cursor := ""
	if p.Before != nil {
		cursor = EncodeCursor(*p.Before, p.BeforeID)
	}
	cacheKey := fmt.Sprintf("hvac:history:%s:%d:%s", cabinStr, p.Limit, cursor)

	var cached CursorResponse
	if found, err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && found {
		c.JSON(http.StatusOK, cached)
		return
	}

	var rows []models.CabinPrediction
	if err := historyQuery(h.db.WithContext(c.Request.Context()), p, cabinStr).Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}

	resp := historyPage(rows, p.Limit)
	go h.cache.Set(context.Background(), cacheKey, resp, h.ttl)

	c.JSON(http.StatusOK, resp)
}

// historyQuery selects one page plus one extra row, ordered by (ts, id)
// descending and starting strictly after the cursor position.
func historyQuery(db *gorm.DB, p PaginationParams, cabin string) *gorm.DB {
	query := db.Model(&models.CabinPrediction{}).
		Order("ts DESC, id DESC").
		Limit(p.Limit + 1)
	if p.Before != nil {
		if p.BeforeID > 0 {
			query = query.Where("(ts, id) < (?, ?)", *p.Before, p.BeforeID)
		} else {
			query = query.Where("ts < ?", *p.Before)
		}
	}
	if cabin != "" {
		query = query.Where("cabin_no = ?", cabin)
	}
	return query
}

func historyPage(rows []models.CabinPrediction, limit int) CursorResponse {
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	var nextCursor string
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		nextCursor = EncodeCursor(last.TS, last.ID)
	}
	return CursorResponse{Data: rows, NextCursor: nextCursor, HasMore: hasMore}
}
