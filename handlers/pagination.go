package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// PaginationParams is a keyset page request. Before and BeforeID come from
// the previous page's next_cursor; BeforeID is 0 when the cursor had no id.
type PaginationParams struct {
	Limit    int
	Before   *time.Time
	BeforeID int64
}

type CursorResponse struct {
	Data       interface{} `json:"data"`
	NextCursor string      `json:"next_cursor,omitempty"`
	HasMore    bool        `json:"has_more"`
}

// EncodeCursor renders the position of the last row on a page as "<RFC 3339 ts>,<id>".
func EncodeCursor(ts time.Time, id int64) string {
	return fmt.Sprintf("%s,%d", ts.Format(time.RFC3339Nano), id)
}

// ParsePagination reads limit and before. before is a cursor from
// EncodeCursor or a bare RFC 3339 timestamp. Bad values fall back to defaults.
func ParsePagination(c *gin.Context) PaginationParams {
	p := PaginationParams{Limit: DefaultLimit}

	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			p.Limit = l
		}
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	if beforeStr := c.Query("before"); beforeStr != "" {
		tsStr, idStr, hasID := strings.Cut(beforeStr, ",")
		t, err := time.Parse(time.RFC3339Nano, tsStr)
		if err != nil {
			return p
		}
		if hasID {
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil || id <= 0 {
				return p
			}
			p.BeforeID = id
		}
		p.Before = &t
	}

	return p
}
