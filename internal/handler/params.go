package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"degenecho/internal/auth"
	"degenecho/internal/repository"
)

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func boolQueryPtr(c *gin.Context, key string) *bool {
	if val := c.Query(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return &b
		}
	}
	return nil
}

func strQueryPtr(c *gin.Context, key string) *string {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		return &val
	}
	return nil
}

func uint8QueryPtr(c *gin.Context, key string) *uint8 {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		if v, err := strconv.ParseUint(val, 10, 8); err == nil {
			out := uint8(v)
			return &out
		}
	}
	return nil
}

func parseOrder(value string, allow map[string]string) string {
	key := strings.TrimSpace(strings.ToLower(value))
	if key == "" {
		return ""
	}
	if mapped, ok := allow[key]; ok {
		return mapped
	}
	return ""
}

// paginationMeta reports the limit the store actually applied.
func paginationMeta(limit, fallback, offset int, total int64) map[string]any {
	limit = repository.NormalizeLimit(limit, fallback)
	offset = repository.NormalizeOffset(offset)
	hasNext := int64(offset+limit) < total
	return map[string]any{
		"limit":    limit,
		"offset":   offset,
		"total":    total,
		"has_next": hasNext,
	}
}

// caller returns the authenticated identity or writes 401.
func caller(c *gin.Context) (auth.Identity, bool) {
	id, ok := auth.IdentityFromGin(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "caller identity required", nil)
		return auth.Identity{}, false
	}
	return id, true
}
