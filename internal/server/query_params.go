package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	confidencescoredomain "github.com/smallbiznis/homescore/internal/confidencescore/domain"
)

const dateOnlyLayout = "2006-01-02"

func parseOptionalInt(value string) (*int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseLimit reads ?limit=, falling back to def. Values outside [1,max] are
// rejected rather than clamped.
func parseLimit(c *gin.Context, def, max int) (int, error) {
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil || (limit != nil && (*limit < 1 || *limit > max)) {
		return 0, newValidationError("limit", "invalid_limit", "limit must be between 1 and "+strconv.Itoa(max))
	}
	if limit == nil {
		return def, nil
	}
	return *limit, nil
}

func propertyIDParam(c *gin.Context) (string, error) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return "", confidencescoredomain.ErrInvalidPropertyID
	}
	return id, nil
}
