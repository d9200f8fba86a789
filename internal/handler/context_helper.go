package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/payout-api/internal/middleware"
	"github.com/fieldserve/payout-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// jobFilterFromQuery parses the shared technician/date-range filter. Dates are
// YYYY-MM-DD; an unparsable date is reported, not ignored.
func jobFilterFromQuery(c *gin.Context) (models.JobFilter, error) {
	filter := models.JobFilter{
		Technician: strings.TrimSpace(c.Query("technician")),
	}
	for _, bound := range []struct {
		param string
		dest  **time.Time
	}{
		{param: "start_date", dest: &filter.StartDate},
		{param: "end_date", dest: &filter.EndDate},
	} {
		raw := strings.TrimSpace(c.Query(bound.param))
		if raw == "" {
			continue
		}
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, err
		}
		*bound.dest = &parsed
	}
	return filter, nil
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
