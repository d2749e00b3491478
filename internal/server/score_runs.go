package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	defaultRunListLimit = 20
	maxRunListLimit     = 100
)

func (s *Server) ListScoreRuns(c *gin.Context) {
	limit, err := parseLimit(c, defaultRunListLimit, maxRunListLimit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	runs, err := s.ledger.ListRuns(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": runs})
}

// TriggerScoreRun runs the monthly batch synchronously, bypassing the
// completed-period check used by the scheduled loop.
func (s *Server) TriggerScoreRun(c *gin.Context) {
	if s.scheduler == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	summary, err := s.scheduler.RunMonthlyScoreCalculation(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}
