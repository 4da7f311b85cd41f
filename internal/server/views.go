package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// handleHistory returns recently fetched items, oldest first. The limit
// query parameter, or the configured limit, keeps only the newest entries.
func (s *Server) handleHistory(c *gin.Context) {
	limit := s.historyLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(c, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	entries := s.tracker.GetHistory()
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	respondSuccess(c, http.StatusOK, listJSON(entries))
}

// handlePrioritized returns scheduled tasks and subtasks by start time.
func (s *Server) handlePrioritized(c *gin.Context) {
	respondSuccess(c, http.StatusOK, listJSON(s.tracker.GetPrioritized()))
}
