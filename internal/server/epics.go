package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/models"
)

// handleListEpics returns all epics with their derived fields.
func (s *Server) handleListEpics(c *gin.Context) {
	respondSuccess(c, http.StatusOK, listJSON(s.tracker.GetEpics()))
}

// handleGetEpic returns one epic and records it in the history.
func (s *Server) handleGetEpic(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	epic, err := s.tracker.GetEpicByID(id)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, toJSON(epic))
}

// handleSaveEpic creates or renames an epic. Status, duration and schedule
// in the payload are ignored since they are derived from subtasks.
func (s *Server) handleSaveEpic(c *gin.Context) {
	p, ok := s.bindItem(c)
	if !ok {
		return
	}

	if p.ID == 0 {
		epic, err := s.tracker.CreateEpic(c.Request.Context(), p.epic())
		if err != nil {
			s.respondStoreError(c, err)
			return
		}
		respondSuccess(c, http.StatusCreated, toJSON(epic))
		return
	}

	epic, err := s.tracker.UpdateEpic(c.Request.Context(), p.epic())
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, toJSON(epic))
}

// handleListEpicSubtasks returns the subtasks of one epic in epic order.
func (s *Server) handleListEpicSubtasks(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if kind, found := s.tracker.Kind(id); !found || kind != models.KindEpic {
		s.respondError(c, http.StatusNotFound, fmt.Errorf("epic %d not found", id))
		return
	}
	respondSuccess(c, http.StatusOK, listJSON(s.tracker.GetSubtasksOf(id)))
}

// handleDeleteEpic removes an epic along with its subtasks.
func (s *Server) handleDeleteEpic(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.tracker.DeleteEpicByID(c.Request.Context(), id); err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleDeleteAllEpics removes every epic and every subtask.
func (s *Server) handleDeleteAllEpics(c *gin.Context) {
	if err := s.tracker.DeleteAllEpics(c.Request.Context()); err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
