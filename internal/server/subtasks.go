package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleListSubtasks(c *gin.Context) {
	respondSuccess(c, http.StatusOK, listJSON(s.tracker.GetSubtasks()))
}

func (s *Server) handleGetSubtask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sub, err := s.tracker.GetSubtaskByID(id)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, toJSON(sub))
}

// handleSaveSubtask creates or replaces a subtask. The epic id is required.
func (s *Server) handleSaveSubtask(c *gin.Context) {
	p, ok := s.bindItem(c)
	if !ok {
		return
	}
	if err := validate.Var(p.EpicID, "required,gt=0"); err != nil {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("epicId is required"))
		return
	}

	if p.ID == 0 {
		sub, err := s.tracker.CreateSubtask(c.Request.Context(), p.subtask())
		if err != nil {
			s.respondStoreError(c, err)
			return
		}
		respondSuccess(c, http.StatusCreated, toJSON(sub))
		return
	}

	sub, err := s.tracker.UpdateSubtask(c.Request.Context(), p.subtask())
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, toJSON(sub))
}

func (s *Server) handleDeleteSubtask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.tracker.DeleteSubtaskByID(c.Request.Context(), id); err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleDeleteAllSubtasks(c *gin.Context) {
	if err := s.tracker.DeleteAllSubtasks(c.Request.Context()); err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
