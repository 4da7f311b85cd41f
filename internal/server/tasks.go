package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleListTasks returns every task.
func (s *Server) handleListTasks(c *gin.Context) {
	respondSuccess(c, http.StatusOK, listJSON(s.tracker.GetTasks()))
}

// handleGetTask returns one task and records it in the history.
func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	task, err := s.tracker.GetTaskByID(id)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, toJSON(task))
}

// handleSaveTask creates a task when the payload has no id and replaces the
// stored task otherwise.
func (s *Server) handleSaveTask(c *gin.Context) {
	p, ok := s.bindItem(c)
	if !ok {
		return
	}

	if p.ID == 0 {
		task, err := s.tracker.CreateTask(c.Request.Context(), p.task())
		if err != nil {
			s.respondStoreError(c, err)
			return
		}
		respondSuccess(c, http.StatusCreated, toJSON(task))
		return
	}

	task, err := s.tracker.UpdateTask(c.Request.Context(), p.task())
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, toJSON(task))
}

// handleDeleteTask removes a task. Deleting a missing task succeeds.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.tracker.DeleteTaskByID(c.Request.Context(), id); err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleDeleteAllTasks removes every task.
func (s *Server) handleDeleteAllTasks(c *gin.Context) {
	if err := s.tracker.DeleteAllTasks(c.Request.Context()); err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
