package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"tasktracker/internal/models"
)

var validate = validator.New()

// itemJSON is the wire form of every item kind. Duration is in minutes and
// capped at the largest count that fits a time.Duration.
// Type, EndTime and Subtasks are ignored on input.
type itemJSON struct {
	ID          int64         `json:"id" validate:"gte=0"`
	Type        models.Kind   `json:"type,omitempty"`
	Title       string        `json:"title" validate:"max=255"`
	Description string        `json:"description"`
	Status      models.Status `json:"status,omitempty" validate:"omitempty,oneof=NEW IN_PROGRESS DONE"`
	Duration    *int64        `json:"duration,omitempty" validate:"omitempty,gte=0,max=153722867"`
	StartTime   *time.Time    `json:"startTime,omitempty"`
	EndTime     *time.Time    `json:"endTime,omitempty"`
	EpicID      int64         `json:"epicId,omitempty" validate:"gte=0"`
	Subtasks    []int64       `json:"subtasks,omitempty"`
}

// bindItem decodes and validates the request body, writing a 400 response
// on failure. A path id overrides the id in the body.
func (s *Server) bindItem(c *gin.Context) (itemJSON, bool) {
	var p itemJSON
	if err := c.ShouldBindJSON(&p); err != nil {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("malformed payload: %w", err))
		return itemJSON{}, false
	}
	if err := validate.Struct(p); err != nil {
		s.respondError(c, http.StatusBadRequest, validationError(err))
		return itemJSON{}, false
	}
	if c.Param("id") != "" {
		id, ok := parseID(c, "id")
		if !ok {
			return itemJSON{}, false
		}
		p.ID = id
	}
	return p, true
}

func validationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("field %s fails %s", e.Field(), e.Tag()))
	}
	return fmt.Errorf("invalid payload: %s", strings.Join(msgs, "; "))
}

func (p itemJSON) item() models.Item {
	item := models.Item{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Status:      p.Status,
		StartTime:   p.StartTime,
	}
	if p.Duration != nil {
		item.Duration = time.Duration(*p.Duration) * time.Minute
	}
	return item
}

func (p itemJSON) task() models.Task {
	return models.Task{Item: p.item()}
}

func (p itemJSON) epic() models.Epic {
	return models.Epic{Item: p.item()}
}

func (p itemJSON) subtask() models.Subtask {
	return models.Subtask{Item: p.item(), EpicID: p.EpicID}
}

func toJSON(e models.Entity) itemJSON {
	base := e.Base()
	minutes := int64(base.Duration / time.Minute)
	p := itemJSON{
		ID:          base.ID,
		Type:        e.Kind(),
		Title:       base.Title,
		Description: base.Description,
		Status:      base.Status,
		Duration:    &minutes,
		StartTime:   base.StartTime,
		EndTime:     base.End(),
	}
	switch v := e.(type) {
	case models.Epic:
		p.EndTime = v.End()
		p.Subtasks = v.SubtaskIDs
	case models.Subtask:
		p.EpicID = v.EpicID
	}
	return p
}

func listJSON[E models.Entity](items []E) []itemJSON {
	out := make([]itemJSON, 0, len(items))
	for _, item := range items {
		out = append(out, toJSON(item))
	}
	return out
}

// WriteItems encodes entities to w in the same JSON form the API serves.
func WriteItems(w io.Writer, entities []models.Entity) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(listJSON(entities))
}
