package models

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Status is the lifecycle state shared by every item kind.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Kind tells which collection an item belongs to.
type Kind string

const (
	KindTask    Kind = "TASK"
	KindEpic    Kind = "EPIC"
	KindSubtask Kind = "SUBTASK"
)

var (
	ErrSelfReference    = errors.New("item references itself")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrNegativeDuration = errors.New("duration must not be negative")
	ErrDuplicateSubtask = errors.New("subtask already linked")
)

// Entity is implemented by Task, Epic and Subtask so mixed views such as the
// history keep the item kind.
type Entity interface {
	Base() Item
	Kind() Kind
}

// Item holds the attributes common to all kinds. An ID of zero means the
// store has not assigned one yet.
type Item struct {
	ID          int64
	Title       string
	Description string
	Status      Status
	Duration    time.Duration
	StartTime   *time.Time
}

// Base returns a copy of the shared attributes.
func (i Item) Base() Item {
	i.StartTime = cloneTime(i.StartTime)
	return i
}

// End returns StartTime plus Duration, or nil when the item is unscheduled.
func (i Item) End() *time.Time {
	if i.StartTime == nil {
		return nil
	}
	end := i.StartTime.Add(i.Duration)
	return &end
}

// Scheduled reports whether the item takes part in the priority ordering.
func (i Item) Scheduled() bool {
	return i.StartTime != nil
}

// Validate checks the fields that a caller may set directly.
func (i Item) Validate() error {
	if !i.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, i.Status)
	}
	if i.Duration < 0 {
		return ErrNegativeDuration
	}
	return nil
}

// Normalize fills in defaults for fields left empty by the caller.
func (i *Item) Normalize() {
	if i.Status == "" {
		i.Status = StatusNew
	}
}

// Task is a standalone item whose status is set by the caller.
type Task struct {
	Item
}

func (Task) Kind() Kind { return KindTask }

// Clone returns a copy that shares no memory with t.
func (t Task) Clone() Task {
	t.Item = t.Item.Base()
	return t
}

// Subtask is an item owned by exactly one epic.
type Subtask struct {
	Item
	EpicID int64
}

func (Subtask) Kind() Kind { return KindSubtask }

// Clone returns a copy that shares no memory with s.
func (s Subtask) Clone() Subtask {
	s.Item = s.Item.Base()
	return s
}

// Validate rejects a subtask naming itself as its epic on top of the checks
// made by Item.Validate.
func (s Subtask) Validate() error {
	if s.ID != 0 && s.ID == s.EpicID {
		return fmt.Errorf("%w: subtask %d cannot be its own epic", ErrSelfReference, s.ID)
	}
	return s.Item.Validate()
}

// Epic groups subtasks. Status, Duration, StartTime and EndTime are derived
// from the subtasks by Recompute; values set by callers do not survive it.
type Epic struct {
	Item
	SubtaskIDs []int64
	EndTime    *time.Time
}

func (Epic) Kind() Kind { return KindEpic }

// End returns the latest end time among the subtasks.
func (e Epic) End() *time.Time {
	return cloneTime(e.EndTime)
}

// Clone returns a copy that shares no memory with e.
func (e Epic) Clone() Epic {
	e.Item = e.Item.Base()
	e.SubtaskIDs = slices.Clone(e.SubtaskIDs)
	e.EndTime = cloneTime(e.EndTime)
	return e
}

// AddSubtask appends id to the subtask list.
func (e *Epic) AddSubtask(id int64) error {
	if id == e.ID {
		return fmt.Errorf("%w: epic %d cannot contain itself", ErrSelfReference, e.ID)
	}
	if slices.Contains(e.SubtaskIDs, id) {
		return fmt.Errorf("%w: %d in epic %d", ErrDuplicateSubtask, id, e.ID)
	}
	e.SubtaskIDs = append(e.SubtaskIDs, id)
	return nil
}

// RemoveSubtask drops id from the subtask list if present.
func (e *Epic) RemoveSubtask(id int64) {
	e.SubtaskIDs = slices.DeleteFunc(e.SubtaskIDs, func(v int64) bool { return v == id })
}

// Recompute derives status, duration and time span from the subtasks found
// through lookup. Ids that lookup cannot resolve are skipped.
func (e *Epic) Recompute(lookup func(id int64) (Subtask, bool)) {
	e.Status = StatusNew
	e.Duration = 0
	e.StartTime = nil
	e.EndTime = nil

	allNew, allDone, seen := true, true, 0
	for _, id := range e.SubtaskIDs {
		sub, ok := lookup(id)
		if !ok {
			continue
		}
		seen++
		if sub.Status != StatusNew {
			allNew = false
		}
		if sub.Status != StatusDone {
			allDone = false
		}
		e.Duration += sub.Duration
		if sub.StartTime == nil {
			continue
		}
		if e.StartTime == nil || sub.StartTime.Before(*e.StartTime) {
			e.StartTime = cloneTime(sub.StartTime)
		}
		if end := sub.End(); e.EndTime == nil || end.After(*e.EndTime) {
			e.EndTime = end
		}
	}

	switch {
	case seen == 0 || allNew:
		e.Status = StatusNew
	case allDone:
		e.Status = StatusDone
	default:
		e.Status = StatusInProgress
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
