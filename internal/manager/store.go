// Package manager holds the in-memory task store.
//
// The Store owns tasks, epics and subtasks, keeps scheduled items in a
// priority index, rejects overlapping schedules and records fetched items
// in a history. Every exported method runs as one critical section.
package manager

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"tasktracker/internal/history"
	"tasktracker/internal/models"
	"tasktracker/internal/schedule"
)

// Store is the authoritative in-memory repository. The zero value is not
// usable; call New.
type Store struct {
	mu sync.Mutex

	nextID   int64
	tasks    map[int64]models.Task
	epics    map[int64]models.Epic
	subtasks map[int64]models.Subtask

	index   *schedule.Index
	history *history.Tracker
	// retired holds deleted ids so explicit ids cannot bring them back.
	retired map[int64]struct{}
}

// New returns an empty store whose first generated id is 1.
func New() *Store {
	return &Store{
		nextID:   1,
		tasks:    make(map[int64]models.Task),
		epics:    make(map[int64]models.Epic),
		subtasks: make(map[int64]models.Subtask),
		index:    schedule.NewIndex(),
		history:  history.New(),
		retired:  make(map[int64]struct{}),
	}
}

// GenerateID reserves and returns a fresh id.
func (s *Store) GenerateID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generateID()
}

// CreateTask stores t, assigning an id when t.ID is zero.
func (s *Store) CreateTask(t models.Task) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t = t.Clone()
	t.Normalize()
	if err := t.Validate(); err != nil {
		return models.Task{}, invalid(err)
	}
	if err := s.checkFreeID(t.ID); err != nil {
		return models.Task{}, err
	}
	if err := s.checkSchedule(t.Item); err != nil {
		return models.Task{}, err
	}

	t.ID = s.assignID(t.ID)
	s.tasks[t.ID] = t
	s.indexItem(t.Item)
	return t.Clone(), nil
}

// CreateEpic stores e with no subtasks. Derived fields on e are ignored.
func (s *Store) CreateEpic(e models.Epic) (models.Epic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e = e.Clone()
	if err := s.checkFreeID(e.ID); err != nil {
		return models.Epic{}, err
	}

	e.ID = s.assignID(e.ID)
	e.SubtaskIDs = nil
	e.Recompute(s.lookupSubtask)
	s.epics[e.ID] = e
	return e.Clone(), nil
}

// CreateSubtask stores sub and links it to its epic, which must exist.
func (s *Store) CreateSubtask(sub models.Subtask) (models.Subtask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub = sub.Clone()
	sub.Normalize()
	if err := sub.Validate(); err != nil {
		return models.Subtask{}, invalid(err)
	}
	epic, ok := s.epics[sub.EpicID]
	if !ok {
		return models.Subtask{}, fmt.Errorf("%w: epic %d does not exist", ErrInvalidReference, sub.EpicID)
	}
	if err := s.checkFreeID(sub.ID); err != nil {
		return models.Subtask{}, err
	}
	if err := s.checkSchedule(sub.Item); err != nil {
		return models.Subtask{}, err
	}

	sub.ID = s.assignID(sub.ID)
	s.subtasks[sub.ID] = sub
	s.indexItem(sub.Item)
	s.link(epic, sub.ID)
	return sub.Clone(), nil
}

// UpdateTask replaces the stored task with the same id.
func (s *Store) UpdateTask(t models.Task) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.tasks[t.ID]
	if !ok {
		return models.Task{}, fmt.Errorf("%w: task %d", ErrNotFound, t.ID)
	}
	t = t.Clone()
	t.Normalize()
	if err := t.Validate(); err != nil {
		return models.Task{}, invalid(err)
	}
	if err := s.checkSchedule(t.Item); err != nil {
		return models.Task{}, err
	}

	s.unindexItem(old.Item)
	s.tasks[t.ID] = t
	s.indexItem(t.Item)
	return t.Clone(), nil
}

// UpdateEpic replaces the title and description of an epic. The subtask
// list stays as the store knows it and derived fields are recomputed.
func (s *Store) UpdateEpic(e models.Epic) (models.Epic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.epics[e.ID]
	if !ok {
		return models.Epic{}, fmt.Errorf("%w: epic %d", ErrNotFound, e.ID)
	}

	e = e.Clone()
	e.SubtaskIDs = old.SubtaskIDs
	e.Recompute(s.lookupSubtask)
	s.epics[e.ID] = e
	return e.Clone(), nil
}

// UpdateSubtask replaces the stored subtask with the same id. When EpicID
// changes the subtask moves to the new epic and both epics are recomputed.
func (s *Store) UpdateSubtask(sub models.Subtask) (models.Subtask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.subtasks[sub.ID]
	if !ok {
		return models.Subtask{}, fmt.Errorf("%w: subtask %d", ErrNotFound, sub.ID)
	}
	sub = sub.Clone()
	sub.Normalize()
	if err := sub.Validate(); err != nil {
		return models.Subtask{}, invalid(err)
	}
	epic, ok := s.epics[sub.EpicID]
	if !ok {
		return models.Subtask{}, fmt.Errorf("%w: epic %d does not exist", ErrInvalidReference, sub.EpicID)
	}
	if err := s.checkSchedule(sub.Item); err != nil {
		return models.Subtask{}, err
	}

	s.unindexItem(old.Item)
	s.subtasks[sub.ID] = sub
	s.indexItem(sub.Item)

	if old.EpicID != sub.EpicID {
		s.unlink(old.EpicID, sub.ID)
		s.link(epic, sub.ID)
	} else {
		s.recompute(sub.EpicID)
	}
	return sub.Clone(), nil
}

// GetTaskByID returns the task and records the access in the history.
func (s *Store) GetTaskByID(id int64) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return models.Task{}, fmt.Errorf("%w: task %d", ErrNotFound, id)
	}
	s.history.Add(id, models.KindTask)
	return t.Clone(), nil
}

// GetEpicByID returns the epic and records the access in the history.
func (s *Store) GetEpicByID(id int64) (models.Epic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.epics[id]
	if !ok {
		return models.Epic{}, fmt.Errorf("%w: epic %d", ErrNotFound, id)
	}
	s.history.Add(id, models.KindEpic)
	return e.Clone(), nil
}

// GetSubtaskByID returns the subtask and records the access in the history.
func (s *Store) GetSubtaskByID(id int64) (models.Subtask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subtasks[id]
	if !ok {
		return models.Subtask{}, fmt.Errorf("%w: subtask %d", ErrNotFound, id)
	}
	s.history.Add(id, models.KindSubtask)
	return sub.Clone(), nil
}

// Kind reports which collection holds id without recording an access.
func (s *Store) Kind(id int64) (models.Kind, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kindOf(id)
}

// GetTasks lists all tasks ordered by id.
func (s *Store) GetTasks() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.tasks, models.Task.Clone)
}

// GetEpics lists all epics ordered by id.
func (s *Store) GetEpics() []models.Epic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.epics, models.Epic.Clone)
}

// GetSubtasks lists all subtasks ordered by id.
func (s *Store) GetSubtasks() []models.Subtask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.subtasks, models.Subtask.Clone)
}

// GetSubtasksOf returns the subtasks of epicID in the epic's order. An
// unknown epic yields an empty slice.
func (s *Store) GetSubtasksOf(epicID int64) []models.Subtask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subtasksOf(epicID)
}

// GetPrioritized returns scheduled tasks and subtasks by ascending start
// time. Unscheduled items are not included.
func (s *Store) GetPrioritized() []models.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots := s.index.Slots()
	out := make([]models.Entity, 0, len(slots))
	for _, slot := range slots {
		if t, ok := s.tasks[slot.ID]; ok {
			out = append(out, t.Clone())
		} else if sub, ok := s.subtasks[slot.ID]; ok {
			out = append(out, sub.Clone())
		}
	}
	return out
}

// GetHistory returns fetched items from oldest to most recent access,
// each in its current state.
func (s *Store) GetHistory() []models.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.history.History()
	out := make([]models.Entity, 0, len(entries))
	for _, entry := range entries {
		switch entry.Kind {
		case models.KindTask:
			if t, ok := s.tasks[entry.ID]; ok {
				out = append(out, t.Clone())
			}
		case models.KindEpic:
			if e, ok := s.epics[entry.ID]; ok {
				out = append(out, e.Clone())
			}
		case models.KindSubtask:
			if sub, ok := s.subtasks[entry.ID]; ok {
				out = append(out, sub.Clone())
			}
		}
	}
	return out
}

// DeleteTaskByID removes a task. Unknown ids are ignored.
func (s *Store) DeleteTaskByID(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return
	}
	delete(s.tasks, id)
	s.unindexItem(t.Item)
	s.retire(id)
}

// DeleteEpicByID removes an epic together with its subtasks. Unknown ids
// are ignored.
func (s *Store) DeleteEpicByID(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.epics[id]
	if !ok {
		return
	}
	for _, subID := range e.SubtaskIDs {
		s.dropSubtask(subID)
	}
	delete(s.epics, id)
	s.retire(id)
}

// DeleteSubtaskByID removes a subtask and recomputes its epic. Unknown ids
// are ignored.
func (s *Store) DeleteSubtaskByID(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subtasks[id]
	if !ok {
		return
	}
	s.dropSubtask(id)
	s.unlink(sub.EpicID, id)
}

// DeleteAllTasks removes every task.
func (s *Store) DeleteAllTasks() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.tasks {
		s.unindexItem(t.Item)
		s.retire(id)
	}
	clear(s.tasks)
}

// DeleteAllEpics removes every epic and, with them, every subtask.
func (s *Store) DeleteAllEpics() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.subtasks {
		s.dropSubtask(id)
	}
	for id := range s.epics {
		s.retire(id)
	}
	clear(s.epics)
}

// DeleteAllSubtasks removes every subtask and resets every epic.
func (s *Store) DeleteAllSubtasks() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.subtasks {
		s.dropSubtask(id)
	}
	for id, e := range s.epics {
		e.SubtaskIDs = nil
		e.Recompute(s.lookupSubtask)
		s.epics[id] = e
	}
}

// Snapshot copies the whole store. Subtasks are grouped by epic in each
// epic's own order, which is the order Restore needs to rebuild the lists.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Tasks:    sortedValues(s.tasks, models.Task.Clone),
		Epics:    sortedValues(s.epics, models.Epic.Clone),
		Subtasks: make([]models.Subtask, 0, len(s.subtasks)),
	}
	for _, e := range snap.Epics {
		snap.Subtasks = append(snap.Subtasks, s.subtasksOf(e.ID)...)
	}
	return snap
}

func (s *Store) generateID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// assignID returns id, or a fresh one when id is zero, and keeps the
// counter ahead of every id in use.
func (s *Store) assignID(id int64) int64 {
	if id == 0 {
		return s.generateID()
	}
	if id >= s.nextID {
		s.nextID = id + 1
	}
	return id
}

func (s *Store) checkFreeID(id int64) error {
	if id < 0 {
		return fmt.Errorf("%w: negative id %d", ErrInvalidItem, id)
	}
	if id == 0 {
		return nil
	}
	if kind, taken := s.kindOf(id); taken {
		return fmt.Errorf("%w: %d is a %s", ErrDuplicateID, id, kind)
	}
	if _, ok := s.retired[id]; ok {
		return fmt.Errorf("%w: %d belonged to a deleted item", ErrDuplicateID, id)
	}
	return nil
}

// retire forgets a deleted id everywhere but in the retired set.
func (s *Store) retire(id int64) {
	s.history.Remove(id)
	s.retired[id] = struct{}{}
}

func (s *Store) kindOf(id int64) (models.Kind, bool) {
	if _, ok := s.tasks[id]; ok {
		return models.KindTask, true
	}
	if _, ok := s.epics[id]; ok {
		return models.KindEpic, true
	}
	if _, ok := s.subtasks[id]; ok {
		return models.KindSubtask, true
	}
	return "", false
}

func slotOf(item models.Item) (schedule.Slot, bool) {
	if !item.Scheduled() {
		return schedule.Slot{}, false
	}
	return schedule.Slot{ID: item.ID, Start: *item.StartTime, End: *item.End()}, true
}

// checkSchedule fails when item overlaps any indexed item other than
// itself.
func (s *Store) checkSchedule(item models.Item) error {
	slot, ok := slotOf(item)
	if !ok {
		return nil
	}
	if other, found := s.index.Conflict(slot); found {
		return fmt.Errorf("%w: [%s, %s) overlaps item %d",
			ErrSchedulingConflict, slot.Start.Format(timeLayout), slot.End.Format(timeLayout), other.ID)
	}
	return nil
}

const timeLayout = "2006-01-02T15:04"

func (s *Store) indexItem(item models.Item) {
	if slot, ok := slotOf(item); ok {
		s.index.Insert(slot)
	}
}

func (s *Store) unindexItem(item models.Item) {
	if slot, ok := slotOf(item); ok {
		s.index.Remove(slot)
	}
}

func (s *Store) lookupSubtask(id int64) (models.Subtask, bool) {
	sub, ok := s.subtasks[id]
	return sub, ok
}

func (s *Store) subtasksOf(epicID int64) []models.Subtask {
	e, ok := s.epics[epicID]
	if !ok {
		return []models.Subtask{}
	}
	out := make([]models.Subtask, 0, len(e.SubtaskIDs))
	for _, id := range e.SubtaskIDs {
		if sub, ok := s.subtasks[id]; ok {
			out = append(out, sub.Clone())
		}
	}
	return out
}

// link appends subID to epic and stores the recomputed epic. The id is new
// to the epic and differs from it, so AddSubtask cannot fail here.
func (s *Store) link(epic models.Epic, subID int64) {
	epic.SubtaskIDs = slices.Clone(epic.SubtaskIDs)
	_ = epic.AddSubtask(subID)
	epic.Recompute(s.lookupSubtask)
	s.epics[epic.ID] = epic
}

func (s *Store) unlink(epicID, subID int64) {
	epic, ok := s.epics[epicID]
	if !ok {
		return
	}
	epic.SubtaskIDs = slices.Clone(epic.SubtaskIDs)
	epic.RemoveSubtask(subID)
	epic.Recompute(s.lookupSubtask)
	s.epics[epicID] = epic
}

func (s *Store) recompute(epicID int64) {
	epic, ok := s.epics[epicID]
	if !ok {
		return
	}
	epic.Recompute(s.lookupSubtask)
	s.epics[epicID] = epic
}

// dropSubtask removes a subtask from the map, the index and the history
// but leaves its epic's list alone.
func (s *Store) dropSubtask(id int64) {
	sub, ok := s.subtasks[id]
	if !ok {
		return
	}
	delete(s.subtasks, id)
	s.unindexItem(sub.Item)
	s.retire(id)
}

func invalid(err error) error {
	if errors.Is(err, models.ErrSelfReference) {
		return fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	return fmt.Errorf("%w: %w", ErrInvalidItem, err)
}

func sortedValues[V any](m map[int64]V, clone func(V) V) []V {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]V, 0, len(ids))
	for _, id := range ids {
		out = append(out, clone(m[id]))
	}
	return out
}
