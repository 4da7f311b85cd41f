package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"tasktracker/internal/models"
)

// Snapshot is the full content of a Store.
type Snapshot struct {
	Tasks    []models.Task
	Epics    []models.Epic
	Subtasks []models.Subtask
}

// Sink receives a snapshot after every successful mutation.
type Sink interface {
	Save(ctx context.Context, snap Snapshot) error
}

// Source provides the snapshot a Store is rebuilt from at startup.
type Source interface {
	Load(ctx context.Context) (Snapshot, error)
}

// Backed is a Store that hands its snapshot to a Sink after each mutating
// call. Read methods are the Store's own.
type Backed struct {
	*Store

	sink   Sink
	logger *slog.Logger
	saveMu sync.Mutex
}

// NewBacked wraps store. A nil sink keeps the store purely in memory.
func NewBacked(store *Store, sink Sink, logger *slog.Logger) *Backed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backed{Store: store, sink: sink, logger: logger}
}

// save writes the current snapshot. The snapshot is taken under saveMu so
// an older state never lands after a newer one.
func (b *Backed) save(ctx context.Context, op string) error {
	if b.sink == nil {
		return nil
	}
	b.saveMu.Lock()
	defer b.saveMu.Unlock()

	snap := b.Store.Snapshot()
	if err := b.sink.Save(ctx, snap); err != nil {
		return fmt.Errorf("%w after %s: %w", ErrPersist, op, err)
	}
	b.logger.Debug("snapshot saved",
		slog.String("op", op),
		slog.Int("tasks", len(snap.Tasks)),
		slog.Int("epics", len(snap.Epics)),
		slog.Int("subtasks", len(snap.Subtasks)))
	return nil
}

func (b *Backed) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	created, err := b.Store.CreateTask(t)
	if err != nil {
		return models.Task{}, err
	}
	return created, b.save(ctx, "create task")
}

func (b *Backed) CreateEpic(ctx context.Context, e models.Epic) (models.Epic, error) {
	created, err := b.Store.CreateEpic(e)
	if err != nil {
		return models.Epic{}, err
	}
	return created, b.save(ctx, "create epic")
}

func (b *Backed) CreateSubtask(ctx context.Context, sub models.Subtask) (models.Subtask, error) {
	created, err := b.Store.CreateSubtask(sub)
	if err != nil {
		return models.Subtask{}, err
	}
	return created, b.save(ctx, "create subtask")
}

func (b *Backed) UpdateTask(ctx context.Context, t models.Task) (models.Task, error) {
	updated, err := b.Store.UpdateTask(t)
	if err != nil {
		return models.Task{}, err
	}
	return updated, b.save(ctx, "update task")
}

func (b *Backed) UpdateEpic(ctx context.Context, e models.Epic) (models.Epic, error) {
	updated, err := b.Store.UpdateEpic(e)
	if err != nil {
		return models.Epic{}, err
	}
	return updated, b.save(ctx, "update epic")
}

func (b *Backed) UpdateSubtask(ctx context.Context, sub models.Subtask) (models.Subtask, error) {
	updated, err := b.Store.UpdateSubtask(sub)
	if err != nil {
		return models.Subtask{}, err
	}
	return updated, b.save(ctx, "update subtask")
}

func (b *Backed) DeleteTaskByID(ctx context.Context, id int64) error {
	b.Store.DeleteTaskByID(id)
	return b.save(ctx, "delete task")
}

func (b *Backed) DeleteEpicByID(ctx context.Context, id int64) error {
	b.Store.DeleteEpicByID(id)
	return b.save(ctx, "delete epic")
}

func (b *Backed) DeleteSubtaskByID(ctx context.Context, id int64) error {
	b.Store.DeleteSubtaskByID(id)
	return b.save(ctx, "delete subtask")
}

func (b *Backed) DeleteAllTasks(ctx context.Context) error {
	b.Store.DeleteAllTasks()
	return b.save(ctx, "delete all tasks")
}

func (b *Backed) DeleteAllEpics(ctx context.Context) error {
	b.Store.DeleteAllEpics()
	return b.save(ctx, "delete all epics")
}

func (b *Backed) DeleteAllSubtasks(ctx context.Context) error {
	b.Store.DeleteAllSubtasks()
	return b.save(ctx, "delete all subtasks")
}

// Restore loads a snapshot from src and replays it into store: epics first,
// then subtasks so their epics exist, then standalone tasks.
func Restore(ctx context.Context, store *Store, src Source) error {
	snap, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	for _, e := range snap.Epics {
		if _, err := store.CreateEpic(e); err != nil {
			return fmt.Errorf("restore epic %d: %w", e.ID, err)
		}
	}
	for _, sub := range snap.Subtasks {
		if _, err := store.CreateSubtask(sub); err != nil {
			return fmt.Errorf("restore subtask %d: %w", sub.ID, err)
		}
	}
	for _, t := range snap.Tasks {
		if _, err := store.CreateTask(t); err != nil {
			return fmt.Errorf("restore task %d: %w", t.ID, err)
		}
	}
	return nil
}
