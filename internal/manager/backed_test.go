package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/models"
)

// fakeSink keeps every saved snapshot in memory and can be told to fail.
type fakeSink struct {
	saved []Snapshot
	err   error
}

func (f *fakeSink) Save(_ context.Context, snap Snapshot) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, snap)
	return nil
}

func (f *fakeSink) Load(context.Context) (Snapshot, error) {
	if f.err != nil {
		return Snapshot{}, f.err
	}
	if len(f.saved) == 0 {
		return Snapshot{}, nil
	}
	return f.saved[len(f.saved)-1], nil
}

func (f *fakeSink) last(t *testing.T) Snapshot {
	t.Helper()
	require.NotEmpty(t, f.saved, "nothing was saved")
	return f.saved[len(f.saved)-1]
}

func TestBacked_SavesAfterEachMutation(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{}
	b := NewBacked(New(), sink, nil)

	task, err := b.CreateTask(ctx, newTask("A", at(10, 0), time.Hour))
	require.NoError(t, err)
	epic, err := b.CreateEpic(ctx, models.Epic{Item: models.Item{Title: "E"}})
	require.NoError(t, err)
	sub, err := b.CreateSubtask(ctx, newSubtask(epic.ID, "S", models.StatusNew, nil, 0))
	require.NoError(t, err)
	assert.Len(t, sink.saved, 3)

	snap := sink.last(t)
	assert.Len(t, snap.Tasks, 1)
	assert.Len(t, snap.Epics, 1)
	assert.Len(t, snap.Subtasks, 1)

	task.Title = "A2"
	_, err = b.UpdateTask(ctx, task)
	require.NoError(t, err)
	assert.Equal(t, "A2", sink.last(t).Tasks[0].Title)

	sub.Status = models.StatusDone
	_, err = b.UpdateSubtask(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, sink.last(t).Epics[0].Status)

	epic.Title = "E2"
	_, err = b.UpdateEpic(ctx, epic)
	require.NoError(t, err)
	assert.Equal(t, "E2", sink.last(t).Epics[0].Title)

	require.NoError(t, b.DeleteSubtaskByID(ctx, sub.ID))
	assert.Empty(t, sink.last(t).Subtasks)
	require.NoError(t, b.DeleteEpicByID(ctx, epic.ID))
	assert.Empty(t, sink.last(t).Epics)
	require.NoError(t, b.DeleteTaskByID(ctx, task.ID))
	assert.Empty(t, sink.last(t).Tasks)
	assert.Len(t, sink.saved, 9)
}

func TestBacked_BulkDeletesSave(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{}
	b := NewBacked(New(), sink, nil)

	epic, err := b.CreateEpic(ctx, models.Epic{Item: models.Item{Title: "E"}})
	require.NoError(t, err)
	_, err = b.CreateSubtask(ctx, newSubtask(epic.ID, "S", models.StatusNew, nil, 0))
	require.NoError(t, err)
	_, err = b.CreateTask(ctx, newTask("T", nil, 0))
	require.NoError(t, err)

	require.NoError(t, b.DeleteAllSubtasks(ctx))
	assert.Empty(t, sink.last(t).Subtasks)
	assert.Len(t, sink.last(t).Epics, 1)

	require.NoError(t, b.DeleteAllEpics(ctx))
	assert.Empty(t, sink.last(t).Epics)

	require.NoError(t, b.DeleteAllTasks(ctx))
	assert.Empty(t, sink.last(t).Tasks)
}

func TestBacked_FailedMutationDoesNotSave(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{}
	b := NewBacked(New(), sink, nil)

	_, err := b.CreateTask(ctx, newTask("A", at(10, 0), time.Hour))
	require.NoError(t, err)
	_, err = b.CreateTask(ctx, newTask("B", at(10, 30), time.Hour))
	require.ErrorIs(t, err, ErrSchedulingConflict)
	_, err = b.CreateSubtask(ctx, newSubtask(77, "orphan", models.StatusNew, nil, 0))
	require.ErrorIs(t, err, ErrInvalidReference)

	assert.Len(t, sink.saved, 1)
}

func TestBacked_SaveErrorKeepsMutation(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{err: errors.New("disk full")}
	b := NewBacked(New(), sink, nil)

	created, err := b.CreateTask(ctx, newTask("A", nil, 0))
	require.ErrorIs(t, err, ErrPersist)
	assert.NotZero(t, created.ID)
	assert.Len(t, b.GetTasks(), 1)
}

func TestBacked_NilSink(t *testing.T) {
	b := NewBacked(New(), nil, nil)
	_, err := b.CreateTask(context.Background(), newTask("A", nil, 0))
	require.NoError(t, err)
	require.NoError(t, b.DeleteAllTasks(context.Background()))
}

func TestRestore_ReplaysSnapshot(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{}
	original := NewBacked(New(), sink, nil)

	e, err := original.CreateEpic(ctx, models.Epic{Item: models.Item{Title: "E"}})
	require.NoError(t, err)
	_, err = original.CreateTask(ctx, newTask("T", at(8, 0), time.Hour))
	require.NoError(t, err)
	s2, err := original.CreateSubtask(ctx, newSubtask(e.ID, "second", models.StatusDone, at(12, 0), time.Hour))
	require.NoError(t, err)
	s1, err := original.CreateSubtask(ctx, newSubtask(e.ID, "first", models.StatusNew, at(10, 0), time.Hour))
	require.NoError(t, err)

	restored := New()
	require.NoError(t, Restore(ctx, restored, sink))

	assert.Equal(t, original.GetTasks(), restored.GetTasks())
	assert.Equal(t, original.GetEpics(), restored.GetEpics())
	assert.Equal(t, original.GetSubtasks(), restored.GetSubtasks())
	assert.Equal(t, []int64{s2.ID, s1.ID}, epicOf(t, restored, e.ID).SubtaskIDs)
	assert.Equal(t, entityIDs(original.GetPrioritized()), entityIDs(restored.GetPrioritized()))
	assert.Empty(t, restored.GetHistory())

	next, err := restored.CreateTask(newTask("new", nil, 0))
	require.NoError(t, err)
	assert.Equal(t, s1.ID+1, next.ID, "generated ids continue after restored ones")
}

func TestRestore_LoadError(t *testing.T) {
	sink := &fakeSink{err: errors.New("corrupt")}
	err := Restore(context.Background(), New(), sink)
	assert.ErrorContains(t, err, "corrupt")
}
