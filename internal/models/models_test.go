package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) *time.Time {
	t := time.Date(2024, time.March, 1, hour, minute, 0, 0, time.UTC)
	return &t
}

func TestStatus_IsValid(t *testing.T) {
	tests := []struct {
		status Status
		valid  bool
	}{
		{StatusNew, true},
		{StatusInProgress, true},
		{StatusDone, true},
		{Status(""), false},
		{Status("new"), false}, // case sensitive
		{Status("BLOCKED"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.status.IsValid())
		})
	}
}

func TestItem_End(t *testing.T) {
	item := Item{StartTime: at(10, 0), Duration: 30 * time.Minute}
	require.NotNil(t, item.End())
	assert.Equal(t, *at(10, 30), *item.End())

	assert.Nil(t, Item{Duration: time.Hour}.End())
}

func TestItem_Validate(t *testing.T) {
	assert.NoError(t, Item{Status: StatusNew}.Validate())
	assert.ErrorIs(t, Item{Status: "LATER"}.Validate(), ErrInvalidStatus)
	assert.ErrorIs(t, Item{Status: StatusDone, Duration: -time.Minute}.Validate(), ErrNegativeDuration)
}

func TestItem_Normalize(t *testing.T) {
	item := Item{}
	item.Normalize()
	assert.Equal(t, StatusNew, item.Status)

	item = Item{Status: StatusDone}
	item.Normalize()
	assert.Equal(t, StatusDone, item.Status)
}

func TestSubtask_ValidateSelfReference(t *testing.T) {
	sub := Subtask{Item: Item{ID: 4, Status: StatusNew}, EpicID: 4}
	assert.ErrorIs(t, sub.Validate(), ErrSelfReference)

	// Unassigned id cannot collide with a real epic id.
	sub = Subtask{Item: Item{Status: StatusNew}, EpicID: 4}
	assert.NoError(t, sub.Validate())
}

func TestEpic_AddSubtask(t *testing.T) {
	epic := Epic{Item: Item{ID: 1}}

	require.NoError(t, epic.AddSubtask(2))
	require.NoError(t, epic.AddSubtask(3))
	assert.ErrorIs(t, epic.AddSubtask(1), ErrSelfReference)
	assert.ErrorIs(t, epic.AddSubtask(2), ErrDuplicateSubtask)
	assert.Equal(t, []int64{2, 3}, epic.SubtaskIDs)

	epic.RemoveSubtask(2)
	epic.RemoveSubtask(42)
	assert.Equal(t, []int64{3}, epic.SubtaskIDs)
}

func TestEpic_Recompute(t *testing.T) {
	subs := map[int64]Subtask{
		2: {Item: Item{ID: 2, Status: StatusNew, StartTime: at(12, 0), Duration: time.Hour}},
		3: {Item: Item{ID: 3, Status: StatusDone, StartTime: at(9, 0), Duration: 15 * time.Minute}},
		4: {Item: Item{ID: 4, Status: StatusDone, Duration: 10 * time.Minute}},
		5: {Item: Item{ID: 5, Status: StatusNew}},
	}
	lookup := func(id int64) (Subtask, bool) {
		s, ok := subs[id]
		return s, ok
	}

	tests := []struct {
		name     string
		ids      []int64
		status   Status
		duration time.Duration
		start    *time.Time
		end      *time.Time
	}{
		{"no subtasks", nil, StatusNew, 0, nil, nil},
		{"all new", []int64{2, 5}, StatusNew, time.Hour, at(12, 0), at(13, 0)},
		{"all done", []int64{3, 4}, StatusDone, 25 * time.Minute, at(9, 0), at(9, 15)},
		{"mixed", []int64{2, 3, 4}, StatusInProgress, 85 * time.Minute, at(9, 0), at(13, 0)},
		{"unscheduled only", []int64{4}, StatusDone, 10 * time.Minute, nil, nil},
		{"dangling ids skipped", []int64{99, 5}, StatusNew, 0, nil, nil},
		{"only dangling ids", []int64{99}, StatusNew, 0, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			epic := Epic{
				Item:       Item{ID: 1, Status: StatusDone, Duration: 99 * time.Hour, StartTime: at(1, 0)},
				SubtaskIDs: tt.ids,
			}
			epic.Recompute(lookup)

			assert.Equal(t, tt.status, epic.Status)
			assert.Equal(t, tt.duration, epic.Duration)
			assert.Equal(t, tt.start, epic.StartTime)
			assert.Equal(t, tt.end, epic.End())
		})
	}
}

func TestClone_DoesNotAlias(t *testing.T) {
	epic := Epic{Item: Item{ID: 1, StartTime: at(8, 0)}, SubtaskIDs: []int64{2}, EndTime: at(9, 0)}
	c := epic.Clone()
	c.SubtaskIDs[0] = 7
	*c.StartTime = *at(11, 0)
	*c.EndTime = *at(12, 0)

	assert.Equal(t, []int64{2}, epic.SubtaskIDs)
	assert.Equal(t, *at(8, 0), *epic.StartTime)
	assert.Equal(t, *at(9, 0), *epic.EndTime)

	task := Task{Item: Item{ID: 3, StartTime: at(8, 0)}}
	tc := task.Clone()
	*tc.StartTime = *at(10, 0)
	assert.Equal(t, *at(8, 0), *task.StartTime)
}

func TestKinds(t *testing.T) {
	var entities = []Entity{Task{}, Epic{}, Subtask{}}
	kinds := make([]Kind, 0, len(entities))
	for _, e := range entities {
		kinds = append(kinds, e.Kind())
	}
	assert.Equal(t, []Kind{KindTask, KindEpic, KindSubtask}, kinds)
}
