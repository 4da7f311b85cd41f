package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/manager"
	"tasktracker/internal/models"
	"tasktracker/internal/storage/sqlite"
)

type exported struct {
	ID     int64       `json:"id"`
	Type   models.Kind `json:"type"`
	EpicID int64       `json:"epicId"`
}

func seed(t *testing.T, path string) {
	t.Helper()
	db, err := sqlite.Open(path, nil)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	b := manager.NewBacked(manager.New(), db, nil)
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	later := start.Add(2 * time.Hour)

	_, err = b.CreateTask(ctx, models.Task{Item: models.Item{Title: "T", Duration: time.Hour, StartTime: &later}})
	require.NoError(t, err)
	epic, err := b.CreateEpic(ctx, models.Epic{Item: models.Item{Title: "E"}})
	require.NoError(t, err)
	_, err = b.CreateSubtask(ctx, models.Subtask{Item: models.Item{Title: "S", Duration: time.Hour, StartTime: &start}, EpicID: epic.ID})
	require.NoError(t, err)
}

func runExport(t *testing.T, args ...string) []exported {
	t.Helper()
	t.Setenv("TRACKER_LOG_LEVEL", "ERROR")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs(append([]string{"export"}, args...))
	require.NoError(t, root.Execute())

	var items []exported
	require.NoError(t, json.Unmarshal(out.Bytes(), &items), out.String())
	return items
}

func TestExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.db")
	seed(t, path)

	items := runExport(t, "--db", path)
	require.Len(t, items, 3)
	assert.Equal(t, []models.Kind{models.KindEpic, models.KindSubtask, models.KindTask},
		[]models.Kind{items[0].Type, items[1].Type, items[2].Type})
	assert.Equal(t, items[0].ID, items[1].EpicID)

	items = runExport(t, "--db", path, "--prioritized")
	require.Len(t, items, 2)
	assert.Equal(t, models.KindSubtask, items[0].Type)
	assert.Equal(t, models.KindTask, items[1].Type)
}

func TestExportEmptyDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	assert.Empty(t, runExport(t, "--db", path))
}

func TestExportRejectsBadLogLevel(t *testing.T) {
	t.Setenv("TRACKER_LOG_LEVEL", "LOUD")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"export", "--db", filepath.Join(t.TempDir(), "x.db")})
	assert.Error(t, root.Execute())
}
