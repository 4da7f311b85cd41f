package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tasktracker/internal/manager"
	"tasktracker/internal/models"
)

// Store persists task store snapshots to a SQLite file. It implements
// manager.Sink and manager.Source.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var (
	_ manager.Sink   = (*Store)(nil)
	_ manager.Source = (*Store)(nil)
)

// Open initializes a new SQLite store and runs the required migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, logger: logger}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS items (
            id INTEGER PRIMARY KEY,
            kind TEXT NOT NULL,
            title TEXT NOT NULL DEFAULT '',
            description TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'NEW',
            duration_ns INTEGER NOT NULL DEFAULT 0,
            start_time DATETIME,
            epic_id INTEGER,
            position INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE INDEX IF NOT EXISTS idx_items_kind ON items(kind);`,
		`CREATE INDEX IF NOT EXISTS idx_items_epic ON items(epic_id, position);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Save replaces the stored snapshot with snap in a single transaction.
func (s *Store) Save(ctx context.Context, snap manager.Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO items(id, kind, title, description, status, duration_ns, start_time, epic_id, position)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	insert := func(kind models.Kind, item models.Item, epicID sql.NullInt64, position int) error {
		_, err := stmt.ExecContext(ctx, item.ID, kind, item.Title, item.Description, item.Status,
			int64(item.Duration), nullTime(item.StartTime), epicID, position)
		if err != nil {
			return fmt.Errorf("insert %s %d: %w", kind, item.ID, err)
		}
		return nil
	}

	for _, t := range snap.Tasks {
		if err = insert(models.KindTask, t.Item, sql.NullInt64{}, 0); err != nil {
			return err
		}
	}
	for _, e := range snap.Epics {
		// Derived fields are written for readers of the file; Load ignores them.
		if err = insert(models.KindEpic, e.Item, sql.NullInt64{}, 0); err != nil {
			return err
		}
	}
	positions := make(map[int64]int)
	for _, sub := range snap.Subtasks {
		pos := positions[sub.EpicID]
		positions[sub.EpicID] = pos + 1
		if err = insert(models.KindSubtask, sub.Item, sql.NullInt64{Int64: sub.EpicID, Valid: true}, pos); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	s.logger.Debug("snapshot written", slog.Int("tasks", len(snap.Tasks)),
		slog.Int("epics", len(snap.Epics)), slog.Int("subtasks", len(snap.Subtasks)))
	return nil
}

// Load reads the stored snapshot. Subtasks come back grouped by epic in
// their saved order.
func (s *Store) Load(ctx context.Context) (manager.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, kind, title, description, status, duration_ns, start_time, epic_id
        FROM items ORDER BY CASE kind WHEN 'EPIC' THEN 0 WHEN 'SUBTASK' THEN 1 ELSE 2 END, epic_id, position, id`)
	if err != nil {
		return manager.Snapshot{}, fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()

	var snap manager.Snapshot
	for rows.Next() {
		var (
			item     models.Item
			kind     models.Kind
			duration int64
			start    sql.NullTime
			epicID   sql.NullInt64
		)
		if err := rows.Scan(&item.ID, &kind, &item.Title, &item.Description, &item.Status, &duration, &start, &epicID); err != nil {
			return manager.Snapshot{}, fmt.Errorf("scan item: %w", err)
		}
		item.Duration = time.Duration(duration)
		if start.Valid {
			t := start.Time
			item.StartTime = &t
		}

		switch kind {
		case models.KindTask:
			snap.Tasks = append(snap.Tasks, models.Task{Item: item})
		case models.KindEpic:
			snap.Epics = append(snap.Epics, models.Epic{Item: models.Item{ID: item.ID, Title: item.Title, Description: item.Description}})
		case models.KindSubtask:
			if !epicID.Valid {
				return manager.Snapshot{}, fmt.Errorf("subtask %d has no epic", item.ID)
			}
			snap.Subtasks = append(snap.Subtasks, models.Subtask{Item: item, EpicID: epicID.Int64})
		default:
			return manager.Snapshot{}, fmt.Errorf("item %d has unknown kind %q", item.ID, kind)
		}
	}
	return snap, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
