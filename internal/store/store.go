// Package store provides SQLite-backed persistence for huskyd tasks.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/openhusky/huskyd/internal/models"
)

// ErrInvalidTaskSpec indicates a task spec was rejected at creation.
var ErrInvalidTaskSpec = errors.New("invalid task spec")

// ErrTaskNotFound indicates the task id does not exist.
var ErrTaskNotFound = errors.New("task not found")

// ErrTaskNotCancellable indicates the task is not in a cancellable state.
var ErrTaskNotCancellable = errors.New("task is not pending")

// Store owns the huskyd SQLite database. It is the sole owner of Task
// rows; the scheduler and tool layer mutate tasks only through the
// documented transitions below.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// WAL mode for concurrent tool calls against a running scheduler tick
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		trigger_label TEXT,
		time_raw TEXT,
		due_at DATETIME,
		expires_at DATETIME,
		handler TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at DATETIME NOT NULL,
		fired_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		action TEXT NOT NULL,
		task_id TEXT,
		details TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
	CREATE INDEX IF NOT EXISTS idx_events_task_id ON events(task_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Task Operations ---

// AddTask validates a task spec and inserts it with status pending.
// At least one of trigger/time must be present and the handler must be
// supported; anything else fails with ErrInvalidTaskSpec and the task
// never enters the store.
func (s *Store) AddTask(spec models.TaskSpec) (*models.Task, error) {
	now := time.Now().UTC()

	task, err := buildTask(spec, now)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(
		`INSERT INTO tasks (id, trigger_label, time_raw, due_at, expires_at, handler, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, nullStr(task.Trigger), nullStr(task.Time), task.DueAt, task.ExpiresAt,
		string(task.Handler), string(task.Status), task.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

// buildTask parses and validates a spec into a Task.
func buildTask(spec models.TaskSpec, now time.Time) (*models.Task, error) {
	handler, err := models.ParseHandler(spec.Handler)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTaskSpec, err)
	}

	if spec.Trigger == "" && spec.Time == "" {
		return nil, fmt.Errorf("%w: at least one of trigger or time is required", ErrInvalidTaskSpec)
	}

	task := &models.Task{
		ID:        uuid.New().String(),
		Trigger:   spec.Trigger,
		Time:      spec.Time,
		Handler:   handler,
		Status:    models.TaskStatusPending,
		CreatedAt: now,
	}

	if spec.Time != "" {
		if spec.Time == models.TimeNow {
			// "now" is satisfied on the first tick at or after creation
			due := now
			task.DueAt = &due
		} else {
			due, err := time.Parse(time.RFC3339, spec.Time)
			if err != nil {
				return nil, fmt.Errorf("%w: time %q is not RFC3339 or %q", ErrInvalidTaskSpec, spec.Time, models.TimeNow)
			}
			due = due.UTC()
			task.DueAt = &due
		}
	}

	if spec.ExpiresAt != "" {
		exp, err := time.Parse(time.RFC3339, spec.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("%w: expires_at %q is not RFC3339", ErrInvalidTaskSpec, spec.ExpiresAt)
		}
		exp = exp.UTC()
		if !exp.After(now) {
			return nil, fmt.Errorf("%w: expires_at %q is in the past", ErrInvalidTaskSpec, spec.ExpiresAt)
		}
		task.ExpiresAt = &exp
	}

	return task, nil
}

const taskColumns = `id, trigger_label, time_raw, due_at, expires_at, handler, status, created_at, fired_at`

// GetTask retrieves a task by id. Returns nil, nil when not found.
func (s *Store) GetTask(id string) (*models.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	return task, nil
}

// ListTasks returns all tasks in creation order, optionally filtered by status.
// Creation order is stable (insert sequence, not timestamps) so the list
// operation's user-visible ordering is deterministic.
func (s *Store) ListTasks(status string) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var args []interface{}

	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY seq ASC`

	return s.queryTasks(query, args...)
}

// PendingTasks returns all pending tasks in creation order. Used by the
// scheduler loop on every tick.
func (s *Store) PendingTasks() ([]models.Task, error) {
	return s.queryTasks(
		`SELECT `+taskColumns+` FROM tasks WHERE status = ? ORDER BY seq ASC`,
		string(models.TaskStatusPending),
	)
}

func (s *Store) queryTasks(query string, args ...interface{}) ([]models.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(sc scanner) (*models.Task, error) {
	var task models.Task
	var trigger, timeRaw sql.NullString
	var dueAt, expiresAt, firedAt sql.NullTime
	var handler, status string

	err := sc.Scan(&task.ID, &trigger, &timeRaw, &dueAt, &expiresAt, &handler, &status, &task.CreatedAt, &firedAt)
	if err != nil {
		return nil, err
	}

	if trigger.Valid {
		task.Trigger = trigger.String
	}
	if timeRaw.Valid {
		task.Time = timeRaw.String
	}
	if dueAt.Valid {
		t := dueAt.Time.UTC()
		task.DueAt = &t
	}
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		task.ExpiresAt = &t
	}
	if firedAt.Valid {
		t := firedAt.Time.UTC()
		task.FiredAt = &t
	}
	task.Handler = models.Handler(handler)
	task.Status = models.TaskStatus(status)
	task.CreatedAt = task.CreatedAt.UTC()
	return &task, nil
}

// MarkFired transitions a task from pending to fired. The transition is
// one-way and idempotent: marking an already-fired task is a no-op and
// returns false, guarding against double dispatch when the loop
// re-evaluates before the state change is visible.
func (s *Store) MarkFired(id string, firedAt time.Time) (bool, error) {
	res, err := s.db.Exec(
		`UPDATE tasks SET status = ?, fired_at = ? WHERE id = ? AND status = ?`,
		string(models.TaskStatusFired), firedAt.UTC(), id, string(models.TaskStatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("mark fired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark fired rows: %w", err)
	}
	return n > 0, nil
}

// CancelTask transitions a pending task to cancelled.
func (s *Store) CancelTask(id string) error {
	res, err := s.db.Exec(
		`UPDATE tasks SET status = ? WHERE id = ? AND status = ?`,
		string(models.TaskStatusCancelled), id, string(models.TaskStatusPending),
	)
	if err != nil {
		return fmt.Errorf("cancel task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cancel task rows: %w", err)
	}
	if n == 0 {
		task, err := s.GetTask(id)
		if err != nil {
			return err
		}
		if task == nil {
			return ErrTaskNotFound
		}
		return fmt.Errorf("%w (status %s)", ErrTaskNotCancellable, task.Status)
	}
	return nil
}

// ExpireTask transitions a pending task to expired. Like MarkFired it is
// a no-op on tasks that already left the pending state.
func (s *Store) ExpireTask(id string) (bool, error) {
	res, err := s.db.Exec(
		`UPDATE tasks SET status = ? WHERE id = ? AND status = ?`,
		string(models.TaskStatusExpired), id, string(models.TaskStatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("expire task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("expire task rows: %w", err)
	}
	return n > 0, nil
}

// --- Event Operations ---

// WriteEvent appends an audit event.
func (s *Store) WriteEvent(action, taskID, details string) error {
	_, err := s.db.Exec(
		`INSERT INTO events (id, action, task_id, details, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), action, nullStr(taskID), nullStr(details), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Event is one audit log row.
type Event struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	TaskID    string    `json:"task_id,omitempty"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListEvents returns audit events, newest first, optionally filtered by task.
func (s *Store) ListEvents(taskID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, action, task_id, details, created_at FROM events`
	var args []interface{}
	if strings.TrimSpace(taskID) != "" {
		query += ` WHERE task_id = ?`
		args = append(args, taskID)
	}
	query += ` ORDER BY seq DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var tid, details sql.NullString
		if err := rows.Scan(&ev.ID, &ev.Action, &tid, &details, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if tid.Valid {
			ev.TaskID = tid.String
		}
		if details.Valid {
			ev.Details = details.String
		}
		ev.CreatedAt = ev.CreatedAt.UTC()
		events = append(events, ev)
	}
	return events, rows.Err()
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
