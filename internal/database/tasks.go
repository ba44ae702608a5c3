package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const taskColumns = `id, kind, payload, status, attempts, last_error, created_at, updated_at`

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	var createdAt, updatedAt int64
	if err := row.Scan(&t.ID, &t.Kind, &t.Payload, &t.Status, &t.Attempts, &t.LastError, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	t.CreatedAt = time.Unix(createdAt, 0)
	t.UpdatedAt = time.Unix(updatedAt, 0)
	return &t, nil
}

// InsertTask persists a new pending task. The row is durable when this returns.
func (d *Database) InsertTask(ctx context.Context, t *Task) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO tasks (id, kind, payload, status, attempts, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, '', ?, ?)
	`, t.ID, t.Kind, t.Payload, TaskPending, now.Unix(), now.Unix())
	recordQuery("insert_task", start, err)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	t.Status = TaskPending
	t.CreatedAt = time.Unix(now.Unix(), 0)
	t.UpdatedAt = t.CreatedAt
	return nil
}

// ClaimTask atomically moves the oldest pending task to running and returns
// it. ok is false when nothing is pending.
func (d *Database) ClaimTask(ctx context.Context) (task *Task, ok bool, err error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	// A single statement, so two workers can never claim the same row.
	task, err = scanTask(d.db.QueryRowContext(ctx, `
		UPDATE tasks
		SET status = ?, attempts = attempts + 1, updated_at = ?
		WHERE id = (
			SELECT id FROM tasks WHERE status = ? ORDER BY created_at, rowid LIMIT 1
		) AND status = ?
		RETURNING `+taskColumns,
		TaskRunning, time.Now().Unix(), TaskPending, TaskPending,
	))
	if errors.Is(err, sql.ErrNoRows) {
		recordQuery("claim_task", start, nil)
		return nil, false, nil
	}
	recordQuery("claim_task", start, err)
	if err != nil {
		return nil, false, fmt.Errorf("failed to claim task: %w", err)
	}
	return task, true, nil
}

// FinishTask records the terminal status of a task.
func (d *Database) FinishTask(ctx context.Context, id string, status TaskStatus, lastError string) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		status, lastError, time.Now().Unix(), id)
	if err == nil {
		if n, _ := result.RowsAffected(); n == 0 {
			err = ErrNotFound
		}
	}
	recordQuery("finish_task", start, err)
	return err
}

// RequeueRunning returns every running task to pending. Called at startup,
// before any worker runs, so these are tasks interrupted by a crash.
func (d *Database) RequeueRunning(ctx context.Context) (int64, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE status = ?`,
		TaskPending, time.Now().Unix(), TaskRunning)
	recordQuery("requeue_running", start, err)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetTask returns the task with the given id or ErrNotFound.
func (d *Database) GetTask(ctx context.Context, id string) (*Task, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	t, err := scanTask(d.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	recordQuery("get_task", start, err)
	return t, err
}

// PruneTasks deletes done tasks last updated before cutoff. Failed tasks
// are kept for inspection.
func (d *Database) PruneTasks(ctx context.Context, cutoff time.Time) (int64, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE status = ? AND updated_at < ?`, TaskDone, cutoff.Unix())
	recordQuery("prune_tasks", start, err)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// TaskCounts returns the number of tasks in each status.
func (d *Database) TaskCounts(ctx context.Context) (map[string]int, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		recordQuery("count_tasks", start, err)
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			recordQuery("count_tasks", start, err)
			return nil, err
		}
		counts[status] = n
	}
	err = rows.Err()
	recordQuery("count_tasks", start, err)
	return counts, err
}
