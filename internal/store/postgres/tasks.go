// internal/store/postgres/tasks.go
package postgres

import (
	"context"
	"database/sql"
	"time"

	"school-event-automation/internal/common/errors"
	"school-event-automation/internal/models"
)

const taskColumns = `id, event_id, template_id, category, name, description,
	       completion_kind, day_offset, deadline, status, completed_at,
	       completed_by, completion_data, order_id, parent_task_id, created_at`

func (s *Store) CreateTasks(ctx context.Context, tasks []models.Task) error {
	for _, t := range tasks {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO tasks (`+taskColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			t.ID, t.EventID, t.TemplateID, t.Category, t.Name, nullString(t.Description),
			t.CompletionKind, t.DayOffset, t.Deadline, t.Status, t.CompletedAt,
			nullString(t.CompletedBy), nullString(t.CompletionData),
			nullString(t.OrderID), nullString(t.ParentTaskID), t.CreatedAt,
		)
		if err != nil {
			return errors.NewStoreWriteFailedError("task", err)
		}
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1`, id)

	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewTaskNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewStoreQueryFailedError("task", err)
	}
	return t, nil
}

func (s *Store) ListTasksByEvent(ctx context.Context, eventID string) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE event_id = $1
		ORDER BY created_at, id`, eventID)
	if err != nil {
		return nil, errors.NewStoreQueryFailedError("task", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, errors.NewStoreQueryFailedError("task", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreQueryFailedError("task", err)
	}
	return tasks, nil
}

func (s *Store) FindFollowUp(ctx context.Context, parentTaskID string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE parent_task_id = $1`, parentTaskID)

	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStoreQueryFailedError("task", err)
	}
	return t, nil
}

func (s *Store) UpdateTask(ctx context.Context, task *models.Task) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = $2, completed_at = $3, completed_by = $4,
		    completion_data = $5, deadline = $6, order_id = $7
		WHERE id = $1`,
		task.ID, task.Status, task.CompletedAt, nullString(task.CompletedBy),
		nullString(task.CompletionData), task.Deadline, nullString(task.OrderID),
	)
	if err != nil {
		return errors.NewStoreWriteFailedError("task", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewTaskNotFoundError(task.ID)
	}
	return nil
}

func (s *Store) UpdateDeadlines(ctx context.Context, deadlines map[string]time.Time) error {
	for id, deadline := range deadlines {
		_, err := s.db.ExecContext(ctx, `
			UPDATE tasks
			SET deadline = $2
			WHERE id = $1`, id, deadline)
		if err != nil {
			return errors.NewStoreWriteFailedError("task", err)
		}
	}
	return nil
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var description, completedBy, completionData, orderID, parentTaskID sql.NullString
	var dayOffset sql.NullInt64
	var deadline, completedAt sql.NullTime
	err := row.Scan(
		&t.ID, &t.EventID, &t.TemplateID, &t.Category, &t.Name, &description,
		&t.CompletionKind, &dayOffset, &deadline, &t.Status, &completedAt,
		&completedBy, &completionData, &orderID, &parentTaskID, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Description = description.String
	t.CompletedBy = completedBy.String
	t.CompletionData = completionData.String
	t.OrderID = orderID.String
	t.ParentTaskID = parentTaskID.String
	if dayOffset.Valid {
		v := int(dayOffset.Int64)
		t.DayOffset = &v
	}
	if deadline.Valid {
		d := deadline.Time
		t.Deadline = &d
	}
	if completedAt.Valid {
		c := completedAt.Time
		t.CompletedAt = &c
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
