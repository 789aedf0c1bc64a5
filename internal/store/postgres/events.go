// internal/store/postgres/events.go
package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"school-event-automation/internal/common/errors"
	"school-event-automation/internal/models"
)

const eventColumns = `id, school_name, event_date, tier, size, status,
	       teacher_ids, contact_name, contact_email, staff_ids, class_ids, created_at`

func (s *Store) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE id = $1`, id)

	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewEventNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewStoreQueryFailedError("event", err)
	}
	return e, nil
}

func (s *Store) ListEvents(ctx context.Context) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE status <> 'deleted'
		ORDER BY event_date, id`)
	if err != nil {
		return nil, errors.NewStoreQueryFailedError("event", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, errors.NewStoreQueryFailedError("event", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreQueryFailedError("event", err)
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var e models.Event
	var contactName, contactEmail sql.NullString
	err := row.Scan(
		&e.ID, &e.SchoolName, &e.Date, &e.Tier, &e.Size, &e.Status,
		pq.Array(&e.TeacherIDs), &contactName, &contactEmail,
		pq.Array(&e.StaffIDs), pq.Array(&e.ClassIDs), &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.ContactName = contactName.String
	e.ContactEmail = contactEmail.String
	return &e, nil
}
