// internal/store/postgres/people.go
package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"school-event-automation/internal/common/errors"
	"school-event-automation/internal/models"
)

func (s *Store) ListRegistrationsByEvent(ctx context.Context, eventID string) ([]models.Registration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, parent_name, parent_email, opt_out, placeholder
		FROM registrations
		WHERE event_id = $1
		ORDER BY id`, eventID)
	if err != nil {
		return nil, errors.NewStoreQueryFailedError("registration", err)
	}
	defer rows.Close()

	var regs []models.Registration
	for rows.Next() {
		var r models.Registration
		if err := rows.Scan(&r.ID, &r.EventID, &r.ParentName, &r.ParentEmail, &r.OptOut, &r.Placeholder); err != nil {
			return nil, errors.NewStoreQueryFailedError("registration", err)
		}
		regs = append(regs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreQueryFailedError("registration", err)
	}
	return regs, nil
}

func (s *Store) GetContacts(ctx context.Context, ids []string) ([]models.Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, phone
		FROM contacts
		WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, errors.NewStoreQueryFailedError("contact", err)
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		var c models.Contact
		var phone sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &phone); err != nil {
			return nil, errors.NewStoreQueryFailedError("contact", err)
		}
		c.Phone = phone.String
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreQueryFailedError("contact", err)
	}
	return contacts, nil
}

func (s *Store) GetClass(ctx context.Context, id string) (*models.SchoolClass, error) {
	var c models.SchoolClass
	err := s.db.QueryRowContext(ctx, `
		SELECT id, event_id, name
		FROM school_classes
		WHERE id = $1`, id).Scan(&c.ID, &c.EventID, &c.Name)
	if err == sql.ErrNoRows {
		return nil, errors.NewStoreQueryFailedError("school_class", sql.ErrNoRows)
	}
	if err != nil {
		return nil, errors.NewStoreQueryFailedError("school_class", err)
	}
	return &c, nil
}
