// internal/store/postgres/deliverylog.go
package postgres

import (
	"context"
	"database/sql"

	"school-event-automation/internal/common/errors"
	"school-event-automation/internal/models"
)

const deliveryColumns = `id, template_slug, event_id, recipient_email, recipient_type,
	       outcome, error_text, provider_message_id, sent_at`

// AppendDelivery inserts one log entry. A partial unique index on
// (template_slug, event_id, lower(recipient_email)) WHERE outcome = 'sent'
// backs the ON CONFLICT clause, so two racing engine runs cannot both
// record a sent entry for the same key.
func (s *Store) AppendDelivery(ctx context.Context, entry models.DeliveryLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO delivery_log (`+deliveryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (template_slug, event_id, lower(recipient_email))
			WHERE outcome = 'sent'
			DO NOTHING`,
		entry.ID, entry.TemplateSlug, entry.EventID, entry.RecipientEmail,
		entry.RecipientType, entry.Outcome, nullString(entry.ErrorText),
		nullString(entry.ProviderMessageID), entry.SentAt,
	)
	if err != nil {
		return errors.NewStoreWriteFailedError("delivery_log", err)
	}
	return nil
}

func (s *Store) HasSent(ctx context.Context, templateSlug, eventID, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM delivery_log
			WHERE template_slug = $1
			  AND event_id = $2
			  AND lower(recipient_email) = lower($3)
			  AND outcome = 'sent'
		)`, templateSlug, eventID, email).Scan(&exists)
	if err != nil {
		return false, errors.NewStoreQueryFailedError("delivery_log", err)
	}
	return exists, nil
}

func (s *Store) ListDeliveriesByEvent(ctx context.Context, eventID string) ([]models.DeliveryLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+deliveryColumns+`
		FROM delivery_log
		WHERE event_id = $1
		ORDER BY sent_at, id`, eventID)
	if err != nil {
		return nil, errors.NewStoreQueryFailedError("delivery_log", err)
	}
	defer rows.Close()

	var entries []models.DeliveryLogEntry
	for rows.Next() {
		var e models.DeliveryLogEntry
		var errorText, providerMessageID sql.NullString
		if err := rows.Scan(
			&e.ID, &e.TemplateSlug, &e.EventID, &e.RecipientEmail, &e.RecipientType,
			&e.Outcome, &errorText, &providerMessageID, &e.SentAt,
		); err != nil {
			return nil, errors.NewStoreQueryFailedError("delivery_log", err)
		}
		e.ErrorText = errorText.String
		e.ProviderMessageID = providerMessageID.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreQueryFailedError("delivery_log", err)
	}
	return entries, nil
}
