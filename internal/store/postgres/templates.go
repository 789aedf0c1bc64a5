// internal/store/postgres/templates.go
package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"school-event-automation/internal/common/errors"
	"school-event-automation/internal/models"
)

const templateColumns = `id, slug, audiences, trigger_offset_days, trigger_hour,
	       subject, body, active, tier_filter, min_size`

func (s *Store) ListActiveTemplates(ctx context.Context) ([]models.EmailTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+templateColumns+`
		FROM email_templates
		WHERE active = true
		ORDER BY slug`)
	if err != nil {
		return nil, errors.NewStoreQueryFailedError("email_template", err)
	}
	defer rows.Close()

	var templates []models.EmailTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, errors.NewStoreQueryFailedError("email_template", err)
		}
		templates = append(templates, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreQueryFailedError("email_template", err)
	}
	return templates, nil
}

func (s *Store) GetTemplate(ctx context.Context, id string) (*models.EmailTemplate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+templateColumns+`
		FROM email_templates
		WHERE id = $1`, id)

	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewTemplateNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewStoreQueryFailedError("email_template", err)
	}
	return t, nil
}

func scanTemplate(row rowScanner) (*models.EmailTemplate, error) {
	var t models.EmailTemplate
	var tierFilter sql.NullString
	var minSize sql.NullInt64
	err := row.Scan(
		&t.ID, &t.Slug, pq.Array(&t.Audiences), &t.TriggerOffsetDays, &t.TriggerHour,
		&t.Subject, &t.Body, &t.Active, &tierFilter, &minSize,
	)
	if err != nil {
		return nil, err
	}
	t.TierFilter = tierFilter.String
	t.MinSize = int(minSize.Int64)
	return &t, nil
}
