// internal/automation/engine.go

// Package automation is the notification trigger engine: each hourly
// tick it matches active templates against events and sends the due
// notifications, with the delivery log as the only cross-run state.
package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"school-event-automation/internal/clock"
	"school-event-automation/internal/common/errors"
	"school-event-automation/internal/common/logger"
	"school-event-automation/internal/common/metrics"
	"school-event-automation/internal/common/validation"
	"school-event-automation/internal/dates"
	"school-event-automation/internal/delivery"
	"school-event-automation/internal/models"
	"school-event-automation/internal/render"
	"school-event-automation/internal/store"
)

// Store is the record-store slice the trigger engine reads and writes.
type Store interface {
	store.EventStore
	store.TemplateStore
	store.DeliveryLogStore
}

// Resolver is the recipient-resolution boundary.
type Resolver interface {
	Resolve(ctx context.Context, event *models.Event, audiences []string) ([]models.Recipient, error)
}

// Engine runs one automation tick at a time. It holds no cross-run
// state; overlapping invocations coordinate through the delivery log and
// the claimer.
type Engine struct {
	store     Store
	resolver  Resolver
	mailer    delivery.Mailer
	claimer   Claimer
	clock     clock.Clock
	loc       *time.Location
	sendDelay time.Duration
	reporter  *errors.Reporter
	log       logger.Logger
}

func NewEngine(s Store, resolver Resolver, mailer delivery.Mailer, claimer Claimer, clk clock.Clock, loc *time.Location, sendDelay time.Duration, reporter *errors.Reporter, log logger.Logger) *Engine {
	return &Engine{
		store:     s,
		resolver:  resolver,
		mailer:    mailer,
		claimer:   claimer,
		clock:     clk,
		loc:       loc,
		sendDelay: sendDelay,
		reporter:  reporter,
		log:       log,
	}
}

// DeliveryDetail is one recipient-level outcome in a run result.
type DeliveryDetail struct {
	TemplateSlug string `json:"templateSlug"`
	EventID      string `json:"eventId"`
	Recipient    string `json:"recipient"`
	Outcome      string `json:"outcome"`
	MessageID    string `json:"messageId,omitempty"`
	Error        string `json:"error,omitempty"`
}

// RunResult summarizes one automation tick.
type RunResult struct {
	TemplatesProcessed int              `json:"templatesProcessed"`
	Sent               int              `json:"sent"`
	Failed             int              `json:"failed"`
	Skipped            int              `json:"skipped"`
	Details            []DeliveryDetail `json:"details"`
	Errors             []string         `json:"errors"`
}

// Outcome label for dry-run details; never written to the delivery log.
const outcomeDryRun = "dry_run"

// ProcessAutomation runs one tick: filter active templates to the
// current hour, match events by trigger offset and tier/size, resolve
// recipients, and send with per-recipient dedup. A failure for one
// template, event or recipient is recorded and never aborts the rest of
// the run.
func (e *Engine) ProcessAutomation(ctx context.Context, dryRun bool, currentHourOverride *int) (*RunResult, error) {
	start := time.Now()
	defer func() {
		metrics.AutomationRunDuration.Observe(time.Since(start).Seconds())
	}()

	now := e.clock.Now().In(e.loc)
	hour := now.Hour()
	if currentHourOverride != nil {
		hour = *currentHourOverride
	}

	result := &RunResult{Details: []DeliveryDetail{}, Errors: []string{}}

	templates, err := e.store.ListActiveTemplates(ctx)
	if err != nil {
		metrics.AutomationRunErrors.Inc()
		return nil, err
	}

	// Load events once; shared across every template in this tick.
	events, err := e.store.ListEvents(ctx)
	if err != nil {
		metrics.AutomationRunErrors.Inc()
		return nil, err
	}

	for _, tmpl := range templates {
		if tmpl.TriggerHour != hour {
			continue
		}
		if v := validation.ValidateEmailTemplate(&tmpl); !v.Valid {
			e.recordError(result, fmt.Errorf("template %s rejected: %s", tmpl.Slug, v.Describe()))
			continue
		}
		result.TemplatesProcessed++
		e.processTemplate(ctx, &tmpl, events, now, dryRun, result)
	}

	e.log.Info("automation run finished", map[string]interface{}{
		"hour":      hour,
		"dryRun":    dryRun,
		"templates": result.TemplatesProcessed,
		"sent":      result.Sent,
		"failed":    result.Failed,
		"skipped":   result.Skipped,
		"errors":    len(result.Errors),
	})
	return result, nil
}

func (e *Engine) processTemplate(ctx context.Context, tmpl *models.EmailTemplate, events []models.Event, now time.Time, dryRun bool, result *RunResult) {
	for i := range events {
		event := &events[i]
		if !event.Live() {
			continue
		}
		if !dates.MatchesTrigger(event.Date, now, tmpl.TriggerOffsetDays, e.loc) {
			continue
		}
		if !tmpl.AppliesTo(event) {
			continue
		}

		recipients, err := e.resolver.Resolve(ctx, event, tmpl.Audiences)
		if err != nil {
			e.recordError(result, fmt.Errorf("resolve recipients for %s/%s: %w", tmpl.Slug, event.ID, err))
			continue
		}
		if len(recipients) == 0 {
			e.log.Warn("no recipients resolved", map[string]interface{}{
				"template": tmpl.Slug,
				"eventId":  event.ID,
			})
			continue
		}

		for _, rec := range recipients {
			e.processRecipient(ctx, tmpl, event, rec, dryRun, result)
		}
	}
}

func (e *Engine) processRecipient(ctx context.Context, tmpl *models.EmailTemplate, event *models.Event, rec models.Recipient, dryRun bool, result *RunResult) {
	sent, err := e.store.HasSent(ctx, tmpl.Slug, event.ID, rec.Email)
	if err != nil {
		e.recordError(result, fmt.Errorf("dedup check for %s/%s/%s: %w", tmpl.Slug, event.ID, rec.Email, err))
		return
	}
	if sent {
		e.logOutcome(ctx, tmpl, event, rec, models.DeliveryLogEntry{Outcome: models.OutcomeSkipped}, result)
		return
	}

	if dryRun {
		result.Details = append(result.Details, DeliveryDetail{
			TemplateSlug: tmpl.Slug,
			EventID:      event.ID,
			Recipient:    rec.Email,
			Outcome:      outcomeDryRun,
		})
		return
	}

	claimed, err := e.claimer.Claim(ctx, tmpl.Slug, event.ID, rec.Email)
	if err != nil {
		e.recordError(result, fmt.Errorf("claim for %s/%s/%s: %w", tmpl.Slug, event.ID, rec.Email, err))
		return
	}
	if !claimed {
		// Another run holds the send; treat as a duplicate.
		e.logOutcome(ctx, tmpl, event, rec, models.DeliveryLogEntry{Outcome: models.OutcomeSkipped}, result)
		return
	}

	data := e.renderData(event, rec)
	msg := delivery.Message{
		To:      rec.Email,
		ToName:  rec.Name,
		Subject: render.Render(tmpl.Subject, data, event.Date),
		Body:    render.Render(tmpl.Body, data, event.Date),
		Headers: map[string]string{"X-Event-Id": event.ID},
	}

	messageID, sendErr := e.mailer.Send(ctx, msg)
	if sendErr != nil {
		if relErr := e.claimer.Release(ctx, tmpl.Slug, event.ID, rec.Email); relErr != nil {
			e.reporter.Report(relErr, map[string]interface{}{"op": "release_claim"})
		}
		e.logOutcome(ctx, tmpl, event, rec, models.DeliveryLogEntry{
			Outcome:   models.OutcomeFailed,
			ErrorText: sendErr.Error(),
		}, result)
		e.recordError(result, fmt.Errorf("send %s/%s/%s: %w", tmpl.Slug, event.ID, rec.Email, sendErr))
		return
	}

	e.logOutcome(ctx, tmpl, event, rec, models.DeliveryLogEntry{
		Outcome:           models.OutcomeSent,
		ProviderMessageID: messageID,
	}, result)

	// Rate limit between outbound sends.
	if e.sendDelay > 0 {
		select {
		case <-time.After(e.sendDelay):
		case <-ctx.Done():
		}
	}
}

// logOutcome appends the delivery-log entry and mirrors it into the run
// result and metrics. The log write is best-effort for skipped/failed
// outcomes but load-bearing for sent ones, so its failure is reported
// either way.
func (e *Engine) logOutcome(ctx context.Context, tmpl *models.EmailTemplate, event *models.Event, rec models.Recipient, entry models.DeliveryLogEntry, result *RunResult) {
	entry.ID = uuid.New().String()
	entry.TemplateSlug = tmpl.Slug
	entry.EventID = event.ID
	entry.RecipientEmail = rec.Email
	entry.RecipientType = rec.Type
	entry.SentAt = e.clock.Now()

	if err := e.store.AppendDelivery(ctx, entry); err != nil {
		e.reporter.Report(err, map[string]interface{}{
			"op":       "append_delivery",
			"template": tmpl.Slug,
			"eventId":  event.ID,
		})
		e.recordError(result, fmt.Errorf("append delivery log for %s/%s/%s: %w", tmpl.Slug, event.ID, rec.Email, err))
	}

	switch entry.Outcome {
	case models.OutcomeSent:
		result.Sent++
	case models.OutcomeFailed:
		result.Failed++
	case models.OutcomeSkipped:
		result.Skipped++
	}
	metrics.NotificationsProcessed.WithLabelValues(tmpl.Slug, entry.Outcome).Inc()
	result.Details = append(result.Details, DeliveryDetail{
		TemplateSlug: tmpl.Slug,
		EventID:      event.ID,
		Recipient:    rec.Email,
		Outcome:      entry.Outcome,
		MessageID:    entry.ProviderMessageID,
		Error:        entry.ErrorText,
	})
}

func (e *Engine) recordError(result *RunResult, err error) {
	metrics.AutomationRunErrors.Inc()
	e.log.WithError(err).Error("automation unit of work failed", nil)
	result.Errors = append(result.Errors, err.Error())
}

func (e *Engine) renderData(event *models.Event, rec models.Recipient) map[string]interface{} {
	return map[string]interface{}{
		"school_name":    event.SchoolName,
		"contact_name":   event.ContactName,
		"tier":           event.Tier,
		"size":           event.Size,
		"recipient_name": rec.Name,
	}
}

// TestEmailResult reports a sendTestEmail attempt, including the
// rendered content so operators can proof a template before activating
// it.
type TestEmailResult struct {
	Success         bool   `json:"success"`
	MessageID       string `json:"messageId,omitempty"`
	Error           string `json:"error,omitempty"`
	RenderedSubject string `json:"renderedSubject"`
	RenderedBody    string `json:"renderedBody"`
}

// SendTestEmail renders a template against a real or sample event and
// sends it to a test address. It bypasses audiences, dedup and the
// delivery log entirely.
func (e *Engine) SendTestEmail(ctx context.Context, templateID, testAddress string, eventID string) (*TestEmailResult, error) {
	tmpl, err := e.store.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	event := &models.Event{
		SchoolName:  "Sample School",
		ContactName: "Sample Contact",
		Date:        dates.Midnight(e.clock.Now().In(e.loc), e.loc).AddDate(0, 0, -tmpl.TriggerOffsetDays),
		Tier:        "standard",
		Size:        100,
	}
	if eventID != "" {
		event, err = e.store.GetEvent(ctx, eventID)
		if err != nil {
			return nil, err
		}
	}

	data := e.renderData(event, models.Recipient{Name: "Test Recipient", Email: testAddress})
	result := &TestEmailResult{
		RenderedSubject: render.Render(tmpl.Subject, data, event.Date),
		RenderedBody:    render.Render(tmpl.Body, data, event.Date),
	}

	messageID, err := e.mailer.Send(ctx, delivery.Message{
		To:      testAddress,
		Subject: result.RenderedSubject,
		Body:    result.RenderedBody,
	})
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}
	result.Success = true
	result.MessageID = messageID
	return result, nil
}
