package automation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school-event-automation/internal/clock"
	"school-event-automation/internal/common/errors"
	"school-event-automation/internal/common/logger"
	"school-event-automation/internal/delivery"
	"school-event-automation/internal/models"
	"school-event-automation/internal/recipients"
	"school-event-automation/internal/store/inmem"
)

// testNow is 2026-01-18 09:xx; an event on 2026-03-15 is exactly 56 days
// out.
var (
	testNow       = time.Date(2026, 1, 18, 9, 15, 0, 0, time.UTC)
	testEventDate = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	engine *Engine
	store  *inmem.Store
	mailer *delivery.Capture
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := inmem.New()
	mailer := delivery.NewCapture()
	log := logger.NewNoOpLogger()
	engine := NewEngine(
		s,
		recipients.NewResolver(s, log),
		mailer,
		NoopClaimer{},
		clock.Fixed{T: testNow},
		time.UTC,
		0,
		errors.NewReporter(log),
		log,
	)
	return &fixture{engine: engine, store: s, mailer: mailer}
}

func (f *fixture) seedEvent(id string) {
	f.store.PutEvent(models.Event{
		ID:         id,
		SchoolName: "Hillcrest Primary",
		Date:       testEventDate,
		Tier:       "standard",
		Size:       120,
		Status:     models.EventStatusActive,
	})
	f.store.PutRegistration(models.Registration{
		ID: id + "-r1", EventID: id, ParentName: "Dana Obi", ParentEmail: "dana@example.com",
	})
}

func (f *fixture) seedTemplate(slug string, offsetDays, hour int) models.EmailTemplate {
	tmpl := models.EmailTemplate{
		ID:                "tpl-" + slug,
		Slug:              slug,
		Audiences:         []string{models.AudienceParent},
		TriggerOffsetDays: offsetDays,
		TriggerHour:       hour,
		Subject:           "{{school_name}} visit",
		Body:              "<p>Hello {{recipient_name}}, the visit is on {{event_date}}.</p>",
		Active:            true,
	}
	f.store.PutTemplate(tmpl)
	return tmpl
}

func hourPtr(h int) *int { return &h }

func TestProcessAutomationSends(t *testing.T) {
	f := newFixture(t)
	f.seedEvent("evt-1")
	f.seedTemplate("eight-week-reminder", -56, 9)

	result, err := f.engine.ProcessAutomation(context.Background(), false, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TemplatesProcessed)
	assert.Equal(t, 1, result.Sent)
	assert.Zero(t, result.Failed)
	assert.Zero(t, result.Skipped)

	msgs := f.mailer.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "dana@example.com", msgs[0].To)
	assert.Equal(t, "Hillcrest Primary visit", msgs[0].Subject)
	assert.Contains(t, msgs[0].Body, "Sunday, 15 March 2026")
}

func TestProcessAutomationSecondRunSkips(t *testing.T) {
	f := newFixture(t)
	f.seedEvent("evt-1")
	f.seedTemplate("eight-week-reminder", -56, 9)

	first, err := f.engine.ProcessAutomation(context.Background(), false, nil)
	require.NoError(t, err)
	second, err := f.engine.ProcessAutomation(context.Background(), false, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Sent)
	assert.Equal(t, 1, second.Skipped)
	assert.Zero(t, second.Sent)

	// Exactly one sent entry and one skipped entry in the log.
	var sent, skipped int
	for _, d := range f.store.Deliveries() {
		switch d.Outcome {
		case models.OutcomeSent:
			sent++
		case models.OutcomeSkipped:
			skipped++
		}
	}
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, skipped)
	assert.Len(t, f.mailer.Messages(), 1)
}

func TestProcessAutomationHourFilter(t *testing.T) {
	f := newFixture(t)
	f.seedEvent("evt-1")
	f.seedTemplate("eight-week-reminder", -56, 14)

	// Clock says 09:00; nothing due.
	result, err := f.engine.ProcessAutomation(context.Background(), false, nil)
	require.NoError(t, err)
	assert.Zero(t, result.TemplatesProcessed)

	// Override pins the hour for testing.
	result, err = f.engine.ProcessAutomation(context.Background(), false, hourPtr(14))
	require.NoError(t, err)
	assert.Equal(t, 1, result.TemplatesProcessed)
	assert.Equal(t, 1, result.Sent)
}

func TestProcessAutomationOffsetMismatch(t *testing.T) {
	f := newFixture(t)
	f.seedEvent("evt-1")
	// 55 days out, not 56: no match today.
	f.seedTemplate("eight-week-reminder", -55, 9)

	result, err := f.engine.ProcessAutomation(context.Background(), false, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TemplatesProcessed)
	assert.Zero(t, result.Sent)
}

func TestProcessAutomationTierAndSizeFilter(t *testing.T) {
	f := newFixture(t)
	f.seedEvent("evt-1")
	tmpl := f.seedTemplate("premium-extras", -56, 9)
	tmpl.TierFilter = "premium"
	f.store.PutTemplate(tmpl)

	result, err := f.engine.ProcessAutomation(context.Background(), false, nil)
	require.NoError(t, err)
	assert.Zero(t, result.Sent)

	tmpl.TierFilter = "standard"
	tmpl.MinSize = 500
	f.store.PutTemplate(tmpl)
	result, err = f.engine.ProcessAutomation(context.Background(), false, nil)
	require.NoError(t, err)
	assert.Zero(t, result.Sent)
}

func TestProcessAutomationRejectsMalformedTemplate(t *testing.T) {
	f := newFixture(t)
	f.seedEvent("evt-1")
	tmpl := f.seedTemplate("eight-week-reminder", -56, 9)
	tmpl.Audiences = []string{"everyone"}
	f.store.PutTemplate(tmpl)

	result, err := f.engine.ProcessAutomation(context.Background(), false, nil)
	require.NoError(t, err)
	assert.Zero(t, result.TemplatesProcessed)
	assert.Zero(t, result.Sent)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "eight-week-reminder")
}

func TestProcessAutomationSkipsCancelledEvents(t *testing.T) {
	f := newFixture(t)
	f.seedEvent("evt-1")
	f.store.PutEvent(models.Event{
		ID: "evt-1", SchoolName: "Hillcrest Primary", Date: testEventDate,
		Tier: "standard", Status: models.EventStatusCancelled,
	})
	f.seedTemplate("eight-week-reminder", -56, 9)

	result, err := f.engine.ProcessAutomation(context.Background(), false, nil)
	require.NoError(t, err)
	assert.Zero(t, result.Sent)
}

func TestProcessAutomationFailureIsolation(t *testing.T) {
	f := newFixture(t)
	f.seedEvent("evt-1")
	f.store.PutRegistration(models.Registration{
		ID: "evt-1-r2", EventID: "evt-1", ParentName: "Sam Price", ParentEmail: "sam@example.com",
	})
	f.seedTemplate("eight-week-reminder", -56, 9)

	f.mailer.SendFunc = func(msg delivery.Message) (string, error) {
		if msg.To == "dana@example.com" {
			return "", fmt.Errorf("mailbox full")
		}
		return "msg-ok", nil
	}

	result, err := f.engine.ProcessAutomation(context.Background(), false, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "dana@example.com")

	// The failed recipient is retried on the next tick.
	f.mailer.SendFunc = nil
	result, err = f.engine.ProcessAutomation(context.Background(), false, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 1, result.Skipped)
}

func TestProcessAutomationDryRun(t *testing.T) {
	f := newFixture(t)
	f.seedEvent("evt-1")
	f.seedTemplate("eight-week-reminder", -56, 9)

	result, err := f.engine.ProcessAutomation(context.Background(), true, nil)
	require.NoError(t, err)
	assert.Zero(t, result.Sent)
	require.Len(t, result.Details, 1)
	assert.Equal(t, outcomeDryRun, result.Details[0].Outcome)
	assert.Empty(t, f.mailer.Messages())
	assert.Empty(t, f.store.Deliveries())
}

func TestProcessAutomationClaimDenied(t *testing.T) {
	f := newFixture(t)
	f.seedEvent("evt-1")
	f.seedTemplate("eight-week-reminder", -56, 9)
	f.engine.claimer = deniedClaimer{}

	result, err := f.engine.ProcessAutomation(context.Background(), false, nil)
	require.NoError(t, err)
	assert.Zero(t, result.Sent)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, f.mailer.Messages())
}

type deniedClaimer struct{}

func (deniedClaimer) Claim(context.Context, string, string, string) (bool, error) {
	return false, nil
}
func (deniedClaimer) Release(context.Context, string, string, string) error { return nil }

func TestSendTestEmail(t *testing.T) {
	f := newFixture(t)
	tmpl := f.seedTemplate("eight-week-reminder", -56, 9)

	result, err := f.engine.SendTestEmail(context.Background(), tmpl.ID, "proof@ourteam.uk", "")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Sample School visit", result.RenderedSubject)
	assert.NotContains(t, result.RenderedBody, "{{")

	msgs := f.mailer.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "proof@ourteam.uk", msgs[0].To)
	// Proofs never touch the dedup log.
	assert.Empty(t, f.store.Deliveries())
}

func TestSendTestEmailWithRealEvent(t *testing.T) {
	f := newFixture(t)
	f.seedEvent("evt-1")
	tmpl := f.seedTemplate("eight-week-reminder", -56, 9)

	result, err := f.engine.SendTestEmail(context.Background(), tmpl.ID, "proof@ourteam.uk", "evt-1")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Hillcrest Primary visit", result.RenderedSubject)
}

func TestSendTestEmailUnknownTemplate(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.SendTestEmail(context.Background(), "nope", "proof@ourteam.uk", "")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}
