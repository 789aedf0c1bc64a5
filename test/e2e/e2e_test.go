// test/e2e/e2e_test.go

// End-to-end lifecycle of one school visit: booking generates the task
// cascade, the supplier-order completion spawns its dependents, a
// reschedule moves only the live deadlines, and the hourly trigger engine
// sends each reminder exactly once.
package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school-event-automation/internal/automation"
	"school-event-automation/internal/cascade"
	"school-event-automation/internal/clock"
	"school-event-automation/internal/common/errors"
	"school-event-automation/internal/common/logger"
	"school-event-automation/internal/delivery"
	"school-event-automation/internal/models"
	"school-event-automation/internal/recipients"
	"school-event-automation/internal/store/inmem"
	"school-event-automation/pkg/registry"
)

type world struct {
	store   *inmem.Store
	mailer  *delivery.Capture
	clock   *steppingClock
	cascade *cascade.Engine
	trigger *automation.Engine
}

// steppingClock lets the test walk through the calendar.
type steppingClock struct {
	now time.Time
}

func (c *steppingClock) Now() time.Time { return c.now }

var _ clock.Clock = (*steppingClock)(nil)

func newWorld(t *testing.T, start time.Time) *world {
	t.Helper()
	s := inmem.New()
	clk := &steppingClock{now: start}
	mailer := delivery.NewCapture()
	log := logger.NewNoOpLogger()

	return &world{
		store:   s,
		mailer:  mailer,
		clock:   clk,
		cascade: cascade.NewEngine(s, registry.Default(), clk, time.UTC, log),
		trigger: automation.NewEngine(
			s,
			recipients.NewResolver(s, log),
			mailer,
			automation.NoopClaimer{},
			clk,
			time.UTC,
			0,
			errors.NewReporter(log),
			log,
		),
	}
}

func TestEventLifecycle(t *testing.T) {
	ctx := context.Background()
	bookingDay := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	eventDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	w := newWorld(t, bookingDay)

	// --- Booking: event, registrations, templates ---
	w.store.PutEvent(models.Event{
		ID:           "evt-1",
		SchoolName:   "Hillcrest Primary",
		Date:         eventDate,
		Tier:         "standard",
		Size:         120,
		Status:       models.EventStatusActive,
		ContactName:  "Ms Khan",
		ContactEmail: "khan@hillcrest.sch.uk",
		CreatedAt:    bookingDay,
	})
	w.store.PutRegistration(models.Registration{ID: "r-1", EventID: "evt-1", ParentName: "Dana Obi", ParentEmail: "dana@example.com"})
	w.store.PutRegistration(models.Registration{ID: "r-2", EventID: "evt-1", ParentName: "Sam Price", ParentEmail: "sam@example.com"})
	w.store.PutTemplate(models.EmailTemplate{
		ID: "tpl-1", Slug: "two-week-teacher-brief",
		Audiences:         []string{models.AudienceTeacher},
		TriggerOffsetDays: -14, TriggerHour: 9,
		Subject: "Visit briefing for {{school_name}}",
		Body:    "<p>The visit is on {{event_date}}. Order deadline was {{event_date-14}}.</p>",
		Active:  true,
	})
	w.store.PutTemplate(models.EmailTemplate{
		ID: "tpl-2", Slug: "last-chance-orders",
		Audiences:         []string{models.AudienceNonBuyer},
		TriggerOffsetDays: -21, TriggerHour: 9,
		Subject: "Last chance to order",
		Body:    "<p>Hello {{recipient_name}}, orders close soon.</p>",
		Active:  true,
	})

	// --- Cascade generation at booking time ---
	tasks, err := w.cascade.GenerateTasksForEvent(ctx, "evt-1")
	require.NoError(t, err)
	require.Len(t, tasks, 7)

	// --- Reschedule before anything is completed ---
	newDate := time.Date(2026, 3, 22, 0, 0, 0, 0, time.UTC)
	recalc, err := w.cascade.RecalculateDeadlinesForEvent(ctx, "evt-1", newDate)
	require.NoError(t, err)
	assert.Equal(t, 6, recalc.UpdatedCount)
	w.store.PutEvent(models.Event{
		ID: "evt-1", SchoolName: "Hillcrest Primary", Date: newDate,
		Tier: "standard", Size: 120, Status: models.EventStatusActive,
		ContactName: "Ms Khan", ContactEmail: "khan@hillcrest.sch.uk",
	})

	// --- 21 days out: non-buyer reminder fires ---
	// Dana has a paid order; only Sam is a non-buyer.
	w.store.PutPurchase(models.PurchaseOrder{
		ID: "po-1", EventID: "evt-1", ParentEmail: "dana@example.com",
		Category: "merchandise", Status: models.PurchaseStatusPaid, Total: 12.50,
	})
	w.clock.now = time.Date(2026, 3, 1, 9, 5, 0, 0, time.UTC)
	run, err := w.trigger.ProcessAutomation(ctx, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Sent)
	msgs := w.mailer.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "sam@example.com", msgs[0].To)
	assert.Contains(t, msgs[0].Body, "Hello Sam Price")

	// Re-running the same hour sends nothing new.
	run, err = w.trigger.ProcessAutomation(ctx, false, nil)
	require.NoError(t, err)
	assert.Zero(t, run.Sent)
	assert.Equal(t, 1, run.Skipped)
	assert.Len(t, w.mailer.Messages(), 1)

	// --- Supplier-order task completes, spawning order and follow-up ---
	orderTask := findTask(t, w.store, "evt-1", "place-supplier-order")
	completion, err := w.cascade.CompleteTask(ctx, orderTask.ID,
		map[string]interface{}{"amount": 12.50},
		"ops@ourteam.uk",
		&cascade.OrderEnrichment{SourceOrderIDs: []string{"po-1"}, Contents: map[string]int{"photo-pack": 5}},
	)
	require.NoError(t, err)
	require.NotEmpty(t, completion.OrderID)
	require.NotEmpty(t, completion.FollowUpTaskID)

	followUp, err := w.store.GetTask(ctx, completion.FollowUpTaskID)
	require.NoError(t, err)
	assert.Equal(t, orderTask.ID, followUp.ParentTaskID)
	assert.True(t, followUp.Deadline.Equal(newDate))

	// --- 14 days out: teacher briefing, with date arithmetic rendered ---
	w.clock.now = time.Date(2026, 3, 8, 9, 5, 0, 0, time.UTC)
	run, err = w.trigger.ProcessAutomation(ctx, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Sent)
	msgs = w.mailer.Messages()
	require.Len(t, msgs, 2)
	brief := msgs[1]
	assert.Equal(t, "khan@hillcrest.sch.uk", brief.To)
	assert.Equal(t, "Visit briefing for Hillcrest Primary", brief.Subject)
	assert.Contains(t, brief.Body, "Sunday, 22 March 2026")
	assert.Contains(t, brief.Body, "Sunday, 8 March 2026")

	// --- Delivery log tells the whole story ---
	entries, err := w.store.ListDeliveriesByEvent(ctx, "evt-1")
	require.NoError(t, err)
	var sent, skipped int
	for _, entry := range entries {
		switch entry.Outcome {
		case models.OutcomeSent:
			sent++
		case models.OutcomeSkipped:
			skipped++
		}
	}
	assert.Equal(t, 2, sent)
	assert.Equal(t, 1, skipped)
}

func findTask(t *testing.T, s *inmem.Store, eventID, templateID string) models.Task {
	t.Helper()
	tasks, err := s.ListTasksByEvent(context.Background(), eventID)
	require.NoError(t, err)
	for _, task := range tasks {
		if task.TemplateID == templateID {
			return task
		}
	}
	t.Fatalf("no task for template %s", templateID)
	return models.Task{}
}
