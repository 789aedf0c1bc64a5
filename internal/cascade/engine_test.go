package cascade

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
	"school-event-automation/internal/models"
	"school-event-automation/internal/store/inmem"
	"school-event-automation/pkg/registry"
)

var testNow = time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *inmem.Store) {
	t.Helper()
	s := inmem.New()
	e := NewEngine(s, registry.Default(), clock.Fixed{T: testNow}, time.UTC, logger.NewNoOpLogger())
	return e, s
}

func seedEvent(s *inmem.Store, date time.Time) models.Event {
	event := models.Event{
		ID:         "evt-1",
		SchoolName: "Hillcrest Primary",
		Date:       date,
		Tier:       "standard",
		Size:       120,
		Status:     models.EventStatusActive,
		CreatedAt:  testNow,
	}
	s.PutEvent(event)
	return event
}

func TestGenerateTasksForEvent(t *testing.T) {
	e, s := newTestEngine(t)
	eventDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	seedEvent(s, eventDate)

	tasks, err := e.GenerateTasksForEvent(context.Background(), "evt-1")
	require.NoError(t, err)
	require.Len(t, tasks, len(registry.Default().Templates))

	byTemplate := make(map[string]models.Task)
	for _, task := range tasks {
		assert.Equal(t, models.TaskStatusPending, task.Status)
		assert.Equal(t, "evt-1", task.EventID)
		byTemplate[task.TemplateID] = task
	}

	// Every offset-bearing template lands on event date + offset.
	for _, tmpl := range registry.Default().Templates {
		task := byTemplate[tmpl.ID]
		if tmpl.DayOffset == nil {
			assert.Nil(t, task.Deadline, tmpl.ID)
			continue
		}
		require.NotNil(t, task.Deadline, tmpl.ID)
		want := eventDate.AddDate(0, 0, *tmpl.DayOffset)
		assert.True(t, task.Deadline.Equal(want), "template %s: got %v want %v", tmpl.ID, task.Deadline, want)
	}
}

func TestGenerateTasksSkipsCancelledEvent(t *testing.T) {
	e, s := newTestEngine(t)
	s.PutEvent(models.Event{ID: "evt-1", Status: models.EventStatusCancelled, Date: testNow})

	tasks, err := e.GenerateTasksForEvent(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestGenerateTasksEventMissing(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.GenerateTasksForEvent(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestCompleteTaskCheckboxTransition(t *testing.T) {
	e, s := newTestEngine(t)
	seedEvent(s, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	tasks, err := e.GenerateTasksForEvent(context.Background(), "evt-1")
	require.NoError(t, err)
	task := taskForTemplate(t, tasks, "confirm-booking")

	result, err := e.CompleteTask(context.Background(), task.ID, map[string]interface{}{"checked": true}, "ops@example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, result.Task.Status)
	assert.Equal(t, "ops@example.com", result.Task.CompletedBy)
	require.NotNil(t, result.Task.CompletedAt)
	assert.Empty(t, result.OrderID)
	assert.Empty(t, result.FollowUpTaskID)

	// Completion is one-way: a second attempt is rejected.
	_, err = e.CompleteTask(context.Background(), task.ID, map[string]interface{}{"checked": true}, "ops@example.com", nil)
	require.Error(t, err)
	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodeTaskAlreadyCompleted, stdErr.Code)
}

func TestCompleteTaskInvalidData(t *testing.T) {
	e, s := newTestEngine(t)
	seedEvent(s, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	tasks, err := e.GenerateTasksForEvent(context.Background(), "evt-1")
	require.NoError(t, err)

	cases := []struct {
		name     string
		template string
		data     map[string]interface{}
	}{
		{"checkbox unchecked", "confirm-booking", map[string]interface{}{"checked": false}},
		{"checkbox missing", "confirm-booking", map[string]interface{}{}},
		{"amount negative", "place-supplier-order", map[string]interface{}{"amount": -5.0}},
		{"amount missing", "place-supplier-order", map[string]interface{}{}},
		{"text empty", "collect-class-lists", map[string]interface{}{"text": ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			task := taskForTemplate(t, tasks, tc.template)
			_, err := e.CompleteTask(context.Background(), task.ID, tc.data, "ops@example.com", nil)
			require.Error(t, err)
			var stdErr *errors.StandardError
			require.ErrorAs(t, err, &stdErr)
			assert.Equal(t, errors.ErrCodeInvalidCompletion, stdErr.Code)
		})
	}
}

func TestCompleteOrderTaskSpawnsOrderAndFollowUp(t *testing.T) {
	e, s := newTestEngine(t)
	eventDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	seedEvent(s, eventDate)
	tasks, err := e.GenerateTasksForEvent(context.Background(), "evt-1")
	require.NoError(t, err)
	task := taskForTemplate(t, tasks, "place-supplier-order")

	enrichment := &OrderEnrichment{
		SourceOrderIDs: []string{"po-1", "po-2"},
		Contents:       map[string]int{"photo-pack": 42},
	}
	result, err := e.CompleteTask(context.Background(), task.ID, map[string]interface{}{"amount": 612.50}, "ops@example.com", enrichment)
	require.NoError(t, err)
	require.NotEmpty(t, result.OrderID)
	require.NotEmpty(t, result.FollowUpTaskID)

	order, err := s.GetOrder(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, order.SourceTaskID)
	assert.Equal(t, 612.50, order.Amount)
	assert.Equal(t, []string{"po-1", "po-2"}, order.SourceOrderIDs)

	followUp, err := s.GetTask(context.Background(), result.FollowUpTaskID)
	require.NoError(t, err)
	assert.Equal(t, FollowUpCategory, followUp.Category)
	assert.Equal(t, task.ID, followUp.ParentTaskID)
	assert.Equal(t, result.OrderID, followUp.OrderID)
	require.NotNil(t, followUp.DayOffset)
	assert.Equal(t, 0, *followUp.DayOffset)
	require.NotNil(t, followUp.Deadline)
	assert.True(t, followUp.Deadline.Equal(eventDate))
}

func TestCompleteOrderTaskRetryDoesNotDuplicate(t *testing.T) {
	e, s := newTestEngine(t)
	eventDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	seedEvent(s, eventDate)
	tasks, err := e.GenerateTasksForEvent(context.Background(), "evt-1")
	require.NoError(t, err)
	task := taskForTemplate(t, tasks, "place-supplier-order")

	// Simulate a crash after order creation: the order exists but the
	// task is still pending.
	order := &models.AggregateOrder{
		ID:           "ord-existing",
		EventID:      "evt-1",
		SourceTaskID: task.ID,
		Amount:       612.50,
		OrderDate:    testNow,
		CreatedAt:    testNow,
	}
	require.NoError(t, s.CreateOrder(context.Background(), order))

	result, err := e.CompleteTask(context.Background(), task.ID, map[string]interface{}{"amount": 612.50}, "ops@example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, "ord-existing", result.OrderID)

	// Exactly one order for the source task.
	found, err := s.FindOrderByTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "ord-existing", found.ID)
}

// flakyStore fails the next n CreateTasks calls, standing in for a store
// outage between the completion write and the follow-up insert.
type flakyStore struct {
	*inmem.Store
	failCreates int
}

func (f *flakyStore) CreateTasks(ctx context.Context, tasks []models.Task) error {
	if f.failCreates > 0 {
		f.failCreates--
		return fmt.Errorf("connection reset")
	}
	return f.Store.CreateTasks(ctx, tasks)
}

func TestCompleteOrderTaskResumesAfterFollowUpFailure(t *testing.T) {
	s := inmem.New()
	flaky := &flakyStore{Store: s}
	e := NewEngine(flaky, registry.Default(), clock.Fixed{T: testNow}, time.UTC, logger.NewNoOpLogger())
	eventDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	seedEvent(s, eventDate)
	tasks, err := e.GenerateTasksForEvent(context.Background(), "evt-1")
	require.NoError(t, err)
	task := taskForTemplate(t, tasks, "place-supplier-order")

	flaky.failCreates = 1
	_, err = e.CompleteTask(context.Background(), task.ID, map[string]interface{}{"amount": 612.50}, "ops@example.com", nil)
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))

	// The completion write landed but the follow-up is missing.
	stored, err := s.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, stored.Status)
	missing, err := s.FindFollowUp(context.Background(), task.ID)
	require.NoError(t, err)
	require.Nil(t, missing)

	// Replaying the completion finishes the interrupted sequence.
	result, err := e.CompleteTask(context.Background(), task.ID, map[string]interface{}{"amount": 612.50}, "ops@example.com", nil)
	require.NoError(t, err)
	require.NotEmpty(t, result.FollowUpTaskID)
	assert.Equal(t, stored.OrderID, result.OrderID)

	followUp, err := s.GetTask(context.Background(), result.FollowUpTaskID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, followUp.ParentTaskID)
	require.NotNil(t, followUp.Deadline)
	assert.True(t, followUp.Deadline.Equal(eventDate))

	// With every record in place a further call is a plain repeat.
	_, err = e.CompleteTask(context.Background(), task.ID, map[string]interface{}{"amount": 612.50}, "ops@example.com", nil)
	require.Error(t, err)
	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodeTaskAlreadyCompleted, stdErr.Code)
}

func TestRecalculateDeadlines(t *testing.T) {
	e, s := newTestEngine(t)
	eventDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	seedEvent(s, eventDate)
	tasks, err := e.GenerateTasksForEvent(context.Background(), "evt-1")
	require.NoError(t, err)

	// Complete one offset task and freeze its deadline.
	completed := taskForTemplate(t, tasks, "confirm-booking")
	frozenDeadline := *completed.Deadline
	_, err = e.CompleteTask(context.Background(), completed.ID, map[string]interface{}{"checked": true}, "ops@example.com", nil)
	require.NoError(t, err)

	newDate := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	result, err := e.RecalculateDeadlinesForEvent(context.Background(), "evt-1", newDate)
	require.NoError(t, err)

	// Five pending offset tasks move; the completed one and the manual
	// one do not.
	assert.Equal(t, 5, result.UpdatedCount)
	assert.Len(t, result.TaskIDs, 5)
	assert.NotContains(t, result.TaskIDs, completed.ID)

	after, err := s.ListTasksByEvent(context.Background(), "evt-1")
	require.NoError(t, err)
	for _, task := range after {
		switch {
		case task.ID == completed.ID:
			assert.True(t, task.Deadline.Equal(frozenDeadline), "completed deadline moved")
		case task.Manual():
			assert.Nil(t, task.Deadline)
		default:
			want := newDate.AddDate(0, 0, *task.DayOffset)
			assert.True(t, task.Deadline.Equal(want), "template %s", task.TemplateID)
		}
	}
}

func taskForTemplate(t *testing.T, tasks []models.Task, templateID string) models.Task {
	t.Helper()
	for _, task := range tasks {
		if task.TemplateID == templateID {
			return task
		}
	}
	t.Fatalf("no task for template %s", templateID)
	return models.Task{}
}
