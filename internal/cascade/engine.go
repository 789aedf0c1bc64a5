// internal/cascade/engine.go

// Package cascade generates and completes event checklist tasks and the
// dependent records a completion spawns.
package cascade

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"school-event-automation/internal/clock"
	"school-event-automation/internal/common/errors"
	"school-event-automation/internal/common/logger"
	"school-event-automation/internal/common/metrics"
	"school-event-automation/internal/dates"
	"school-event-automation/internal/models"
	"school-event-automation/internal/store"
	"school-event-automation/pkg/registry"
)

// FollowUpCategory is the category of tasks spawned by an order-producing
// completion.
const FollowUpCategory = "shipping"

// Store is the record-store slice the cascade engine needs.
type Store interface {
	store.EventStore
	store.TaskStore
	store.OrderStore
}

// Engine owns the task cascade: bulk generation from the registry,
// one-way completion with dependent order/follow-up creation, and
// deadline recalculation on reschedule.
type Engine struct {
	store    Store
	registry *registry.TaskRegistry
	clock    clock.Clock
	loc      *time.Location
	log      logger.Logger
}

func NewEngine(s Store, reg *registry.TaskRegistry, clk clock.Clock, loc *time.Location, log logger.Logger) *Engine {
	return &Engine{
		store:    s,
		registry: reg,
		clock:    clk,
		loc:      loc,
		log:      log,
	}
}

// GenerateTasksForEvent creates one pending task per registry template,
// with deadline = event date + template offset. Offset-less templates
// produce manual tasks with no deadline. Generation is not
// self-deduplicating; the booking action calls it exactly once per event.
func (e *Engine) GenerateTasksForEvent(ctx context.Context, eventID string) ([]models.Task, error) {
	event, err := e.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.Live() {
		e.log.Warn("skipping task generation for non-live event", map[string]interface{}{
			"eventId": eventID,
			"status":  event.Status,
		})
		return nil, nil
	}

	now := e.clock.Now()
	tasks := make([]models.Task, 0, len(e.registry.Templates))
	for _, tmpl := range e.registry.Templates {
		task := models.Task{
			ID:             uuid.New().String(),
			EventID:        event.ID,
			TemplateID:     tmpl.ID,
			Category:       tmpl.Category,
			Name:           tmpl.Name,
			Description:    tmpl.Description,
			CompletionKind: tmpl.CompletionKind,
			Status:         models.TaskStatusPending,
			CreatedAt:      now,
		}
		if tmpl.DayOffset != nil {
			offset := *tmpl.DayOffset
			task.DayOffset = &offset
			deadline := dates.Deadline(event.Date, offset, e.loc)
			task.Deadline = &deadline
		}
		tasks = append(tasks, task)
		metrics.TasksGenerated.WithLabelValues(tmpl.ID).Inc()
	}

	if err := e.store.CreateTasks(ctx, tasks); err != nil {
		return nil, err
	}

	e.log.Info("generated tasks for event", map[string]interface{}{
		"eventId": event.ID,
		"count":   len(tasks),
	})
	return tasks, nil
}

// OrderEnrichment is caller-supplied detail attached to the aggregate
// order an order-producing completion creates.
type OrderEnrichment struct {
	SourceOrderIDs []string       `json:"sourceOrderIds,omitempty"`
	Contents       map[string]int `json:"contents,omitempty"`
}

// CompletionResult reports what a completion created.
type CompletionResult struct {
	Task           *models.Task `json:"task"`
	OrderID        string       `json:"orderId,omitempty"`
	FollowUpTaskID string       `json:"followUpTaskId,omitempty"`
}

// CompleteTask moves a pending task to completed and spawns its dependent
// records. The store exposes no transactions, so the sequence is made
// retry-safe instead of atomic: before creating the order or follow-up it
// looks for one this task already created, and a failure after the first
// write returns a retryable error the caller replays.
func (e *Engine) CompleteTask(ctx context.Context, taskID string, completionData map[string]interface{}, actor string, enrichment *OrderEnrichment) (*CompletionResult, error) {
	task, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status == models.TaskStatusCompleted {
		return e.resumeCascade(ctx, task)
	}

	tmpl := e.registry.ByID(task.TemplateID)
	if tmpl == nil {
		return nil, errors.NewInvalidCompletionError(fmt.Sprintf("unknown task template: %s", task.TemplateID))
	}
	if err := validateCompletion(task.CompletionKind, completionData); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	result := &CompletionResult{}

	if tmpl.CreatesOrder {
		order, err := e.findOrCreateOrder(ctx, task, completionData, enrichment, now)
		if err != nil {
			return nil, err
		}
		task.OrderID = order.ID
		result.OrderID = order.ID
	}

	serialized, err := json.Marshal(completionData)
	if err != nil {
		return nil, errors.NewInvalidCompletionError(err.Error())
	}
	task.Status = models.TaskStatusCompleted
	task.CompletedAt = &now
	task.CompletedBy = actor
	task.CompletionData = string(serialized)
	if err := e.store.UpdateTask(ctx, task); err != nil {
		return nil, errors.NewCascadeIncompleteError(taskID, "update_task", err)
	}

	if tmpl.CreatesFollowUp && task.OrderID != "" {
		followUp, err := e.findOrCreateFollowUp(ctx, task, now)
		if err != nil {
			return nil, errors.NewCascadeIncompleteError(taskID, "create_follow_up", err)
		}
		result.FollowUpTaskID = followUp.ID
	}

	result.Task = task
	metrics.CascadeCompletions.WithLabelValues(task.TemplateID, "completed").Inc()
	e.log.Info("task completed", map[string]interface{}{
		"taskId":  task.ID,
		"eventId": task.EventID,
		"actor":   actor,
	})
	return result, nil
}

// resumeCascade picks up a completion whose task write landed but whose
// follow-up creation failed. The completed task is the durable record that
// the sequence started, so a retry finishes the missing step instead of
// being turned away. A completed task with every dependent record in place
// is a genuine repeat and is still rejected.
func (e *Engine) resumeCascade(ctx context.Context, task *models.Task) (*CompletionResult, error) {
	tmpl := e.registry.ByID(task.TemplateID)
	if tmpl == nil || !tmpl.CreatesFollowUp || task.OrderID == "" {
		return nil, errors.NewTaskAlreadyCompletedError(task.ID)
	}

	existing, err := e.store.FindFollowUp(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.NewTaskAlreadyCompletedError(task.ID)
	}

	followUp, err := e.findOrCreateFollowUp(ctx, task, e.clock.Now())
	if err != nil {
		return nil, errors.NewCascadeIncompleteError(task.ID, "create_follow_up", err)
	}
	e.log.Info("finished interrupted completion", map[string]interface{}{
		"taskId":         task.ID,
		"followUpTaskId": followUp.ID,
	})
	return &CompletionResult{Task: task, OrderID: task.OrderID, FollowUpTaskID: followUp.ID}, nil
}

func (e *Engine) findOrCreateOrder(ctx context.Context, task *models.Task, completionData map[string]interface{}, enrichment *OrderEnrichment, now time.Time) (*models.AggregateOrder, error) {
	existing, err := e.store.FindOrderByTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		e.log.Info("reusing order from earlier completion attempt", map[string]interface{}{
			"taskId":  task.ID,
			"orderId": existing.ID,
		})
		return existing, nil
	}

	order := &models.AggregateOrder{
		ID:           uuid.New().String(),
		EventID:      task.EventID,
		SourceTaskID: task.ID,
		Amount:       amountFrom(completionData),
		OrderDate:    dates.Midnight(now, e.loc),
		CreatedAt:    now,
	}
	if enrichment != nil {
		order.SourceOrderIDs = enrichment.SourceOrderIDs
		order.Contents = enrichment.Contents
	}
	if err := e.store.CreateOrder(ctx, order); err != nil {
		return nil, errors.NewCascadeIncompleteError(task.ID, "create_order", err)
	}
	return order, nil
}

func (e *Engine) findOrCreateFollowUp(ctx context.Context, task *models.Task, now time.Time) (*models.Task, error) {
	existing, err := e.store.FindFollowUp(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	event, err := e.store.GetEvent(ctx, task.EventID)
	if err != nil {
		return nil, err
	}

	offset := 0
	deadline := dates.Deadline(event.Date, offset, e.loc)
	followUp := models.Task{
		ID:             uuid.New().String(),
		EventID:        task.EventID,
		TemplateID:     task.TemplateID,
		Category:       FollowUpCategory,
		Name:           "Confirm delivery arrived: " + event.SchoolName,
		CompletionKind: models.CompletionKindCheckbox,
		DayOffset:      &offset,
		Deadline:       &deadline,
		Status:         models.TaskStatusPending,
		OrderID:        task.OrderID,
		ParentTaskID:   task.ID,
		CreatedAt:      now,
	}
	if err := e.store.CreateTasks(ctx, []models.Task{followUp}); err != nil {
		return nil, err
	}
	return &followUp, nil
}

// RecalcResult reports which deadlines a reschedule moved.
type RecalcResult struct {
	UpdatedCount int      `json:"updatedCount"`
	TaskIDs      []string `json:"taskIds"`
}

// RecalculateDeadlinesForEvent rewrites deadline = newDate + offset for
// every pending offset-bearing task of the event. Completed tasks and
// manual tasks keep their deadlines: rescheduling must never move a
// deadline already acted on.
func (e *Engine) RecalculateDeadlinesForEvent(ctx context.Context, eventID string, newDate time.Time) (*RecalcResult, error) {
	tasks, err := e.store.ListTasksByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	deadlines := make(map[string]time.Time)
	for _, t := range tasks {
		if t.Status != models.TaskStatusPending || t.Manual() {
			continue
		}
		deadlines[t.ID] = dates.Deadline(newDate, *t.DayOffset, e.loc)
	}
	if len(deadlines) == 0 {
		return &RecalcResult{TaskIDs: []string{}}, nil
	}

	if err := e.store.UpdateDeadlines(ctx, deadlines); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(deadlines))
	for id := range deadlines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	metrics.DeadlineRecalculations.Inc()
	e.log.Info("recalculated deadlines", map[string]interface{}{
		"eventId": eventID,
		"count":   len(ids),
	})
	return &RecalcResult{UpdatedCount: len(ids), TaskIDs: ids}, nil
}

func validateCompletion(kind string, data map[string]interface{}) error {
	switch kind {
	case models.CompletionKindCheckbox:
		checked, ok := data["checked"].(bool)
		if !ok || !checked {
			return errors.NewInvalidCompletionError("checkbox completion requires checked=true")
		}
	case models.CompletionKindAmount:
		amount, ok := numeric(data["amount"])
		if !ok || amount < 0 {
			return errors.NewInvalidCompletionError("amount completion requires a non-negative amount")
		}
	case models.CompletionKindText:
		text, ok := data["text"].(string)
		if !ok || text == "" {
			return errors.NewInvalidCompletionError("text completion requires non-empty text")
		}
	default:
		return errors.NewInvalidCompletionError(fmt.Sprintf("unknown completion kind: %s", kind))
	}
	return nil
}

func amountFrom(data map[string]interface{}) float64 {
	if v, ok := numeric(data["amount"]); ok {
		return v
	}
	return 0
}

func numeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
