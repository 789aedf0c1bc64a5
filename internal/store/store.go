// internal/store/store.go

// Package store defines the record-store adapter the engines depend on.
// The backing store is external, shared and non-transactional; every
// multi-step write sequence must stay safe under retries.
package store

import (
	"context"
	"time"

	"school-event-automation/internal/models"
)

// EventStore reads school-visit events. Events are mutated by the
// surrounding product, never by the engines.
type EventStore interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
}

// TaskStore persists checklist tasks.
type TaskStore interface {
	CreateTasks(ctx context.Context, tasks []models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasksByEvent(ctx context.Context, eventID string) ([]models.Task, error)
	// FindFollowUp returns the task spawned from parentTaskID, or nil.
	FindFollowUp(ctx context.Context, parentTaskID string) (*models.Task, error)
	UpdateTask(ctx context.Context, task *models.Task) error
	// UpdateDeadlines rewrites deadlines for the given task ids in one batch.
	UpdateDeadlines(ctx context.Context, deadlines map[string]time.Time) error
}

// OrderStore persists aggregate supplier orders.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.AggregateOrder) error
	GetOrder(ctx context.Context, id string) (*models.AggregateOrder, error)
	// FindOrderByTask returns the order created by a completing task, or nil.
	// This is the idempotency check for retried completions.
	FindOrderByTask(ctx context.Context, taskID string) (*models.AggregateOrder, error)
	SetOrderArrival(ctx context.Context, orderID string, arrivedAt time.Time) error
}

// TemplateStore reads externally authored email templates.
type TemplateStore interface {
	ListActiveTemplates(ctx context.Context) ([]models.EmailTemplate, error)
	GetTemplate(ctx context.Context, id string) (*models.EmailTemplate, error)
}

// DeliveryLogStore appends notification outcomes. The log is append-only
// and is the dedup oracle for the trigger engine.
type DeliveryLogStore interface {
	AppendDelivery(ctx context.Context, entry models.DeliveryLogEntry) error
	// HasSent reports whether a "sent" entry exists for the key.
	HasSent(ctx context.Context, templateSlug, eventID, email string) (bool, error)
	ListDeliveriesByEvent(ctx context.Context, eventID string) ([]models.DeliveryLogEntry, error)
}

// RegistrationStore reads parent registrations.
type RegistrationStore interface {
	ListRegistrationsByEvent(ctx context.Context, eventID string) ([]models.Registration, error)
}

// ContactStore reads teacher/staff contact records by id.
type ContactStore interface {
	GetContacts(ctx context.Context, ids []string) ([]models.Contact, error)
}

// ClassStore resolves class -> event links.
type ClassStore interface {
	GetClass(ctx context.Context, id string) (*models.SchoolClass, error)
}

// PurchaseStore reads the external order source. Read-only.
type PurchaseStore interface {
	ListPurchasesByCategory(ctx context.Context, category string) ([]models.PurchaseOrder, error)
	ListPaidPurchasesByEvent(ctx context.Context, eventID string) ([]models.PurchaseOrder, error)
}

// Store aggregates every adapter interface.
type Store interface {
	EventStore
	TaskStore
	OrderStore
	TemplateStore
	DeliveryLogStore
	RegistrationStore
	ContactStore
	ClassStore
	PurchaseStore
}
