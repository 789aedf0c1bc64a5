// internal/store/inmem/inmem.go

// Package inmem is an in-memory record store used by tests and dry runs.
package inmem

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"school-event-automation/internal/common/errors"
	"school-event-automation/internal/models"
)

// Store holds every entity map behind one mutex. Good enough for tests;
// never used in production.
type Store struct {
	mu sync.Mutex

	events        map[string]models.Event
	tasks         map[string]models.Task
	orders        map[string]models.AggregateOrder
	templates     map[string]models.EmailTemplate
	deliveries    []models.DeliveryLogEntry
	registrations map[string]models.Registration
	contacts      map[string]models.Contact
	classes       map[string]models.SchoolClass
	purchases     map[string]models.PurchaseOrder
}

func New() *Store {
	return &Store{
		events:        make(map[string]models.Event),
		tasks:         make(map[string]models.Task),
		orders:        make(map[string]models.AggregateOrder),
		templates:     make(map[string]models.EmailTemplate),
		registrations: make(map[string]models.Registration),
		contacts:      make(map[string]models.Contact),
		classes:       make(map[string]models.SchoolClass),
		purchases:     make(map[string]models.PurchaseOrder),
	}
}

// --- seeding helpers ---

func (s *Store) PutEvent(e models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
}

func (s *Store) PutTemplate(t models.EmailTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	s.templates[t.ID] = t
}

func (s *Store) PutRegistration(r models.Registration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	s.registrations[r.ID] = r
}

func (s *Store) PutContact(c models.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[c.ID] = c
}

func (s *Store) PutClass(c models.SchoolClass) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classes[c.ID] = c
}

func (s *Store) PutPurchase(p models.PurchaseOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	s.purchases[p.ID] = p
}

func (s *Store) PutTask(t models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
}

// --- EventStore ---

func (s *Store) GetEvent(_ context.Context, id string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, errors.NewEventNotFoundError(id)
	}
	return &e, nil
}

func (s *Store) ListEvents(_ context.Context) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- TaskStore ---

func (s *Store) CreateTasks(_ context.Context, tasks []models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	return nil
}

func (s *Store) GetTask(_ context.Context, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, errors.NewTaskNotFoundError(id)
	}
	return &t, nil
}

func (s *Store) ListTasksByEvent(_ context.Context, eventID string) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Task
	for _, t := range s.tasks {
		if t.EventID == eventID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) FindFollowUp(_ context.Context, parentTaskID string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ParentTaskID == parentTaskID {
			task := t
			return &task, nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateTask(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		return errors.NewTaskNotFoundError(task.ID)
	}
	s.tasks[task.ID] = *task
	return nil
}

func (s *Store) UpdateDeadlines(_ context.Context, deadlines map[string]time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, deadline := range deadlines {
		t, ok := s.tasks[id]
		if !ok {
			return errors.NewTaskNotFoundError(id)
		}
		d := deadline
		t.Deadline = &d
		s.tasks[id] = t
	}
	return nil
}

// --- OrderStore ---

func (s *Store) CreateOrder(_ context.Context, order *models.AggregateOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = *order
	return nil
}

func (s *Store) GetOrder(_ context.Context, id string) (*models.AggregateOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, errors.NewStoreQueryFailedError("aggregate_order", errNotFound(id))
	}
	return &o, nil
}

func (s *Store) FindOrderByTask(_ context.Context, taskID string) (*models.AggregateOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.SourceTaskID == taskID {
			order := o
			return &order, nil
		}
	}
	return nil, nil
}

func (s *Store) SetOrderArrival(_ context.Context, orderID string, arrivedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return errors.NewStoreWriteFailedError("aggregate_order", errNotFound(orderID))
	}
	o.ArrivedAt = &arrivedAt
	s.orders[orderID] = o
	return nil
}

// --- TemplateStore ---

func (s *Store) ListActiveTemplates(_ context.Context) ([]models.EmailTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.EmailTemplate
	for _, t := range s.templates {
		if t.Active {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (s *Store) GetTemplate(_ context.Context, id string) (*models.EmailTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, errors.NewTemplateNotFoundError(id)
	}
	return &t, nil
}

// --- DeliveryLogStore ---

func (s *Store) AppendDelivery(_ context.Context, entry models.DeliveryLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	s.deliveries = append(s.deliveries, entry)
	return nil
}

func (s *Store) HasSent(_ context.Context, templateSlug, eventID, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(email)
	for _, d := range s.deliveries {
		if d.Outcome == models.OutcomeSent &&
			d.TemplateSlug == templateSlug &&
			d.EventID == eventID &&
			strings.ToLower(d.RecipientEmail) == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListDeliveriesByEvent(_ context.Context, eventID string) ([]models.DeliveryLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.DeliveryLogEntry
	for _, d := range s.deliveries {
		if d.EventID == eventID {
			out = append(out, d)
		}
	}
	return out, nil
}

// Deliveries returns every log entry, for test assertions.
func (s *Store) Deliveries() []models.DeliveryLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.DeliveryLogEntry, len(s.deliveries))
	copy(out, s.deliveries)
	return out
}

// --- RegistrationStore ---

func (s *Store) ListRegistrationsByEvent(_ context.Context, eventID string) ([]models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Registration
	for _, r := range s.registrations {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- ContactStore ---

func (s *Store) GetContacts(_ context.Context, ids []string) ([]models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Contact
	for _, id := range ids {
		if c, ok := s.contacts[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// --- ClassStore ---

func (s *Store) GetClass(_ context.Context, id string) (*models.SchoolClass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.classes[id]
	if !ok {
		return nil, errors.NewStoreQueryFailedError("school_class", errNotFound(id))
	}
	return &c, nil
}

// --- PurchaseStore ---

func (s *Store) ListPurchasesByCategory(_ context.Context, category string) ([]models.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PurchaseOrder
	for _, p := range s.purchases {
		if p.Category == category {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListPaidPurchasesByEvent(_ context.Context, eventID string) ([]models.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PurchaseOrder
	for _, p := range s.purchases {
		if p.Status != models.PurchaseStatusPaid {
			continue
		}
		owner := p.EventID
		if owner == "" && p.ClassID != "" {
			if c, ok := s.classes[p.ClassID]; ok {
				owner = c.EventID
			}
		}
		if owner == eventID {
			out = append(out, p)
		}
	}
	return out, nil
}

type errNotFound string

func (e errNotFound) Error() string { return "not found: " + string(e) }
