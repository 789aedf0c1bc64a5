// internal/recipients/resolver.go

// Package recipients resolves a template's audience set to concrete
// mailboxes for one event.
package recipients

import (
	"context"
	"strings"

	"school-event-automation/internal/common/logger"
	"school-event-automation/internal/models"
	"school-event-automation/internal/store"
)

// Store is the read-only slice the resolver walks.
type Store interface {
	store.ContactStore
	store.RegistrationStore
	store.PurchaseStore
}

// Resolver walks link chains from an event to mailboxes, one strategy
// per audience type.
type Resolver struct {
	store Store
	log   logger.Logger
}

func NewResolver(s Store, log logger.Logger) *Resolver {
	return &Resolver{store: s, log: log}
}

// Resolve returns the union of the audiences' recipients, de-duplicated
// by lowercased email. Overlapping audiences (parent and non-buyer on
// one template) therefore yield each mailbox once; the first audience in
// template order wins the recipient's type label.
func (r *Resolver) Resolve(ctx context.Context, event *models.Event, audiences []string) ([]models.Recipient, error) {
	var out []models.Recipient
	seen := make(map[string]bool)

	for _, audience := range audiences {
		var (
			batch []models.Recipient
			err   error
		)
		switch audience {
		case models.AudienceTeacher:
			batch, err = r.resolveTeachers(ctx, event)
		case models.AudienceParent:
			batch, err = r.resolveParents(ctx, event)
		case models.AudienceNonBuyer:
			batch, err = r.resolveNonBuyers(ctx, event)
		default:
			r.log.Warn("unknown audience, skipping", map[string]interface{}{
				"audience": audience,
				"eventId":  event.ID,
			})
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, rec := range batch {
			key := strings.ToLower(rec.Email)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, rec)
		}
	}
	return out, nil
}

// resolveTeachers tries each link chain in order and stops at the first
// that yields a mailbox: explicit teacher links, then the booking-time
// contact, then assigned staff.
func (r *Resolver) resolveTeachers(ctx context.Context, event *models.Event) ([]models.Recipient, error) {
	if len(event.TeacherIDs) > 0 {
		recs, err := r.contactsToRecipients(ctx, event.TeacherIDs)
		if err != nil {
			return nil, err
		}
		if len(recs) > 0 {
			return recs, nil
		}
	}

	if event.ContactEmail != "" {
		return []models.Recipient{{
			Name:  event.ContactName,
			Email: event.ContactEmail,
			Type:  models.AudienceTeacher,
		}}, nil
	}

	if len(event.StaffIDs) > 0 {
		return r.contactsToRecipients(ctx, event.StaffIDs)
	}
	return nil, nil
}

func (r *Resolver) contactsToRecipients(ctx context.Context, ids []string) ([]models.Recipient, error) {
	contacts, err := r.store.GetContacts(ctx, ids)
	if err != nil {
		return nil, err
	}
	var recs []models.Recipient
	for _, c := range contacts {
		if c.Email == "" {
			continue
		}
		recs = append(recs, models.Recipient{Name: c.Name, Email: c.Email, Type: models.AudienceTeacher})
	}
	return recs, nil
}

// resolveParents returns registered parents, excluding opt-outs and
// placeholder registrations.
func (r *Resolver) resolveParents(ctx context.Context, event *models.Event) ([]models.Recipient, error) {
	regs, err := r.store.ListRegistrationsByEvent(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	var recs []models.Recipient
	for _, reg := range regs {
		if reg.OptOut || reg.Placeholder || reg.ParentEmail == "" {
			continue
		}
		recs = append(recs, models.Recipient{Name: reg.ParentName, Email: reg.ParentEmail, Type: models.AudienceParent})
	}
	return recs, nil
}

// resolveNonBuyers is the parent audience minus parents holding at least
// one paid purchase for the event. Buyer matching is lowercased-email
// equality: a parent who registered and bought under different addresses
// counts as a non-buyer, which over-notifies rather than under-notifies.
func (r *Resolver) resolveNonBuyers(ctx context.Context, event *models.Event) ([]models.Recipient, error) {
	parents, err := r.resolveParents(ctx, event)
	if err != nil {
		return nil, err
	}
	if len(parents) == 0 {
		return nil, nil
	}

	paid, err := r.store.ListPaidPurchasesByEvent(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	buyers := make(map[string]bool, len(paid))
	for _, p := range paid {
		if p.ParentEmail != "" {
			buyers[strings.ToLower(p.ParentEmail)] = true
		}
	}

	var recs []models.Recipient
	for _, parent := range parents {
		if buyers[strings.ToLower(parent.Email)] {
			continue
		}
		parent.Type = models.AudienceNonBuyer
		recs = append(recs, parent)
	}
	return recs, nil
}
