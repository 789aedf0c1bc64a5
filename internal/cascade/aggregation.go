// internal/cascade/aggregation.go
package cascade

import (
	"context"
	"sort"
	"time"

	"school-event-automation/internal/clock"
	"school-event-automation/internal/common/logger"
	"school-event-automation/internal/dates"
	"school-event-automation/internal/models"
	"school-event-automation/internal/store"
)

// AggregationConfig shapes the purchase-grouping read path.
type AggregationConfig struct {
	// Category selects which purchase records feed the view.
	Category string
	// OrderLeadDays is how many days before the event the internal
	// order-day falls.
	OrderLeadDays int
	// WindowBefore/WindowAfter bound visibility: an event is in-window
	// from WindowBefore days ahead of its order-day until WindowAfter
	// days past the event date.
	WindowBefore int
	WindowAfter  int
}

// AggregationStore is the read-only slice the aggregator needs.
type AggregationStore interface {
	store.EventStore
	store.ClassStore
	store.PurchaseStore
}

// EventAggregation is one event's purchase group in the supplier view.
type EventAggregation struct {
	Event     models.Event           `json:"event"`
	OrderDay  time.Time              `json:"orderDay"`
	Urgency   int                    `json:"urgency"` // whole days until order-day, negative = overdue
	Purchases []models.PurchaseOrder `json:"purchases"`
	Total     float64                `json:"total"`
	ItemCount int                    `json:"itemCount"`
}

// Aggregator builds the purchase-order grouping views operators work
// supplier orders from.
type Aggregator struct {
	store AggregationStore
	cfg   AggregationConfig
	clock clock.Clock
	loc   *time.Location
	log   logger.Logger
}

func NewAggregator(s AggregationStore, cfg AggregationConfig, clk clock.Clock, loc *time.Location, log logger.Logger) *Aggregator {
	return &Aggregator{store: s, cfg: cfg, clock: clk, loc: loc, log: log}
}

// PendingOrders groups in-window purchases by owning event and sorts the
// groups overdue-first, then by ascending urgency. Purchases that resolve
// to no event are skipped, never failed: the view is a best-effort
// operational report over records other systems own.
func (a *Aggregator) PendingOrders(ctx context.Context) ([]EventAggregation, error) {
	events, err := a.store.ListEvents(ctx)
	if err != nil {
		return nil, err
	}

	today := a.clock.Now()
	inWindow := make(map[string]*EventAggregation)
	for _, e := range events {
		if !e.Live() {
			continue
		}
		orderDay := dates.Deadline(e.Date, -a.cfg.OrderLeadDays, a.loc)
		untilOrder := dates.DaysBetween(today, orderDay, a.loc)
		sinceEvent := dates.DaysBetween(e.Date, today, a.loc)
		if untilOrder > a.cfg.WindowBefore || sinceEvent > a.cfg.WindowAfter {
			continue
		}
		inWindow[e.ID] = &EventAggregation{
			Event:    e,
			OrderDay: orderDay,
			Urgency:  untilOrder,
		}
	}
	if len(inWindow) == 0 {
		return []EventAggregation{}, nil
	}

	purchases, err := a.store.ListPurchasesByCategory(ctx, a.cfg.Category)
	if err != nil {
		return nil, err
	}

	for _, p := range purchases {
		eventID, ok := a.resolveOwningEvent(ctx, p)
		if !ok {
			a.log.Debug("skipping unresolvable purchase", map[string]interface{}{
				"purchaseId": p.ID,
			})
			continue
		}
		agg, ok := inWindow[eventID]
		if !ok {
			continue
		}
		agg.Purchases = append(agg.Purchases, p)
		agg.Total += p.Total
		for _, line := range p.Lines {
			agg.ItemCount += line.Quantity
		}
	}

	out := make([]EventAggregation, 0, len(inWindow))
	for _, agg := range inWindow {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Urgency != out[j].Urgency {
			return out[i].Urgency < out[j].Urgency
		}
		return out[i].Event.ID < out[j].Event.ID
	})
	return out, nil
}

// resolveOwningEvent maps a purchase to its event, directly or through
// its class link.
func (a *Aggregator) resolveOwningEvent(ctx context.Context, p models.PurchaseOrder) (string, bool) {
	if p.EventID != "" {
		return p.EventID, true
	}
	if p.ClassID == "" {
		return "", false
	}
	class, err := a.store.GetClass(ctx, p.ClassID)
	if err != nil || class.EventID == "" {
		return "", false
	}
	return class.EventID, true
}
