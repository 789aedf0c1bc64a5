// internal/models/delivery.go
package models

import "time"

// DeliveryLogEntry is one append-only record of a notification attempt.
// The log is the sole dedup oracle: at most one "sent" entry may exist per
// (template slug, event id, lowercased recipient email).
type DeliveryLogEntry struct {
	ID                string    `json:"id"`
	TemplateSlug      string    `json:"templateSlug"`
	EventID           string    `json:"eventId"`
	RecipientEmail    string    `json:"recipientEmail"`
	RecipientType     string    `json:"recipientType"`
	Outcome           string    `json:"outcome"`
	ErrorText         string    `json:"errorText,omitempty"`
	ProviderMessageID string    `json:"providerMessageId,omitempty"`
	SentAt            time.Time `json:"sentAt"`
}

// Delivery outcomes.
const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)
