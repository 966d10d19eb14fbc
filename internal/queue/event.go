// Package queue defines message payloads exchanged over the message broker.
package queue

import "github.com/iliyamo/field-reservation/internal/interval"

// AvailabilityChangedEvent is published whenever a mutation changes a
// field's availability: a reservation is created or cancelled, a payment
// resolves, or a lifecycle task transitions rows.  It carries the
// recomputed free slots so downstream consumers can log, notify or feed
// analytics without querying the primary database.
type AvailabilityChangedEvent struct {
	FieldID     uint64              `json:"field_id"`
	BranchID    uint64              `json:"branch_id"`
	Date        string              `json:"date"`
	Reason      string              `json:"reason"`
	FreeSlots   []interval.Interval `json:"free_slots"`
	PublishedAt string              `json:"published_at"`
}

// Mutation reasons carried in AvailabilityChangedEvent.Reason.
const (
	ReasonCreated   = "reservation.created"
	ReasonCancelled = "reservation.cancelled"
	ReasonPayment   = "payment.confirmed"
	ReasonReleased  = "hold.released"
	ReasonActivated = "reservation.activated"
	ReasonCompleted = "reservation.completed"
)
