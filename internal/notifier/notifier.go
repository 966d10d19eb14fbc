// Package notifier recomputes a field's availability after a mutation
// and pushes it to subscribers.  Delivery is fire-and-forget: publish
// failures are logged, never retried synchronously, and never block or
// fail the mutation path that triggered them.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/field-reservation/internal/availability"
	"github.com/iliyamo/field-reservation/internal/queue"
)

const dateFmt = "2006-01-02"

// Notifier broadcasts recomputed availability over two channels: Redis
// pub/sub for connected real-time subscribers (a per-field topic plus a
// date-scoped topic), and the message broker for durable downstream
// consumers.  A nil Redis client disables the pub/sub leg.
type Notifier struct {
	guard *availability.Guard
	rdb   *redis.Client
}

// New constructs a Notifier.  The guard must be non-nil.
func New(guard *availability.Guard, rdb *redis.Client) *Notifier {
	if guard == nil {
		panic("nil guard passed to notifier.New")
	}
	return &Notifier{guard: guard, rdb: rdb}
}

// Publish recomputes the field's free slots for the date and broadcasts
// them with the given mutation reason.  All failures are absorbed and
// logged; the next mutation or scheduler pass publishes fresh state
// anyway.
func (n *Notifier) Publish(ctx context.Context, fieldID, branchID uint64, date time.Time, reason string) {
	slots, err := n.guard.AvailableSlots(ctx, fieldID, date)
	if err != nil {
		log.Printf("notifier: recompute availability for field %d failed: %v", fieldID, err)
		return
	}
	event := queue.AvailabilityChangedEvent{
		FieldID:     fieldID,
		BranchID:    branchID,
		Date:        date.UTC().Format(dateFmt),
		Reason:      reason,
		FreeSlots:   slots,
		PublishedAt: time.Now().UTC().Format(time.RFC3339),
	}

	if n.rdb != nil {
		payload, err := json.Marshal(event)
		if err != nil {
			log.Printf("notifier: marshal event failed: %v", err)
		} else {
			fieldTopic := fmt.Sprintf("availability:field:%d", fieldID)
			dateTopic := fmt.Sprintf("availability:date:%s", event.Date)
			if err := n.rdb.Publish(ctx, fieldTopic, payload).Err(); err != nil {
				log.Printf("notifier: publish to %s failed: %v", fieldTopic, err)
			}
			if err := n.rdb.Publish(ctx, dateTopic, payload).Err(); err != nil {
				log.Printf("notifier: publish to %s failed: %v", dateTopic, err)
			}
		}
	}

	// Errors are already logged inside the publisher.
	_ = queue.PublishAvailabilityChanged(ctx, event)
}
