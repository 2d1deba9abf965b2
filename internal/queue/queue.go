package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DatasetEventQueue is the default topic / list name for published events.
var DatasetEventQueue = "boxsync.dataset.events"

type EventKind string

const (
	ImageAdded          EventKind = "image_added"
	TransactionFinished EventKind = "transaction_finished"
)

// Event is published after a change to the index has been committed.
type Event struct {
	ID            string    `json:"id"`
	Kind          EventKind `json:"kind"`
	PatientID     uint      `json:"patientId,omitempty"`
	StudyID       uint      `json:"studyId,omitempty"`
	SeriesID      uint      `json:"seriesId,omitempty"`
	ImageID       uint      `json:"imageId,omitempty"`
	SourceBoxID   uint      `json:"sourceBoxId,omitempty"`
	TransactionID int64     `json:"transactionId,omitempty"`
	Created       bool      `json:"created,omitempty"`
	At            time.Time `json:"at"`
}

func NewEvent(kind EventKind) Event {
	return Event{
		ID:   uuid.NewString(),
		Kind: kind,
		At:   time.Now(),
	}
}

// Notifier delivers events to consumers outside the sync core. Delivery is
// at least once; events from different producers are not ordered. Consumers
// deduplicate on Event.ID.
type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

// Fanout publishes every event to all of its notifiers.
type Fanout []Notifier

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range f {
		if err := n.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error {
	return nil
}
