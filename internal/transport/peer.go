package transport

import (
	"context"
	"errors"
)

// ErrRequest is returned for every failed exchange with a peer: the peer
// could not be reached or answered with a non-2xx status.
var ErrRequest = errors.New("peer request error")

// WorkUnit is one dataset transfer offered by a peer from its outbox.
type WorkUnit struct {
	ID              int64  `json:"id"`
	RemoteBoxID     uint   `json:"remoteBoxId"`
	TransactionID   int64  `json:"transactionId"`
	SequenceNumber  int64  `json:"sequenceNumber"`
	TotalImageCount int64  `json:"totalImageCount"`
	ImageID         int64  `json:"imageId"`
	Failed          bool   `json:"failed,omitempty"`
	FailureMessage  string `json:"failureMessage,omitempty"`
}

// Peer is the transport to one remote box.
type Peer interface {
	// PollForWork asks the peer for its next pending unit. It returns nil
	// and no error when the peer has nothing to send.
	PollForWork(ctx context.Context) (*WorkUnit, error)
	// FetchPayload downloads the compressed dataset bytes of unit.
	FetchPayload(ctx context.Context, unit *WorkUnit) ([]byte, error)
	// Acknowledge tells the peer unit was stored and can be dropped.
	Acknowledge(ctx context.Context, unit *WorkUnit) error
	// ReportFailure tells the peer unit can never be stored here.
	ReportFailure(ctx context.Context, unit *WorkUnit, message string) error
}
