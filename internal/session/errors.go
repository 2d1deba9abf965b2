package session

import (
	"context"
	"errors"

	"github.com/emrgen/boxsync/internal/dicom"
	"github.com/emrgen/boxsync/internal/service"
	"github.com/emrgen/boxsync/internal/transport"
)

// ErrWatchdogTimeout is logged when a cycle made no progress in time.
var ErrWatchdogTimeout = errors.New("session watchdog timeout")

// Class groups errors by how a session reacts to them.
type Class string

const (
	ClassTransport   Class = "transport"
	ClassParse       Class = "parse"
	ClassMalformed   Class = "malformed"
	ClassUnsupported Class = "unsupported"
	ClassReversal    Class = "reversal"
	ClassStorage     Class = "storage"
	ClassWatchdog    Class = "watchdog"
	ClassCanceled    Class = "canceled"
)

// Classify returns the class of err. Unknown errors count as storage
// failures, since they can only come from the local commit.
func Classify(err error) Class {
	switch {
	case errors.Is(err, ErrWatchdogTimeout):
		return ClassWatchdog
	case errors.Is(err, context.Canceled):
		return ClassCanceled
	case errors.Is(err, transport.ErrRequest):
		return ClassTransport
	case errors.Is(err, dicom.ErrParse):
		return ClassParse
	case errors.Is(err, dicom.ErrMalformedDataset):
		return ClassMalformed
	case errors.Is(err, dicom.ErrUnsupportedContext):
		return ClassUnsupported
	case errors.Is(err, service.ErrReversal):
		return ClassReversal
	default:
		return ClassStorage
	}
}

// Retryable reports whether the peer should keep offering a unit that
// failed with err instead of being told about the failure.
func (c Class) Retryable() bool {
	return c == ClassTransport || c == ClassWatchdog || c == ClassCanceled
}
