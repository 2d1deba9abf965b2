package session

import (
	"github.com/emrgen/boxsync/internal/transport"
)

// State is the position of a session in its transfer cycle.
type State int

const (
	Idle State = iota
	Polling
	Fetching
	Committing
	Acknowledging
	ReportingFailure
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Fetching:
		return "fetching"
	case Committing:
		return "committing"
	case Acknowledging:
		return "acknowledging"
	case ReportingFailure:
		return "reporting_failure"
	default:
		return "unknown"
	}
}

type eventKind int

const (
	evTick eventKind = iota
	evPolled
	evFetched
	evCommitted
	evReported
	evWatchdog
)

func (k eventKind) String() string {
	switch k {
	case evTick:
		return "tick"
	case evPolled:
		return "polled"
	case evFetched:
		return "fetched"
	case evCommitted:
		return "committed"
	case evReported:
		return "reported"
	case evWatchdog:
		return "watchdog"
	default:
		return "unknown"
	}
}

// event is a message delivered to the run loop. Results of peer and storage
// calls carry the sequence number of the call that produced them.
type event struct {
	kind eventKind
	seq  uint64
	unit *transport.WorkUnit
	data []byte
	err  error
}

type handler func(s *Session, e event)

// transitions lists the events each state accepts. An event with no entry
// for the current state is discarded.
var transitions = map[State]map[eventKind]handler{
	Idle: {
		evTick: (*Session).onTick,
	},
	Polling: {
		evPolled:   (*Session).onPolled,
		evWatchdog: (*Session).onWatchdog,
	},
	Fetching: {
		evFetched:  (*Session).onFetched,
		evWatchdog: (*Session).onWatchdog,
	},
	Committing: {
		evCommitted: (*Session).onCommitted,
		evWatchdog:  (*Session).onWatchdog,
	},
	ReportingFailure: {
		evReported: (*Session).onReported,
		evWatchdog: (*Session).onWatchdog,
	},
}
