package jobs

import (
	"fmt"
	"time"
)

// Ticker is anything that starts a cycle when ticked.
type Ticker interface {
	Tick()
}

// SessionTickTask drives one peer session from the cron.
type SessionTickTask struct {
	name    string
	session Ticker
	cron    string
}

func NewSessionTickTask(name string, interval time.Duration, session Ticker) *SessionTickTask {
	return &SessionTickTask{
		name:    name,
		session: session,
		cron:    fmt.Sprintf("@every %s", interval),
	}
}

func (s *SessionTickTask) Name() string {
	return "session_tick:" + s.name
}

func (s *SessionTickTask) Schedule() string {
	return s.cron
}

func (s *SessionTickTask) Run() {
	s.session.Tick()
}
