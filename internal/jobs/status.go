package jobs

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// StatusSource reports the last known status of every box.
type StatusSource interface {
	Snapshot() map[uint]bool
}

// StatusLogTask periodically logs which boxes are offline.
type StatusLogTask struct {
	source StatusSource
	cron   string
}

func NewStatusLogTask(cron string, source StatusSource) *StatusLogTask {
	return &StatusLogTask{
		source: source,
		cron:   cron,
	}
}

func (l *StatusLogTask) Name() string {
	return "status_log"
}

func (l *StatusLogTask) Schedule() string {
	return l.cron
}

func (l *StatusLogTask) Run() {
	var offline []uint
	snapshot := l.source.Snapshot()
	for id, online := range snapshot {
		if !online {
			offline = append(offline, id)
		}
	}
	sort.Slice(offline, func(i, j int) bool { return offline[i] < offline[j] })

	if len(offline) == 0 {
		logrus.Debugf("all %d boxes online", len(snapshot))
		return
	}
	logrus.Warnf("%d of %d boxes offline: %v", len(offline), len(snapshot), offline)
}
