package jobs

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	cron "github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

type Job interface {
	Run()
}

type CronJob interface {
	Name() string
	Schedule() string
	Job
}

// TaskExecutor runs cron jobs. A job whose previous run has not finished
// when it is due again is skipped for that round.
type TaskExecutor struct {
	cron            *cron.Cron
	cronJobs        []CronJob
	runningCronJobs mapset.Set[CronJob]
	muCronJobs      sync.Mutex
}

func NewTaskExecutor(cronJobs []CronJob) *TaskExecutor {
	return &TaskExecutor{
		cron:            cron.New(),
		cronJobs:        cronJobs,
		runningCronJobs: mapset.NewThreadUnsafeSet[CronJob](),
	}
}

// Run schedules the jobs and starts the cron in its own goroutine.
func (t *TaskExecutor) Run() error {
	for _, job := range t.cronJobs {
		job := job
		err := t.cron.AddFunc(job.Schedule(), func() {
			t.runOnce(job)
		})
		if err != nil {
			logrus.Errorf("failed to add task %s to cron: %v", job.Name(), err)
			return err
		}
		logrus.Debugf("scheduled task %s at %s", job.Name(), job.Schedule())
	}

	t.cron.Start()
	return nil
}

func (t *TaskExecutor) runOnce(job CronJob) {
	t.muCronJobs.Lock()
	if t.runningCronJobs.Contains(job) {
		t.muCronJobs.Unlock()
		logrus.Warnf("task %s is already running", job.Name())
		return
	}
	t.runningCronJobs.Add(job)
	t.muCronJobs.Unlock()

	defer func() {
		t.muCronJobs.Lock()
		defer t.muCronJobs.Unlock()
		t.runningCronJobs.Remove(job)
	}()

	job.Run()
}

func (t *TaskExecutor) Stop() {
	logrus.Infof("stopping all tasks")
	t.cron.Stop()
}
