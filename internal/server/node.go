package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emrgen/boxsync/internal/cache"
	"github.com/emrgen/boxsync/internal/compress"
	"github.com/emrgen/boxsync/internal/config"
	"github.com/emrgen/boxsync/internal/dicom"
	"github.com/emrgen/boxsync/internal/job"
	"github.com/emrgen/boxsync/internal/jobs"
	"github.com/emrgen/boxsync/internal/liveness"
	"github.com/emrgen/boxsync/internal/model"
	"github.com/emrgen/boxsync/internal/queue"
	"github.com/emrgen/boxsync/internal/service"
	"github.com/emrgen/boxsync/internal/session"
	"github.com/emrgen/boxsync/internal/storage"
	"github.com/emrgen/boxsync/internal/store"
	"github.com/emrgen/boxsync/internal/transport"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const statusLogSchedule = "@every 1m"

// Node wires the sync core of one box: the index, the payload files, one
// session per remote box and the background jobs.
type Node struct {
	cfg *config.Config

	store         *store.GormStore
	files         *storage.FileStore
	hierarchy     *service.HierarchyService
	inbox         *service.InboxService
	boxes         *service.BoxService
	anonymization *service.AnonymizationService
	tracker       *liveness.Tracker
	compress      compress.Compress

	sessions []*session.Session
	executor *jobs.TaskExecutor
	cleaner  *job.OrphanCleaner
	closers  []func()
}

// NewNode builds the services of a node on top of an open database.
func NewNode(cfg *config.Config, db *gorm.DB) (*Node, error) {
	s := store.NewGormStore(db)
	if err := s.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	files, err := storage.NewFileStore(cfg.PayloadDir())
	if err != nil {
		return nil, err
	}

	compressor, err := compress.ByName(cfg.Compression)
	if err != nil {
		return nil, err
	}

	n := &Node{
		cfg:      cfg,
		store:    s,
		files:    files,
		compress: compressor,
	}

	var notifiers queue.Fanout
	sinks := []liveness.Sink{liveness.NewStoreSink(s)}

	if cfg.RedisAddr != "" {
		client := cache.NewRedisClient(cfg.RedisAddr)
		notifiers = append(notifiers, queue.NewRedisNotifier(client, cfg.EventQueue))
		sinks = append(sinks, cache.NewRedisStatusSink(client))
		n.closers = append(n.closers, func() { _ = client.Close() })
		logrus.Infof("publishing events and box status to redis at %s", cfg.RedisAddr)
	}

	if cfg.KafkaBrokers != "" {
		producer, err := queue.NewKafkaNotifier(cfg.KafkaBrokers, cfg.EventQueue)
		if err != nil {
			n.close()
			return nil, err
		}
		notifiers = append(notifiers, producer)
		n.closers = append(n.closers, producer.Close)
		logrus.Infof("publishing events to kafka topic %s", cfg.EventQueue)
	}

	var notifier queue.Notifier = queue.Nop{}
	if len(notifiers) > 0 {
		notifier = notifiers
	}

	n.hierarchy = service.NewHierarchyService(s, files, dicom.NewJSONCodec(), notifier)
	n.inbox = service.NewInboxService(s, n.hierarchy, notifier)
	n.boxes = service.NewBoxService(s)
	n.anonymization = service.NewAnonymizationService(s)
	n.tracker = liveness.NewTracker(sinks...)

	return n, nil
}

// Start creates a session for every known box and schedules the jobs.
// Boxes named in the config are added first when missing.
func (n *Node) Start(ctx context.Context) error {
	if err := n.seedPeers(ctx); err != nil {
		return err
	}

	boxes, err := n.boxes.ListBoxes(ctx)
	if err != nil {
		return err
	}

	cronJobs := []jobs.CronJob{jobs.NewStatusLogTask(statusLogSchedule, n.tracker)}
	for _, box := range boxes {
		sess, err := session.New(session.Options{
			Box:      box,
			Peer:     transport.NewHTTPPeer(box.BaseURL),
			Compress: n.compress,
			Codec:    dicom.NewJSONCodec(),
			Reverser: n.anonymization,
			Inbox:    n.inbox,
			Liveness: n.tracker,
			Config: session.Config{
				WatchdogTimeout:     n.cfg.WatchdogTimeout,
				UseExtendedContexts: n.cfg.UseExtendedContexts,
			},
		})
		if err != nil {
			return err
		}

		sess.Start()
		n.sessions = append(n.sessions, sess)
		cronJobs = append(cronJobs, jobs.NewSessionTickTask(box.Name, n.cfg.PollInterval, sess))
	}

	n.executor = jobs.NewTaskExecutor(cronJobs)
	if err := n.executor.Run(); err != nil {
		return err
	}

	n.cleaner = job.NewOrphanCleaner(n.store, n.files, n.cfg.OrphanGracePeriod, n.cfg.OrphanSweepInterval)
	go n.cleaner.Run()

	logrus.Infof("polling %d boxes every %v", len(n.sessions), n.cfg.PollInterval)
	return nil
}

func (n *Node) seedPeers(ctx context.Context) error {
	for _, peer := range n.cfg.Peers {
		_, err := n.store.GetBoxByName(ctx, peer.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if _, err := n.boxes.AddBox(ctx, peer.Name, peer.BaseURL); err != nil {
			return err
		}
	}
	return nil
}

// Stop halts the jobs and sessions. Commits in progress are rolled back.
func (n *Node) Stop() {
	if n.executor != nil {
		n.executor.Stop()
	}
	if n.cleaner != nil {
		n.cleaner.Stop()
	}

	stopped := make(chan struct{})
	go func() {
		for _, sess := range n.sessions {
			sess.Stop()
		}
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(n.cfg.WatchdogTimeout):
		logrus.Warnf("sessions did not stop within %v", n.cfg.WatchdogTimeout)
	}

	n.close()
}

func (n *Node) close() {
	for _, c := range n.closers {
		c()
	}
	n.closers = nil
}

func (n *Node) Boxes(ctx context.Context) ([]*model.Box, error) {
	return n.boxes.ListBoxes(ctx)
}
