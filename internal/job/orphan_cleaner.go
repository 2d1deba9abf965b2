package job

import (
	"context"
	"time"

	goset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/boxsync/internal/storage"
	"github.com/emrgen/boxsync/internal/store"
	"github.com/sirupsen/logrus"
)

// OrphanCleaner removes payload files that no image row refers to. Such
// files are left behind when a commit fails after its file was written, or
// when a file delete fails after a cascading delete.
type OrphanCleaner struct {
	store    store.HierarchyStore
	files    *storage.FileStore
	grace    time.Duration
	interval time.Duration
	done     chan struct{}
}

// NewOrphanCleaner creates a cleaner that ignores files younger than grace,
// so that payloads of commits still in progress are kept.
func NewOrphanCleaner(store store.HierarchyStore, files *storage.FileStore, grace, interval time.Duration) *OrphanCleaner {
	return &OrphanCleaner{
		store:    store,
		files:    files,
		grace:    grace,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (c *OrphanCleaner) Stop() {
	close(c.done)
}

func (c *OrphanCleaner) Run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if _, err := c.Clean(context.Background()); err != nil {
				logrus.Errorf("orphan payload sweep failed: %v", err)
			}
		}
	}
}

// Clean removes orphaned payload files and returns their references.
func (c *OrphanCleaner) Clean(ctx context.Context) ([]string, error) {
	// list files first: a file written after this point is younger than grace
	stored, err := c.files.Walk(c.grace)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, nil
	}

	paths, err := c.store.ListImageFilePaths(ctx)
	if err != nil {
		return nil, err
	}
	referenced := goset.NewThreadUnsafeSet(paths...)

	var removed []string
	for _, ref := range stored {
		if referenced.Contains(ref) {
			continue
		}
		if err := c.files.Delete(ref); err != nil {
			logrus.Errorf("failed to remove orphan payload %s: %v", ref, err)
			continue
		}
		removed = append(removed, ref)
	}

	if len(removed) > 0 {
		logrus.Infof("removed %d orphan payload files", len(removed))
	}
	return removed, nil
}
