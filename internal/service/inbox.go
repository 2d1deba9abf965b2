package service

import (
	"context"

	"github.com/emrgen/boxsync/internal/dicom"
	"github.com/emrgen/boxsync/internal/model"
	"github.com/emrgen/boxsync/internal/queue"
	"github.com/emrgen/boxsync/internal/store"
	"github.com/sirupsen/logrus"
)

// InboxEntry identifies one received unit within a remote transaction.
type InboxEntry struct {
	RemoteBoxID     uint
	RemoteBoxName   string
	TransactionID   int64
	SequenceNumber  int64
	TotalImageCount int64
}

// NewInboxService creates a new InboxService.
func NewInboxService(store store.Store, hierarchy *HierarchyService, notifier queue.Notifier) *InboxService {
	if notifier == nil {
		notifier = queue.Nop{}
	}

	return &InboxService{
		store:     store,
		hierarchy: hierarchy,
		notifier:  notifier,
	}
}

// InboxService commits datasets received from remote boxes together with
// the transfer ledger entries that record their arrival.
type InboxService struct {
	store     store.Store
	hierarchy *HierarchyService
	notifier  queue.Notifier
}

func (s *InboxService) CheckDataset(ds *dicom.Dataset, useExtendedContexts bool) error {
	return s.hierarchy.CheckDataset(ds, useExtendedContexts)
}

// Receive upserts ds and records it in the inbox of its transaction, in one
// transaction. A unit delivered more than once is linked once and counted once.
func (s *InboxService) Receive(ctx context.Context, entry InboxEntry, ds *dicom.Dataset) (*model.Image, bool, error) {
	var finished *model.InboxTransaction

	image, created, err := s.hierarchy.upsert(ctx, ds, entry.RemoteBoxID, func(ctx context.Context, tx store.Store, image *model.Image, _ bool) error {
		inbox, justFinished, err := record(ctx, tx, entry, image.ID)
		if err != nil {
			return err
		}
		if justFinished {
			finished = inbox
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if finished != nil {
		logrus.Infof("inbox transaction %d from %s finished with %d images", finished.TransactionID, finished.RemoteBoxName, finished.ReceivedImageCount)

		event := queue.NewEvent(queue.TransactionFinished)
		event.SourceBoxID = finished.RemoteBoxID
		event.TransactionID = finished.TransactionID
		if err := s.notifier.Publish(ctx, event); err != nil {
			logrus.Errorf("failed to publish %s for transaction %d: %v", event.Kind, finished.TransactionID, err)
		}
	}

	return image, created, nil
}

// record links imageID to the inbox transaction of entry, creating the
// transaction on its first image. It reports whether this image completed it.
func record(ctx context.Context, tx store.Store, entry InboxEntry, imageID uint) (*model.InboxTransaction, bool, error) {
	inbox := &model.InboxTransaction{
		RemoteBoxID:     entry.RemoteBoxID,
		RemoteBoxName:   entry.RemoteBoxName,
		TransactionID:   entry.TransactionID,
		TotalImageCount: entry.TotalImageCount,
	}
	if _, err := tx.GetOrCreateInboxTransaction(ctx, inbox); err != nil {
		return nil, false, err
	}

	if entry.TotalImageCount > 0 && inbox.TotalImageCount != entry.TotalImageCount {
		if err := tx.UpdateInboxTotal(ctx, inbox.ID, entry.TotalImageCount); err != nil {
			return nil, false, err
		}
		inbox.TotalImageCount = entry.TotalImageCount
	}

	linked, err := tx.AddInboxImage(ctx, &model.InboxImage{InboxTransactionID: inbox.ID, ImageID: imageID})
	if err != nil {
		return nil, false, err
	}
	if !linked {
		return inbox, false, nil
	}

	updated, err := tx.IncrementInboxReceived(ctx, inbox.ID)
	if err != nil {
		return nil, false, err
	}

	return updated, !inbox.Finished && updated.Finished, nil
}

func (s *InboxService) ListTransactions(ctx context.Context) ([]*model.InboxTransaction, error) {
	return s.store.ListInboxTransactions(ctx)
}

func (s *InboxService) GetTransaction(ctx context.Context, remoteBoxID uint, transactionID int64) (*model.InboxTransaction, error) {
	return s.store.GetInboxTransaction(ctx, remoteBoxID, transactionID)
}
