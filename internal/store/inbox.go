package store

import (
	"context"

	"github.com/emrgen/boxsync/internal/model"
	"gorm.io/gorm"
)

func (g *GormStore) GetOrCreateInboxTransaction(ctx context.Context, inbox *model.InboxTransaction) (bool, error) {
	return getOrCreate(ctx, g.db, inbox, map[string]any{
		"remote_box_id":  inbox.RemoteBoxID,
		"transaction_id": inbox.TransactionID,
	})
}

func (g *GormStore) AddInboxImage(ctx context.Context, link *model.InboxImage) (bool, error) {
	return getOrCreate(ctx, g.db, link, map[string]any{
		"inbox_transaction_id": link.InboxTransactionID,
		"image_id":             link.ImageID,
	})
}

// IncrementInboxReceived advances the count with a single UPDATE so that
// concurrent writers to the same row cannot lose updates.
func (g *GormStore) IncrementInboxReceived(ctx context.Context, id uint) (*model.InboxTransaction, error) {
	db := g.db.WithContext(ctx)

	res := db.Model(&model.InboxTransaction{}).Where("id = ?", id).
		Update("received_image_count", gorm.Expr("received_image_count + 1"))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	err := db.Model(&model.InboxTransaction{}).
		Where("id = ? AND finished = ? AND total_image_count > 0 AND received_image_count >= total_image_count", id, false).
		Update("finished", true).Error
	if err != nil {
		return nil, err
	}

	return first[model.InboxTransaction](ctx, g.db, "id = ?", id)
}

func (g *GormStore) UpdateInboxTotal(ctx context.Context, id uint, total int64) error {
	return g.db.WithContext(ctx).Model(&model.InboxTransaction{}).Where("id = ?", id).
		Update("total_image_count", total).Error
}

func (g *GormStore) GetInboxTransaction(ctx context.Context, remoteBoxID uint, transactionID int64) (*model.InboxTransaction, error) {
	return first[model.InboxTransaction](ctx, g.db, "remote_box_id = ? AND transaction_id = ?", remoteBoxID, transactionID)
}

func (g *GormStore) ListInboxTransactions(ctx context.Context) ([]*model.InboxTransaction, error) {
	var inbox []*model.InboxTransaction
	err := g.db.WithContext(ctx).Order("last_updated desc").Find(&inbox).Error
	return inbox, err
}

func (g *GormStore) ListInboxImages(ctx context.Context, inboxTransactionID uint) ([]*model.InboxImage, error) {
	var links []*model.InboxImage
	err := g.db.WithContext(ctx).Where("inbox_transaction_id = ?", inboxTransactionID).Order("id").Find(&links).Error
	return links, err
}
