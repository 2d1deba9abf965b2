package store

import (
	"context"

	"github.com/emrgen/boxsync/internal/model"
)

func (g *GormStore) CreateBox(ctx context.Context, box *model.Box) error {
	return g.db.WithContext(ctx).Create(box).Error
}

func (g *GormStore) GetBox(ctx context.Context, id uint) (*model.Box, error) {
	return first[model.Box](ctx, g.db, "id = ?", id)
}

func (g *GormStore) GetBoxByName(ctx context.Context, name string) (*model.Box, error) {
	return first[model.Box](ctx, g.db, "name = ?", name)
}

func (g *GormStore) ListBoxes(ctx context.Context) ([]*model.Box, error) {
	var boxes []*model.Box
	err := g.db.WithContext(ctx).Order("id").Find(&boxes).Error
	return boxes, err
}

func (g *GormStore) DeleteBox(ctx context.Context, id uint) error {
	return deleteRow(g.db.WithContext(ctx), &model.Box{}, id)
}

func (g *GormStore) UpdateBoxOnline(ctx context.Context, id uint, online bool) error {
	return g.db.WithContext(ctx).Model(&model.Box{}).Where("id = ?", id).Update("online", online).Error
}
