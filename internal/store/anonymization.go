package store

import (
	"context"

	"github.com/emrgen/boxsync/internal/model"
)

func (g *GormStore) CreateAnonymizationKey(ctx context.Context, key *model.AnonymizationKey) error {
	return g.db.WithContext(ctx).Create(key).Error
}

func (g *GormStore) FindAnonymizationKeys(ctx context.Context, anonPatientID, anonPatientName string) ([]*model.AnonymizationKey, error) {
	var keys []*model.AnonymizationKey
	err := g.db.WithContext(ctx).
		Where("anon_patient_id = ? AND anon_patient_name = ?", anonPatientID, anonPatientName).
		Order("id desc").
		Find(&keys).Error
	return keys, err
}
