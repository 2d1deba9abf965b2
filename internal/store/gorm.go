package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/emrgen/boxsync/internal/model"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxConflictRetries = 5

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db: db,
	}
}

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
}

// getOrCreate reads row by its natural key conds and inserts it when absent.
// The insert skips on a unique-key conflict, in which case a concurrent
// writer won and its row is read back instead.
func getOrCreate[T any](ctx context.Context, db *gorm.DB, row *T, conds map[string]any) (bool, error) {
	db = db.WithContext(ctx)

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err := db.Where(conds).First(row).Error
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, err
		}

		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		if res.Error != nil {
			return false, res.Error
		}
		if res.RowsAffected > 0 {
			return true, nil
		}

		logrus.Debugf("natural key conflict on %T %v, retrying", row, conds)
	}

	return false, fmt.Errorf("%w: %T %v", ErrConflict, row, conds)
}

func first[T any](ctx context.Context, db *gorm.DB, query string, args ...any) (*T, error) {
	var row T
	err := db.WithContext(ctx).Where(query, args...).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (g *GormStore) GetOrCreatePatient(ctx context.Context, patient *model.Patient) (bool, error) {
	return getOrCreate(ctx, g.db, patient, map[string]any{
		"identifier": patient.Identifier,
		"name":       patient.Name,
		"issuer":     patient.Issuer,
	})
}

func (g *GormStore) GetOrCreateStudy(ctx context.Context, study *model.Study) (bool, error) {
	return getOrCreate(ctx, g.db, study, map[string]any{"study_instance_uid": study.StudyInstanceUID})
}

func (g *GormStore) GetOrCreateEquipment(ctx context.Context, equipment *model.Equipment) (bool, error) {
	return getOrCreate(ctx, g.db, equipment, map[string]any{
		"manufacturer": equipment.Manufacturer,
		"station_name": equipment.StationName,
	})
}

func (g *GormStore) GetOrCreateFrameOfReference(ctx context.Context, frame *model.FrameOfReference) (bool, error) {
	return getOrCreate(ctx, g.db, frame, map[string]any{"frame_of_reference_uid": frame.FrameOfReferenceUID})
}

func (g *GormStore) GetOrCreateSeries(ctx context.Context, series *model.Series) (bool, error) {
	return getOrCreate(ctx, g.db, series, map[string]any{"series_instance_uid": series.SeriesInstanceUID})
}

func (g *GormStore) GetOrCreateImage(ctx context.Context, image *model.Image) (bool, error) {
	return getOrCreate(ctx, g.db, image, map[string]any{"sop_instance_uid": image.SOPInstanceUID})
}

func (g *GormStore) GetPatient(ctx context.Context, id uint) (*model.Patient, error) {
	return first[model.Patient](ctx, g.db, "id = ?", id)
}

func (g *GormStore) GetStudy(ctx context.Context, id uint) (*model.Study, error) {
	return first[model.Study](ctx, g.db, "id = ?", id)
}

func (g *GormStore) GetSeries(ctx context.Context, id uint) (*model.Series, error) {
	return first[model.Series](ctx, g.db, "id = ?", id)
}

func (g *GormStore) GetImage(ctx context.Context, id uint) (*model.Image, error) {
	return first[model.Image](ctx, g.db, "id = ?", id)
}

func (g *GormStore) GetImageBySOPInstanceUID(ctx context.Context, uid string) (*model.Image, error) {
	return first[model.Image](ctx, g.db, "sop_instance_uid = ?", uid)
}

func (g *GormStore) ListPatients(ctx context.Context) ([]*model.Patient, error) {
	var patients []*model.Patient
	err := g.db.WithContext(ctx).Order("id").Find(&patients).Error
	return patients, err
}

func (g *GormStore) ListStudies(ctx context.Context, patientID uint) ([]*model.Study, error) {
	var studies []*model.Study
	err := g.db.WithContext(ctx).Where("patient_id = ?", patientID).Order("id").Find(&studies).Error
	return studies, err
}

func (g *GormStore) ListSeries(ctx context.Context, studyID uint) ([]*model.Series, error) {
	var series []*model.Series
	err := g.db.WithContext(ctx).Where("study_id = ?", studyID).Order("id").Find(&series).Error
	return series, err
}

func (g *GormStore) ListImages(ctx context.Context, seriesID uint) ([]*model.Image, error) {
	var images []*model.Image
	err := g.db.WithContext(ctx).Where("series_id = ?", seriesID).Order("id").Find(&images).Error
	return images, err
}

func (g *GormStore) ListImageFilePaths(ctx context.Context) ([]string, error) {
	var paths []string
	err := g.db.WithContext(ctx).Model(&model.Image{}).Pluck("file_path", &paths).Error
	return paths, err
}

func (g *GormStore) Migrate() error {
	return model.Migrate(g.db)
}

func (g *GormStore) Transaction(ctx context.Context, f func(tx Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return f(&GormStore{db: tx})
	})
}
