package store

import (
	"context"
	"fmt"

	"github.com/emrgen/boxsync/internal/model"
	"gorm.io/gorm"
)

// DeleteHierarchy removes the entity and, depth-first, all of its
// descendants in one transaction. Image file references are collected
// before their rows are removed; the files themselves are left to the caller.
func (g *GormStore) DeleteHierarchy(ctx context.Context, level model.Level, id uint) ([]string, error) {
	refs := make([]string, 0)

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		switch level {
		case model.LevelPatient:
			err = deletePatient(tx, id, &refs)
		case model.LevelStudy:
			err = deleteStudy(tx, id, &refs)
		case model.LevelSeries:
			err = deleteSeries(tx, id, &refs)
		case model.LevelImage:
			err = deleteImages(tx, []uint{id}, &refs)
		default:
			err = fmt.Errorf("%w: %s", ErrUnknownLevel, level)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	return refs, nil
}

func deletePatient(tx *gorm.DB, id uint, refs *[]string) error {
	var studyIDs []uint
	if err := tx.Model(&model.Study{}).Where("patient_id = ?", id).Pluck("id", &studyIDs).Error; err != nil {
		return err
	}

	for _, studyID := range studyIDs {
		if err := deleteStudy(tx, studyID, refs); err != nil {
			return err
		}
	}

	return deleteRow(tx, &model.Patient{}, id)
}

func deleteStudy(tx *gorm.DB, id uint, refs *[]string) error {
	var seriesIDs []uint
	if err := tx.Model(&model.Series{}).Where("study_id = ?", id).Pluck("id", &seriesIDs).Error; err != nil {
		return err
	}

	for _, seriesID := range seriesIDs {
		if err := deleteSeries(tx, seriesID, refs); err != nil {
			return err
		}
	}

	return deleteRow(tx, &model.Study{}, id)
}

func deleteSeries(tx *gorm.DB, id uint, refs *[]string) error {
	var imageIDs []uint
	if err := tx.Model(&model.Image{}).Where("series_id = ?", id).Pluck("id", &imageIDs).Error; err != nil {
		return err
	}

	if len(imageIDs) > 0 {
		if err := deleteImages(tx, imageIDs, refs); err != nil {
			return err
		}
	}

	return deleteRow(tx, &model.Series{}, id)
}

// deleteImages removes the image rows and their inbox links, appending the
// payload file references to refs.
func deleteImages(tx *gorm.DB, ids []uint, refs *[]string) error {
	var paths []string
	if err := tx.Model(&model.Image{}).Where("id IN ?", ids).Pluck("file_path", &paths).Error; err != nil {
		return err
	}
	if len(paths) == 0 {
		return ErrNotFound
	}

	if err := tx.Where("image_id IN ?", ids).Delete(&model.InboxImage{}).Error; err != nil {
		return err
	}

	if err := tx.Where("id IN ?", ids).Delete(&model.Image{}).Error; err != nil {
		return err
	}

	*refs = append(*refs, paths...)
	return nil
}

func deleteRow(tx *gorm.DB, row any, id uint) error {
	res := tx.Delete(row, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
