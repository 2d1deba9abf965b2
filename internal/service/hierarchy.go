package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/emrgen/boxsync/internal/dicom"
	"github.com/emrgen/boxsync/internal/model"
	"github.com/emrgen/boxsync/internal/queue"
	"github.com/emrgen/boxsync/internal/storage"
	"github.com/emrgen/boxsync/internal/store"
	"github.com/sirupsen/logrus"
)

// CommitHook runs inside the upsert transaction after the image row has
// been resolved. Returning an error rolls the whole upsert back.
type CommitHook func(ctx context.Context, tx store.Store, image *model.Image, created bool) error

// NewHierarchyService creates a new HierarchyService.
func NewHierarchyService(store store.Store, files *storage.FileStore, codec dicom.Codec, notifier queue.Notifier) *HierarchyService {
	if notifier == nil {
		notifier = queue.Nop{}
	}

	return &HierarchyService{
		store:    store,
		files:    files,
		codec:    codec,
		notifier: notifier,
		locks:    &keyLocks{},
	}
}

// HierarchyService owns the patient -> study -> series -> image index and
// the payload files backing its images.
type HierarchyService struct {
	store    store.Store
	files    *storage.FileStore
	codec    dicom.Codec
	notifier queue.Notifier
	locks    *keyLocks
	gate     sync.RWMutex
}

type resolved struct {
	patient *model.Patient
	study   *model.Study
	series  *model.Series
	image   *model.Image
	created bool
}

// CheckDataset rejects datasets whose presentation context is not accepted.
func (h *HierarchyService) CheckDataset(ds *dicom.Dataset, useExtendedContexts bool) error {
	return dicom.CheckDataset(ds, useExtendedContexts)
}

// Upsert stores ds, linking it to existing rows wherever a natural key is
// already known. It reports whether the image row was created. The payload
// file is replaced on every successful call, so the latest bytes for an
// image win. A failed call leaves both the rows and the file as they were.
func (h *HierarchyService) Upsert(ctx context.Context, ds *dicom.Dataset) (*model.Image, bool, error) {
	return h.upsert(ctx, ds, 0, nil)
}

func (h *HierarchyService) upsert(ctx context.Context, ds *dicom.Dataset, sourceBoxID uint, within CommitHook) (*model.Image, bool, error) {
	keys, err := dicom.ExtractKeys(ds)
	if err != nil {
		return nil, false, err
	}

	data, err := h.codec.Encode(ds)
	if err != nil {
		return nil, false, fmt.Errorf("%w: encode dataset: %w", ErrStorage, err)
	}

	unlock := h.locks.lock(keys.SOPInstanceUID)
	defer unlock()

	// deletes wait until the rows and the file of this image agree
	h.gate.RLock()
	defer h.gate.RUnlock()

	ref := h.files.PathFor(keys.SOPInstanceUID)
	staged, err := h.files.Stage(ref, data)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	var res *resolved
	err = h.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		res, err = resolve(ctx, tx, keys, ds, ref)
		if err != nil {
			return err
		}

		if within != nil {
			return within(ctx, tx, res.image, res.created)
		}
		return nil
	})
	if err != nil {
		if err := h.files.Discard(staged); err != nil {
			logrus.Warnf("failed to remove staged payload %s after failed commit: %v", staged, err)
		}
		return nil, false, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	if err := h.files.Promote(staged, ref); err != nil {
		if res.created {
			if _, err := h.store.DeleteHierarchy(ctx, model.LevelImage, res.image.ID); err != nil {
				logrus.Errorf("image %d has no payload file and could not be removed: %v", res.image.ID, err)
			}
		}
		return nil, false, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	event := queue.NewEvent(queue.ImageAdded)
	event.PatientID = res.patient.ID
	event.StudyID = res.study.ID
	event.SeriesID = res.series.ID
	event.ImageID = res.image.ID
	event.SourceBoxID = sourceBoxID
	event.Created = res.created
	if err := h.notifier.Publish(ctx, event); err != nil {
		logrus.Errorf("failed to publish %s for image %d: %v", event.Kind, res.image.ID, err)
	}

	return res.image, res.created, nil
}

// resolve walks the hierarchy top-down, getting or creating each level.
// Parent references are only written when a row is created.
func resolve(ctx context.Context, tx store.Store, keys *dicom.Keys, ds *dicom.Dataset, ref string) (*resolved, error) {
	patient := &model.Patient{
		Identifier: keys.Patient.Identifier,
		Name:       keys.Patient.Name,
		Issuer:     keys.Patient.Issuer,
		BirthDate:  ds.Get(dicom.PatientBirthDate),
		Sex:        ds.Get(dicom.PatientSex),
	}
	if _, err := tx.GetOrCreatePatient(ctx, patient); err != nil {
		return nil, err
	}

	study := &model.Study{
		PatientID:        patient.ID,
		StudyInstanceUID: keys.StudyInstanceUID,
		StudyDate:        ds.Get(dicom.StudyDate),
		StudyDescription: ds.Get(dicom.StudyDescription),
		AccessionNumber:  ds.Get(dicom.AccessionNumber),
	}
	if _, err := tx.GetOrCreateStudy(ctx, study); err != nil {
		return nil, err
	}

	series := &model.Series{
		StudyID:           study.ID,
		SeriesInstanceUID: keys.SeriesInstanceUID,
		Modality:          ds.Get(dicom.Modality),
		SeriesDescription: ds.Get(dicom.SeriesDescription),
		BodyPartExamined:  ds.Get(dicom.BodyPartExamined),
	}

	if keys.Equipment != nil {
		equipment := &model.Equipment{
			Manufacturer: keys.Equipment.Manufacturer,
			StationName:  keys.Equipment.StationName,
		}
		if _, err := tx.GetOrCreateEquipment(ctx, equipment); err != nil {
			return nil, err
		}
		series.EquipmentID = &equipment.ID
	}

	if keys.FrameOfReferenceUID != "" {
		frame := &model.FrameOfReference{FrameOfReferenceUID: keys.FrameOfReferenceUID}
		if _, err := tx.GetOrCreateFrameOfReference(ctx, frame); err != nil {
			return nil, err
		}
		series.FrameOfReferenceID = &frame.ID
	}

	if _, err := tx.GetOrCreateSeries(ctx, series); err != nil {
		return nil, err
	}

	image := &model.Image{
		SeriesID:       series.ID,
		SOPInstanceUID: keys.SOPInstanceUID,
		SOPClassUID:    ds.Get(dicom.SOPClassUID),
		InstanceNumber: ds.Get(dicom.InstanceNumber),
		FilePath:       ref,
	}
	created, err := tx.GetOrCreateImage(ctx, image)
	if err != nil {
		return nil, err
	}

	return &resolved{
		patient: patient,
		study:   study,
		series:  series,
		image:   image,
		created: created,
	}, nil
}

// Delete removes the entity at level and all of its descendants, then their
// payload files. File removal only starts once the index rows are gone;
// failures are logged and do not undo the index change. No upsert runs
// while a delete is in progress.
func (h *HierarchyService) Delete(ctx context.Context, level model.Level, id uint) ([]string, error) {
	h.gate.Lock()
	defer h.gate.Unlock()

	refs, err := h.store.DeleteHierarchy(ctx, level, id)
	if err != nil {
		return nil, err
	}

	for _, ref := range refs {
		if err := h.files.Delete(ref); err != nil {
			logrus.Errorf("failed to delete payload %s of deleted %s %d: %v", ref, level, id, err)
		}
	}

	logrus.Infof("deleted %s %d with %d images", level, id, len(refs))

	return refs, nil
}

// Dataset reads back the stored dataset of an image.
func (h *HierarchyService) Dataset(ctx context.Context, imageID uint) (*dicom.Dataset, error) {
	image, err := h.store.GetImage(ctx, imageID)
	if err != nil {
		return nil, err
	}

	data, err := h.files.Read(image.FilePath)
	if err != nil {
		return nil, err
	}

	return h.codec.Decode(data)
}
