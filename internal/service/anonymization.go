package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/emrgen/boxsync/internal/dicom"
	"github.com/emrgen/boxsync/internal/model"
	"github.com/emrgen/boxsync/internal/store"
	"github.com/sirupsen/logrus"
)

// NewAnonymizationService creates a new AnonymizationService.
func NewAnonymizationService(store store.AnonymizationStore) *AnonymizationService {
	return &AnonymizationService{store: store}
}

// AnonymizationService restores identifiers of datasets that were
// de-identified by this box before being sent away.
type AnonymizationService struct {
	store store.AnonymizationStore
}

// Reverse returns ds with the original identifiers restored when an
// anonymization key is known for it. Datasets that are not de-identified,
// or whose key is unknown here, are returned unchanged.
func (a *AnonymizationService) Reverse(ctx context.Context, ds *dicom.Dataset) (*dicom.Dataset, error) {
	if !strings.EqualFold(ds.Get(dicom.PatientIdentityRemoved), "YES") {
		return ds, nil
	}

	keys, err := a.store.FindAnonymizationKeys(ctx, ds.Get(dicom.PatientID), ds.Get(dicom.PatientName))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReversal, err)
	}
	if len(keys) == 0 {
		logrus.Debugf("no anonymization key for patient %s", ds.Get(dicom.PatientID))
		return ds, nil
	}

	key := keys[0]
	studyUID := ds.Get(dicom.StudyInstanceUID)
	for _, k := range keys {
		if k.AnonStudyInstanceUID != "" && k.AnonStudyInstanceUID == studyUID {
			key = k
			break
		}
	}

	restored := ds.Clone()
	restored.Set(dicom.PatientName, key.PatientName)
	restored.Set(dicom.PatientID, key.PatientID)
	restored.Set(dicom.PatientIdentityRemoved, "NO")

	if key.AnonStudyInstanceUID != "" && key.AnonStudyInstanceUID == studyUID {
		restored.Set(dicom.StudyInstanceUID, key.StudyInstanceUID)
	}
	if key.AnonSeriesInstanceUID != "" && key.AnonSeriesInstanceUID == ds.Get(dicom.SeriesInstanceUID) {
		restored.Set(dicom.SeriesInstanceUID, key.SeriesInstanceUID)
	}

	return restored, nil
}

// RecordKey stores the mapping produced by a de-identification.
func (a *AnonymizationService) RecordKey(ctx context.Context, key *model.AnonymizationKey) error {
	return a.store.CreateAnonymizationKey(ctx, key)
}
