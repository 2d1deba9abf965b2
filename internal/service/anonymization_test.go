package service

import (
	"context"
	"testing"

	"github.com/emrgen/boxsync/internal/dicom"
	"github.com/emrgen/boxsync/internal/model"
	"github.com/emrgen/boxsync/internal/store"
	"github.com/emrgen/boxsync/internal/tester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnonymizationService_Reverse(t *testing.T) {
	s := store.NewGormStore(tester.Setup(t))
	a := NewAnonymizationService(s)
	ctx := context.TODO()

	require.NoError(t, a.RecordKey(ctx, &model.AnonymizationKey{
		PatientName:           "Doe^Jane",
		AnonPatientName:       "Doe^anon1",
		PatientID:             "real-1",
		AnonPatientID:         "anon1",
		StudyInstanceUID:      "1.1",
		AnonStudyInstanceUID:  "9.1",
		SeriesInstanceUID:     "1.1.1",
		AnonSeriesInstanceUID: "9.1.1",
	}))

	ds := dataset("anon1", "9.1", "9.1.1", "1.1.1.1")
	ds.Set(dicom.PatientIdentityRemoved, "YES")

	restored, err := a.Reverse(ctx, ds)
	require.NoError(t, err)
	assert.Equal(t, "real-1", restored.Get(dicom.PatientID))
	assert.Equal(t, "Doe^Jane", restored.Get(dicom.PatientName))
	assert.Equal(t, "1.1", restored.Get(dicom.StudyInstanceUID))
	assert.Equal(t, "1.1.1", restored.Get(dicom.SeriesInstanceUID))
	assert.Equal(t, "NO", restored.Get(dicom.PatientIdentityRemoved))
	assert.Equal(t, "anon1", ds.Get(dicom.PatientID), "input is not modified")
}

func TestAnonymizationService_ReversePassThrough(t *testing.T) {
	s := store.NewGormStore(tester.Setup(t))
	a := NewAnonymizationService(s)
	ctx := context.TODO()

	plain := dataset("p1", "1.1", "1.1.1", "1.1.1.1")
	out, err := a.Reverse(ctx, plain)
	require.NoError(t, err)
	assert.Same(t, plain, out)

	unknown := dataset("anon2", "9.2", "9.2.1", "9.2.1.1")
	unknown.Set(dicom.PatientIdentityRemoved, "YES")
	out, err = a.Reverse(ctx, unknown)
	require.NoError(t, err)
	assert.Equal(t, "anon2", out.Get(dicom.PatientID))
}
