package job

import (
	"context"
	"testing"
	"time"

	"github.com/emrgen/boxsync/internal/model"
	"github.com/emrgen/boxsync/internal/storage"
	"github.com/emrgen/boxsync/internal/store"
	"github.com/emrgen/boxsync/internal/tester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrphanCleaner_Clean(t *testing.T) {
	s := store.NewGormStore(tester.Setup(t))
	files, err := storage.NewFileStore(tester.DataDir(t))
	require.NoError(t, err)
	ctx := context.TODO()

	patient := &model.Patient{Identifier: "p1"}
	_, err = s.GetOrCreatePatient(ctx, patient)
	require.NoError(t, err)
	study := &model.Study{PatientID: patient.ID, StudyInstanceUID: "1.1"}
	_, err = s.GetOrCreateStudy(ctx, study)
	require.NoError(t, err)
	series := &model.Series{StudyID: study.ID, SeriesInstanceUID: "1.1.1"}
	_, err = s.GetOrCreateSeries(ctx, series)
	require.NoError(t, err)

	kept := files.PathFor("1.1.1.1")
	_, err = s.GetOrCreateImage(ctx, &model.Image{SeriesID: series.ID, SOPInstanceUID: "1.1.1.1", FilePath: kept})
	require.NoError(t, err)
	require.NoError(t, files.Write(kept, []byte("kept")))

	orphan := files.PathFor("1.1.1.2")
	require.NoError(t, files.Write(orphan, []byte("orphan")))

	// a zero grace period treats every file as old enough
	cleaner := NewOrphanCleaner(s, files, 0, time.Minute)
	removed, err := cleaner.Clean(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{orphan}, removed)
	assert.True(t, files.Exists(kept))
	assert.False(t, files.Exists(orphan))
}

func TestOrphanCleaner_GracePeriod(t *testing.T) {
	s := store.NewGormStore(tester.Setup(t))
	files, err := storage.NewFileStore(tester.DataDir(t))
	require.NoError(t, err)

	young := files.PathFor("1.1.1.3")
	require.NoError(t, files.Write(young, []byte("in flight")))

	cleaner := NewOrphanCleaner(s, files, time.Hour, time.Minute)
	removed, err := cleaner.Clean(context.TODO())
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.True(t, files.Exists(young))
}
