package store

import (
	"context"
	"sync"
	"testing"

	"github.com/emrgen/boxsync/internal/model"
	"github.com/emrgen/boxsync/internal/tester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedImage(t *testing.T, s Store, patientKey, studyUID, seriesUID, sopUID string) *model.Image {
	t.Helper()
	ctx := context.TODO()

	patient := &model.Patient{Identifier: patientKey, Name: "Doe^" + patientKey}
	_, err := s.GetOrCreatePatient(ctx, patient)
	require.NoError(t, err)

	study := &model.Study{PatientID: patient.ID, StudyInstanceUID: studyUID}
	_, err = s.GetOrCreateStudy(ctx, study)
	require.NoError(t, err)

	series := &model.Series{StudyID: study.ID, SeriesInstanceUID: seriesUID}
	_, err = s.GetOrCreateSeries(ctx, series)
	require.NoError(t, err)

	image := &model.Image{SeriesID: series.ID, SOPInstanceUID: sopUID, SOPClassUID: "1.2", FilePath: "files/" + sopUID}
	_, err = s.GetOrCreateImage(ctx, image)
	require.NoError(t, err)

	return image
}

func TestGormStore_GetOrCreatePatient(t *testing.T) {
	s := NewGormStore(tester.Setup(t))
	ctx := context.TODO()

	first := &model.Patient{Identifier: "p1", Name: "Doe^John"}
	created, err := s.GetOrCreatePatient(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, first.ID)

	again := &model.Patient{Identifier: "p1", Name: "Doe^John", Sex: "M"}
	created, err = s.GetOrCreatePatient(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Empty(t, again.Sex, "existing row is read back, not updated")

	other := &model.Patient{Identifier: "p1", Name: "Doe^John", Issuer: "hospital"}
	created, err = s.GetOrCreatePatient(ctx, other)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestGormStore_GetOrCreateConcurrent(t *testing.T) {
	s := NewGormStore(tester.Setup(t))

	var wg sync.WaitGroup
	ids := make([]uint, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			frame := &model.FrameOfReference{FrameOfReferenceUID: "1.2.3"}
			_, err := s.GetOrCreateFrameOfReference(context.TODO(), frame)
			assert.NoError(t, err)
			ids[i] = frame.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestGormStore_DeleteStudyCascades(t *testing.T) {
	s := NewGormStore(tester.Setup(t))
	ctx := context.TODO()

	a := seedImage(t, s, "p1", "1.1", "1.1.1", "1.1.1.1")
	b := seedImage(t, s, "p1", "1.1", "1.1.2", "1.1.2.1")
	c := seedImage(t, s, "p1", "1.2", "1.2.1", "1.2.1.1")

	series, err := s.GetSeries(ctx, a.SeriesID)
	require.NoError(t, err)

	refs, err := s.DeleteHierarchy(ctx, model.LevelStudy, series.StudyID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.FilePath, b.FilePath}, refs)

	_, err = s.GetImage(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetImage(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetStudy(ctx, series.StudyID)
	assert.ErrorIs(t, err, ErrNotFound)

	remaining, err := s.ListSeries(ctx, series.StudyID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	_, err = s.GetImage(ctx, c.ID)
	assert.NoError(t, err)
}

func TestGormStore_DeletePatientCascades(t *testing.T) {
	s := NewGormStore(tester.Setup(t))
	ctx := context.TODO()

	a := seedImage(t, s, "p1", "1.1", "1.1.1", "1.1.1.1")
	b := seedImage(t, s, "p1", "1.2", "1.2.1", "1.2.1.1")
	seedImage(t, s, "p2", "2.1", "2.1.1", "2.1.1.1")

	patients, err := s.ListPatients(ctx)
	require.NoError(t, err)
	require.Len(t, patients, 2)

	refs, err := s.DeleteHierarchy(ctx, model.LevelPatient, patients[0].ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.FilePath, b.FilePath}, refs)

	paths, err := s.ListImageFilePaths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"files/2.1.1.1"}, paths)
}

func TestGormStore_DeleteImageRemovesInboxLink(t *testing.T) {
	s := NewGormStore(tester.Setup(t))
	ctx := context.TODO()

	image := seedImage(t, s, "p1", "1.1", "1.1.1", "1.1.1.1")
	inbox := &model.InboxTransaction{RemoteBoxID: 1, RemoteBoxName: "remote", TransactionID: 7, TotalImageCount: 1}
	_, err := s.GetOrCreateInboxTransaction(ctx, inbox)
	require.NoError(t, err)
	_, err = s.AddInboxImage(ctx, &model.InboxImage{InboxTransactionID: inbox.ID, ImageID: image.ID})
	require.NoError(t, err)

	refs, err := s.DeleteHierarchy(ctx, model.LevelImage, image.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{image.FilePath}, refs)

	links, err := s.ListInboxImages(ctx, inbox.ID)
	require.NoError(t, err)
	assert.Empty(t, links)

	_, err = s.GetInboxTransaction(ctx, 1, 7)
	assert.NoError(t, err, "inbox records are kept")
}

func TestGormStore_DeleteErrors(t *testing.T) {
	s := NewGormStore(tester.Setup(t))
	ctx := context.TODO()

	_, err := s.DeleteHierarchy(ctx, model.LevelStudy, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.DeleteHierarchy(ctx, model.LevelImage, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.DeleteHierarchy(ctx, model.Level("frame"), 1)
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestGormStore_InboxUnknownTotalNotFinished(t *testing.T) {
	s := NewGormStore(tester.Setup(t))
	ctx := context.TODO()

	inbox := &model.InboxTransaction{RemoteBoxID: 3, RemoteBoxName: "remote", TransactionID: 12}
	_, err := s.GetOrCreateInboxTransaction(ctx, inbox)
	require.NoError(t, err)

	updated, err := s.IncrementInboxReceived(ctx, inbox.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.ReceivedImageCount)
	assert.False(t, updated.Finished)

	require.NoError(t, s.UpdateInboxTotal(ctx, inbox.ID, 2))
	updated, err = s.IncrementInboxReceived(ctx, inbox.ID)
	require.NoError(t, err)
	assert.True(t, updated.Finished)
}

func TestGormStore_Inbox(t *testing.T) {
	s := NewGormStore(tester.Setup(t))
	ctx := context.TODO()

	inbox := &model.InboxTransaction{RemoteBoxID: 3, RemoteBoxName: "remote", TransactionID: 11, TotalImageCount: 2}
	created, err := s.GetOrCreateInboxTransaction(ctx, inbox)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.AddInboxImage(ctx, &model.InboxImage{InboxTransactionID: inbox.ID, ImageID: 5})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.AddInboxImage(ctx, &model.InboxImage{InboxTransactionID: inbox.ID, ImageID: 5})
	require.NoError(t, err)
	assert.False(t, created)

	updated, err := s.IncrementInboxReceived(ctx, inbox.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.ReceivedImageCount)
	assert.False(t, updated.Finished)

	updated, err = s.IncrementInboxReceived(ctx, inbox.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.ReceivedImageCount)
	assert.True(t, updated.Finished)

	links, err := s.ListInboxImages(ctx, inbox.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)

	_, err = s.IncrementInboxReceived(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_TransactionRollsBack(t *testing.T) {
	s := NewGormStore(tester.Setup(t))
	ctx := context.TODO()

	err := s.Transaction(ctx, func(tx Store) error {
		_, err := tx.GetOrCreatePatient(ctx, &model.Patient{Identifier: "p1"})
		require.NoError(t, err)
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	patients, err := s.ListPatients(ctx)
	require.NoError(t, err)
	assert.Empty(t, patients)
}

func TestGormStore_Boxes(t *testing.T) {
	s := NewGormStore(tester.Setup(t))
	ctx := context.TODO()

	box := &model.Box{Name: "remote", BaseURL: "http://remote:5000/api/box/abc"}
	require.NoError(t, s.CreateBox(ctx, box))

	require.NoError(t, s.UpdateBoxOnline(ctx, box.ID, true))
	got, err := s.GetBoxByName(ctx, "remote")
	require.NoError(t, err)
	assert.True(t, got.Online)

	require.NoError(t, s.DeleteBox(ctx, box.ID))
	assert.ErrorIs(t, s.DeleteBox(ctx, box.ID), ErrNotFound)
}
