package service

import (
	"testing"

	"github.com/emrgen/boxsync/internal/dicom"
	"github.com/emrgen/boxsync/internal/queue"
	"github.com/emrgen/boxsync/internal/storage"
	"github.com/emrgen/boxsync/internal/store"
	"github.com/emrgen/boxsync/internal/tester"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store     *store.GormStore
	files     *storage.FileStore
	events    *queue.ChannelNotifier
	hierarchy *HierarchyService
	inbox     *InboxService
}

func setup(t *testing.T) *fixture {
	t.Helper()

	s := store.NewGormStore(tester.Setup(t))
	files, err := storage.NewFileStore(tester.DataDir(t))
	require.NoError(t, err)

	events := queue.NewChannelNotifier(128)
	hierarchy := NewHierarchyService(s, files, dicom.NewJSONCodec(), events)

	return &fixture{
		store:     s,
		files:     files,
		events:    events,
		hierarchy: hierarchy,
		inbox:     NewInboxService(s, hierarchy, events),
	}
}

func dataset(patientID, studyUID, seriesUID, sopUID string) *dicom.Dataset {
	ds := dicom.NewDataset()
	ds.Set(dicom.PatientID, patientID)
	ds.Set(dicom.PatientName, "Doe^"+patientID)
	ds.Set(dicom.StudyInstanceUID, studyUID)
	ds.Set(dicom.SeriesInstanceUID, seriesUID)
	ds.Set(dicom.SOPInstanceUID, sopUID)
	ds.Set(dicom.SOPClassUID, "1.2.840.10008.5.1.4.1.1.2")
	ds.Set(dicom.TransferSyntaxUID, dicom.ImplicitVRLittleEndian)
	ds.Set(dicom.Modality, "CT")
	return ds
}

// drain returns the events published so far.
func drain(events *queue.ChannelNotifier) []queue.Event {
	var out []queue.Event
	for {
		select {
		case e := <-events.Events():
			out = append(out, e)
		default:
			return out
		}
	}
}
