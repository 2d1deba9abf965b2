package store

import (
	"context"
	"errors"

	"github.com/emrgen/boxsync/internal/model"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrUnknownLevel = errors.New("unknown hierarchy level")
	// ErrConflict is returned when a natural key kept conflicting with
	// concurrent writers after all retries.
	ErrConflict = errors.New("natural key conflict")
)

type Store interface {
	HierarchyStore
	InboxStore
	BoxStore
	AnonymizationStore
	Transaction(ctx context.Context, f func(tx Store) error) error
	Migrate() error
}

// HierarchyStore persists the patient -> study -> series -> image index.
// The GetOrCreate methods look a row up by its natural key and insert it
// when absent. They fill the passed row with the stored values and report
// whether it was created.
type HierarchyStore interface {
	GetOrCreatePatient(ctx context.Context, patient *model.Patient) (bool, error)
	GetOrCreateStudy(ctx context.Context, study *model.Study) (bool, error)
	GetOrCreateEquipment(ctx context.Context, equipment *model.Equipment) (bool, error)
	GetOrCreateFrameOfReference(ctx context.Context, frame *model.FrameOfReference) (bool, error)
	GetOrCreateSeries(ctx context.Context, series *model.Series) (bool, error)
	GetOrCreateImage(ctx context.Context, image *model.Image) (bool, error)
	// GetPatient retrieves a patient by ID.
	GetPatient(ctx context.Context, id uint) (*model.Patient, error)
	// GetStudy retrieves a study by ID.
	GetStudy(ctx context.Context, id uint) (*model.Study, error)
	// GetSeries retrieves a series by ID.
	GetSeries(ctx context.Context, id uint) (*model.Series, error)
	// GetImage retrieves an image by ID.
	GetImage(ctx context.Context, id uint) (*model.Image, error)
	// GetImageBySOPInstanceUID retrieves an image by its natural key.
	GetImageBySOPInstanceUID(ctx context.Context, uid string) (*model.Image, error)
	ListPatients(ctx context.Context) ([]*model.Patient, error)
	ListStudies(ctx context.Context, patientID uint) ([]*model.Study, error)
	ListSeries(ctx context.Context, studyID uint) ([]*model.Series, error)
	ListImages(ctx context.Context, seriesID uint) ([]*model.Image, error)
	// ListImageFilePaths returns the payload file reference of every image.
	ListImageFilePaths(ctx context.Context) ([]string, error)
	// DeleteHierarchy deletes the entity at level with all its descendants
	// and returns the payload file references of the removed images.
	DeleteHierarchy(ctx context.Context, level model.Level, id uint) ([]string, error)
}

// InboxStore persists the receiving side transfer ledger.
type InboxStore interface {
	GetOrCreateInboxTransaction(ctx context.Context, inbox *model.InboxTransaction) (bool, error)
	// AddInboxImage links an image to an inbox transaction. It reports false
	// when the link already existed.
	AddInboxImage(ctx context.Context, link *model.InboxImage) (bool, error)
	// IncrementInboxReceived advances the received image count by one and
	// returns the updated row.
	IncrementInboxReceived(ctx context.Context, id uint) (*model.InboxTransaction, error)
	UpdateInboxTotal(ctx context.Context, id uint, total int64) error
	GetInboxTransaction(ctx context.Context, remoteBoxID uint, transactionID int64) (*model.InboxTransaction, error)
	ListInboxTransactions(ctx context.Context) ([]*model.InboxTransaction, error)
	ListInboxImages(ctx context.Context, inboxTransactionID uint) ([]*model.InboxImage, error)
}

type BoxStore interface {
	CreateBox(ctx context.Context, box *model.Box) error
	GetBox(ctx context.Context, id uint) (*model.Box, error)
	GetBoxByName(ctx context.Context, name string) (*model.Box, error)
	ListBoxes(ctx context.Context) ([]*model.Box, error)
	DeleteBox(ctx context.Context, id uint) error
	UpdateBoxOnline(ctx context.Context, id uint, online bool) error
}

type AnonymizationStore interface {
	CreateAnonymizationKey(ctx context.Context, key *model.AnonymizationKey) error
	// FindAnonymizationKeys returns the keys recorded for an anonymized
	// patient, newest first.
	FindAnonymizationKeys(ctx context.Context, anonPatientID, anonPatientName string) ([]*model.AnonymizationKey, error)
}
