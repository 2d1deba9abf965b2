package dicom

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedDataset is returned when a dataset lacks an attribute that
	// a level of the hierarchy needs for its natural key.
	ErrMalformedDataset = errors.New("malformed dataset")
)

type PatientKey struct {
	Identifier string
	Name       string
	Issuer     string
}

type EquipmentKey struct {
	Manufacturer string
	StationName  string
}

// Keys holds the natural key of every hierarchy level a dataset resolves to.
// Equipment and FrameOfReferenceUID are optional and left empty when the
// dataset does not carry them.
type Keys struct {
	Patient             PatientKey
	StudyInstanceUID    string
	SeriesInstanceUID   string
	SOPInstanceUID      string
	Equipment           *EquipmentKey
	FrameOfReferenceUID string
}

// ExtractKeys resolves the natural keys of ds top-down.
func ExtractKeys(ds *Dataset) (*Keys, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: empty dataset", ErrMalformedDataset)
	}

	keys := &Keys{
		Patient: PatientKey{
			Identifier: ds.Get(PatientID),
			Name:       ds.Get(PatientName),
			Issuer:     ds.Get(IssuerOfPatientID),
		},
		StudyInstanceUID:    ds.Get(StudyInstanceUID),
		SeriesInstanceUID:   ds.Get(SeriesInstanceUID),
		SOPInstanceUID:      ds.Get(SOPInstanceUID),
		FrameOfReferenceUID: ds.Get(FrameOfReferenceUID),
	}

	if keys.Patient.Identifier == "" {
		return nil, missing(PatientID)
	}
	if keys.StudyInstanceUID == "" {
		return nil, missing(StudyInstanceUID)
	}
	if keys.SeriesInstanceUID == "" {
		return nil, missing(SeriesInstanceUID)
	}
	if keys.SOPInstanceUID == "" {
		return nil, missing(SOPInstanceUID)
	}

	manufacturer, station := ds.Get(Manufacturer), ds.Get(StationName)
	if manufacturer != "" || station != "" {
		keys.Equipment = &EquipmentKey{Manufacturer: manufacturer, StationName: station}
	}

	return keys, nil
}

func missing(keyword string) error {
	return fmt.Errorf("%w: missing %s", ErrMalformedDataset, keyword)
}
