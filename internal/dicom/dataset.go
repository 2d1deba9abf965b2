package dicom

import "strings"

// Attribute keywords read and written by the sync core.
const (
	PatientName            = "PatientName"
	PatientID              = "PatientID"
	IssuerOfPatientID      = "IssuerOfPatientID"
	PatientBirthDate       = "PatientBirthDate"
	PatientSex             = "PatientSex"
	PatientIdentityRemoved = "PatientIdentityRemoved"
	StudyInstanceUID       = "StudyInstanceUID"
	StudyDate              = "StudyDate"
	StudyDescription       = "StudyDescription"
	AccessionNumber        = "AccessionNumber"
	SeriesInstanceUID      = "SeriesInstanceUID"
	Modality               = "Modality"
	SeriesDescription      = "SeriesDescription"
	BodyPartExamined       = "BodyPartExamined"
	Manufacturer           = "Manufacturer"
	StationName            = "StationName"
	FrameOfReferenceUID    = "FrameOfReferenceUID"
	SOPInstanceUID         = "SOPInstanceUID"
	SOPClassUID            = "SOPClassUID"
	InstanceNumber         = "InstanceNumber"
	TransferSyntaxUID      = "TransferSyntaxUID"
)

// Dataset is a parsed image dataset: its attributes by keyword plus the
// opaque pixel data.
type Dataset struct {
	Attributes map[string]string `json:"attributes"`
	PixelData  []byte            `json:"pixelData,omitempty"`
}

func NewDataset() *Dataset {
	return &Dataset{Attributes: make(map[string]string)}
}

// Get returns the trimmed value of an attribute, or "" when absent.
func (d *Dataset) Get(keyword string) string {
	if d == nil || d.Attributes == nil {
		return ""
	}
	return strings.TrimSpace(d.Attributes[keyword])
}

func (d *Dataset) Set(keyword, value string) {
	if d.Attributes == nil {
		d.Attributes = make(map[string]string)
	}
	d.Attributes[keyword] = value
}

func (d *Dataset) Clone() *Dataset {
	clone := &Dataset{Attributes: make(map[string]string, len(d.Attributes))}
	for k, v := range d.Attributes {
		clone.Attributes[k] = v
	}
	if d.PixelData != nil {
		clone.PixelData = append([]byte(nil), d.PixelData...)
	}
	return clone
}
