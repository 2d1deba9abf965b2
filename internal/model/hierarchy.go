package model

import "time"

// Level names one tier of the patient -> study -> series -> image index.
type Level string

const (
	LevelPatient Level = "patient"
	LevelStudy   Level = "study"
	LevelSeries  Level = "series"
	LevelImage   Level = "image"
)

// Patient is keyed by (identifier, name, issuer).
type Patient struct {
	ID         uint   `gorm:"primaryKey"`
	Identifier string `gorm:"not null;uniqueIndex:ux_patients_key,priority:1"`
	Name       string `gorm:"not null;uniqueIndex:ux_patients_key,priority:2"`
	Issuer     string `gorm:"not null;uniqueIndex:ux_patients_key,priority:3"`
	BirthDate  string
	Sex        string
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (Patient) TableName() string {
	return "patients"
}

type Study struct {
	ID               uint   `gorm:"primaryKey"`
	PatientID        uint   `gorm:"not null;index"`
	StudyInstanceUID string `gorm:"not null;uniqueIndex"`
	StudyDate        string
	StudyDescription string
	AccessionNumber  string
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

func (Study) TableName() string {
	return "studies"
}

// Equipment is keyed by (manufacturer, station name).
type Equipment struct {
	ID           uint      `gorm:"primaryKey"`
	Manufacturer string    `gorm:"not null;uniqueIndex:ux_equipments_key,priority:1"`
	StationName  string    `gorm:"not null;uniqueIndex:ux_equipments_key,priority:2"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (Equipment) TableName() string {
	return "equipments"
}

type FrameOfReference struct {
	ID                  uint      `gorm:"primaryKey"`
	FrameOfReferenceUID string    `gorm:"not null;uniqueIndex"`
	CreatedAt           time.Time `gorm:"autoCreateTime"`
}

func (FrameOfReference) TableName() string {
	return "frames_of_reference"
}

// Series references its study and, when the dataset carries them, the
// equipment and frame of reference it was acquired with.
type Series struct {
	ID                 uint   `gorm:"primaryKey"`
	StudyID            uint   `gorm:"not null;index"`
	EquipmentID        *uint  `gorm:"index"`
	FrameOfReferenceID *uint  `gorm:"index"`
	SeriesInstanceUID  string `gorm:"not null;uniqueIndex"`
	Modality           string
	SeriesDescription  string
	BodyPartExamined   string
	CreatedAt          time.Time `gorm:"autoCreateTime"`
}

func (Series) TableName() string {
	return "series"
}

// Image is a single stored instance. FilePath is the content-addressed
// reference of its payload file, derived from SOPInstanceUID.
type Image struct {
	ID             uint   `gorm:"primaryKey"`
	SeriesID       uint   `gorm:"not null;index"`
	SOPInstanceUID string `gorm:"not null;uniqueIndex"`
	SOPClassUID    string `gorm:"not null"`
	InstanceNumber string
	FilePath       string    `gorm:"not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (Image) TableName() string {
	return "images"
}
