package model

import "time"

// AnonymizationKey maps the identifiers written by de-identification back to
// the originals, so that datasets returning to this box can be restored.
type AnonymizationKey struct {
	ID                    uint   `gorm:"primaryKey"`
	PatientName           string `gorm:"not null"`
	AnonPatientName       string `gorm:"not null;index:idx_anonymization_keys_anon_patient,priority:2"`
	PatientID             string `gorm:"not null"`
	AnonPatientID         string `gorm:"not null;index:idx_anonymization_keys_anon_patient,priority:1"`
	StudyInstanceUID      string
	AnonStudyInstanceUID  string `gorm:"index"`
	SeriesInstanceUID     string
	AnonSeriesInstanceUID string
	CreatedAt             time.Time `gorm:"autoCreateTime"`
}

func (AnonymizationKey) TableName() string {
	return "anonymization_keys"
}
