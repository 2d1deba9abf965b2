package model

import "gorm.io/gorm"

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Box{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&Patient{}, &Study{}, &Equipment{}, &FrameOfReference{}, &Series{}, &Image{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&InboxTransaction{}, &InboxImage{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&AnonymizationKey{}); err != nil {
		return err
	}

	return nil
}
