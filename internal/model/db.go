package model

import "gorm.io/gorm"

func Migrate(db *gorm.DB) error {
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return err
		}
	}

	if err := db.AutoMigrate(&Document{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&Version{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&CorpusEntry{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&Reference{}); err != nil {
		return err
	}

	return nil
}
