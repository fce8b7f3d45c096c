package db

import (
	"degenecho/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Poll{},
		&models.Bet{},
		&models.Account{},
		&models.Transfer{},
		&models.PollEvent{},
	)
}
