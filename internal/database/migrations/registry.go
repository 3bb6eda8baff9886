package migrations

import (
	"gorm.io/gorm"

	"github.com/jmylchreest/miraview/internal/models"
)

// AllMigrations returns all migrations in order.
func AllMigrations() []Migration {
	return []Migration{
		migration001Snapshots(),
	}
}

func migration001Snapshots() Migration {
	return Migration{
		Version:     "001",
		Description: "Create snapshots table",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&models.Snapshot{})
		},
	}
}
