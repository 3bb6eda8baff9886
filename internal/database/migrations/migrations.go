// Package migrations applies versioned schema changes to the snapshot store.
package migrations

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"gorm.io/gorm"
)

// Migration is a single schema change.
type Migration struct {
	Version     string
	Description string
	Up          func(tx *gorm.DB) error
}

// MigrationRecord tracks an applied migration.
type MigrationRecord struct {
	ID          uint      `gorm:"primarykey"`
	Version     string    `gorm:"uniqueIndex;size:32;not null"`
	Description string    `gorm:"not null"`
	AppliedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for migration records.
func (MigrationRecord) TableName() string {
	return "schema_migrations"
}

// MigrationStatus reports whether a migration has been applied.
type MigrationStatus struct {
	Version     string
	Description string
	AppliedAt   *time.Time
}

// Migrator applies registered migrations in version order.
type Migrator struct {
	db         *gorm.DB
	logger     *slog.Logger
	migrations []Migration
}

// NewMigrator creates a new Migrator instance.
func NewMigrator(db *gorm.DB, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{db: db, logger: logger}
}

// RegisterAll adds migrations to the registry.
func (m *Migrator) RegisterAll(migrations []Migration) {
	m.migrations = append(m.migrations, migrations...)
	slices.SortFunc(m.migrations, func(a, b Migration) int {
		return cmp.Compare(a.Version, b.Version)
	})
}

// Up applies all pending migrations, each in its own transaction.
func (m *Migrator) Up(ctx context.Context) error {
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if _, ok := applied[migration.Version]; ok {
			continue
		}

		m.logger.InfoContext(ctx, "applying migration",
			slog.String("version", migration.Version),
			slog.String("description", migration.Description),
		)

		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return err
			}
			return tx.Create(&MigrationRecord{
				Version:     migration.Version,
				Description: migration.Description,
				AppliedAt:   time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return fmt.Errorf("applying migration %s: %w", migration.Version, err)
		}
	}

	return nil
}

// Status returns the status of every registered migration.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(m.migrations))
	for _, migration := range m.migrations {
		status := MigrationStatus{Version: migration.Version, Description: migration.Description}
		if record, ok := applied[migration.Version]; ok {
			status.AppliedAt = &record.AppliedAt
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func (m *Migrator) applied(ctx context.Context) (map[string]MigrationRecord, error) {
	if err := m.db.WithContext(ctx).AutoMigrate(&MigrationRecord{}); err != nil {
		return nil, fmt.Errorf("initializing migrations table: %w", err)
	}

	var records []MigrationRecord
	if err := m.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("getting applied migrations: %w", err)
	}

	applied := make(map[string]MigrationRecord, len(records))
	for _, record := range records {
		applied[record.Version] = record
	}
	return applied, nil
}
