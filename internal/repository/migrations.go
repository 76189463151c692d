package repository

import (
	"embed"
	"fmt"
	"io/fs"

	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the SQL migrations rooted at the directory holding them.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(fmt.Sprintf("embedded migrations missing: %v", err))
	}
	return sub
}

// AutoMigrate creates the tables from the gorm models. On PostgreSQL it also
// installs the overlap exclusion constraint that AutoMigrate cannot express.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&VehicleModel{}, &BookingModel{}, &SnapshotModel{}); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS btree_gist`,
		`DO $$ BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'bookings_no_overlap') THEN
				ALTER TABLE bookings ADD CONSTRAINT bookings_no_overlap
				EXCLUDE USING gist (vehicle_id WITH =, tstzrange(start_at, end_at, '[)') WITH &&)
				WHERE (status <> 'cancelled');
			END IF;
		END $$`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to install booking constraints: %w", err)
		}
	}
	return nil
}
