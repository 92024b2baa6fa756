package models

import "time"

type MigrationRun struct {
	ID                string  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Strategy          string  `gorm:"type:text;not null"`
	Status            string  `gorm:"type:text;not null"`
	ProgressTotal     int64   `gorm:"not null;default:0"`
	ProgressProcessed int64   `gorm:"not null;default:0"`
	MigratedCount     int64   `gorm:"not null;default:0"`
	SkippedCount      int64   `gorm:"not null;default:0"`
	FailedCount       int64   `gorm:"not null;default:0"`
	Attempts          int     `gorm:"not null;default:0"`
	MaxAttempts       int     `gorm:"not null;default:3"`
	Report            []byte  `gorm:"type:jsonb"`
	ErrorMessage      *string `gorm:"type:text"`
	LeaseOwner        *string `gorm:"type:text"`
	HeartbeatAt       *time.Time
	LeaseExpiresAt    *time.Time
	StartedAt         *time.Time
	FinishedAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (MigrationRun) TableName() string {
	return "migration_runs"
}
