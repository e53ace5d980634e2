package db

import (
	"time"

	"gorm.io/gorm"
)

// Game represents one discovered game installation. The install path is the
// identity key: re-scanning upserts by path.
type Game struct {
	gorm.Model
	Name        string `gorm:"index:idx_games_name_launcher"`
	Path        string `gorm:"uniqueIndex"`
	Launcher    string `gorm:"index:idx_games_name_launcher"`
	StoreID     string // platform store identifier (e.g. Steam app id), optional
	LastScanned time.Time

	Libraries []DetectedLibrary `gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE"`
}

// DetectedLibrary is one upscaler/frame-generation library file found inside
// a game. CurrentVersion is nil when the file version could not be read.
type DetectedLibrary struct {
	gorm.Model
	GameID         uint   `gorm:"index"`
	Type           string `gorm:"index"` // dll.Type value
	Filename       string
	Path           string `gorm:"uniqueIndex"`
	CurrentVersion *string
	DetectedAt     time.Time

	Backups []BackupRecord       `gorm:"foreignKey:LibraryID;constraint:OnDelete:CASCADE"`
	History []UpdateHistoryEntry `gorm:"foreignKey:LibraryID;constraint:OnDelete:CASCADE"`
}

// BackupRecord is a snapshot of a library file taken before an update. At
// most one record per library is active; superseding backups flip the old
// record inactive instead of deleting it.
type BackupRecord struct {
	gorm.Model
	LibraryID       uint `gorm:"index"`
	BackupPath      string
	OriginalVersion *string
	Size            int64
	IsActive        bool `gorm:"index"`
}

// UpdateHistoryEntry is the append-only journal of update attempts. Rows are
// only ever inserted.
type UpdateHistoryEntry struct {
	gorm.Model
	LibraryID   uint `gorm:"index"`
	FromVersion *string
	ToVersion   *string
	Success     bool
}
