package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store wraps the SQLite database. Callers construct one with Open and hold
// the reference; there is no package-level connection.
type Store struct {
	gorm *gorm.DB
}

// Open connects to the SQLite database at path and migrates the schema.
// Foreign keys are enforced on every pooled connection via the DSN pragma.
func Open(path string) (*Store, error) {
	newLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      false,
			Colorful:                  true,
		},
	)

	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)"
	gdb, err := gorm.Open(gormlite.Open(dsn), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	if path == ":memory:" {
		// A pooled in-memory database would be one database per connection.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(4)
		sqlDB.SetMaxIdleConns(4)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := gdb.AutoMigrate(&Game{}, &DetectedLibrary{}, &BackupRecord{}, &UpdateHistoryEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}

	return &Store{gorm: gdb}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ===== Game operations =====

// UpsertGame creates or refreshes a game row keyed by install path.
func (s *Store) UpsertGame(game *Game) error {
	var existing Game
	result := s.gorm.Where("path = ?", game.Path).First(&existing)
	if result.Error == nil {
		existing.Name = game.Name
		existing.Launcher = game.Launcher
		if game.StoreID != "" {
			existing.StoreID = game.StoreID
		}
		existing.LastScanned = game.LastScanned
		if err := s.gorm.Save(&existing).Error; err != nil {
			return err
		}
		*game = existing
		return nil
	}
	if result.Error != gorm.ErrRecordNotFound {
		return result.Error
	}
	return s.gorm.Create(game).Error
}

func (s *Store) GameByID(id uint) (*Game, error) {
	var game Game
	if err := s.gorm.First(&game, id).Error; err != nil {
		return nil, err
	}
	return &game, nil
}

// GamesByLauncher returns all games grouped by launcher name.
func (s *Store) GamesByLauncher() (map[string][]Game, error) {
	var games []Game
	if err := s.gorm.Order("launcher, name").Find(&games).Error; err != nil {
		return nil, err
	}
	grouped := make(map[string][]Game)
	for _, g := range games {
		grouped[g.Launcher] = append(grouped[g.Launcher], g)
	}
	return grouped, nil
}

// DeleteAllGames removes every game and, through the cascade constraints,
// every detected library, backup record and history row.
func (s *Store) DeleteAllGames(ctx context.Context) error {
	return s.gorm.WithContext(ctx).Unscoped().Where("1 = 1").Delete(&Game{}).Error
}

// MergeDuplicateGames collapses games sharing (name, launcher) into the entry
// with the shortest path, re-parenting the duplicates' libraries before the
// duplicate rows are removed. Returns the number of rows merged away.
func (s *Store) MergeDuplicateGames(ctx context.Context) (int, error) {
	var games []Game
	if err := s.gorm.WithContext(ctx).Find(&games).Error; err != nil {
		return 0, err
	}

	groups := make(map[string][]Game)
	for _, g := range games {
		key := g.Name + "\x00" + g.Launcher
		groups[key] = append(groups[key], g)
	}

	merged := 0
	err := s.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, group := range groups {
			if len(group) < 2 {
				continue
			}
			sort.Slice(group, func(i, j int) bool {
				if len(group[i].Path) != len(group[j].Path) {
					return len(group[i].Path) < len(group[j].Path)
				}
				return group[i].Path < group[j].Path
			})
			keep := group[0]
			for _, dup := range group[1:] {
				if err := tx.Model(&DetectedLibrary{}).
					Where("game_id = ?", dup.ID).
					Update("game_id", keep.ID).Error; err != nil {
					return err
				}
				if err := tx.Unscoped().Delete(&Game{}, dup.ID).Error; err != nil {
					return err
				}
				merged++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return merged, nil
}

// ===== DetectedLibrary operations =====

// UpsertLibrary creates or refreshes a library row keyed by file path, so a
// re-scan of an unchanged filesystem never duplicates rows.
func (s *Store) UpsertLibrary(lib *DetectedLibrary) error {
	var existing DetectedLibrary
	result := s.gorm.Where("path = ?", lib.Path).First(&existing)
	if result.Error == nil {
		existing.GameID = lib.GameID
		existing.Type = lib.Type
		existing.Filename = lib.Filename
		existing.CurrentVersion = lib.CurrentVersion
		if err := s.gorm.Save(&existing).Error; err != nil {
			return err
		}
		*lib = existing
		return nil
	}
	if result.Error != gorm.ErrRecordNotFound {
		return result.Error
	}
	if lib.DetectedAt.IsZero() {
		lib.DetectedAt = time.Now()
	}
	return s.gorm.Create(lib).Error
}

func (s *Store) LibraryByID(id uint) (*DetectedLibrary, error) {
	var lib DetectedLibrary
	if err := s.gorm.First(&lib, id).Error; err != nil {
		return nil, err
	}
	return &lib, nil
}

func (s *Store) LibraryByPath(path string) (*DetectedLibrary, error) {
	var lib DetectedLibrary
	if err := s.gorm.Where("path = ?", path).First(&lib).Error; err != nil {
		return nil, err
	}
	return &lib, nil
}

// LibrariesForGame returns a game's libraries in detection order.
func (s *Store) LibrariesForGame(gameID uint) ([]DetectedLibrary, error) {
	var libs []DetectedLibrary
	err := s.gorm.Where("game_id = ?", gameID).Order("id").Find(&libs).Error
	return libs, err
}

// LibrariesOrdered returns libraries in stable (game, detection) order,
// optionally restricted to one game or a set of library types. A re-run over
// an unchanged database yields an identical ordering.
func (s *Store) LibrariesOrdered(gameID *uint, types []string) ([]DetectedLibrary, error) {
	q := s.gorm.Order("game_id, id")
	if gameID != nil {
		q = q.Where("game_id = ?", *gameID)
	}
	if len(types) > 0 {
		q = q.Where("type IN ?", types)
	}
	var libs []DetectedLibrary
	err := q.Find(&libs).Error
	return libs, err
}

// SetLibraryVersion records the installed version after a replacement or
// restore. Pass nil when the version is unreadable.
func (s *Store) SetLibraryVersion(id uint, version *string) error {
	return s.gorm.Model(&DetectedLibrary{}).Where("id = ?", id).
		Update("current_version", version).Error
}

// ===== BackupRecord operations =====

// InsertBackup flips any previously active backups for the same library to
// inactive and inserts the new active record, as one transaction.
func (s *Store) InsertBackup(rec *BackupRecord) error {
	return s.gorm.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&BackupRecord{}).
			Where("library_id = ? AND is_active = ?", rec.LibraryID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		rec.IsActive = true
		return tx.Create(rec).Error
	})
}

func (s *Store) BackupByID(id uint) (*BackupRecord, error) {
	var rec BackupRecord
	if err := s.gorm.First(&rec, id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// ActiveBackups returns every active backup record.
func (s *Store) ActiveBackups() ([]BackupRecord, error) {
	var recs []BackupRecord
	err := s.gorm.Where("is_active = ?", true).Order("library_id, id").Find(&recs).Error
	return recs, err
}

// ActiveBackupsForGame returns the active backups for a game's libraries, in
// detection order.
func (s *Store) ActiveBackupsForGame(gameID uint) ([]BackupRecord, error) {
	var recs []BackupRecord
	err := s.gorm.
		Joins("JOIN detected_libraries ON detected_libraries.id = backup_records.library_id").
		Where("detected_libraries.game_id = ? AND backup_records.is_active = ?", gameID, true).
		Order("backup_records.library_id, backup_records.id").
		Find(&recs).Error
	return recs, err
}

// ActiveBackupForLibrary returns the single active backup for a library, or
// gorm.ErrRecordNotFound.
func (s *Store) ActiveBackupForLibrary(libraryID uint) (*BackupRecord, error) {
	var rec BackupRecord
	err := s.gorm.Where("library_id = ? AND is_active = ?", libraryID, true).
		Order("id DESC").First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) MarkBackupInactive(id uint) error {
	return s.gorm.Model(&BackupRecord{}).Where("id = ?", id).
		Update("is_active", false).Error
}

// DeactivateAllBackups is the "clear backups" operation: a mass flip to
// inactive, never a row deletion.
func (s *Store) DeactivateAllBackups(ctx context.Context) (int64, error) {
	result := s.gorm.WithContext(ctx).Model(&BackupRecord{}).
		Where("is_active = ?", true).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}

// ===== UpdateHistoryEntry operations =====

// RecordHistory appends one immutable audit row. History is never updated.
func (s *Store) RecordHistory(entry *UpdateHistoryEntry) error {
	return s.gorm.Create(entry).Error
}

func (s *Store) HistoryForLibrary(libraryID uint) ([]UpdateHistoryEntry, error) {
	var entries []UpdateHistoryEntry
	err := s.gorm.Where("library_id = ?", libraryID).Order("id").Find(&entries).Error
	return entries, err
}

// CountRows is a test/diagnostic helper counting live rows of a model,
// ignoring soft-delete markers.
func (s *Store) CountRows(model interface{}) (int64, error) {
	var n int64
	err := s.gorm.Unscoped().Model(model).Count(&n).Error
	return n, err
}
