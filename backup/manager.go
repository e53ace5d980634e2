package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dlss-updater/db"

	"go.uber.org/zap"
)

// ErrBackupFileMissing means the metadata row exists but the snapshot file
// is gone from disk. This is reported distinctly from "no backup exists".
var ErrBackupFileMissing = errors.New("backup file missing on disk")

// Manager snapshots library files before updates and restores them on
// demand. Snapshot files live under a deterministic per-game, per-type
// sub-path of the backup directory.
type Manager struct {
	store *db.Store
	dir   string
	log   *zap.SugaredLogger
}

func NewManager(store *db.Store, dir string, log *zap.SugaredLogger) *Manager {
	return &Manager{store: store, dir: dir, log: log}
}

// Backup copies the library's live file into the backup namespace and
// records it. The metadata write flips any previously active record for the
// same library to inactive in the same transaction. A failed copy creates no
// record and leaves the prior active record untouched.
func (m *Manager) Backup(game *db.Game, lib *db.DetectedLibrary) (*db.BackupRecord, error) {
	dest := filepath.Join(m.dir, sanitize(game.Name), sanitize(lib.Type), lib.Filename)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	srcInfo, err := os.Stat(lib.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %q: %w", lib.Path, err)
	}
	if err := CopyFile(lib.Path, dest); err != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("failed to copy %q to backup: %w", lib.Path, err)
	}
	destInfo, err := os.Stat(dest)
	if err != nil || destInfo.Size() != srcInfo.Size() {
		os.Remove(dest)
		return nil, fmt.Errorf("backup size verification failed for %q", lib.Path)
	}

	rec := &db.BackupRecord{
		LibraryID:       lib.ID,
		BackupPath:      dest,
		OriginalVersion: lib.CurrentVersion,
		Size:            destInfo.Size(),
	}
	if err := m.store.InsertBackup(rec); err != nil {
		return nil, fmt.Errorf("failed to record backup: %w", err)
	}

	m.log.Infow("Created backup",
		zap.String("file", lib.Filename),
		zap.String("backup_path", dest),
		zap.Int64("size", destInfo.Size()),
	)
	return rec, nil
}

// Restore copies a backup back over the live path. It fails closed: when
// the snapshot file vanished the record is flipped inactive and
// ErrBackupFileMissing is returned without touching the live file; the copy
// itself lands via a rename so a failure never leaves a half-written target.
func (m *Manager) Restore(backupID uint) error {
	rec, err := m.store.BackupByID(backupID)
	if err != nil {
		return fmt.Errorf("backup %d not found: %w", backupID, err)
	}
	lib, err := m.store.LibraryByID(rec.LibraryID)
	if err != nil {
		return fmt.Errorf("library for backup %d not found: %w", backupID, err)
	}

	if _, err := os.Stat(rec.BackupPath); err != nil {
		if markErr := m.store.MarkBackupInactive(rec.ID); markErr != nil {
			m.log.Warnw("Failed to deactivate backup with missing file", zap.Error(markErr))
		}
		return fmt.Errorf("%w: %s", ErrBackupFileMissing, rec.BackupPath)
	}

	staging := lib.Path + ".restore"
	if err := CopyFile(rec.BackupPath, staging); err != nil {
		os.Remove(staging)
		return fmt.Errorf("failed to stage restore for %q: %w", lib.Path, err)
	}
	if err := os.Rename(staging, lib.Path); err != nil {
		os.Remove(staging)
		return fmt.Errorf("failed to restore %q: %w", lib.Path, err)
	}

	if err := m.store.SetLibraryVersion(lib.ID, rec.OriginalVersion); err != nil {
		m.log.Warnw("Failed to update restored library version", zap.Error(err))
	}
	if err := m.store.MarkBackupInactive(rec.ID); err != nil {
		m.log.Warnw("Failed to deactivate restored backup", zap.Error(err))
	}

	m.log.Infow("Restored backup",
		zap.String("file", lib.Filename),
		zap.String("path", lib.Path),
	)
	return nil
}

// RestoreResult is one library's outcome from RestoreAll.
type RestoreResult struct {
	BackupID  uint
	LibraryID uint
	Filename  string
	Err       error
}

// RestoreAll sequentially restores every active backup of a game,
// continuing past individual failures.
func (m *Manager) RestoreAll(gameID uint) ([]RestoreResult, error) {
	recs, err := m.store.ActiveBackupsForGame(gameID)
	if err != nil {
		return nil, err
	}
	results := make([]RestoreResult, 0, len(recs))
	for _, rec := range recs {
		result := RestoreResult{BackupID: rec.ID, LibraryID: rec.LibraryID}
		if lib, err := m.store.LibraryByID(rec.LibraryID); err == nil {
			result.Filename = lib.Filename
		}
		result.Err = m.Restore(rec.ID)
		results = append(results, result)
	}
	return results, nil
}

// Delete flips the record inactive; removing the snapshot file is
// best-effort and never fails the metadata operation.
func (m *Manager) Delete(backupID uint) error {
	rec, err := m.store.BackupByID(backupID)
	if err != nil {
		return fmt.Errorf("backup %d not found: %w", backupID, err)
	}
	if err := m.store.MarkBackupInactive(rec.ID); err != nil {
		return err
	}
	if err := os.Remove(rec.BackupPath); err != nil && !os.IsNotExist(err) {
		m.log.Warnw("Failed to remove backup file", zap.String("path", rec.BackupPath), zap.Error(err))
	}
	return nil
}

// ClearAll flips every active record inactive and best-effort removes the
// snapshot files. History rows are never deleted.
func (m *Manager) ClearAll(ctx context.Context) (int64, error) {
	recs, err := m.store.ActiveBackups()
	if err != nil {
		return 0, err
	}
	cleared, err := m.store.DeactivateAllBackups(ctx)
	if err != nil {
		return 0, err
	}
	for _, rec := range recs {
		if err := os.Remove(rec.BackupPath); err != nil && !os.IsNotExist(err) {
			m.log.Warnw("Failed to remove backup file", zap.String("path", rec.BackupPath), zap.Error(err))
		}
	}
	return cleared, nil
}

// CopyFile copies src to dst byte for byte, syncing before close.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// sanitize keeps backup sub-paths safe for any filesystem.
func sanitize(name string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_",
		"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_",
	)
	cleaned := strings.TrimSpace(replacer.Replace(name))
	if cleaned == "" {
		return "_"
	}
	return cleaned
}
