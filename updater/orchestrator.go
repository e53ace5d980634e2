package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"dlss-updater/backup"
	"dlss-updater/config"
	"dlss-updater/db"
	"dlss-updater/dll"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrRunInProgress guards the single in-flight run: overlapping batches must
// never race on the same live files.
var ErrRunInProgress = errors.New("an update run is already in progress")

// Source supplies the replacement file and latest version for a library
// filename. ok is false when no replacement is available.
type Source interface {
	Latest(filename string) (version, path string, ok bool)
}

// Progress receives (current, total, message) as libraries are processed.
// It is invoked from the run's own goroutine; callers marshal it into their
// presentation layer.
type Progress func(current, total int, message string)

// Selection narrows a run to one game, one technology group, or an explicit
// library subset. The zero value selects every detected library.
type Selection struct {
	GameID           *uint
	Technology       string
	LibraryIDs       []uint
	IgnoreExclusions bool
}

// Orchestrator drives scan results through backup, replacement and
// record-keeping. It is the only component that writes live game files.
type Orchestrator struct {
	store   *db.Store
	backups *backup.Manager
	source  Source
	cfg     *config.Config
	log     *zap.SugaredLogger
	running atomic.Bool

	// replaceFile performs the live-file overwrite; swapped in tests to
	// force replacement failures.
	replaceFile func(src, dst string) error
}

func New(store *db.Store, backups *backup.Manager, source Source, cfg *config.Config, log *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{
		store:       store,
		backups:     backups,
		source:      source,
		cfg:         cfg,
		log:         log,
		replaceFile: backup.CopyFile,
	}
}

// Run executes one best-effort sweep over the selected libraries. A failure
// on one library never aborts the batch; every processed library lands in
// the report as updated, skipped or failed with a reason. Cancellation is
// checked between libraries only, never mid-copy.
func (o *Orchestrator) Run(ctx context.Context, sel Selection, progress Progress) (*RunReport, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer o.running.Store(false)

	var types []string
	if sel.Technology != "" {
		for _, t := range dll.TypesForGroup(sel.Technology) {
			types = append(types, string(t))
		}
		if len(types) == 0 {
			return nil, fmt.Errorf("unknown technology group %q", sel.Technology)
		}
	}

	libs, err := o.store.LibrariesOrdered(sel.GameID, types)
	if err != nil {
		return nil, fmt.Errorf("failed to load libraries: %w", err)
	}
	if len(sel.LibraryIDs) > 0 {
		wanted := make(map[uint]bool, len(sel.LibraryIDs))
		for _, id := range sel.LibraryIDs {
			wanted[id] = true
		}
		filtered := libs[:0]
		for _, lib := range libs {
			if wanted[lib.ID] {
				filtered = append(filtered, lib)
			}
		}
		libs = filtered
	}

	report := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	games := make(map[uint]*db.Game)

	total := len(libs)
	for i, lib := range libs {
		select {
		case <-ctx.Done():
			report.FinishedAt = time.Now()
			return report, ctx.Err()
		default:
		}
		if progress != nil {
			progress(i+1, total, fmt.Sprintf("Processing %s", lib.Filename))
		}

		game, ok := games[lib.GameID]
		if !ok {
			game, err = o.store.GameByID(lib.GameID)
			if err != nil {
				report.add(Outcome{
					LibraryID: lib.ID,
					Filename:  lib.Filename,
					Status:    StatusFailed,
					Reason:    "owning game record missing",
				})
				continue
			}
			games[lib.GameID] = game
		}

		report.add(o.processLibrary(game, &lib, sel))
	}

	report.FinishedAt = time.Now()
	o.log.Infow("Update run finished",
		zap.String("run_id", report.RunID),
		zap.Int("updated", len(report.Updated)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("failed", len(report.Failed)),
	)
	return report, nil
}

func (o *Orchestrator) processLibrary(game *db.Game, lib *db.DetectedLibrary, sel Selection) Outcome {
	outcome := Outcome{
		LibraryID: lib.ID,
		GameName:  game.Name,
		Filename:  lib.Filename,
		Type:      lib.Type,
	}
	if lib.CurrentVersion != nil {
		outcome.FromVersion = *lib.CurrentVersion
	}
	log := o.log.With(zap.String("game", game.Name), zap.String("file", lib.Filename))

	if !sel.IgnoreExclusions && o.cfg.GameExcluded(game.Name, game.Path) {
		outcome.Status = StatusSkipped
		outcome.Reason = "game is on the exclusion list"
		return outcome
	}

	info := dll.Classify(lib.Filename)
	if info.Type == dll.TypeUnknown {
		outcome.Status = StatusSkipped
		outcome.Reason = "unrecognized library type"
		return outcome
	}
	group := dll.TechnologyGroup(info.Type)
	if !o.cfg.TechnologyEnabled(group) {
		outcome.Status = StatusSkipped
		outcome.Reason = fmt.Sprintf("%s updates disabled in preferences", group)
		return outcome
	}

	if lib.CurrentVersion == nil {
		outcome.Status = StatusSkipped
		outcome.Reason = "installed version unreadable, needs manual review"
		return outcome
	}

	latest, sourcePath, ok := o.source.Latest(lib.Filename)
	outcome.ToVersion = latest
	if latest == "" {
		outcome.Status = StatusSkipped
		outcome.Reason = "no latest version known for this library"
		return outcome
	}
	if !ok {
		outcome.Status = StatusSkipped
		outcome.Reason = "no replacement file available in the local repository"
		return outcome
	}

	decision, err := dll.UpdateDecision(info.Type, *lib.CurrentVersion, latest)
	if errors.Is(err, dll.ErrUnparsableVersion) {
		outcome.Status = StatusSkipped
		outcome.Reason = "unparsable version string, needs manual review"
		return outcome
	}
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Reason = err.Error()
		return outcome
	}
	switch decision {
	case dll.DecisionBelowFloor:
		outcome.Status = StatusSkipped
		outcome.Reason = "below the DLSS 2.0 compatibility floor"
		return outcome
	case dll.DecisionUpToDate:
		outcome.Status = StatusSkipped
		outcome.Reason = "already up to date"
		return outcome
	}

	var snapshot *db.BackupRecord
	if o.cfg.BackupOnUpdate {
		snapshot, err = o.backups.Backup(game, lib)
		if err != nil {
			log.Errorw("Backup failed, leaving library untouched", zap.Error(err))
			o.recordHistory(lib, latest, false)
			outcome.Status = StatusFailed
			outcome.Reason = fmt.Sprintf("backup failed: %v", err)
			return outcome
		}
	} else {
		log.Info("Backup creation disabled by user preference")
	}

	if err := o.replace(sourcePath, lib.Path); err != nil {
		log.Errorw("Replacement failed", zap.Error(err))
		o.rollback(snapshot, lib, log)
		o.recordHistory(lib, latest, false)
		outcome.Status = StatusFailed
		outcome.Reason = fmt.Sprintf("replacement failed, rolled back: %v", err)
		return outcome
	}

	if err := o.store.SetLibraryVersion(lib.ID, &latest); err != nil {
		log.Warnw("Failed to record new library version", zap.Error(err))
	}
	o.recordHistory(lib, latest, true)

	log.Infow("Updated library",
		zap.String("from", outcome.FromVersion),
		zap.String("to", latest),
	)
	outcome.Status = StatusUpdated
	return outcome
}

// replace overwrites the live file and verifies the result is present and
// non-empty.
func (o *Orchestrator) replace(sourcePath, livePath string) error {
	if err := o.replaceFile(sourcePath, livePath); err != nil {
		return err
	}
	info, err := os.Stat(livePath)
	if err != nil {
		return fmt.Errorf("replaced file missing: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("replaced file is empty")
	}
	return nil
}

// rollback puts the pre-update snapshot back without touching its metadata
// row, so the backup stays available afterwards.
func (o *Orchestrator) rollback(snapshot *db.BackupRecord, lib *db.DetectedLibrary, log *zap.SugaredLogger) {
	if snapshot == nil {
		log.Warn("No snapshot to roll back to")
		return
	}
	if err := backup.CopyFile(snapshot.BackupPath, lib.Path); err != nil {
		log.Errorw("Rollback from snapshot failed", zap.Error(err))
		return
	}
	log.Info("Restored snapshot after failed replacement")
}

func (o *Orchestrator) recordHistory(lib *db.DetectedLibrary, to string, success bool) {
	entry := &db.UpdateHistoryEntry{
		LibraryID:   lib.ID,
		FromVersion: lib.CurrentVersion,
		ToVersion:   &to,
		Success:     success,
	}
	if err := o.store.RecordHistory(entry); err != nil {
		o.log.Warnw("Failed to record update history", zap.Error(err))
	}
}
