package cmd

import (
	"context"
	"path/filepath"
	"time"

	"dlss-updater/backup"
	"dlss-updater/config"
	"dlss-updater/db"
	"dlss-updater/dll"
	"dlss-updater/launcher"
	"dlss-updater/logger"
	"dlss-updater/repository"
	"dlss-updater/scanner"
	"dlss-updater/updater"

	"go.uber.org/zap"
)

// bootstrap handles shared initialization logic for commands.
func bootstrap(path string) (config.Config, *db.Store) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		logger.Log.Fatalw("Failed to load configuration", zap.Error(err))
	}

	store, err := db.Open(cfg.DatabasePath)
	if err != nil {
		logger.Log.Fatalw("Failed to open database", zap.Error(err))
	}
	logger.Log.Infow("Database initialized", zap.String("path", cfg.DatabasePath))

	return cfg, store
}

// newOrchestrator wires the update pipeline for a loaded configuration.
func newOrchestrator(cfg *config.Config, store *db.Store) *updater.Orchestrator {
	source := repository.NewSource(cfg.CacheDir, logger.Log)
	backups := backup.NewManager(store, cfg.BackupDir, logger.Log)
	return updater.New(store, backups, source, cfg, logger.Log)
}

// scanSummary aggregates one scan-and-persist pass for display.
type scanSummary struct {
	Examined    int
	Matched     int
	Games       int
	Libraries   int
	Merged      int
	PerLauncher map[string][]string // launcher -> library paths
	ConfigErrs  []error
}

// performScan resolves launcher roots, walks them, classifies matches and
// persists games and libraries. Configuration errors (missing roots) are
// collected, not fatal.
func performScan(ctx context.Context, cfg *config.Config, store *db.Store, progress scanner.Progress) (*scanSummary, error) {
	resolver := launcher.NewResolver(cfg, logger.Log)
	roots, cfgErrs := resolver.Resolve()
	for _, err := range cfgErrs {
		logger.Log.Warnw("Skipping configured root", zap.Error(err))
	}

	opts := scanner.Options{
		MaxDepth: cfg.ScanMaxDepth,
		Workers:  cfg.ScanWorkers,
	}
	summary := &scanSummary{
		PerLauncher: make(map[string][]string),
		ConfigErrs:  cfgErrs,
	}
	counters := func(examined, matched int) {
		summary.Examined = examined
		summary.Matched = matched
		if progress != nil {
			progress(examined, matched)
		}
	}

	candidates, err := scanner.Scan(ctx, roots, opts, counters, logger.Log)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	gameIDs := make(map[string]uint) // game root -> id
	for _, c := range candidates {
		summary.PerLauncher[c.Launcher] = append(summary.PerLauncher[c.Launcher], c.Path)

		gameRoot := scanner.FindGameRoot(c.Path, c.Root, cfg.ScanMaxAscend)
		gameID, ok := gameIDs[gameRoot]
		if !ok {
			game := &db.Game{
				Name:        scanner.GameName(gameRoot),
				Path:        gameRoot,
				Launcher:    c.Launcher,
				LastScanned: now,
			}
			// Steam keeps the store id and the proper display name in
			// the library's app manifest.
			if c.Launcher == "Steam" {
				if app, ok := launcher.SteamAppForDir(gameRoot); ok {
					game.Name = app.Name
					game.StoreID = app.AppID
				}
			}
			if err := store.UpsertGame(game); err != nil {
				logger.Log.Errorw("Failed to save game", zap.String("path", gameRoot), zap.Error(err))
				continue
			}
			gameIDs[gameRoot] = game.ID
			gameID = game.ID
			summary.Games++
		}

		info := dll.Classify(c.Path)
		lib := &db.DetectedLibrary{
			GameID:     gameID,
			Type:       string(info.Type),
			Filename:   filepath.Base(c.Path),
			Path:       c.Path,
			DetectedAt: now,
		}
		if version, err := dll.ExtractFileVersion(c.Path); err == nil {
			lib.CurrentVersion = &version
		} else {
			logger.Log.Debugw("No readable file version", zap.String("path", c.Path), zap.Error(err))
		}
		if err := store.UpsertLibrary(lib); err != nil {
			logger.Log.Errorw("Failed to save library", zap.String("path", c.Path), zap.Error(err))
			continue
		}
		summary.Libraries++
	}

	// The same game reached through nested sub-paths shows up as multiple
	// rows; collapse them onto the shortest path.
	mergeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	merged, err := store.MergeDuplicateGames(mergeCtx)
	if err != nil {
		logger.Log.Warnw("Duplicate-game merge failed", zap.Error(err))
	}
	summary.Merged = merged

	return summary, nil
}
