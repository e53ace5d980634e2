package scanner

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"dlss-updater/dll"
	"dlss-updater/launcher"

	"go.uber.org/zap"
)

// Candidate is one library file located under a launcher root.
type Candidate struct {
	Launcher string
	Root     string
	Path     string
}

// Progress receives (paths examined, paths matched) counters as the walk
// proceeds.
type Progress func(examined, matched int)

// Options bound the walk. Zero values fall back to defaults.
type Options struct {
	MaxDepth int             // directory depth below each root
	Workers  int             // concurrent root walks
	SkipDirs map[string]bool // noise directory names, nil = DefaultSkipDirs
}

// DefaultSkipDirs lists directory names that never contain game libraries:
// version control, redistributable installers, archived versions. Names are
// lower-cased; matching is case-insensitive.
func DefaultSkipDirs() map[string]bool {
	return map[string]bool{
		".git":          true,
		".svn":          true,
		"_commonredist": true,
		"directx":       true,
		"redist":        true,
		"__installer":   true,
		"installers":    true,
		"support":       true,
		"versions":      true,
	}
}

// Scan walks every root under a bounded worker pool and returns the
// candidate library files, ordered by (launcher, path) so repeated scans of
// an unchanged tree produce identical output. Unreadable subdirectories are
// skipped, never fatal; cancellation is honored between directories.
func Scan(ctx context.Context, roots []launcher.Root, opts Options, progress Progress, log *zap.SugaredLogger) ([]Candidate, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 12
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.SkipDirs == nil {
		opts.SkipDirs = DefaultSkipDirs()
	} else {
		lowered := make(map[string]bool, len(opts.SkipDirs))
		for name, skip := range opts.SkipDirs {
			lowered[strings.ToLower(name)] = skip
		}
		opts.SkipDirs = lowered
	}

	var (
		examined atomic.Int64
		matched  atomic.Int64
		mu       sync.Mutex
		found    []Candidate
		wg       sync.WaitGroup
	)
	report := func() {
		if progress != nil {
			progress(int(examined.Load()), int(matched.Load()))
		}
	}

	sem := make(chan struct{}, opts.Workers)
	for _, root := range roots {
		wg.Add(1)
		go func(root launcher.Root) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			walkLog := log.With(zap.String("launcher", root.Launcher), zap.String("root", root.Path))
			err := walkRoot(ctx, root, opts, walkLog, &examined, &matched, report, func(c Candidate) {
				mu.Lock()
				found = append(found, c)
				mu.Unlock()
			})
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				walkLog.Warnw("Walk ended early", zap.Error(err))
			}
		}(root)
	}
	wg.Wait()
	report()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].Launcher != found[j].Launcher {
			return found[i].Launcher < found[j].Launcher
		}
		return found[i].Path < found[j].Path
	})
	return found, nil
}

func walkRoot(ctx context.Context, root launcher.Root, opts Options, log *zap.SugaredLogger,
	examined, matched *atomic.Int64, report func(), emit func(Candidate)) error {

	cleanRoot := filepath.Clean(root.Path)
	return filepath.WalkDir(cleanRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d == nil {
				return err
			}
			// Unreadable subdirectory: skip it, keep walking.
			log.Debugw("Skipping unreadable entry", zap.String("path", path), zap.Error(err))
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			// Cooperative cancellation, checked between directories only.
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if path != cleanRoot {
				if opts.SkipDirs[strings.ToLower(d.Name())] {
					return fs.SkipDir
				}
				if depthBelow(cleanRoot, path) > opts.MaxDepth {
					return fs.SkipDir
				}
			}
			report()
			return nil
		}

		// WalkDir does not follow symlinks; skip symlinked files outright to
		// avoid cycles resurfacing as duplicate paths.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		examined.Add(1)
		if dll.Known(d.Name()) {
			matched.Add(1)
			emit(Candidate{Launcher: root.Launcher, Root: cleanRoot, Path: path})
			report()
		}
		return nil
	})
}

func depthBelow(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
