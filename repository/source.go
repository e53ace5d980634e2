package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"dlss-updater/dll"

	"go.uber.org/zap"
)

const manifestCache = "manifest.json"

// Source serves the orchestrator's replacement files out of the local cache
// directory. Versions come from the synced manifest when one exists and the
// static table otherwise.
type Source struct {
	dir      string
	manifest Manifest
	log      *zap.SugaredLogger
}

func NewSource(dir string, log *zap.SugaredLogger) *Source {
	s := &Source{dir: dir, manifest: Manifest{}, log: log}
	data, err := os.ReadFile(filepath.Join(dir, manifestCache))
	if err == nil {
		if err := json.Unmarshal(data, &s.manifest); err != nil {
			log.Warnw("Ignoring unreadable cached manifest", zap.Error(err))
			s.manifest = Manifest{}
		}
	}
	return s
}

// Latest returns the latest known version and local file for a library
// filename. ok is false when no replacement file is cached: the library is
// then reported, not updated.
func (s *Source) Latest(filename string) (version, path string, ok bool) {
	name := strings.ToLower(filename)

	version = dll.LatestKnown[name]
	if entry, found := s.manifest[name]; found && entry.Version != "" {
		version = entry.Version
	}
	if version == "" {
		return "", "", false
	}

	path = filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return version, "", false
	}
	return version, path, true
}

// Sync refreshes the cache from the remote manifest: newer or missing files
// are downloaded, per-file failures are logged and skipped, and the manifest
// is cached for offline runs.
func (s *Source) Sync(ctx context.Context, client *Client) error {
	manifest, err := client.FetchManifest(ctx)
	if err != nil {
		return err
	}

	for name, entry := range manifest {
		name = strings.ToLower(name)
		if !dll.Known(name) {
			s.log.Warnw("Manifest lists unrecognized library, skipping", zap.String("file", name))
			continue
		}
		if !s.needsDownload(name, entry) {
			continue
		}
		dest := filepath.Join(s.dir, name)
		if err := client.DownloadDLL(ctx, s.log, dest, entry.URL, entry.SHA1); err != nil {
			s.log.Warnw("Failed to download library, keeping previous copy",
				zap.String("file", name), zap.Error(err))
			continue
		}
	}

	s.manifest = manifest
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err == nil {
		err = os.WriteFile(filepath.Join(s.dir, manifestCache), data, 0644)
	}
	if err != nil {
		s.log.Warnw("Failed to cache manifest", zap.Error(err))
	}
	return nil
}

func (s *Source) needsDownload(name string, entry ManifestEntry) bool {
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		return true
	}
	cached, haveCached := s.manifest[name]
	if !haveCached {
		return true
	}
	cmp, err := dll.CompareStrings(cached.Version, entry.Version)
	if err != nil {
		return true
	}
	return cmp < 0
}
