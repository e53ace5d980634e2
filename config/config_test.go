package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "dlss-updater.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "data_dir: "+dir+"\n")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig error = %v", err)
	}

	if cfg.MaxRootsPerLauncher != 4 {
		t.Errorf("MaxRootsPerLauncher = %d, want 4", cfg.MaxRootsPerLauncher)
	}
	if cfg.ScanMaxDepth != 12 || cfg.ScanMaxAscend != 6 {
		t.Errorf("scan bounds = %d/%d, want 12/6", cfg.ScanMaxDepth, cfg.ScanMaxAscend)
	}
	if !cfg.BackupOnUpdate {
		t.Error("BackupOnUpdate default = false, want true")
	}
	if cfg.DatabasePath != filepath.Join(dir, "dlss-updater.db") {
		t.Errorf("DatabasePath = %s", cfg.DatabasePath)
	}
	for _, sub := range []string{cfg.BackupDir, cfg.CacheDir} {
		if info, err := os.Stat(sub); err != nil || !info.IsDir() {
			t.Errorf("directory %s was not created: %v", sub, err)
		}
	}
}

func TestLoadConfigRejectsUnknownLauncher(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
data_dir: `+dir+`
launchers:
  Playnite:
    - /games/playnite
`)
	if _, err := LoadConfig(dir); err == nil {
		t.Fatal("LoadConfig with unknown launcher succeeded, want error")
	}
}

func TestLoadConfigRejectsUnknownTechnology(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
data_dir: `+dir+`
update_preferences:
  TAAU: true
`)
	if _, err := LoadConfig(dir); err == nil {
		t.Fatal("LoadConfig with unknown technology group succeeded, want error")
	}
}

func TestLoadConfigRejectsTooManyRoots(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
data_dir: `+dir+`
max_roots_per_launcher: 1
launchers:
  Steam:
    - /a
    - /b
`)
	if _, err := LoadConfig(dir); err == nil {
		t.Fatal("LoadConfig over the root limit succeeded, want error")
	}
}

func TestTechnologyEnabled(t *testing.T) {
	cfg := Config{UpdatePreferences: map[string]bool{"XeSS": false}}

	if cfg.TechnologyEnabled("XeSS") {
		t.Error("TechnologyEnabled(XeSS) = true despite explicit false")
	}
	if !cfg.TechnologyEnabled("DLSS") {
		t.Error("TechnologyEnabled(DLSS) = false, absent groups default to enabled")
	}
}

func TestGameExcluded(t *testing.T) {
	cfg := Config{
		ExcludedGames: []string{"Cyberpunk 2077", "NoTouchDir"},
		IncludedGames: []string{"cyberpunk 2077"},
	}

	// included_games overrides the exclusion, case-insensitively.
	if cfg.GameExcluded("Cyberpunk 2077", "/games/Cyberpunk 2077") {
		t.Error("included game reported excluded")
	}
	// Path components match too.
	if !cfg.GameExcluded("Some Game", "/games/NoTouchDir/Some Game") {
		t.Error("game under an excluded path component not reported excluded")
	}
	if cfg.GameExcluded("Portal", "/games/Portal") {
		t.Error("unlisted game reported excluded")
	}
}
