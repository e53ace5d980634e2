package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"dlss-updater/config"
	"dlss-updater/db"
	"dlss-updater/logger"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPerformScan(t *testing.T) {
	logger.Log = zap.NewNop().Sugar()

	root := t.TempDir()
	files := []string{
		filepath.Join(root, "Cyberpunk 2077", "bin", "x64", "nvngx_dlss.dll"),
		filepath.Join(root, "Cyberpunk 2077", "bin", "x64", "sl.interposer.dll"),
		filepath.Join(root, "Forspoken", "dstorage.dll"),
	}
	for _, path := range files {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("stub"), 0644))
	}

	cfg := &config.Config{
		Launchers:           map[string][]string{"Custom 1": {root}},
		MaxRootsPerLauncher: 4,
		ScanMaxDepth:        12,
		ScanMaxAscend:       6,
		ScanWorkers:         2,
	}

	store, err := db.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	summary, err := performScan(context.Background(), cfg, store, nil)
	require.NoError(t, err)

	require.Equal(t, 2, summary.Games)
	require.Equal(t, 3, summary.Libraries)
	require.Equal(t, 3, summary.Matched)
	require.Equal(t, 0, summary.Merged)
	require.Len(t, summary.PerLauncher["Custom 1"], 3)
	require.Empty(t, summary.ConfigErrs)

	byLauncher, err := store.GamesByLauncher()
	require.NoError(t, err)
	require.Len(t, byLauncher["Custom 1"], 2)

	game := byLauncher["Custom 1"][0]
	require.Equal(t, "Cyberpunk 2077", game.Name)
	require.Equal(t, filepath.Join(root, "Cyberpunk 2077"), game.Path)

	libs, err := store.LibrariesForGame(game.ID)
	require.NoError(t, err)
	require.Len(t, libs, 2)
	for _, lib := range libs {
		// Stub files carry no PE version resource.
		require.Nil(t, lib.CurrentVersion)
		require.NotEqual(t, "", lib.Type)
	}

	// A second scan of the unchanged tree changes nothing.
	summary2, err := performScan(context.Background(), cfg, store, nil)
	require.NoError(t, err)
	require.Equal(t, 3, summary2.Libraries)

	games, err := store.CountRows(&db.Game{})
	require.NoError(t, err)
	require.EqualValues(t, 2, games)
	libCount, err := store.CountRows(&db.DetectedLibrary{})
	require.NoError(t, err)
	require.EqualValues(t, 3, libCount)
}

func TestPerformScanSteamManifest(t *testing.T) {
	logger.Log = zap.NewNop().Sugar()

	steamRoot := t.TempDir()
	steamapps := filepath.Join(steamRoot, "steamapps")
	gameDir := filepath.Join(steamapps, "common", "portal2")
	require.NoError(t, os.MkdirAll(gameDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(gameDir, "nvngx_dlss.dll"), []byte("stub"), 0644))

	// The manifest carries the store id and display name; installdir casing
	// differs from the on-disk directory.
	acf := `"AppState"
{
	"appid"		"620"
	"name"		"Portal 2"
	"installdir"		"Portal2"
}
`
	require.NoError(t, os.WriteFile(filepath.Join(steamapps, "appmanifest_620.acf"), []byte(acf), 0644))

	cfg := &config.Config{
		Launchers:           map[string][]string{"Steam": {steamRoot}},
		MaxRootsPerLauncher: 4,
		ScanMaxDepth:        12,
		ScanMaxAscend:       6,
		ScanWorkers:         1,
	}

	store, err := db.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	summary, err := performScan(context.Background(), cfg, store, nil)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Games)

	byLauncher, err := store.GamesByLauncher()
	require.NoError(t, err)
	require.Len(t, byLauncher["Steam"], 1)

	game := byLauncher["Steam"][0]
	require.Equal(t, "Portal 2", game.Name)
	require.Equal(t, "620", game.StoreID)
	require.Equal(t, gameDir, game.Path)
}

func TestPerformScanMissingRoot(t *testing.T) {
	logger.Log = zap.NewNop().Sugar()

	cfg := &config.Config{
		Launchers:           map[string][]string{"EA": {filepath.Join(t.TempDir(), "gone")}},
		MaxRootsPerLauncher: 4,
		ScanMaxDepth:        12,
		ScanMaxAscend:       6,
		ScanWorkers:         1,
	}

	store, err := db.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	summary, err := performScan(context.Background(), cfg, store, nil)
	require.NoError(t, err)
	require.Len(t, summary.ConfigErrs, 1)
	require.Equal(t, 0, summary.Games)
}
