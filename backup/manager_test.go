package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dlss-updater/db"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	store   *db.Store
	manager *Manager
	gameDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &fixture{
		store:   store,
		manager: NewManager(store, t.TempDir(), zap.NewNop().Sugar()),
		gameDir: t.TempDir(),
	}
}

func (f *fixture) seed(t *testing.T, filename string, content []byte, version *string) (*db.Game, *db.DetectedLibrary) {
	t.Helper()
	path := filepath.Join(f.gameDir, filename)
	require.NoError(t, os.WriteFile(path, content, 0644))

	game := &db.Game{Name: "Portal", Path: f.gameDir, Launcher: "Steam", LastScanned: time.Now()}
	require.NoError(t, f.store.UpsertGame(game))

	lib := &db.DetectedLibrary{
		GameID:         game.ID,
		Type:           "DLSS",
		Filename:       filename,
		Path:           path,
		CurrentVersion: version,
		DetectedAt:     time.Now(),
	}
	require.NoError(t, f.store.UpsertLibrary(lib))
	return game, lib
}

func strptr(s string) *string { return &s }

func TestBackupRestoreRoundTrip(t *testing.T) {
	f := newFixture(t)
	original := []byte("original library bytes")
	game, lib := f.seed(t, "nvngx_dlss.dll", original, strptr("3.5.0.0"))

	rec, err := f.manager.Backup(game, lib)
	require.NoError(t, err)
	require.True(t, rec.IsActive)
	require.EqualValues(t, len(original), rec.Size)
	require.Equal(t, "3.5.0.0", *rec.OriginalVersion)

	// Simulate an update overwriting the live file.
	require.NoError(t, os.WriteFile(lib.Path, []byte("newer library bytes"), 0644))
	require.NoError(t, f.store.SetLibraryVersion(lib.ID, strptr("3.17.10.0")))

	require.NoError(t, f.manager.Restore(rec.ID))

	restored, err := os.ReadFile(lib.Path)
	require.NoError(t, err)
	require.Equal(t, original, restored, "restore must bring back the exact original bytes")

	reloaded, err := f.store.LibraryByID(lib.ID)
	require.NoError(t, err)
	require.Equal(t, "3.5.0.0", *reloaded.CurrentVersion)

	// A consumed backup is no longer active.
	consumed, err := f.store.BackupByID(rec.ID)
	require.NoError(t, err)
	require.False(t, consumed.IsActive)
}

func TestRestoreMissingSnapshot(t *testing.T) {
	f := newFixture(t)
	game, lib := f.seed(t, "nvngx_dlss.dll", []byte("bytes"), nil)

	rec, err := f.manager.Backup(game, lib)
	require.NoError(t, err)
	require.NoError(t, os.Remove(rec.BackupPath))

	err = f.manager.Restore(rec.ID)
	require.ErrorIs(t, err, ErrBackupFileMissing)

	// The stale record is deactivated so it is not offered again.
	stale, err := f.store.BackupByID(rec.ID)
	require.NoError(t, err)
	require.False(t, stale.IsActive)
}

func TestBackupMissingSourceCreatesNoRecord(t *testing.T) {
	f := newFixture(t)
	game, lib := f.seed(t, "nvngx_dlss.dll", []byte("bytes"), nil)
	require.NoError(t, os.Remove(lib.Path))

	_, err := f.manager.Backup(game, lib)
	require.Error(t, err)

	count, err := f.store.CountRows(&db.BackupRecord{})
	require.NoError(t, err)
	require.EqualValues(t, 0, count)
}

func TestRestoreAllContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	game, lib1 := f.seed(t, "nvngx_dlss.dll", []byte("dlss"), nil)

	lib2Path := filepath.Join(f.gameDir, "libxess.dll")
	require.NoError(t, os.WriteFile(lib2Path, []byte("xess"), 0644))
	lib2 := &db.DetectedLibrary{GameID: game.ID, Type: "XeSS", Filename: "libxess.dll", Path: lib2Path, DetectedAt: time.Now()}
	require.NoError(t, f.store.UpsertLibrary(lib2))

	rec1, err := f.manager.Backup(game, lib1)
	require.NoError(t, err)
	rec2, err := f.manager.Backup(game, lib2)
	require.NoError(t, err)

	// Break the first snapshot only.
	require.NoError(t, os.Remove(rec1.BackupPath))
	require.NoError(t, os.WriteFile(lib2Path, []byte("replaced"), 0644))

	results, err := f.manager.RestoreAll(game.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byBackup := map[uint]RestoreResult{}
	for _, r := range results {
		byBackup[r.BackupID] = r
	}
	require.ErrorIs(t, byBackup[rec1.ID].Err, ErrBackupFileMissing)
	require.NoError(t, byBackup[rec2.ID].Err)

	restored, err := os.ReadFile(lib2Path)
	require.NoError(t, err)
	require.Equal(t, []byte("xess"), restored)
}

func TestDeleteBackup(t *testing.T) {
	f := newFixture(t)
	game, lib := f.seed(t, "nvngx_dlss.dll", []byte("bytes"), nil)

	rec, err := f.manager.Backup(game, lib)
	require.NoError(t, err)

	require.NoError(t, f.manager.Delete(rec.ID))

	_, err = os.Stat(rec.BackupPath)
	require.True(t, os.IsNotExist(err), "snapshot file should be removed")

	reloaded, err := f.store.BackupByID(rec.ID)
	require.NoError(t, err)
	require.False(t, reloaded.IsActive)
}

func TestClearAll(t *testing.T) {
	f := newFixture(t)
	game, lib := f.seed(t, "nvngx_dlss.dll", []byte("bytes"), nil)

	rec, err := f.manager.Backup(game, lib)
	require.NoError(t, err)

	cleared, err := f.manager.ClearAll(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, cleared)

	_, err = os.Stat(rec.BackupPath)
	require.True(t, os.IsNotExist(err))

	// Metadata rows survive; only the active flag flips.
	count, err := f.store.CountRows(&db.BackupRecord{})
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Portal", "Portal"},
		{`Half-Life 2: Episode Two`, "Half-Life 2_ Episode Two"},
		{`a/b\c*?"<>|`, "a_b_c______"},
		{"   ", "_"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, sanitize(tt.in), "sanitize(%q)", tt.in)
	}
}
