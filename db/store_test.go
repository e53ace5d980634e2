package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedGame(t *testing.T, store *Store, name, path, launcher string) *Game {
	t.Helper()
	game := &Game{Name: name, Path: path, Launcher: launcher, LastScanned: time.Now()}
	require.NoError(t, store.UpsertGame(game))
	return game
}

func seedLibrary(t *testing.T, store *Store, gameID uint, typ, filename, path string, version *string) *DetectedLibrary {
	t.Helper()
	lib := &DetectedLibrary{
		GameID:         gameID,
		Type:           typ,
		Filename:       filename,
		Path:           path,
		CurrentVersion: version,
		DetectedAt:     time.Now(),
	}
	require.NoError(t, store.UpsertLibrary(lib))
	return lib
}

func strptr(s string) *string { return &s }

func TestUpsertGameIdempotent(t *testing.T) {
	store := openTestStore(t)

	first := seedGame(t, store, "Cyberpunk 2077", "/games/Cyberpunk 2077", "Steam")
	second := seedGame(t, store, "Cyberpunk 2077 GOTY", "/games/Cyberpunk 2077", "Steam")

	require.Equal(t, first.ID, second.ID, "same path must reuse the row")
	require.Equal(t, "Cyberpunk 2077 GOTY", second.Name)

	count, err := store.CountRows(&Game{})
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestUpsertLibraryIdempotent(t *testing.T) {
	store := openTestStore(t)
	game := seedGame(t, store, "Portal", "/games/Portal", "Steam")

	path := "/games/Portal/bin/nvngx_dlss.dll"
	first := seedLibrary(t, store, game.ID, "DLSS", "nvngx_dlss.dll", path, strptr("3.5.0.0"))
	second := seedLibrary(t, store, game.ID, "DLSS", "nvngx_dlss.dll", path, strptr("3.17.10.0"))

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "3.17.10.0", *second.CurrentVersion)

	count, err := store.CountRows(&DetectedLibrary{})
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestInsertBackupSingleActive(t *testing.T) {
	store := openTestStore(t)
	game := seedGame(t, store, "Portal", "/games/Portal", "Steam")
	lib := seedLibrary(t, store, game.ID, "DLSS", "nvngx_dlss.dll", "/games/Portal/nvngx_dlss.dll", strptr("3.5.0.0"))

	first := &BackupRecord{LibraryID: lib.ID, BackupPath: "/backups/1", OriginalVersion: strptr("3.5.0.0"), Size: 10}
	require.NoError(t, store.InsertBackup(first))
	second := &BackupRecord{LibraryID: lib.ID, BackupPath: "/backups/2", OriginalVersion: strptr("3.6.0.0"), Size: 12}
	require.NoError(t, store.InsertBackup(second))

	active, err := store.ActiveBackupForLibrary(lib.ID)
	require.NoError(t, err)
	require.Equal(t, second.ID, active.ID, "newest backup is the active one")

	all, err := store.ActiveBackups()
	require.NoError(t, err)
	require.Len(t, all, 1, "one active backup per library")

	older, err := store.BackupByID(first.ID)
	require.NoError(t, err)
	require.False(t, older.IsActive)
}

func TestCascadeDelete(t *testing.T) {
	store := openTestStore(t)
	game := seedGame(t, store, "Portal", "/games/Portal", "Steam")
	lib := seedLibrary(t, store, game.ID, "DLSS", "nvngx_dlss.dll", "/games/Portal/nvngx_dlss.dll", nil)

	require.NoError(t, store.InsertBackup(&BackupRecord{LibraryID: lib.ID, BackupPath: "/backups/1"}))
	require.NoError(t, store.RecordHistory(&UpdateHistoryEntry{LibraryID: lib.ID, Success: true}))

	require.NoError(t, store.DeleteAllGames(context.Background()))

	for _, model := range []interface{}{&Game{}, &DetectedLibrary{}, &BackupRecord{}, &UpdateHistoryEntry{}} {
		count, err := store.CountRows(model)
		require.NoError(t, err)
		require.EqualValues(t, 0, count, "%T rows must cascade away", model)
	}
}

func TestMergeDuplicateGames(t *testing.T) {
	store := openTestStore(t)

	keep := seedGame(t, store, "Portal", "/games/Portal", "Steam")
	dup := seedGame(t, store, "Portal", "/games/extra/Portal", "Steam")
	other := seedGame(t, store, "Portal", "/gog/Portal", "GOG") // different launcher, untouched

	seedLibrary(t, store, keep.ID, "DLSS", "nvngx_dlss.dll", "/games/Portal/nvngx_dlss.dll", nil)
	orphan := seedLibrary(t, store, dup.ID, "XeSS", "libxess.dll", "/games/extra/Portal/libxess.dll", nil)

	merged, err := store.MergeDuplicateGames(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, merged)

	// The duplicate's library now belongs to the shortest-path survivor.
	moved, err := store.LibraryByID(orphan.ID)
	require.NoError(t, err)
	require.Equal(t, keep.ID, moved.GameID)

	_, err = store.GameByID(dup.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = store.GameByID(other.ID)
	require.NoError(t, err)
}

func TestLibrariesOrdered(t *testing.T) {
	store := openTestStore(t)
	g1 := seedGame(t, store, "A", "/games/A", "Steam")
	g2 := seedGame(t, store, "B", "/games/B", "EA")

	seedLibrary(t, store, g2.ID, "DLSS", "nvngx_dlss.dll", "/games/B/nvngx_dlss.dll", nil)
	seedLibrary(t, store, g1.ID, "XeSS", "libxess.dll", "/games/A/libxess.dll", nil)
	seedLibrary(t, store, g1.ID, "DLSS", "nvngx_dlss.dll", "/games/A/nvngx_dlss.dll", nil)

	all, err := store.LibrariesOrdered(nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		require.True(t, prev.GameID < cur.GameID || (prev.GameID == cur.GameID && prev.ID < cur.ID),
			"ordering must be stable by (game, id)")
	}

	dlssOnly, err := store.LibrariesOrdered(nil, []string{"DLSS"})
	require.NoError(t, err)
	require.Len(t, dlssOnly, 2)

	oneGame, err := store.LibrariesOrdered(&g1.ID, nil)
	require.NoError(t, err)
	require.Len(t, oneGame, 2)
}

func TestDeactivateAllBackups(t *testing.T) {
	store := openTestStore(t)
	game := seedGame(t, store, "Portal", "/games/Portal", "Steam")
	l1 := seedLibrary(t, store, game.ID, "DLSS", "nvngx_dlss.dll", "/games/Portal/nvngx_dlss.dll", nil)
	l2 := seedLibrary(t, store, game.ID, "XeSS", "libxess.dll", "/games/Portal/libxess.dll", nil)

	require.NoError(t, store.InsertBackup(&BackupRecord{LibraryID: l1.ID, BackupPath: "/backups/1"}))
	require.NoError(t, store.InsertBackup(&BackupRecord{LibraryID: l2.ID, BackupPath: "/backups/2"}))

	flipped, err := store.DeactivateAllBackups(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, flipped)

	active, err := store.ActiveBackups()
	require.NoError(t, err)
	require.Empty(t, active)

	// Records survive deactivation; nothing is deleted.
	count, err := store.CountRows(&BackupRecord{})
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestHistoryAppendOnly(t *testing.T) {
	store := openTestStore(t)
	game := seedGame(t, store, "Portal", "/games/Portal", "Steam")
	lib := seedLibrary(t, store, game.ID, "DLSS", "nvngx_dlss.dll", "/games/Portal/nvngx_dlss.dll", nil)

	require.NoError(t, store.RecordHistory(&UpdateHistoryEntry{LibraryID: lib.ID, FromVersion: strptr("3.5.0.0"), ToVersion: strptr("3.17.10.0"), Success: true}))
	require.NoError(t, store.RecordHistory(&UpdateHistoryEntry{LibraryID: lib.ID, FromVersion: strptr("3.17.10.0"), Success: false}))

	entries, err := store.HistoryForLibrary(lib.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.True(t, entries[0].Success)
	require.False(t, entries[1].Success)
}
