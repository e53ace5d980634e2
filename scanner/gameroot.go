package scanner

import (
	"path/filepath"
	"strings"
)

// FindGameRoot derives the top-level game directory for a matched library
// file. It ascends from the file's directory and stops when the parent is
// the launcher root (the current directory is then the game's own folder)
// or when maxAscend ancestor levels have been climbed, whichever comes
// first. Files outside the root fall back to their parent directory.
func FindGameRoot(path, root string, maxAscend int) string {
	dir := filepath.Dir(filepath.Clean(path))
	cleanRoot := filepath.Clean(root)

	if !isBelow(cleanRoot, dir) {
		return dir
	}

	for i := 0; i < maxAscend; i++ {
		parent := filepath.Dir(dir)
		if parent == cleanRoot {
			return dir
		}
		if parent == dir || !isBelow(cleanRoot, parent) {
			return dir
		}
		dir = parent
	}
	return dir
}

// GameName derives the display name for a game root directory.
func GameName(gameRoot string) string {
	return filepath.Base(filepath.Clean(gameRoot))
}

func isBelow(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
