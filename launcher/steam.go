package launcher

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/c12h/steam-stuff/sVDF"
)

// SteamLibraries expands a Steam install root into its game library
// directories. Steam keeps additional libraries listed in
// steamapps/libraryfolders.vdf; each library stores games under
// steamapps/common. Both manifest layouts are handled: the current one nests
// each entry under a numeric key with a "path" subkey, the pre-2021 one maps
// the numeric key straight to the library path. A root without a parsable
// manifest falls back to its own steamapps/common, or to the root itself.
func SteamLibraries(root string) []string {
	vdf := filepath.Join(root, "steamapps", "libraryfolders.vdf")
	f, err := sVDF.FromFile(vdf, "libraryfolders", "LibraryFolders")
	if err != nil {
		common := filepath.Join(root, "steamapps", "common")
		if _, err := os.Stat(common); err == nil {
			return []string{common}
		}
		return []string{root}
	}

	var libs []string
	seen := make(map[string]bool)
	add := func(lib string) {
		common := filepath.Join(lib, "steamapps", "common")
		if !seen[common] {
			seen[common] = true
			libs = append(libs, common)
		}
	}

	// The root is a library itself; the old layout does not list it.
	add(root)
	for i := 0; ; i++ {
		key := strconv.Itoa(i)
		switch {
		case f.HaveString(key):
			// pre-2021 layout: the value is the library path
			if lib, err := f.Lookup(key); err == nil {
				add(filepath.FromSlash(lib))
			}
		case f.HaveString(key, "path"):
			if lib, err := f.Lookup(key, "path"); err == nil {
				add(filepath.FromSlash(lib))
			}
		default:
			// old-layout files count from "1"
			if i == 0 {
				continue
			}
			return libs
		}
	}
}
