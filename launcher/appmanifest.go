package launcher

import (
	"path/filepath"
	"strings"

	"github.com/c12h/steam-stuff/sVDF"
)

// SteamApp identifies one installed Steam application as recorded by its
// appmanifest_<appid>.acf file.
type SteamApp struct {
	AppID      string
	Name       string
	InstallDir string
}

// SteamAppForDir resolves the app manifest for a game directory under a
// library's steamapps/common. The manifest carries the store identifier and
// the real display name, which often differ from the directory basename.
// ok is false for non-Steam layouts and unmatched directories.
func SteamAppForDir(gameRoot string) (*SteamApp, bool) {
	commonDir := filepath.Dir(filepath.Clean(gameRoot))
	steamappsDir := filepath.Dir(commonDir)
	if filepath.Base(commonDir) != "common" || filepath.Base(steamappsDir) != "steamapps" {
		return nil, false
	}

	manifests, err := filepath.Glob(filepath.Join(steamappsDir, "appmanifest_*.acf"))
	if err != nil {
		return nil, false
	}
	want := filepath.Base(gameRoot)
	for _, path := range manifests {
		app, err := parseAppManifest(path)
		if err != nil {
			continue
		}
		// DLC manifests are known to carry wrongly-cased installdir values.
		if strings.EqualFold(app.InstallDir, want) {
			return app, true
		}
	}
	return nil, false
}

func parseAppManifest(path string) (*SteamApp, error) {
	f, err := sVDF.FromFile(path, "AppState")
	if err != nil {
		return nil, err
	}
	appID, err := f.Lookup("appid")
	if err != nil {
		return nil, err
	}
	name, err := f.Lookup("name")
	if err != nil {
		return nil, err
	}
	installDir, err := f.Lookup("installdir")
	if err != nil {
		return nil, err
	}
	return &SteamApp{AppID: appID, Name: name, InstallDir: installDir}, nil
}
