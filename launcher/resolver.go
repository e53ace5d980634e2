package launcher

import (
	"fmt"
	"os"

	"dlss-updater/config"

	"go.uber.org/zap"
)

// Root is one configured (launcher, directory) pair ready for scanning.
type Root struct {
	Launcher string
	Path     string
}

// ConfigError reports a configured root that no longer exists. It is not
// fatal: the root is skipped, not retried.
type ConfigError struct {
	Launcher string
	Path     string
	Err      error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("launcher %s: root %s unavailable: %v", e.Launcher, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Resolver maps the fixed launcher table (seven well-known launchers plus
// four custom slots) to configured filesystem roots.
type Resolver struct {
	roots    map[string][]string
	maxRoots int
	log      *zap.SugaredLogger
}

func NewResolver(cfg *config.Config, log *zap.SugaredLogger) *Resolver {
	roots := make(map[string][]string, len(cfg.Launchers))
	for name, paths := range cfg.Launchers {
		roots[name] = append([]string(nil), paths...)
	}
	return &Resolver{
		roots:    roots,
		maxRoots: cfg.MaxRootsPerLauncher,
		log:      log,
	}
}

// AddRoot registers a root for a launcher. Pure configuration mutation, no
// scanning side effect.
func (r *Resolver) AddRoot(launcher, path string) error {
	if !knownLauncher(launcher) {
		return fmt.Errorf("unknown launcher %q", launcher)
	}
	for _, existing := range r.roots[launcher] {
		if existing == path {
			return nil
		}
	}
	if len(r.roots[launcher]) >= r.maxRoots {
		return fmt.Errorf("launcher %q already has the maximum of %d roots", launcher, r.maxRoots)
	}
	r.roots[launcher] = append(r.roots[launcher], path)
	return nil
}

// RemoveRoot drops a configured root. Reports whether it was present.
func (r *Resolver) RemoveRoot(launcher, path string) bool {
	paths := r.roots[launcher]
	for i, existing := range paths {
		if existing == path {
			r.roots[launcher] = append(paths[:i], paths[i+1:]...)
			return true
		}
	}
	return false
}

// Roots returns the configured roots for one launcher.
func (r *Resolver) Roots(launcher string) []string {
	return append([]string(nil), r.roots[launcher]...)
}

// Resolve returns every configured root that exists on disk, in the fixed
// launcher-table order. Missing roots become ConfigErrors and are skipped.
// Steam roots expand to every library's steamapps/common directory.
func (r *Resolver) Resolve() ([]Root, []error) {
	var resolved []Root
	var errs []error
	for _, launcher := range config.KnownLaunchers {
		for _, path := range r.roots[launcher] {
			info, err := os.Stat(path)
			if err != nil {
				errs = append(errs, &ConfigError{Launcher: launcher, Path: path, Err: err})
				continue
			}
			if !info.IsDir() {
				errs = append(errs, &ConfigError{Launcher: launcher, Path: path, Err: fmt.Errorf("not a directory")})
				continue
			}
			if launcher == "Steam" {
				for _, lib := range SteamLibraries(path) {
					if _, err := os.Stat(lib); err != nil {
						errs = append(errs, &ConfigError{Launcher: launcher, Path: lib, Err: err})
						continue
					}
					resolved = append(resolved, Root{Launcher: launcher, Path: lib})
				}
				continue
			}
			resolved = append(resolved, Root{Launcher: launcher, Path: path})
		}
	}
	if r.log != nil {
		r.log.Infow("Resolved launcher roots",
			zap.Int("roots", len(resolved)),
			zap.Int("skipped", len(errs)),
		)
	}
	return resolved, errs
}

func knownLauncher(name string) bool {
	for _, l := range config.KnownLaunchers {
		if l == name {
			return true
		}
	}
	return false
}
