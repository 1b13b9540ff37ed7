package app

import (
	"path/filepath"
)

// HomeDirName is the per-repository state directory
const HomeDirName = ".gba"

// Paths holds the resolved locations gba reads and writes inside a repository
type Paths struct {
	Repo     string // repository root
	Home     string // <repo>/.gba
	Config   string // <repo>/.gba/config.yaml
	Features string // <repo>/.gba/features
	Prompts  string // <repo>/.gba/prompts
	Var      string // <repo>/.gba/var
	Trees    string // <repo>/.trees

	// Configurable locations, resolved against Repo when relative
	Artifacts string
	Journal   string
}

// ResolvePaths returns the paths for repo. artifactsDir and journalPath come
// from configuration and may be relative to the repository root.
func ResolvePaths(repo, artifactsDir, journalPath string) Paths {
	home := filepath.Join(repo, HomeDirName)
	p := Paths{
		Repo:     repo,
		Home:     home,
		Config:   filepath.Join(home, "config.yaml"),
		Features: filepath.Join(home, "features"),
		Prompts:  filepath.Join(home, "prompts"),
		Var:      filepath.Join(home, "var"),
		Trees:    filepath.Join(repo, ".trees"),
	}

	p.Artifacts = resolve(repo, artifactsDir, filepath.Join(p.Var, "artifacts"))
	p.Journal = resolve(repo, journalPath, filepath.Join(p.Var, "gba.db"))
	return p
}

func resolve(repo, path, fallback string) string {
	switch {
	case path == "":
		return fallback
	case filepath.IsAbs(path):
		return path
	default:
		return filepath.Join(repo, path)
	}
}
