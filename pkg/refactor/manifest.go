package refactor

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/mamaar/merak/pkg/types"
)

// Manifest records where every module of a restructured package went.
type Manifest struct {
	Package     string          `toml:"package" json:"package"`
	Subpackages []string        `toml:"subpackages" json:"subpackages"`
	Modules     []ManifestEntry `toml:"modules" json:"modules"`
}

// ManifestEntry maps one original module to its output file.
type ManifestEntry struct {
	Module string `toml:"module" json:"module"`
	Target string `toml:"target" json:"target"`
	Path   string `toml:"path" json:"path"`
}

// Manifest builds the manifest of the current session.
func (r *Restructurer) Manifest() (*Manifest, error) {
	dests, err := r.Destinations()
	if err != nil {
		return nil, err
	}
	subs, err := r.Subpackages()
	if err != nil {
		return nil, err
	}
	m := &Manifest{Package: r.Package(), Subpackages: subs}
	for _, d := range dests {
		m.Modules = append(m.Modules, ManifestEntry{
			Module: d.Module.String(),
			Target: d.Target.String(),
			Path:   d.Rel,
		})
	}
	return m, nil
}

// WriteManifest writes the manifest as TOML to path.
func (r *Restructurer) WriteManifest(path string) error {
	m, err := r.Manifest()
	if err != nil {
		return err
	}
	data, err := toml.Marshal(m)
	if err != nil {
		return types.NewError(types.InvalidOperation, "failed to encode manifest: %v", err)
	}
	return writeFile(path, string(data))
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fsError(path, err)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, &types.RefactorError{Type: types.ParseError, Message: err.Error(), File: path, Cause: err}
	}
	return &m, nil
}
