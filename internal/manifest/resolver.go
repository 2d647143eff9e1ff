// Package manifest resolves package metadata for import entities by
// walking ancestor directories for a package.json manifest.
package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/codeatlas/codeatlas/internal/models"
)

// Manifest is a parsed package.json
type Manifest struct {
	Path            string
	Name            string
	Version         string
	Dependencies    map[string]string
	DevDependencies map[string]string
}

// packageJSON mirrors the manifest fields we read
type packageJSON struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// Resolver finds the nearest package.json for a source file and answers
// dependency lookups against it. Parsed manifests are cached per
// directory, so repeated lookups during a scan stay cheap.
type Resolver struct {
	mu    sync.RWMutex
	cache map[string]*Manifest // directory -> nearest manifest (nil = none found)
}

// NewResolver creates a manifest resolver
func NewResolver() *Resolver {
	return &Resolver{
		cache: make(map[string]*Manifest),
	}
}

// Resolve walks from the file's directory toward the filesystem root
// and returns the first package.json found, or nil when none exists.
func (r *Resolver) Resolve(filePath string) (*Manifest, error) {
	dir := filepath.Dir(filePath)

	r.mu.RLock()
	cached, ok := r.cache[dir]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	manifest, err := r.walkUp(dir)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[dir] = manifest
	r.mu.Unlock()
	return manifest, nil
}

func (r *Resolver) walkUp(dir string) (*Manifest, error) {
	for {
		candidate := filepath.Join(dir, "package.json")
		if _, err := os.Stat(candidate); err == nil {
			return parseManifest(candidate)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func parseManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}

	return &Manifest{
		Path:            path,
		Name:            pkg.Name,
		Version:         pkg.Version,
		Dependencies:    pkg.Dependencies,
		DevDependencies: pkg.DevDependencies,
	}, nil
}

// Lookup returns package info for an import source, matching the
// declared dependency entry. Scoped module paths reduce to their
// package root, e.g. "@org/pkg/sub" matches the "@org/pkg" entry.
func (m *Manifest) Lookup(source string) *models.PackageInfo {
	if m == nil {
		return nil
	}

	name := packageRoot(source)
	if version, ok := m.Dependencies[name]; ok {
		return &models.PackageInfo{Name: name, Version: version}
	}
	if version, ok := m.DevDependencies[name]; ok {
		return &models.PackageInfo{Name: name, Version: version, Dev: true}
	}
	return nil
}

// packageRoot reduces a module path to its installable package name
func packageRoot(source string) string {
	parts := strings.Split(source, "/")
	if strings.HasPrefix(source, "@") && len(parts) >= 2 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}
