package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	apperrors "github.com/codeatlas/codeatlas/internal/errors"
	"github.com/codeatlas/codeatlas/internal/models"
)

// Extractor supplies raw syntactic entities for a source file.
// Extraction itself happens upstream (editor tooling, language servers);
// the pipeline only consumes its output.
type Extractor interface {
	ExtractFile(ctx context.Context, path string) ([]models.RawEntity, error)
}

// ExtractorFunc adapts a function to the Extractor interface
type ExtractorFunc func(ctx context.Context, path string) ([]models.RawEntity, error)

func (f ExtractorFunc) ExtractFile(ctx context.Context, path string) ([]models.RawEntity, error) {
	return f(ctx, path)
}

// dumpFile is the on-disk shape of an extraction dump
type dumpFile struct {
	Files []struct {
		Path     string             `json:"path"`
		Entities []models.RawEntity `json:"entities"`
	} `json:"files"`
}

// DumpExtractor serves entities from a prebuilt extraction dump, a single
// JSON file mapping source paths to their raw entities
type DumpExtractor struct {
	root    string
	entries map[string][]models.RawEntity
}

// NewDumpExtractor loads an extraction dump. root is the workspace path
// the dump's relative file paths are resolved against.
func NewDumpExtractor(dumpPath, root string) (*DumpExtractor, error) {
	data, err := os.ReadFile(dumpPath)
	if err != nil {
		return nil, apperrors.SourceUnavailablef(err, "failed to read extraction dump %s", dumpPath)
	}

	var dump dumpFile
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, apperrors.SourceUnavailablef(err, "malformed extraction dump %s", dumpPath)
	}

	entries := make(map[string][]models.RawEntity, len(dump.Files))
	for _, f := range dump.Files {
		for i := range f.Entities {
			if f.Entities[i].FilePath == "" {
				f.Entities[i].FilePath = f.Path
			}
		}
		entries[f.Path] = f.Entities
	}

	return &DumpExtractor{root: root, entries: entries}, nil
}

// Files returns the source paths the dump covers, resolved against root
func (d *DumpExtractor) Files() []string {
	paths := make([]string, 0, len(d.entries))
	for p := range d.entries {
		if !filepath.IsAbs(p) && d.root != "" {
			p = filepath.Join(d.root, p)
		}
		paths = append(paths, p)
	}
	return paths
}

func (d *DumpExtractor) ExtractFile(_ context.Context, path string) ([]models.RawEntity, error) {
	if entities, ok := d.entries[path]; ok {
		return entities, nil
	}
	if d.root != "" {
		if rel, err := filepath.Rel(d.root, path); err == nil {
			if entities, ok := d.entries[rel]; ok {
				return entities, nil
			}
		}
	}
	return nil, apperrors.ExtractionError(nil, "no extraction output for "+path)
}
