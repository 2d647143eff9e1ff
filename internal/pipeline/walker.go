package pipeline

import (
	"os"
	"path/filepath"
	"strings"
)

// WalkSourceFiles walks the workspace and yields candidate source files.
// Vendored, generated, and fixture paths are excluded at the walk level;
// everything finer grained is left to the relevance filter.
func WalkSourceFiles(root string) (<-chan string, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}

	files := make(chan string, 100)

	go func() {
		defer close(files)

		filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if d.IsDir() && shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}

			if !d.IsDir() && isSupportedFile(path) {
				files <- path
			}

			return nil
		})
	}()

	return files, nil
}

// shouldSkipDir returns true if a directory is excluded from scanning
func shouldSkipDir(name string) bool {
	excludeDirs := []string{
		".git",
		"node_modules",
		"vendor",
		"dist",
		"build",
		"out",
		"coverage",
		".next",
		".nuxt",
		".cache",
		".parcel-cache",
		".nyc_output",
		".codeatlas",
		".idea",
		".vscode",
	}

	for _, exclude := range excludeDirs {
		if name == exclude {
			return true
		}
	}
	return false
}

// isSupportedFile returns true if the file should be sent to extraction
func isSupportedFile(path string) bool {
	ext := filepath.Ext(path)
	switch ext {
	case ".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".mts", ".cts":
	default:
		return false
	}

	return !isGeneratedFile(path) && !isTestFixture(path)
}

// isGeneratedFile returns true if the file is likely build output
func isGeneratedFile(path string) bool {
	generatedSuffixes := []string{
		".min.js",
		".bundle.js",
		".generated.ts",
		".generated.js",
		".d.ts",
	}

	for _, suffix := range generatedSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}

	generatedDirs := []string{
		"/dist/",
		"/build/",
		"/out/",
		"/.next/",
		"/.nuxt/",
	}

	for _, dir := range generatedDirs {
		if strings.Contains(path, dir) {
			return true
		}
	}

	return false
}

// isTestFixture returns true if the file is a fixture or mock asset
func isTestFixture(path string) bool {
	fixtureDirs := []string{
		"/__tests__/fixtures/",
		"/__mocks__/",
		"/test/fixtures/",
		"/tests/fixtures/",
		"/spec/fixtures/",
	}

	for _, dir := range fixtureDirs {
		if strings.Contains(path, dir) {
			return true
		}
	}

	return false
}
