package audio

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/afero"
)

// FileResolver locates playable sound files: by trying extensions against a
// base path, or by scanning an ordered candidate list for the first file
// that exists.
type FileResolver struct {
	fsys                afero.Fs
	supportedExtensions []string
}

// NewFileResolver creates a resolver trying the given extensions in
// priority order.
func NewFileResolver(fsys afero.Fs, extensions []string) *FileResolver {
	slog.Debug("creating file resolver",
		"extensions", extensions,
		"extension_count", len(extensions))

	return &FileResolver{
		fsys:                fsys,
		supportedExtensions: extensions,
	}
}

// ResolveWithExtensions finds an existing file by appending each supported
// extension to basePath in priority order.
func (f *FileResolver) ResolveWithExtensions(basePath string) (string, error) {
	if basePath == "" {
		err := fmt.Errorf("base path cannot be empty")
		slog.Error("file resolution failed", "error", err)
		return "", err
	}

	slog.Debug("resolving file with extensions",
		"base_path", basePath,
		"extensions", f.supportedExtensions)

	for _, ext := range f.supportedExtensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}

		candidate := basePath + ext
		if _, err := f.fsys.Stat(candidate); err == nil {
			slog.Debug("file resolved",
				"base_path", basePath,
				"resolved_path", candidate)
			return candidate, nil
		}
	}

	err := fmt.Errorf("no file found for base path %s with extensions %v",
		basePath, f.supportedExtensions)
	slog.Warn("file resolution failed",
		"base_path", basePath,
		"extensions_tried", f.supportedExtensions)
	return "", err
}

// FirstExisting returns the first candidate path that names an existing
// file, in list order.
func (f *FileResolver) FirstExisting(candidates []string) (string, error) {
	for _, candidate := range candidates {
		info, err := f.fsys.Stat(candidate)
		if err == nil && !info.IsDir() {
			slog.Debug("candidate file found", "path", candidate)
			return candidate, nil
		}
	}

	slog.Debug("no candidate file exists", "candidates_tried", len(candidates))
	return "", fmt.Errorf("none of %d candidate files exist", len(candidates))
}

// GetSupportedExtensions returns the extension priority order.
func (f *FileResolver) GetSupportedExtensions() []string {
	return f.supportedExtensions
}
