package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestXDGDirectories(t *testing.T) {
	xdg := NewXDGDirs()

	if xdg == nil {
		t.Fatal("NewXDGDirs returned nil")
	}
}

func TestXDGConfigPaths(t *testing.T) {
	xdg := NewXDGDirs()

	testCases := []struct {
		name         string
		filename     string
		expectedFile string
	}{
		{
			name:         "main config file",
			filename:     "config.json",
			expectedFile: "config.json",
		},
		{
			name:         "empty filename",
			filename:     "",
			expectedFile: "", // should handle gracefully
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			paths := xdg.GetConfigPaths(tc.filename)

			if len(paths) == 0 {
				t.Error("GetConfigPaths returned empty slice")
				return
			}

			// Verify all paths are absolute
			for i, path := range paths {
				if !filepath.IsAbs(path) {
					t.Errorf("Path[%d] = %s is not absolute", i, path)
				}

				if tc.filename != "" && !strings.HasSuffix(path, tc.expectedFile) {
					t.Errorf("Path[%d] = %s does not end with expected file %s", i, path, tc.expectedFile)
				}
			}

			// All paths should contain the "boombox" directory
			for i, path := range paths {
				if !strings.Contains(path, "boombox") {
					t.Errorf("Path[%d] = %s does not contain 'boombox' directory", i, path)
				}
			}

			// First path is the user's config home
			t.Logf("Config paths for %s: %v", tc.filename, paths)
		})
	}
}

func TestXDGCachePaths(t *testing.T) {
	xdg := NewXDGDirs()

	testCases := []struct {
		name         string
		purpose      string
		expectedPath string // should contain this pattern
	}{
		{
			name:         "log cache",
			purpose:      "logs",
			expectedPath: filepath.Join("boombox", "logs"),
		},
		{
			name:         "empty purpose",
			purpose:      "",
			expectedPath: "boombox",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := xdg.GetCachePath(tc.purpose)

			if path == "" {
				t.Error("GetCachePath returned empty string")
				return
			}

			if !filepath.IsAbs(path) {
				t.Errorf("Cache path %s is not absolute", path)
			}

			if !strings.HasSuffix(path, tc.expectedPath) {
				t.Errorf("Cache path %s does not end with expected pattern %s", path, tc.expectedPath)
			}

			t.Logf("Cache path for %s: %s", tc.purpose, path)
		})
	}
}
