// Package config holds run configuration: built-in defaults, the
// optional YAML/JSON config file, and the helpers for merging the two
// with command-line values.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultMaxFileSize bounds content reads when no --max-size is given.
const DefaultMaxFileSize = 50 << 20 // 50 MiB

// DefaultCacheFileName is the cache database created under the scanned
// root. It is excluded from scans by default so the cache never
// inventories itself.
const DefaultCacheFileName = ".scandog_cache.db"

// DefaultExcludedFolders returns the folder names pruned by default.
func DefaultExcludedFolders() map[string]struct{} {
	return setOf(
		"tmp", "node_modules", ".git", "dist", "build", "out", "target",
		"public", "cache", "temp", "coverage", "test-results", "reports",
		".vscode", ".idea", "logs", "assets", "bower_components", ".next",
		"venv",
	)
}

// DefaultExcludedFiles returns the file names skipped by default.
func DefaultExcludedFiles() map[string]struct{} {
	return setOf(
		"package-lock.json",
		"favicon.ico",
		DefaultCacheFileName,
	)
}

// DefaultImageExtensions returns the extensions treated as images.
func DefaultImageExtensions() map[string]struct{} {
	return setOf(".png", ".jpg", ".jpeg", ".gif", ".bmp", ".svg", ".webp", ".tiff")
}

// File is the on-disk config file shape. YAML parsing accepts both YAML
// and JSON documents, so one loader covers both suffixes.
type File struct {
	ExcludeFolders  []string `yaml:"exclude_folders"`
	ExcludeFiles    []string `yaml:"exclude_files"`
	ExcludePatterns []string `yaml:"exclude_patterns"`
	ImageExtensions []string `yaml:"image_extensions"`
	MaxSize         int64    `yaml:"max_size"`
	Encoding        string   `yaml:"encoding"`
	HashAlgorithm   string   `yaml:"hash_algorithm"`
	Workers         int      `yaml:"workers"`
	CachePoolSize   int      `yaml:"cache_pool_size"`
}

// Load reads and parses a config file. An empty path yields an empty
// File so callers can merge unconditionally.
func Load(path string) (*File, error) {
	if path == "" {
		return &File{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &f, nil
}

// Union adds items into set in place.
func Union(set map[string]struct{}, items []string) {
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			set[item] = struct{}{}
		}
	}
}

// UnionExts adds normalized extensions (lowercase, leading dot) into set.
func UnionExts(set map[string]struct{}, exts []string) {
	for _, ext := range exts {
		if ext = NormalizeExt(ext); ext != "" {
			set[ext] = struct{}{}
		}
	}
}

// NormalizeExt lowercases an extension and ensures the leading dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func setOf(items ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
