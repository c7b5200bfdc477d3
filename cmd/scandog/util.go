package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/scandog/scandog/internal/pattern"
)

// parseSize parses a human-readable size string into bytes.
// Supports formats: "100", "1K", "1MB", "1GiB", etc.
func parseSize(s string) (int64, error) {
	bytes, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(bytes), nil
}

// validateGlobPatterns checks that all glob patterns are valid
// filepath.Match patterns. Regex-prefixed patterns are skipped here;
// they are compiled lazily and fail open when invalid.
func validateGlobPatterns(patterns []string) error {
	for _, p := range patterns {
		if strings.HasPrefix(p, pattern.RegexPrefix) {
			continue
		}
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("pattern %q: %w", p, err)
		}
	}
	return nil
}
