package storage

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var unsafePathChars = regexp.MustCompile(`[^a-zA-Z0-9.\-]+`)

// IslandKey returns the form of an Island URL that snapshots are indexed
// under. Surrounding whitespace and trailing slashes are dropped so that
// "https://host:5000/" and "https://host:5000" name the same Island.
func IslandKey(island string) string {
	return strings.TrimRight(strings.TrimSpace(island), "/")
}

// SanitizeIsland turns an Island URL into a filesystem-safe name.
// The scheme is dropped; everything except alphanumerics, dots and hyphens becomes an underscore.
func SanitizeIsland(island string) string {
	name := island
	if u, err := url.Parse(island); err == nil && u.Host != "" {
		name = u.Host + u.Path
	}
	return unsafePathChars.ReplaceAllString(name, "_")
}

// ReportPath generates a consistent file path for a generated report
// Format: {baseDir}/{island}_{YYYYMMDD}_{HHMMSS}.md
func ReportPath(baseDir string, island string, generatedAt time.Time) string {
	name := fmt.Sprintf("%s_%s.md", SanitizeIsland(island), generatedAt.Format("20060102_150405"))
	return filepath.Join(baseDir, name)
}

// EnsureDir creates a directory and all parent directories if they don't exist
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
