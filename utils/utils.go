// Package utils provides small helpers shared across the CLI.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// CaptionExtensions lists the glob patterns recognized as caption
// files when searching a directory.
var CaptionExtensions = []string{"*.srt", "*.vtt", "*.json3"}

// ExpandPath expands a tilde and environment variables in a path.
func ExpandPath(path string) string {
	s, err := homedir.Expand(os.ExpandEnv(path))
	if err != nil {
		return path
	}
	return s
}

// IsCaptionFile reports whether the path has a recognized caption
// extension.
func IsCaptionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".srt", ".vtt", ".json3":
		return true
	}
	return false
}

// FormatTimestamp renders a millisecond position as m:ss, or h:mm:ss
// past the hour mark.
func FormatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	if h := total / 3600; h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, (total%3600)/60, total%60)
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
