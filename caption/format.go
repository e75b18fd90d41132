package caption

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Format identifies a caption file format.
type Format int

const (
	// FormatUnknown means the format could not be determined.
	FormatUnknown Format = iota
	// FormatSRT is SubRip (.srt).
	FormatSRT
	// FormatVTT is WEBVTT (.vtt).
	FormatVTT
	// FormatJSON3 is YouTube timedtext json3 (.json).
	FormatJSON3
)

// String returns the conventional name of the format.
func (f Format) String() string {
	switch f {
	case FormatSRT:
		return "srt"
	case FormatVTT:
		return "vtt"
	case FormatJSON3:
		return "json3"
	default:
		return "unknown"
	}
}

// markupRe matches inline HTML-ish tags ({\an8} style overrides and
// <font>/<i>/<b> tags) that subtitle encoders embed in cue text.
var markupRe = regexp.MustCompile(`<[^>]*>|\{\\[^}]*\}`)

func stripMarkup(s string) string {
	return strings.TrimSpace(markupRe.ReplaceAllString(s, ""))
}

// DetectFormat sniffs a caption payload, using the filename extension
// as a hint and falling back to content inspection.
func DetectFormat(name string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".srt":
		return FormatSRT
	case ".vtt":
		return FormatVTT
	case ".json", ".json3":
		return FormatJSON3
	}

	head := bytes.TrimLeft(data, "\xef\xbb\xbf \t\r\n")
	switch {
	case bytes.HasPrefix(head, []byte("WEBVTT")):
		return FormatVTT
	case bytes.HasPrefix(head, []byte("{")):
		return FormatJSON3
	case bytes.ContainsAny(head[:min(len(head), 256)], "0123456789") && bytes.Contains(data, []byte("-->")):
		return FormatSRT
	}
	return FormatUnknown
}

// Parse decodes a caption payload in the given format.
func Parse(format Format, r io.Reader) ([]Segment, error) {
	switch format {
	case FormatSRT:
		return ParseSRT(r)
	case FormatVTT:
		return ParseVTT(r)
	case FormatJSON3:
		return ParseJSON3(r)
	default:
		return nil, fmt.Errorf("unsupported caption format")
	}
}

// LoadFile reads and parses a caption file from disk, sniffing the
// format from the name and content.
func LoadFile(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read caption file: %w", err)
	}
	format := DetectFormat(path, data)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unable to detect caption format of %s", filepath.Base(path))
	}
	segments, err := Parse(format, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return segments, nil
}
