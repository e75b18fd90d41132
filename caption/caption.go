// Package caption provides caption track storage and parsing.
package caption

import (
	"sort"
	"strings"
)

// Segment is a single timestamped span of caption text.
type Segment struct {
	StartMS int64  // Start of the on-screen window, in milliseconds
	EndMS   int64  // End of the on-screen window, in milliseconds
	Text    string // Resolved caption text
}

// Duration returns the length of the segment window in milliseconds.
func (s Segment) Duration() int64 {
	return s.EndMS - s.StartMS
}

// Store holds the caption track for the current video. A track is
// replaced atomically on Load and never mutated between loads, so
// queries are pure reads.
type Store struct {
	segments []Segment
}

// NewStore returns an empty caption store.
func NewStore() *Store {
	return &Store{}
}

// Load replaces the stored track with the given segments. Upstream
// caption data is often imprecise, so out-of-order input is sorted by
// start time rather than rejected. Segments with empty text (after
// trimming) are dropped here so the dispatcher never sees them, and
// windows that end before they start are clamped to zero length.
func (s *Store) Load(segments []Segment) {
	cleaned := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Text == "" {
			continue
		}
		if seg.StartMS < 0 {
			seg.StartMS = 0
		}
		if seg.EndMS < seg.StartMS {
			seg.EndMS = seg.StartMS
		}
		cleaned = append(cleaned, seg)
	}

	// Stable keeps the original relative order of segments that share a
	// start time, so the first-match tie-break stays deterministic.
	sort.SliceStable(cleaned, func(i, j int) bool {
		return cleaned[i].StartMS < cleaned[j].StartMS
	})

	s.segments = cleaned
}

// Len returns the number of stored segments.
func (s *Store) Len() int {
	return len(s.segments)
}

// Segments returns a copy of the stored track.
func (s *Store) Segments() []Segment {
	out := make([]Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

// FindActive returns the segment whose window contains t
// (StartMS <= t < EndMS). Windows may overlap; the first match in
// sequence order wins, which is the one with the lowest start time.
func (s *Store) FindActive(t int64) (Segment, bool) {
	for _, seg := range s.segments {
		if seg.StartMS > t {
			// Sorted by start time, nothing later can contain t.
			break
		}
		if t < seg.EndMS {
			return seg, true
		}
	}
	return Segment{}, false
}

// FindNext returns the first segment that starts strictly after t, or
// ok=false when the playhead is past every segment.
func (s *Store) FindNext(t int64) (Segment, bool) {
	for _, seg := range s.segments {
		if seg.StartMS > t {
			return seg, true
		}
	}
	return Segment{}, false
}
