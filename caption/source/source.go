// Package source resolves and fetches caption tracks for a video.
package source

import (
	"context"
	"errors"

	"golang.org/x/text/language"

	"github.com/capvox/capvox/caption"
)

// ErrCaptionsUnavailable is returned when a video offers no caption
// track at all. A non-matching locale is not this error; any available
// track is preferred over giving up.
var ErrCaptionsUnavailable = errors.New("no captions available for video")

// Track describes one caption track offered for a video.
type Track struct {
	Lang string // BCP 47 language tag, e.g. "pt-BR"
	Name string // Human-readable track name
	URL  string // Where the payload can be fetched
}

// Source lists and fetches caption tracks. Implementations cover remote
// caption services; how a track is fetched is not the engine's concern.
type Source interface {
	// ListTracks returns the tracks offered for a video, or
	// ErrCaptionsUnavailable when there are none.
	ListTracks(ctx context.Context, videoID string) ([]Track, error)

	// FetchTrack downloads and parses a track's segments.
	FetchTrack(ctx context.Context, track Track) ([]caption.Segment, error)
}

// ResolveTrack picks the best track for an ordered list of locale
// candidates: an exact tag match on the first candidate wins, then the
// remaining candidates in listed order (a base-language match counts),
// and as a last resort the first available track. It only fails when
// there is no track at all.
func ResolveTrack(tracks []Track, candidates []string) (Track, error) {
	if len(tracks) == 0 {
		return Track{}, ErrCaptionsUnavailable
	}

	for _, cand := range candidates {
		want, err := language.Parse(cand)
		if err != nil {
			continue
		}
		for _, track := range tracks {
			got, err := language.Parse(track.Lang)
			if err != nil {
				continue
			}
			if got == want {
				return track, nil
			}
		}
		// No exact tag; accept a track sharing the candidate's base
		// language ("pt" matches "pt-PT") before moving to the next
		// candidate.
		wantBase, _ := want.Base()
		for _, track := range tracks {
			got, err := language.Parse(track.Lang)
			if err != nil {
				continue
			}
			if gotBase, conf := got.Base(); conf != language.No && gotBase == wantBase {
				return track, nil
			}
		}
	}

	// Nothing matched any candidate; a track in the wrong language
	// still beats silence.
	return tracks[0], nil
}
