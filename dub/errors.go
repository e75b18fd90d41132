package dub

import "errors"

// Errors surfaced by the dubbing engine. All of these are recoverable
// at the caller: the engine favors keeping the video playable over
// strict synchronization, so nothing here is ever fatal to the process.
var (
	// ErrNoMediaSource is returned by Start when no playback clock is
	// attached. The caller should retry once media appears.
	ErrNoMediaSource = errors.New("no media source attached")

	// ErrAlreadyActive is returned by Start when a session is running.
	ErrAlreadyActive = errors.New("dubbing session already active")

	// ErrNoCaptions is returned by Start when the caption store holds
	// no track.
	ErrNoCaptions = errors.New("no caption track loaded")
)
