package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Config describes the PCM format the player accepts.
type Config struct {
	SampleRate int // Samples per second
	Channels   int // 1 (mono) or 2 (stereo)
}

// DefaultConfig matches what speech synthesizers commonly emit.
func DefaultConfig() Config {
	return Config{
		SampleRate: 22050,
		Channels:   1,
	}
}

func (c Config) validate() error {
	if c.SampleRate < 8000 || c.SampleRate > 48000 {
		return fmt.Errorf("sample rate must be between 8000 and 48000 Hz, got %d", c.SampleRate)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", c.Channels)
	}
	return nil
}

// Duration returns the playback time of a 16-bit PCM payload in this
// format.
func (c Config) Duration(n int) time.Duration {
	samples := n / (c.Channels * 2)
	return time.Duration(samples) * time.Second / time.Duration(c.SampleRate)
}

// Player plays 16-bit little-endian PCM through the system audio
// device. One oto context is created per process; the player holds it
// for its lifetime.
type Player struct {
	context *oto.Context
	config  Config

	mu     sync.Mutex
	player *oto.Player
	data   []byte // Kept alive for the duration of playback
	closed bool
}

// NewPlayer opens the system audio device.
func NewPlayer(config Config) (*Player, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid audio config: %w", err)
	}

	op := &oto.NewContextOptions{
		SampleRate:   config.SampleRate,
		ChannelCount: config.Channels,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("unable to create audio context: %w", err)
	}
	<-ready

	return &Player{context: ctx, config: config}, nil
}

// Play starts playing the given PCM payload, stopping any current
// playback first. It returns immediately; playback proceeds in the
// background.
func (p *Player) Play(pcm []byte, volume float64) error {
	if len(pcm) == 0 {
		return errors.New("audio data is empty")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("player is closed")
	}

	p.stopLocked()

	// Copy so the caller can reuse its buffer while oto reads ours.
	data := make([]byte, len(pcm))
	copy(data, pcm)

	player := p.context.NewPlayer(bytes.NewReader(data))
	player.SetVolume(clampVolume(volume))

	p.player = player
	p.data = data
	player.Play()
	return nil
}

// Stop halts playback immediately. Safe to call when nothing plays.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// IsPlaying reports whether audio is currently being played.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.player != nil && p.player.IsPlaying()
}

// Close stops playback and releases the device.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.closed = true
	return nil
}

func (p *Player) stopLocked() {
	if p.player != nil {
		p.player.Pause()
		p.player.Close() //nolint:errcheck
		p.player = nil
		p.data = nil
	}
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
