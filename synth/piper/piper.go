// Package piper synthesizes speech through a local piper subprocess
// and plays the resulting PCM through the system audio device.
package piper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/capvox/capvox/internal/audio"
	"github.com/capvox/capvox/synth"
)

// Config holds the piper sink configuration.
type Config struct {
	Binary     string // piper executable, defaults to "piper" on PATH
	ModelPath  string // .onnx model file, required
	ConfigPath string // model config, defaults to ModelPath + ".json"
	SampleRate int    // output sample rate, defaults to 22050
}

// Sink runs one piper process per utterance. A fresh process with
// pre-wired stdin avoids interleaving text across utterances; the
// process handle is kept so CancelAll can kill mid-synthesis.
type Sink struct {
	config Config
	player *audio.Player

	mu     sync.Mutex
	cancel context.CancelFunc // Cancels the in-flight synthesis, if any
	gen    uint64             // Identifies which Speak owns s.cancel
}

// New creates a piper sink and opens the audio device.
func New(config Config) (*Sink, error) {
	if config.Binary == "" {
		config.Binary = "piper"
	}
	if config.ModelPath == "" {
		return nil, errors.New("piper: model path is required")
	}
	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, fmt.Errorf("piper: model file not found: %w", err)
	}
	if config.ConfigPath == "" {
		config.ConfigPath = strings.TrimSuffix(config.ModelPath, filepath.Ext(config.ModelPath)) + ".json"
	}
	if config.SampleRate == 0 {
		config.SampleRate = 22050
	}

	player, err := audio.NewPlayer(audio.Config{
		SampleRate: config.SampleRate,
		Channels:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("piper: %w", err)
	}

	return &Sink{config: config, player: player}, nil
}

// Speak synthesizes the utterance and starts playing it. Synthesis is
// synchronous (piper is fast for caption-sized text); playback returns
// immediately.
func (s *Sink) Speak(ctx context.Context, req synth.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	gen := s.begin(cancel)
	pcm, err := s.synthesize(ctx, req)
	s.finish(gen)

	if err != nil {
		return err
	}

	log.Debug("piper synthesized utterance",
		"bytes", len(pcm),
		"duration", audio.Config{SampleRate: s.config.SampleRate, Channels: 1}.Duration(len(pcm)))

	return s.player.Play(pcm, req.Volume)
}

// begin registers a new in-flight synthesis, cancelling any previous
// one. The returned generation identifies the registration, so a
// superseded Speak cannot later touch a handle that is no longer its
// own.
func (s *Sink) begin(cancel context.CancelFunc) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		// A new utterance supersedes the previous synthesis.
		s.cancel()
	}
	s.gen++
	s.cancel = cancel
	return s.gen
}

// finish clears the handle registered by begin, unless a later Speak
// has already replaced it.
func (s *Sink) finish(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen == gen {
		s.cancel = nil
	}
}

// synthesize runs one piper process for the request.
func (s *Sink) synthesize(ctx context.Context, req synth.Request) ([]byte, error) {
	// Piper's length_scale is the inverse of speaking rate.
	lengthScale := 1.0 / req.Rate

	args := []string{
		"--model", s.config.ModelPath,
		"--config", s.config.ConfigPath,
		"--output-raw",
		"--length_scale", strconv.FormatFloat(lengthScale, 'f', 3, 64),
	}
	if req.Voice != "" {
		args = append(args, "--speaker", req.Voice)
	}

	cmd := exec.CommandContext(ctx, s.config.Binary, args...)
	cmd.Stdin = strings.NewReader(req.Text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("piper failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	pcm := stdout.Bytes()
	if len(pcm) == 0 {
		return nil, errors.New("piper produced no audio")
	}
	return pcm, nil
}

// CancelAll kills any in-flight synthesis and stops playback.
func (s *Sink) CancelAll() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.player.Stop()
}

// Voices returns the model as a single voice; piper voices are model
// files, not runtime-enumerable.
func (s *Sink) Voices() []synth.Voice {
	name := strings.TrimSuffix(filepath.Base(s.config.ModelPath), filepath.Ext(s.config.ModelPath))
	return []synth.Voice{{ID: "0", Name: name}}
}

// Close stops playback and releases the audio device.
func (s *Sink) Close() error {
	s.CancelAll()
	return s.player.Close()
}
