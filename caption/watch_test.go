package caption

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const watchSRT = `1
00:00:00,000 --> 00:00:02,000
rewritten line
`

func TestWatcherDeliversRewrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.srt")
	if err := os.WriteFile(path, []byte("1\n00:00:00,000 --> 00:00:01,000\noriginal\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := WatchFile(path)
	if err != nil {
		t.Fatalf("WatchFile: %v", err)
	}
	defer w.Close() //nolint:errcheck

	if err := os.WriteFile(path, []byte(watchSRT), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case segments := <-w.Tracks:
		if len(segments) != 1 || segments[0].Text != "rewritten line" {
			t.Errorf("unexpected reload payload: %+v", segments)
		}
	case err := <-w.Errors:
		t.Fatalf("reload failed: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.srt")
	if err := os.WriteFile(path, []byte(watchSRT), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := WatchFile(path)
	if err != nil {
		t.Fatalf("WatchFile: %v", err)
	}
	defer w.Close() //nolint:errcheck

	if err := os.WriteFile(filepath.Join(dir, "other.srt"), []byte(watchSRT), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Tracks:
		t.Fatal("sibling file change should not trigger a reload")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherCloseReleasesChannels(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.srt")
	if err := os.WriteFile(path, []byte(watchSRT), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := WatchFile(path)
	if err != nil {
		t.Fatalf("WatchFile: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Consumers range over the channels; Close must end them rather
	// than leave receivers blocked forever.
	deadline := time.After(2 * time.Second)
	for tracksOpen, errorsOpen := true, true; tracksOpen || errorsOpen; {
		select {
		case _, ok := <-w.Tracks:
			if !ok {
				tracksOpen = false
			}
		case _, ok := <-w.Errors:
			if !ok {
				errorsOpen = false
			}
		case <-deadline:
			t.Fatal("channels not closed after Close")
		}
	}
}
