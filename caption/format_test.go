package caption

import (
	"strings"
	"testing"
)

const sampleSRT = `1
00:00:00,500 --> 00:00:02,000
Hello there.

2
00:00:02,000 --> 00:00:04,500
<i>General Kenobi!</i>
You are a bold one.

3
bad timing line
should be skipped

4
00:01:00,000 --> 00:01:02,000
Final line.
`

const sampleVTT = `WEBVTT
Kind: captions
Language: en

00:00.500 --> 00:02.000 align:start position:0%
Hello there.

00:02.000 --> 00:04.500
<c.colorE5E5E5>General Kenobi!</c>

NOTE this should be ignored

00:04.500 --> 00:06.000
General Kenobi!

1:00:00.000 --> 1:00:02.000
Final line.
`

const sampleJSON3 = `{
  "events": [
    {"tStartMs": 0, "dDurationMs": 1000},
    {"tStartMs": 500, "dDurationMs": 1500, "segs": [{"utf8": "Hello "}, {"utf8": "there."}]},
    {"tStartMs": 2000, "dDurationMs": 2500, "segs": [{"utf8": "General\nKenobi!"}]}
  ]
}`

func TestParseSRT(t *testing.T) {
	segs, err := ParseSRT(strings.NewReader(sampleSRT))
	if err != nil {
		t.Fatalf("ParseSRT failed: %v", err)
	}
	if len(segs) != 3 {
		t.Fatalf("expected 3 cues, got %d: %+v", len(segs), segs)
	}
	if segs[0].StartMS != 500 || segs[0].EndMS != 2000 || segs[0].Text != "Hello there." {
		t.Errorf("unexpected first cue: %+v", segs[0])
	}
	if segs[1].Text != "General Kenobi! You are a bold one." {
		t.Errorf("markup not stripped or lines not joined: %q", segs[1].Text)
	}
	if segs[2].StartMS != 60000 {
		t.Errorf("expected minute timestamp 60000, got %d", segs[2].StartMS)
	}
}

func TestParseSRTEmpty(t *testing.T) {
	if _, err := ParseSRT(strings.NewReader("\n\n")); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestParseVTT(t *testing.T) {
	segs, err := ParseVTT(strings.NewReader(sampleVTT))
	if err != nil {
		t.Fatalf("ParseVTT failed: %v", err)
	}
	// The rolling duplicate "General Kenobi!" collapses into one cue.
	if len(segs) != 3 {
		t.Fatalf("expected 3 cues, got %d: %+v", len(segs), segs)
	}
	if segs[0].StartMS != 500 || segs[0].EndMS != 2000 {
		t.Errorf("unexpected first cue timing: %+v", segs[0])
	}
	if segs[1].Text != "General Kenobi!" {
		t.Errorf("markup not stripped: %q", segs[1].Text)
	}
	if segs[2].StartMS != 3600000 {
		t.Errorf("expected hour timestamp 3600000, got %d", segs[2].StartMS)
	}
}

func TestParseJSON3(t *testing.T) {
	segs, err := ParseJSON3(strings.NewReader(sampleJSON3))
	if err != nil {
		t.Fatalf("ParseJSON3 failed: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("expected 2 events with text, got %d", len(segs))
	}
	if segs[0].StartMS != 500 || segs[0].EndMS != 2000 || segs[0].Text != "Hello there." {
		t.Errorf("unexpected first event: %+v", segs[0])
	}
	if segs[1].Text != "General Kenobi!" {
		t.Errorf("newline not normalized: %q", segs[1].Text)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
		want Format
	}{
		{"srt extension", "track.srt", "", FormatSRT},
		{"vtt extension", "track.vtt", "", FormatVTT},
		{"json extension", "track.json", "", FormatJSON3},
		{"vtt header", "track", "WEBVTT\n\n00:00.000 --> 00:01.000\nhi", FormatVTT},
		{"vtt header with BOM", "track", "\xef\xbb\xbfWEBVTT\n", FormatVTT},
		{"json body", "track", `{"events":[]}`, FormatJSON3},
		{"srt body", "track", "1\n00:00:00,000 --> 00:00:01,000\nhi\n", FormatSRT},
		{"unknown", "track", "plain text", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.file, []byte(tt.data)); got != tt.want {
				t.Errorf("DetectFormat(%q) = %v, want %v", tt.file, got, tt.want)
			}
		})
	}
}
