package caption

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	// vttTimingRe matches WEBVTT cue timings like
	// "00:00:01.234 --> 00:00:03.456", with the hours field optional and
	// optional position/alignment settings after the timestamps.
	vttTimingRe = regexp.MustCompile(`^(?:(\d{1,2}):)?(\d{2}):(\d{2})\.(\d{3})\s*-->\s*(?:(\d{1,2}):)?(\d{2}):(\d{2})\.(\d{3})`)

	// vttMarkupRe matches inline markup tags (<c>, <v Speaker>, <i>,
	// timestamps like <00:00:01.000>) found in cue payloads.
	vttMarkupRe = regexp.MustCompile(`<[^>]*>`)

	// vttSkipRe matches header and metadata lines (WEBVTT, NOTE, STYLE,
	// REGION, Kind:, Language:).
	vttSkipRe = regexp.MustCompile(`^(WEBVTT|NOTE|STYLE|REGION|Kind:|Language:)`)
)

// ParseVTT reads WEBVTT subtitles and returns the parsed segments.
// Auto-generated tracks repeat rolling lines across overlapping cues;
// consecutive duplicate payloads are collapsed into the earlier cue.
func ParseVTT(r io.Reader) ([]Segment, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		segments []Segment
		current  *Segment
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Text = strings.TrimSpace(current.Text)
		if current.Text != "" {
			// Rolling captions repeat the previous payload; keep the
			// first occurrence only.
			if n := len(segments); n == 0 || segments[n-1].Text != current.Text {
				segments = append(segments, *current)
			}
		}
		current = nil
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if vttSkipRe.MatchString(line) {
			continue
		}

		if m := vttTimingRe.FindStringSubmatch(line); m != nil {
			flush()
			current = &Segment{
				StartMS: vttMillis(m[1], m[2], m[3], m[4]),
				EndMS:   vttMillis(m[5], m[6], m[7], m[8]),
			}
			continue
		}

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		// Anything else before a timing line is a cue identifier.
		if current == nil {
			continue
		}

		text := strings.TrimSpace(vttMarkupRe.ReplaceAllString(line, ""))
		if text == "" {
			continue
		}
		if current.Text != "" {
			current.Text += " "
		}
		current.Text += text
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vtt: %w", err)
	}
	flush()

	if len(segments) == 0 {
		return nil, fmt.Errorf("vtt: no cues found")
	}
	return segments, nil
}

// vttMillis converts the captured h/m/s/ms fields into milliseconds.
// The hours group may be empty.
func vttMillis(h, m, s, ms string) int64 {
	return atoi64(h)*3600000 + atoi64(m)*60000 + atoi64(s)*1000 + atoi64(ms)
}

func atoi64(s string) int64 {
	var n int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int64(c-'0')
	}
	return n
}
