package caption

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseSRT reads SubRip subtitles and returns the parsed segments.
// Cue numbers are ignored; malformed cues are skipped rather than
// failing the whole track, since subtitle files in the wild are messy.
func ParseSRT(r io.Reader) ([]Segment, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		segments []Segment
		current  Segment
		step     int
	)

	flush := func() {
		if current.Text != "" && current.EndMS >= current.StartMS {
			segments = append(segments, current)
		}
		current = Segment{}
		step = 0
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		switch step {
		case 0: // cue number
			if strings.TrimSpace(line) == "" {
				continue
			}
			if _, err := strconv.Atoi(strings.TrimSpace(line)); err == nil {
				step = 1
				continue
			}
			// Some files omit cue numbers and start with the timing line.
			fallthrough
		case 1: // timing line
			start, end, err := parseSRTTiming(line)
			if err != nil {
				// Not a timing line; drop the cue and resync.
				current = Segment{}
				step = 0
				continue
			}
			current.StartMS = start
			current.EndMS = end
			step = 2
		case 2: // text lines until a blank line
			if strings.TrimSpace(line) == "" {
				flush()
				continue
			}
			line = stripMarkup(line)
			if current.Text != "" {
				current.Text += " "
			}
			current.Text += line
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	if step == 2 {
		flush()
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("srt: no cues found")
	}
	return segments, nil
}

// parseSRTTiming parses "00:00:01,234 --> 00:00:03,456" into start and
// end milliseconds.
func parseSRTTiming(line string) (int64, int64, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("srt: malformed timing line %q", line)
	}
	start, err := parseSRTTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	// Position metadata may follow the end timestamp.
	endField := strings.Fields(strings.TrimSpace(parts[1]))
	if len(endField) == 0 {
		return 0, 0, fmt.Errorf("srt: missing end timestamp in %q", line)
	}
	end, err := parseSRTTimestamp(endField[0])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseSRTTimestamp parses "HH:MM:SS,mmm" (or with a dot, which some
// encoders emit) into milliseconds.
func parseSRTTimestamp(ts string) (int64, error) {
	ts = strings.Replace(ts, ",", ".", 1)
	hms := strings.Split(ts, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("srt: malformed timestamp %q", ts)
	}
	h, err := strconv.ParseInt(hms[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("srt: malformed timestamp %q", ts)
	}
	m, err := strconv.ParseInt(hms[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("srt: malformed timestamp %q", ts)
	}
	sec, err := strconv.ParseFloat(hms[2], 64)
	if err != nil {
		return 0, fmt.Errorf("srt: malformed timestamp %q", ts)
	}
	return h*3600000 + m*60000 + int64(sec*1000), nil
}
