package caption

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// rawJSON3 mirrors the fields of the YouTube timedtext "json3" payload
// that matter for playback. Unknown fields are ignored on purpose; the
// format carries plenty of styling metadata we have no use for.
type rawJSON3 struct {
	Events []rawJSON3Event `json:"events"`
}

type rawJSON3Event struct {
	StartMS    int64         `json:"tStartMs"`
	DurationMS int64         `json:"dDurationMs"`
	Segs       []rawJSON3Seg `json:"segs"`
}

type rawJSON3Seg struct {
	UTF8 string `json:"utf8"`
}

// ParseJSON3 reads a timedtext json3 payload and returns the parsed
// segments. Events without renderable text (window markers, music
// notes stripped to nothing) are dropped.
func ParseJSON3(r io.Reader) ([]Segment, error) {
	var raw rawJSON3
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("json3: decode error: %w", err)
	}

	segments := make([]Segment, 0, len(raw.Events))
	for _, ev := range raw.Events {
		var b strings.Builder
		for _, seg := range ev.Segs {
			b.WriteString(seg.UTF8)
		}
		text := strings.TrimSpace(strings.ReplaceAll(b.String(), "\n", " "))
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			StartMS: ev.StartMS,
			EndMS:   ev.StartMS + ev.DurationMS,
			Text:    text,
		})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("json3: no caption events found")
	}
	return segments, nil
}
