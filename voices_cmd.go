package main

import (
	"fmt"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/capvox/capvox/synth"
)

var voicesCmd = &cobra.Command{
	Use:   "voices [QUERY]",
	Short: "List the voices offered by the configured synthesis engine",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		sink, err := buildSink()
		if err != nil {
			return err
		}
		defer sink.Close() //nolint:errcheck

		voices := sink.Voices()
		if len(args) == 1 {
			voices = filterVoices(voices, args[0])
		}

		if len(voices) == 0 {
			fmt.Println("No matching voices.")
			return nil
		}
		for _, v := range voices {
			fmt.Printf("%-24s %-12s %s\n", v.ID, v.Language, v.Name)
		}
		return nil
	},
}

// voiceHaystack adapts voices to fuzzy matching over id, name, and
// language at once.
type voiceHaystack []synth.Voice

func (h voiceHaystack) String(i int) string {
	return h[i].ID + " " + h[i].Name + " " + h[i].Language
}

func (h voiceHaystack) Len() int { return len(h) }

func filterVoices(voices []synth.Voice, query string) []synth.Voice {
	matches := fuzzy.FindFrom(query, voiceHaystack(voices))
	out := make([]synth.Voice, 0, len(matches))
	for _, m := range matches {
		out = append(out, voices[m.Index])
	}
	return out
}
