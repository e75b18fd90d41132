package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/capvox/capvox/caption"
	"github.com/capvox/capvox/utils"
)

var (
	transcriptWidth uint

	transcriptCmd = &cobra.Command{
		Use:   "transcript FILE",
		Short: "Render a caption file as a readable transcript",
		Long:  paragraph(fmt.Sprintf("\nRender a caption file as %s, without starting the player.", keyword("a formatted transcript"))),
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			segments, err := caption.LoadFile(args[0])
			if err != nil {
				return err //nolint:wrapcheck
			}

			width := int(transcriptWidth) //nolint:gosec
			if width == 0 {
				width = 80
				if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 && w < 120 {
					width = w
				}
			}

			r, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(width),
			)
			if err != nil {
				return fmt.Errorf("unable to create renderer: %w", err)
			}

			out, err := r.Render(transcriptMarkdown(filepath.Base(args[0]), segments))
			if err != nil {
				return fmt.Errorf("unable to render transcript: %w", err)
			}
			fmt.Print(out)
			return nil
		},
	}
)

// transcriptMarkdown lays the segments out as a markdown document.
func transcriptMarkdown(title string, segments []caption.Segment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	for _, seg := range segments {
		fmt.Fprintf(&b, "- **%s** %s\n", utils.FormatTimestamp(seg.StartMS), seg.Text)
	}
	return b.String()
}

func init() {
	transcriptCmd.Flags().UintVarP(&transcriptWidth, "width", "w", 0, "word-wrap at width (0 for terminal width)")
}
