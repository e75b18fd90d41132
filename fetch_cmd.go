package main

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"

	"github.com/capvox/capvox/caption/source"
	"github.com/capvox/capvox/internal/cache"
	"github.com/capvox/capvox/utils"
)

var (
	fetchLangs   []string
	fetchBaseURL string
	fetchNoCache bool

	fetchCmd = &cobra.Command{
		Use:   "fetch VIDEO_ID",
		Short: "Fetch a caption track and print its transcript",
		Long:  paragraph(fmt.Sprintf("\nResolve the best caption track for a video by %s and print it, caching the payload for later runs.", keyword("language preference"))),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []source.HTTPOption{}
			if !fetchNoCache {
				if disk := openTrackCache(); disk != nil {
					opts = append(opts, source.WithCache(disk))
				}
			}

			src := source.NewHTTPSource(fetchBaseURL, opts...)
			ctx := cmd.Context()

			tracks, err := src.ListTracks(ctx, args[0])
			if err != nil {
				return err //nolint:wrapcheck
			}

			track, err := source.ResolveTrack(tracks, fetchLangs)
			if err != nil {
				return err //nolint:wrapcheck
			}
			log.Debug("resolved caption track", "lang", track.Lang, "name", track.Name)

			segments, err := src.FetchTrack(ctx, track)
			if err != nil {
				return err //nolint:wrapcheck
			}

			fmt.Printf("# %s (%s)\n", track.Name, track.Lang)
			for _, seg := range segments {
				fmt.Printf("[%s] %s\n", utils.FormatTimestamp(seg.StartMS), seg.Text)
			}
			return nil
		},
	}
)

// openTrackCache opens the on-disk payload cache, or returns nil when
// the cache directory cannot be used. Fetching works without it.
func openTrackCache() *cache.Disk {
	scope := gap.NewScope(gap.User, "capvox")
	dir, err := scope.CacheDir()
	if err != nil {
		log.Debug("track cache unavailable", "err", err)
		return nil
	}
	dir = filepath.Join(dir, "tracks")
	disk, err := cache.NewDisk(dir, 0)
	if err != nil {
		log.Debug("track cache unavailable", "dir", dir, "err", err)
		return nil
	}
	return disk
}

func init() {
	fetchCmd.Flags().StringSliceVarP(&fetchLangs, "lang", "l", nil, "preferred languages, best first (e.g. pt-BR,pt,en)")
	fetchCmd.Flags().StringVar(&fetchBaseURL, "base-url", source.DefaultBaseURL, "caption service base URL")
	fetchCmd.Flags().BoolVar(&fetchNoCache, "no-cache", false, "bypass the track cache")
}
