package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/famomatic/tubetap/client"
)

func newListCommand(flags *rootFlags) *cobra.Command {
	var (
		progressiveOnly bool
		audioOnly       bool
		videoOnly       bool
		subtype         string
		withSizes       bool
	)

	cmd := &cobra.Command{
		Use:   "list <url-or-id>",
		Short: "List the resolved stream variants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := flags.commandContext()
			defer cancel()

			cfg, err := flags.clientConfig()
			if err != nil {
				return err
			}
			s, err := client.Fetch(ctx, args[0], cfg)
			if err != nil {
				return err
			}

			q := s.Streams().Filter(client.FilterOptions{
				Progressive: progressiveOnly,
				OnlyAudio:   audioOnly,
				OnlyVideo:   videoOnly,
				Subtype:     subtype,
			}).OrderBy(client.OrderByResolution).Desc()

			if q.Count() == 0 {
				color.Yellow("no streams match")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ITAG\tTYPE\tQUALITY\tCODECS\tSIZE")
			for _, st := range q.All() {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					st.Itag, st.MimeType, streamQuality(st),
					strings.Join(st.Codecs, ","), streamSize(ctx, st, withSizes))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&progressiveOnly, "progressive", false, "only muxed audio+video variants")
	cmd.Flags().BoolVar(&audioOnly, "audio", false, "only audio-only variants")
	cmd.Flags().BoolVar(&videoOnly, "video", false, "only video-only variants")
	cmd.Flags().StringVar(&subtype, "subtype", "", "container filter (mp4, webm)")
	cmd.Flags().BoolVar(&withSizes, "sizes", false, "probe filesizes (one request per unsized stream)")
	return cmd
}

func streamQuality(st *client.Stream) string {
	switch {
	case st.Resolution != "" && st.FPS > 0:
		return fmt.Sprintf("%s@%dfps", st.Resolution, st.FPS)
	case st.Resolution != "":
		return st.Resolution
	case st.ABR != "":
		return st.ABR
	default:
		return st.Quality
	}
}

func streamSize(ctx context.Context, st *client.Stream, probe bool) string {
	if !probe {
		if st.DeclaredSize > 0 {
			return humanize.Bytes(uint64(st.DeclaredSize))
		}
		return "-"
	}
	size, err := st.Filesize(ctx)
	if err != nil {
		return "?"
	}
	return humanize.Bytes(uint64(size))
}
