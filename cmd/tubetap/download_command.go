package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/famomatic/tubetap/client"
	"github.com/famomatic/tubetap/internal/pick"
)

func newDownloadCommand(flags *rootFlags) *cobra.Command {
	var (
		itag       int
		resolution string
		audioOnly  bool
		selectExpr string
		outDir     string
	)

	cmd := &cobra.Command{
		Use:   "download <url-or-id>",
		Short: "Download one stream variant",
		Long: `Download one stream variant. By default the highest-resolution
progressive variant is selected; use --itag, --resolution, --audio or a
--select expression to pick a different one.

Select expressions try "/"-separated alternatives in order, each a keyword
with optional bracketed filters:

  tubetap download <id> --select "bestaudio[ext=m4a]/bestaudio"
  tubetap download <id> --select "best[res<=720]"
  tubetap download <id> --select "itag=22/best"`,
		Args: cobra.ExactArgs(1),
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

			var st *client.Stream
			if selectExpr != "" {
				st, err = selectStream(s.Streams(), selectExpr)
			} else {
				st, err = pickStream(s.Streams(), itag, resolution, audioOnly)
			}
			if err != nil {
				return err
			}

			size, err := st.Filesize(ctx)
			if err != nil {
				return fmt.Errorf("measure stream size: %w", err)
			}
			fmt.Printf("%s (itag %d, %s)\n", orUnknown(s.Title()), st.Itag, humanize.Bytes(uint64(size)))

			bar := progressbar.DefaultBytes(size, "downloading")
			s.OnProgress(func(_ *client.Stream, chunk []byte, _ int64) {
				bar.Add(len(chunk))
			})

			path, err := st.DownloadTo(ctx, outDir)
			if err != nil {
				return err
			}
			bar.Finish()
			color.Green("saved %s", path)
			return nil
		},
	}

	cmd.Flags().IntVar(&itag, "itag", 0, "download the stream with this itag")
	cmd.Flags().StringVar(&resolution, "resolution", "", "download the variant with this resolution (e.g. 720p)")
	cmd.Flags().BoolVar(&audioOnly, "audio", false, "download the highest-bitrate audio-only variant")
	cmd.Flags().StringVar(&selectExpr, "select", "", `selection expression, e.g. "bestaudio/best"`)
	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "output directory")
	return cmd
}

// selectStream resolves a selection expression against the stream collection.
func selectStream(q *client.StreamQuery, expr string) (*client.Stream, error) {
	sel, err := pick.Parse(expr)
	if err != nil {
		return nil, err
	}
	streams := q.All()
	candidates := make([]pick.Candidate, len(streams))
	for i, st := range streams {
		candidates[i] = pick.Candidate{
			Itag:        st.Itag,
			Height:      leadingInt(st.Resolution),
			FPS:         st.FPS,
			Bitrate:     leadingInt(st.ABR),
			Ext:         st.Subtype(),
			Audio:       st.AudioTrack,
			Video:       st.VideoTrack,
			Progressive: st.Progressive,
		}
	}
	idx := sel.Choose(candidates)
	if idx < 0 {
		return nil, fmt.Errorf("%w match %q", client.ErrNoStreams, expr)
	}
	return streams[idx], nil
}

func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}

func pickStream(q *client.StreamQuery, itag int, resolution string, audioOnly bool) (*client.Stream, error) {
	switch {
	case itag != 0:
		if st := q.GetByItag(itag); st != nil {
			return st, nil
		}
		return nil, fmt.Errorf("no stream with itag %d", itag)
	case audioOnly:
		if st := q.Filter(client.FilterOptions{OnlyAudio: true}).Highest(client.OrderByABR); st != nil {
			return st, nil
		}
		return nil, fmt.Errorf("%w: no audio-only variants", client.ErrNoStreams)
	case resolution != "":
		if st := q.Filter(client.FilterOptions{Resolution: resolution}).First(); st != nil {
			return st, nil
		}
		return nil, fmt.Errorf("no stream with resolution %s", resolution)
	default:
		if st := q.Filter(client.FilterOptions{Progressive: true}).Highest(client.OrderByResolution); st != nil {
			return st, nil
		}
		return nil, fmt.Errorf("%w: no progressive variants", client.ErrNoStreams)
	}
}
