package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/famomatic/tubetap/client"
	"github.com/famomatic/tubetap/internal/fetch"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	timeout    time.Duration
	userAgent  string
	cookieFile string
	verbose    bool
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "tubetap",
		Short: "Resolve watch pages into downloadable stream variants",
		Long: `tubetap resolves a watch-page URL or video id into its playable stream
variants, lists them, and downloads a selected one.

Examples:
  tubetap info dQw4w9WgXcQ
  tubetap list https://www.youtube.com/watch?v=dQw4w9WgXcQ
  tubetap download dQw4w9WgXcQ --itag 22 -o ./downloads`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().DurationVar(&flags.timeout, "timeout", 2*time.Minute, "overall command timeout")
	cmd.PersistentFlags().StringVar(&flags.userAgent, "user-agent", "", "override the request User-Agent")
	cmd.PersistentFlags().StringVar(&flags.cookieFile, "cookies", "", "Netscape cookies.txt to send with requests")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log non-fatal pipeline warnings")

	cmd.AddCommand(newInfoCommand(flags))
	cmd.AddCommand(newListCommand(flags))
	cmd.AddCommand(newDownloadCommand(flags))
	return cmd
}

// commandContext derives a signal-aware context bounded by the timeout flag.
func (f *rootFlags) commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func (f *rootFlags) clientConfig() (client.Config, error) {
	cfg := client.Config{UserAgent: f.userAgent}
	if f.verbose {
		cfg.Logger = stderrLogger{}
	}
	if f.cookieFile != "" {
		jar, err := fetch.LoadCookieJar(f.cookieFile)
		if err != nil {
			return client.Config{}, err
		}
		cfg.CookieJar = jar
	}
	return cfg, nil
}

type stderrLogger struct{}

func (stderrLogger) Warnf(format string, args ...any) {
	log.Printf("warn: "+format, args...)
}
