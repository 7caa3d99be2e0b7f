package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/famomatic/tubetap/client"
)

func newInfoCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info <url-or-id>",
		Short: "Show video metadata and a stream summary",
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

			bold := color.New(color.Bold)
			bold.Printf("Title:   ")
			fmt.Println(orUnknown(s.Title()))
			bold.Printf("Author:  ")
			fmt.Println(orUnknown(s.Author()))
			bold.Printf("Length:  ")
			if secs := s.LengthSeconds(); secs > 0 {
				fmt.Println(time.Duration(secs) * time.Second)
			} else {
				fmt.Println("unknown")
			}

			streams := s.Streams()
			progressive := streams.Filter(client.FilterOptions{Progressive: true}).Count()
			fmt.Printf("Streams: %d (%d progressive, %d adaptive)\n",
				streams.Count(), progressive, streams.Count()-progressive)
			return nil
		},
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
