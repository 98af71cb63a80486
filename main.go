// Copyright (c) 2024 cblomart
// Licensed under the MIT License

package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	_ "chasopis/docs"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "chasopis",
		Short: "Belarusian-language publishing site back end",
		Long: `Chasopis serves articles with faceted search, reader likes and comments,
and first-party visit analytics. Without a subcommand it runs the HTTP server.

Configuration is read from the environment, .env.local and .env.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	root.AddCommand(
		serveCommand(),
		statsCommand(),
		articlesCommand(),
		importCommand(),
	)
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
