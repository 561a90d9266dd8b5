// Choosethere picks where to eat: a weighted restaurant roulette that
// learns from your ratings.
//
// Usage:
//
//	# Start the HTTP API
//	choosethere serve
//
//	# One draw from the local catalog
//	choosethere draw --tag sushi --price '$$' --rating prefer
//
//	# Rate a visit so future draws learn from it
//	choosethere rate izakaya-matsu 5
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions are flags shared by every command.
type rootOptions struct {
	configPath string
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "choosethere",
		Short: "Restaurant roulette that learns what you like",
		Long: `choosethere draws a restaurant at random, weighted by what you asked for
and by what your past ratings taught it. Each draw allows three re-rolls.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/choosethere/config.yaml)")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")

	root.AddCommand(
		newServeCmd(opts),
		newDrawCmd(opts),
		newRateCmd(opts),
		newFavoriteCmd(opts),
		newPrefsCmd(opts),
		newBackupCmd(opts),
		newSeedCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "choosethere by Fyrsmith Labs\n")
			fmt.Fprintf(w, "Version:    %s\n", version)
			fmt.Fprintf(w, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(w, "Build Date: %s\n", buildDate)
		},
	}
}
