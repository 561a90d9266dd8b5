package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newPrefsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Inspect or reset learned preferences",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show learned tag and category weights, strongest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, appOptions{}, func(a *app) error {
				prefs := a.learner.Store().Snapshot()
				entries := prefs.Entries()
				w := cmd.OutOrStdout()

				if opts.jsonOutput {
					return json.NewEncoder(w).Encode(entries)
				}
				if !a.learner.Enabled() {
					fmt.Fprintln(w, "learning is disabled; draws ignore these weights")
				}
				if len(entries) == 0 {
					fmt.Fprintln(w, "nothing learned yet")
					return nil
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "KIND\tKEY\tWEIGHT")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%+.2f\n", e.Kind, e.Key, e.Weight)
				}
				return tw.Flush()
			})
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Forget everything learned from ratings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, appOptions{}, func(a *app) error {
				if err := a.learner.Reset(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "learned preferences reset")
				return nil
			})
		},
	}

	cmd.AddCommand(show, reset)
	return cmd
}
