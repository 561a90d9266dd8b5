package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFavoriteCmd(opts *rootOptions) *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "favorite <restaurant-id>",
		Short: "Mark a restaurant as a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, appOptions{}, func(a *app) error {
				if err := a.restaurants.SetFavorite(cmd.Context(), args[0], !off); err != nil {
					return err
				}
				state := "favorite"
				if off {
					state = "not a favorite"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], state)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "Clear the favorite flag instead")
	return cmd
}
