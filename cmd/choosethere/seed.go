package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <catalog.toml>",
		Short: "Load restaurants from a TOML catalog",
		Long: `Load restaurants from a TOML catalog. Entries are matched by id; favorites
and ratings of existing restaurants are kept.

Example catalog:
  [[restaurant]]
  id = "izakaya-matsu"
  name = "Izakaya Matsu"
  category = "Bar"
  tags = ["izakaya", "japanese"]
  price = "$$"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, appOptions{}, func(a *app) error {
				res, err := a.seeder.SeedFile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %s: %d inserted, %d updated\n", args[0], res.Inserted, res.Updated)
				return nil
			})
		},
	}
}
