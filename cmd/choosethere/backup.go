package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/choosethere/internal/backup"
)

func newBackupCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or import restaurants and visits",
		Long: `Export or import restaurants and visits as a versioned JSON document.

Learned preferences are not part of a backup.`,
	}

	export := &cobra.Command{
		Use:   "export [file]",
		Short: "Write a backup (default " + backup.DefaultFileName + ", - for stdout)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := backup.DefaultFileName
			if len(args) == 1 {
				path = args[0]
			}
			return withApp(cmd.Context(), opts, appOptions{}, func(a *app) error {
				data, err := a.backup.ExportJSON(cmd.Context())
				if err != nil {
					return err
				}
				if path == "-" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				if err := os.WriteFile(path, data, 0o600); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "backup written to %s\n", path)
				return nil
			})
		},
	}

	var mode string
	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := backup.ParseMode(mode)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, appOptions{}, func(a *app) error {
				res, err := a.backup.ImportJSON(cmd.Context(), data, m)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "restaurants: %d new, %d updated\nvisits:      %d new, %d updated\n",
					res.ImportedRestaurants, res.UpdatedRestaurants, res.ImportedVisits, res.UpdatedVisits)
				return nil
			})
		},
	}
	importCmd.Flags().StringVar(&mode, "mode", string(backup.ModeMergeByID),
		fmt.Sprintf("Import mode: %s or %s", backup.ModeMergeByID, backup.ModeReplaceAll))

	preview := &cobra.Command{
		Use:   "preview <file>",
		Short: "Summarize a backup without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			p, err := backup.NewCodec().Preview(data)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if opts.jsonOutput {
				return json.NewEncoder(w).Encode(p)
			}
			fmt.Fprintf(w, "schema v%d, created %s", p.SchemaVersion, p.CreatedAt.Format("2006-01-02 15:04"))
			if p.AppVersion != "" {
				fmt.Fprintf(w, " by %s", p.AppVersion)
			}
			fmt.Fprintf(w, "\nrestaurants: %d (%d favorites)\nvisits:      %d\n", p.RestaurantCount, p.FavoriteCount, p.VisitCount)
			if len(p.Cities) > 0 {
				fmt.Fprintf(w, "cities:      %s\n", strings.Join(p.Cities, ", "))
			}
			return nil
		},
	}

	cmd.AddCommand(export, importCmd, preview)
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return data, nil
}
