package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/choosethere/internal/visits"
)

type rateOptions struct {
	tags        []string
	note        string
	wouldReturn bool
	isMatch     bool
}

func newRateCmd(opts *rootOptions) *cobra.Command {
	r := &rateOptions{}
	cmd := &cobra.Command{
		Use:   "rate <restaurant-id> <1-5>",
		Short: "Record a rated visit",
		Long: `Record a rated visit. The rating also updates the learned tag and
category weights that bias future draws (unless learning is disabled).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("rating must be a number from 1 to 5: %w", err)
			}
			req := visits.RecordRequest{
				RestaurantID: args[0],
				Rating:       rating,
				Tags:         r.tags,
				Note:         r.note,
				IsMatch:      r.isMatch,
				WouldReturn:  r.wouldReturn,
			}
			return withApp(cmd.Context(), opts, appOptions{}, func(a *app) error {
				visit, err := a.visits.Submit(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded visit %s for %s (rating %d)\n",
					visit.ID, visit.RestaurantID, visit.Rating)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&r.tags, "tag", nil, "Tag describing this visit (repeatable)")
	cmd.Flags().StringVar(&r.note, "note", "", "Free-text note")
	cmd.Flags().BoolVar(&r.wouldReturn, "would-return", false, "Would go back")
	cmd.Flags().BoolVar(&r.isMatch, "match", false, "The place matched what the draw asked for")
	return cmd
}
