package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
	"github.com/fyrsmithlabs/choosethere/internal/roulette"
)

type drawOptions struct {
	tags    []string
	avoid   []string
	price   string
	rating  string
	rerolls int
}

func newDrawCmd(opts *rootOptions) *cobra.Command {
	d := &drawOptions{}
	cmd := &cobra.Command{
		Use:   "draw",
		Short: "Draw a restaurant from the local catalog",
		Long: `Draw a restaurant from the local catalog.

Examples:
  # Anything tagged sushi or ramen, moderate prices
  choosethere draw --tag sushi --tag ramen --price '$$'

  # Only well-rated places, re-rolling twice
  choosethere draw --rating only --rerolls 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pc, err := d.context()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, appOptions{}, func(a *app) error {
				return runDraw(cmd, a, pc, d.rerolls, opts.jsonOutput)
			})
		},
	}
	cmd.Flags().StringSliceVar(&d.tags, "tag", nil, "Desired tag (repeatable; any match counts)")
	cmd.Flags().StringSliceVar(&d.avoid, "avoid", nil, "Tag to avoid (repeatable)")
	cmd.Flags().StringVar(&d.price, "price", "", "Price tier: cheap|moderate|expensive or $..$$$")
	cmd.Flags().StringVar(&d.rating, "rating", "none", "Rating priority: none|prefer|only")
	cmd.Flags().IntVar(&d.rerolls, "rerolls", 0, fmt.Sprintf("Re-roll this many times after the first draw (max %d)", roulette.MaxRerolls))
	return cmd
}

func (d *drawOptions) context() (restaurant.PreferenceContext, error) {
	price, err := restaurant.ParsePriceTier(d.price)
	if err != nil {
		return restaurant.PreferenceContext{}, err
	}
	priority, err := restaurant.ParseRatingPriority(d.rating)
	if err != nil {
		return restaurant.PreferenceContext{}, err
	}
	if d.rerolls < 0 {
		return restaurant.PreferenceContext{}, errors.New("--rerolls cannot be negative")
	}
	return restaurant.PreferenceContext{
		DesiredTags:    d.tags,
		AvoidTags:      d.avoid,
		Price:          price,
		RatingPriority: priority,
	}, nil
}

func runDraw(cmd *cobra.Command, a *app, pc restaurant.PreferenceContext, rerolls int, asJSON bool) error {
	ctx := cmd.Context()
	session := roulette.NewSession(pc)

	outcome, err := a.roulette.Draw(ctx, session)
	if err != nil {
		return err
	}
	outcomes := []roulette.Outcome{outcome}

	for i := 0; i < rerolls; i++ {
		outcome, err = a.roulette.Reroll(ctx, session)
		if errors.Is(err, roulette.ErrRerollExhausted) {
			break
		}
		if err != nil {
			return err
		}
		outcomes = append(outcomes, outcome)
	}

	w := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(outcomes)
	}
	for i, o := range outcomes {
		label := "Draw"
		if i > 0 {
			label = fmt.Sprintf("Re-roll %d", i)
		}
		printOutcome(w, label, o)
	}
	if rerolls > roulette.MaxRerolls {
		fmt.Fprintf(w, "(only %d re-rolls allowed per draw)\n", roulette.MaxRerolls)
	}
	return nil
}

func printOutcome(w io.Writer, label string, o roulette.Outcome) {
	if !o.Picked() {
		fmt.Fprintf(w, "%s: nothing matches, try relaxing your filters\n", label)
		return
	}
	c := o.Candidate
	fmt.Fprintf(w, "%s: %s [%s]\n", label, c.Name, c.ID)
	if c.Category != "" {
		fmt.Fprintf(w, "  category: %s\n", c.Category)
	}
	if len(c.Tags) > 0 {
		fmt.Fprintf(w, "  tags:     %s\n", strings.Join(c.Tags, ", "))
	}
	fmt.Fprintf(w, "  rating:   %s (%d visits)\n", restaurant.FormatRating(c.Rating), c.RatingCount)
	if o.Relaxation != roulette.RelaxNone {
		fmt.Fprintf(w, "  note:     repeated a recent pick (%s)\n", o.Relaxation)
	}
}
