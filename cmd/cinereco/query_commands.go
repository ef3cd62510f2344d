package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cinereco/internal/dataset"
	"cinereco/internal/recommend"
	"cinereco/internal/snapshot"
)

func (c *commandContext) loadIndex(cmd *cobra.Command, idf bool) (*recommend.Index, error) {
	ws, err := c.openWorkspace(cmd.Context())
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	schema, err := dataset.SchemaFor(dataset.FinalName)
	if err != nil {
		return nil, err
	}
	final, err := ws.store.Read(cmd.Context(), dataset.FinalName, schema)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			return nil, fmt.Errorf("no final dataset yet; run 'cinereco build' first: %w", err)
		}
		return nil, err
	}
	var opts []recommend.Option
	if idf {
		opts = append(opts, recommend.WithIDF())
	}
	return recommend.NewIndex(final, opts...)
}

func newRecommendCommand(ctx *commandContext) *cobra.Command {
	var neighbors int
	var idf bool

	cmd := &cobra.Command{
		Use:   "recommend <title>",
		Short: "List the movies most similar to a title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if neighbors <= 0 {
				neighbors = cfg.Recommend.Neighbors
			}
			index, err := ctx.loadIndex(cmd, idf)
			if err != nil {
				return err
			}
			title := strings.Join(args, " ")
			matches, err := index.Similar(title, neighbors)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(matches))
			for i, m := range matches {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					m.Title,
					formatYear(m.Year),
					strconv.FormatFloat(m.Score, 'f', 3, 64),
					strconv.FormatFloat(m.Rating, 'f', 1, 64),
					m.URL,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Title", "Year", "Similarity", "Rating", "IMDb"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&neighbors, "neighbors", "k", 0, "Number of recommendations (default from config)")
	cmd.Flags().BoolVar(&idf, "idf", false, "Weight shared features by rarity")
	return cmd
}

func newTopCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "top [genre]",
		Short: "List the best rated movies, optionally within a genre",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = cfg.Recommend.TopN
			}
			index, err := ctx.loadIndex(cmd, false)
			if err != nil {
				return err
			}
			genre := ""
			if len(args) == 1 {
				genre = args[0]
			}
			movies := index.TopRated(genre, limit)
			out := cmd.OutOrStdout()
			if len(movies) == 0 {
				fmt.Fprintf(out, "No movies found for genre %q\n", genre)
				return nil
			}
			rows := make([][]string, 0, len(movies))
			for i, m := range movies {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					m.Title,
					formatYear(m.Year),
					strconv.FormatFloat(m.Rating, 'f', 1, 64),
					strconv.FormatInt(m.Votes, 10),
					m.Genres,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Title", "Year", "Rating", "Votes", "Genres"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of movies (default from config)")
	return cmd
}

func formatYear(year int64) string {
	if year == 0 {
		return "-"
	}
	return strconv.FormatInt(year, 10)
}
