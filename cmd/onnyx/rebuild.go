package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Icannotcodelol/onnyx/internal/elo"
	"github.com/Icannotcodelol/onnyx/internal/types"
)

var rebuildCommand = &cobra.Command{
	Use:   "rebuild-ratings",
	Short: "Recompute all ratings from the vote log",
	Long: `Replays every vote in insertion order and overwrites the ratings table
with the result. Votes are the ground truth; use this after restoring a backup
or fixing bad rating data.`,
	RunE: runRebuildCmd,
}

func init() {
	rootCmd.AddCommand(rebuildCommand)
}

func runRebuildCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	pairs, err := a.db.VoteModelPairs(ctx)
	if err != nil {
		return err
	}

	games := make([]elo.Game, len(pairs))
	for i, pair := range pairs {
		games[i] = elo.Game{Winner: pair[0], Loser: pair[1]}
	}

	states := elo.Replay(games)
	ratings := make([]types.Rating, 0, len(states))
	for modelID, state := range states {
		ratings = append(ratings, types.Rating{
			ModelID:   modelID,
			Rating:    state.Rating,
			Sparkline: state.Sparkline,
		})
	}

	if err := a.db.ReplaceRatings(ctx, ratings); err != nil {
		return err
	}
	fmt.Printf("replayed %d votes across %d models\n", len(games), len(ratings))
	return nil
}
