package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Icannotcodelol/onnyx/internal/types"
)

// InsertVote appends one vote row. Votes are never updated or deleted.
func (db *DB) InsertVote(ctx context.Context, vote *types.Vote) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO votes (match_id, winner_submission, loser_submission, voter_key, ip_hash)
		 VALUES ($1, $2, $3, $4, $5)`,
		vote.MatchID, vote.WinnerSubmission, vote.LoserSubmission, vote.VoterKey, vote.IPHash,
	)
	if err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}
	return nil
}

// ApplyVoteElo invokes the atomic rating-update procedure. Both
// ratings and sparklines are computed and written inside one database
// transaction so concurrent votes serialize there, not here.
func (db *DB) ApplyVoteElo(ctx context.Context, vote *types.Vote) error {
	_, err := db.pool.Exec(ctx,
		`SELECT apply_vote_elo($1, $2, $3)`,
		vote.MatchID, vote.WinnerSubmission, vote.LoserSubmission,
	)
	if err != nil {
		return fmt.Errorf("failed to apply vote elo: %w", err)
	}
	return nil
}

// Leaderboard returns current ratings joined with model identity,
// highest rating first.
func (db *DB) Leaderboard(ctx context.Context) ([]types.Rating, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT r.model_id, r.rating, m.label, COALESCE(p.name, ''), r.sparkline
		 FROM ratings r
		 JOIN models m ON m.id = r.model_id
		 LEFT JOIN model_providers p ON p.id = m.provider_id
		 ORDER BY r.rating DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	defer rows.Close()

	var ratings []types.Rating
	for rows.Next() {
		var rating types.Rating
		if err := rows.Scan(&rating.ModelID, &rating.Rating, &rating.ModelLabel,
			&rating.ProviderName, &rating.Sparkline); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}
	return ratings, rows.Err()
}

// VoteModelPairs returns the (winner model, loser model) of every vote
// in insertion order, for replaying the vote log.
func (db *DB) VoteModelPairs(ctx context.Context) ([][2]uuid.UUID, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT ws.model_id, ls.model_id
		 FROM votes v
		 JOIN submissions ws ON ws.id = v.winner_submission
		 JOIN submissions ls ON ls.id = v.loser_submission
		 ORDER BY v.created_at ASC, v.id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load vote log: %w", err)
	}
	defer rows.Close()

	var pairs [][2]uuid.UUID
	for rows.Next() {
		var pair [2]uuid.UUID
		if err := rows.Scan(&pair[0], &pair[1]); err != nil {
			return nil, fmt.Errorf("failed to scan vote pair: %w", err)
		}
		pairs = append(pairs, pair)
	}
	return pairs, rows.Err()
}

// ReplaceRatings overwrites the ratings table with the given set, in
// one transaction.
func (db *DB) ReplaceRatings(ctx context.Context, ratings []types.Rating) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin ratings rewrite: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM ratings`); err != nil {
		return fmt.Errorf("failed to clear ratings: %w", err)
	}
	for _, r := range ratings {
		_, err := tx.Exec(ctx,
			`INSERT INTO ratings (model_id, rating, sparkline) VALUES ($1, $2, $3)`,
			r.ModelID, r.Rating, r.Sparkline,
		)
		if err != nil {
			return fmt.Errorf("failed to insert rating for %s: %w", r.ModelID, err)
		}
	}
	return tx.Commit(ctx)
}
