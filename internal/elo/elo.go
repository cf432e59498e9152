// Package elo implements Elo-style rating math. During normal
// operation the rating delta is applied by the apply_vote_elo database
// procedure so concurrent votes serialize in one place; this package
// mirrors that math for offline rebuilds from the vote log.
package elo

import "math"

// Rating constants shared with the database procedure.
const (
	K              = 32
	InitialRating  = 1500
	SparklineDepth = 10
)

// Expected returns the probability that a player rated a beats a
// player rated b. Total over all real inputs; no error cases.
func Expected(a, b float64) float64 {
	return 1 / (1 + math.Pow(10, (b-a)/400))
}

// Update returns the post-game ratings for a winner and loser.
func Update(winner, loser float64) (float64, float64) {
	e := Expected(winner, loser)
	delta := K * (1 - e)
	return winner + delta, loser - delta
}
