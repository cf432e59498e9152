package elo

import "github.com/google/uuid"

// Game is one decided head-to-head outcome between two models.
type Game struct {
	Winner uuid.UUID
	Loser  uuid.UUID
}

// State is a model's rating plus its recent history, oldest first.
type State struct {
	Rating    float64
	Sparkline []float64
}

// Replay computes ratings from scratch by applying every game in
// order, reproducing what apply_vote_elo would have produced for the
// same sequence.
func Replay(games []Game) map[uuid.UUID]*State {
	states := make(map[uuid.UUID]*State)
	get := func(id uuid.UUID) *State {
		s, ok := states[id]
		if !ok {
			s = &State{Rating: InitialRating}
			states[id] = s
		}
		return s
	}

	for _, game := range games {
		winner, loser := get(game.Winner), get(game.Loser)
		winner.Rating, loser.Rating = Update(winner.Rating, loser.Rating)
		winner.push(winner.Rating)
		loser.push(loser.Rating)
	}
	return states
}

func (s *State) push(rating float64) {
	s.Sparkline = append(s.Sparkline, rating)
	if len(s.Sparkline) > SparklineDepth {
		s.Sparkline = s.Sparkline[len(s.Sparkline)-SparklineDepth:]
	}
}
