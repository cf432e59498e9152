// Package vote validates and records human preference votes and
// triggers the rating update that follows each one.
package vote

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Icannotcodelol/onnyx/internal/metrics"
	"github.com/Icannotcodelol/onnyx/internal/types"
)

// Store is the subset of the database layer vote processing needs.
type Store interface {
	MatchByID(ctx context.Context, id uuid.UUID) (*types.Match, error)
	InsertVote(ctx context.Context, vote *types.Vote) error
	ApplyVoteElo(ctx context.Context, vote *types.Vote) error
}

// Request is a raw vote submission from a client.
type Request struct {
	MatchID          string `json:"matchId" validate:"required,uuid4"`
	WinnerSubmission string `json:"winnerSubmissionId" validate:"required,uuid4"`
	LoserSubmission  string `json:"loserSubmissionId" validate:"required,uuid4"`
	VoterKey         string `json:"voterKey" validate:"omitempty,max=128"`

	// RemoteIP is filled in by the HTTP layer, never by the client.
	RemoteIP string `json:"-"`
}

// ErrUnknownMatch indicates the referenced match does not exist.
type ErrUnknownMatch struct {
	MatchID uuid.UUID
}

func (e *ErrUnknownMatch) Error() string {
	return fmt.Sprintf("match not found: %s", e.MatchID)
}

// ErrWinnerNotInMatch indicates the winner submission is not one of
// the match's two sides.
type ErrWinnerNotInMatch struct {
	MatchID uuid.UUID
	Winner  uuid.UUID
}

func (e *ErrWinnerNotInMatch) Error() string {
	return fmt.Sprintf("submission %s is not part of match %s", e.Winner, e.MatchID)
}

// ErrIncompleteMatch indicates the match is missing a submission side
// and cannot be voted on yet.
type ErrIncompleteMatch struct {
	MatchID uuid.UUID
}

func (e *ErrIncompleteMatch) Error() string {
	return fmt.Sprintf("match %s is missing a submission side", e.MatchID)
}

// ErrRatingUpdate reports a failed rating update. The vote it follows
// was already stored and is never rolled back; ratings can be rebuilt
// from the vote log.
type ErrRatingUpdate struct {
	MatchID uuid.UUID
	Err     error
}

func (e *ErrRatingUpdate) Error() string {
	return fmt.Sprintf("rating update for match %s: %v", e.MatchID, e.Err)
}

func (e *ErrRatingUpdate) Unwrap() error { return e.Err }

// Processor records votes and applies rating updates.
type Processor struct {
	store    Store
	validate *validator.Validate
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// New creates a vote processor. metrics may be nil.
func New(store Store, m *metrics.Metrics, log zerolog.Logger) *Processor {
	return &Processor{
		store:    store,
		validate: validator.New(),
		metrics:  m,
		log:      log,
	}
}

// Submit validates the request against the match, stores the vote,
// and applies the rating update. A failed rating update is returned as
// an ErrRatingUpdate alongside the stored vote; the vote itself is
// never rolled back, and ratings can be rebuilt from the vote log.
func (p *Processor) Submit(ctx context.Context, req Request) (*types.Vote, error) {
	if err := p.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid vote: %w", err)
	}

	matchID := uuid.MustParse(req.MatchID)
	winner := uuid.MustParse(req.WinnerSubmission)
	loser := uuid.MustParse(req.LoserSubmission)

	match, err := p.store.MatchByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("load match: %w", err)
	}
	if match == nil {
		return nil, &ErrUnknownMatch{MatchID: matchID}
	}

	if match.SubmissionA == nil || match.SubmissionB == nil {
		return nil, &ErrIncompleteMatch{MatchID: matchID}
	}
	sideA, sideB := *match.SubmissionA, *match.SubmissionB

	// Winner and loser must be the two sides of the match.
	valid := (winner == sideA && loser == sideB) ||
		(winner == sideB && loser == sideA)
	if !valid {
		return nil, &ErrWinnerNotInMatch{MatchID: matchID, Winner: winner}
	}

	voterKey := req.VoterKey
	if voterKey == "" {
		voterKey = uuid.New().String()
	}

	vote := &types.Vote{
		MatchID:          matchID,
		WinnerSubmission: winner,
		LoserSubmission:  loser,
		VoterKey:         voterKey,
		IPHash:           HashVoter(req.RemoteIP, voterKey),
	}
	if err := p.store.InsertVote(ctx, vote); err != nil {
		return nil, fmt.Errorf("store vote: %w", err)
	}
	if p.metrics != nil {
		p.metrics.VotesRecorded.Inc()
	}

	if err := p.store.ApplyVoteElo(ctx, vote); err != nil {
		if p.metrics != nil {
			p.metrics.RatingUpdateErrs.Inc()
		}
		p.log.Error().Err(err).Stringer("match", matchID).Msg("rating update failed, vote kept")
		return vote, &ErrRatingUpdate{MatchID: matchID, Err: err}
	}
	return vote, nil
}

// HashVoter anonymizes the voter's address before storage.
func HashVoter(ip, voterKey string) string {
	sum := sha256.Sum256([]byte(ip + ":" + voterKey))
	return hex.EncodeToString(sum[:])
}
