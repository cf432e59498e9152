package types

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Match is an unordered pairing of two submissions for the same task.
type Match struct {
	ID          uuid.UUID  `json:"id"`
	TaskID      uuid.UUID  `json:"task_id"`
	SubmissionA *uuid.UUID `json:"submission_a"`
	SubmissionB *uuid.UUID `json:"submission_b"`
	CreatedAt   time.Time  `json:"created_at"`
}

// PairKey builds the identity key for a candidate pairing: the sorted
// triple (task, a, b) joined with ':'. Sorting makes (a,b) and (b,a)
// collide, so the same logical pair is never created twice.
func PairKey(taskID, a, b uuid.UUID) string {
	parts := []string{taskID.String(), a.String(), b.String()}
	sort.Strings(parts)
	return strings.Join(parts, ":")
}

// Key returns the match's pair key, or "" when a side is missing.
func (m *Match) Key() string {
	if m.SubmissionA == nil || m.SubmissionB == nil {
		return ""
	}
	return PairKey(m.TaskID, *m.SubmissionA, *m.SubmissionB)
}

// Vote is a single human preference judgment on a match. Votes are
// append-only ground truth; ratings are derived from them.
type Vote struct {
	MatchID          uuid.UUID `json:"match_id"`
	WinnerSubmission uuid.UUID `json:"winner_submission"`
	LoserSubmission  uuid.UUID `json:"loser_submission"`
	VoterKey         string    `json:"voter_key"`
	IPHash           string    `json:"ip_hash"`
}

// Rating is a model's current Elo-style estimate plus its recent
// history for trend display.
type Rating struct {
	ModelID      uuid.UUID `json:"model_id"`
	Rating       float64   `json:"rating"`
	ModelLabel   string    `json:"model_label,omitempty"`
	ProviderName string    `json:"provider_name,omitempty"`
	Sparkline    []float64 `json:"sparkline,omitempty"`
}

// ModelIdentity is an active model joined with its provider name, as
// read from the models / model_providers tables.
type ModelIdentity struct {
	ID           uuid.UUID `json:"id"`
	Label        string    `json:"label"`
	ProviderName string    `json:"provider_name"`
}
