// Package server provides the HTTP API for the arena: pipeline
// triggers, browse endpoints, voting, and the leaderboard.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Icannotcodelol/onnyx/internal/sanitize"
	"github.com/Icannotcodelol/onnyx/internal/vote"
)

// ErrTaskNotFound indicates the task does not exist
type ErrTaskNotFound struct {
	TaskID uuid.UUID
}

func (e *ErrTaskNotFound) Error() string {
	return fmt.Sprintf("task not found: %s", e.TaskID)
}

// ErrBadRequest indicates a malformed request body or path value
type ErrBadRequest struct {
	Message string
}

func (e *ErrBadRequest) Error() string {
	return e.Message
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return http.StatusBadRequest
	}
	var forbidden *sanitize.ForbiddenPatternError
	if errors.As(err, &forbidden) {
		return http.StatusUnprocessableEntity
	}
	var unknownMatch *vote.ErrUnknownMatch
	if errors.As(err, &unknownMatch) {
		return http.StatusNotFound
	}
	var badWinner *vote.ErrWinnerNotInMatch
	if errors.As(err, &badWinner) {
		return http.StatusBadRequest
	}
	var incomplete *vote.ErrIncompleteMatch
	if errors.As(err, &incomplete) {
		return http.StatusConflict
	}

	switch err.(type) {
	case *ErrTaskNotFound:
		return http.StatusNotFound
	case *ErrBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
