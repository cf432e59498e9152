// Package types defines the shared data model for the benchmark arena:
// tasks, submissions, artifacts, matches, votes, and ratings.
package types

import "github.com/google/uuid"

// Runtime identifies the execution environment a task targets.
type Runtime string

const (
	RuntimeJSBrowser Runtime = "js-browser"
	RuntimeJSServer  Runtime = "js-server"
	RuntimePython    Runtime = "python"
)

// Valid reports whether the runtime is one of the supported values.
func (r Runtime) Valid() bool {
	switch r {
	case RuntimeJSBrowser, RuntimeJSServer, RuntimePython:
		return true
	}
	return false
}

// Starter is the scaffold code handed to each model with a task.
type Starter struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// TaskSpec is a coding challenge specification. ID is assigned at
// generation time; a spec without an ID must not be dispatched.
type TaskSpec struct {
	ID                 uuid.UUID `json:"id,omitempty"`
	Slug               string    `json:"slug"`
	Title              string    `json:"title"`
	Summary            string    `json:"summary"`
	Runtime            Runtime   `json:"runtime"`
	Instructions       string    `json:"instructions"`
	AcceptanceCriteria []string  `json:"acceptanceCriteria"`
	Starter            Starter   `json:"starter"`
}

// Task status values as persisted in the tasks table.
const (
	TaskStatusGenerated  = "generated"
	TaskStatusDispatched = "dispatched"
)
