// Package state implements the per-user conversation engine: a finite-state
// machine whose nodes form an explicit transition table (validator plus next
// node or completion action). Events for one user are strictly serialized;
// different users advance concurrently.
package state

import tele "gopkg.in/telebot.v4"

// State identifies a dialog node as "dialog/node". Dialogs never share a
// node namespace.
type State string

// StateIdle indicates there is no active conversation with the user.
const StateIdle State = "idle"

// KeepCurrent is the sentinel a profile-edit node accepts to keep the
// stored value for its field.
const KeepCurrent = "."

// Session stores the active node and the values captured so far.
type Session struct {
	State State
	Data  map[string]string
}

// ValidationError rejects user input with a corrective message. The engine
// re-prompts the same node and never treats it as a failure.
type ValidationError struct {
	Message string
}

// Error returns the user-facing message.
func (e *ValidationError) Error() string { return e.Message }

// Invalid builds a ValidationError.
func Invalid(msg string) error { return &ValidationError{Message: msg} }

// Node declares one dialog step.
type Node struct {
	// Field names the session key the validated value is merged under.
	// Empty means the input is consumed without being stored.
	Field string

	// Validate checks the raw text and returns the normalized value. A
	// *ValidationError keeps the user on this node; any other error aborts
	// the step with state unchanged so the input can be re-sent.
	Validate func(c tele.Context, input string) (string, error)

	// Next is the node entered on success. StateIdle marks the node
	// terminal.
	Next State

	// Prompt is sent when this node is entered from the previous one.
	Prompt tele.HandlerFunc

	// Complete runs on a terminal node after the final value is merged:
	// persist collected fields, confirm, then the session is cleared. An
	// error leaves the session untouched.
	Complete func(c tele.Context, data map[string]string) error
}
