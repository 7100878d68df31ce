package engine

import "fmt"

// Kind classifies an operation failure.
type Kind int

const (
	// KindValidation marks malformed or out-of-range input.
	KindValidation Kind = iota + 1
	// KindAuthorization marks an admin key mismatch.
	KindAuthorization
	// KindState marks an operation that is invalid in the current
	// lifecycle state (settling twice, substituting mid-game, ...).
	KindState
	// KindLocked marks a resource that exists but is not readable yet
	// (game history before settlement).
	KindLocked
	// KindNotFound marks an unknown or archived game id.
	KindNotFound
)

// Error is the failure value returned by the engine and service layers.
// The api package maps Kind to an HTTP status; no state is ever mutated
// on an Error path.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Validationf builds a KindValidation error.
func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Statef builds a KindState error.
func Statef(format string, args ...interface{}) *Error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a KindNotFound error.
func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized is the admin key mismatch error.
func Unauthorized() *Error {
	return &Error{Kind: KindAuthorization, Message: "Unauthorized"}
}

// HighBidError signals the high-bid side game branch of bid submission.
// It is not a fatal failure: the game-level high-bid flag has already
// been set when this is returned, and callers are expected to surface
// the side-game resolution flow instead of reporting an error.
type HighBidError struct {
	Round     int
	BidderIDs []string
}

func (e *HighBidError) Error() string {
	return fmt.Sprintf("high bid triggered in round %d", e.Round)
}
