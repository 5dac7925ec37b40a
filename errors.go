package esmodel

import (
	"errors"
	"fmt"

	"github.com/jonesrussell/esmodel/schema"
)

// Declaration-time errors, reported by Mapping.Validate.
var (
	// ErrMissingIndex is returned when a mapping declares no logical index name.
	ErrMissingIndex = errors.New("mapping: index name is required")
	// ErrEmptySchema is returned when a mapping declares no fields.
	ErrEmptySchema = errors.New("mapping: schema has no fields")
)

// ErrMissingID is returned when an update or delete is requested for a
// document that has no identifier yet. It is reported at enqueue time for
// session operations, not deferred to commit.
var ErrMissingID = errors.New("document id is missing")

// ValidationError reports a document value that failed schema validation.
// It is surfaced before anything is sent to the store.
type ValidationError = schema.ValidationError

// NotFoundError reports a get or delete against a document that does not
// exist. Callers can match it with errors.As to treat "already absent" as
// non-fatal.
type NotFoundError struct {
	Index string
	ID    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document with id %q not found in index %q", e.ID, e.Index)
}

// InvalidResponseError reports a store response that lacks the fields needed
// to materialize a document.
type InvalidResponseError struct {
	Reason string
}

func (e *InvalidResponseError) Error() string {
	return "invalid store response: " + e.Reason
}

// FailedOp records one bulk operation that the store rejected, retaining the
// original action for diagnostics.
type FailedOp struct {
	Action Action
	Status int
	Error  *BulkError
}

// SessionError reports bulk operations that failed on commit, grouped by
// operation kind. It is returned only after the whole batch has been
// attempted; already-applied per-document changes are not rolled back.
type SessionError struct {
	Failures map[OpKind][]FailedOp
}

func (e *SessionError) Error() string {
	total := 0
	for _, ops := range e.Failures {
		total += len(ops)
	}
	return fmt.Sprintf("bulk commit: %d operation(s) failed", total)
}
