package publisher

import (
	"errors"
	"fmt"
)

// Kind classifies a publishing failure for the HTTP layer and the UI.
type Kind string

const (
	// KindValidation rejects the request before any backend is touched,
	// including a title already taken among local siblings.
	KindValidation Kind = "validation"
	// KindConflict indicates a remote repository name or path is already
	// taken, or the cache write hit a uniqueness constraint.
	KindConflict Kind = "conflict"
	// KindAuth indicates one of the remote backends rejected the stored credentials.
	KindAuth Kind = "auth"
	// KindNotFound indicates the referenced record does not exist.
	KindNotFound Kind = "not_found"
	// KindStaleRevision indicates the file changed remotely since it was last read.
	KindStaleRevision Kind = "stale_revision"
	// KindRemoteContent indicates the GitHub side failed.
	KindRemoteContent Kind = "remote_content"
	// KindRemoteMetadata indicates the LMS side failed.
	KindRemoteMetadata Kind = "remote_metadata"
	// KindPartialFailure indicates a delete removed the local row but left
	// remote objects behind.
	KindPartialFailure Kind = "partial_failure"
	// KindInternal covers local cache failures and broken invariants.
	KindInternal Kind = "internal"
)

// OperationError carries the failure kind and the publishing operation that hit it.
type OperationError struct {
	kind      Kind
	operation string
	err       error
}

func (e *OperationError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("%s: %s", e.operation, e.kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.operation, e.kind, e.err)
}

func (e *OperationError) Unwrap() error {
	return e.err
}

// Kind returns the failure classification.
func (e *OperationError) Kind() Kind {
	return e.kind
}

// Operation returns the publishing operation that failed.
func (e *OperationError) Operation() string {
	return e.operation
}

// NewOperationError builds a classified publishing error.
func NewOperationError(kind Kind, operation string, err error) *OperationError {
	return &OperationError{kind: kind, operation: operation, err: err}
}

func newError(kind Kind, operation string, err error) *OperationError {
	return NewOperationError(kind, operation, err)
}

func validationError(operation, format string, args ...interface{}) *OperationError {
	return newError(KindValidation, operation, fmt.Errorf(format, args...))
}

// KindOf extracts the classification from any error in the chain.
func KindOf(err error) Kind {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.kind
	}
	return KindInternal
}
