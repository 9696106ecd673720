package engine

import (
	"errors"
	"fmt"

	pkgerrors "github.com/AltairaLabs/TaskKit/pkg/errors"
)

// Kind classifies an engine failure by what the caller should do about it.
type Kind int

// Failure kinds.
const (
	// KindRejected is any engine rejection without operation-specific meaning.
	KindRejected Kind = iota
	// KindNotFound means the task no longer exists, e.g. it was cancelled or
	// already completed.
	KindNotFound
	// KindNotResumed means the engine accepted the result but could not
	// continue the process instance.
	KindNotResumed
	// KindNotAcquired means the worker no longer holds the task's lock.
	KindNotAcquired
	// KindConnectionLost means the request never produced a response.
	KindConnectionLost
)

var kindNames = map[Kind]string{
	KindRejected:       "rejected",
	KindNotFound:       "not_found",
	KindNotResumed:     "not_resumed",
	KindNotAcquired:    "not_acquired",
	KindConnectionLost: "connection_lost",
}

var kindMessages = map[Kind]string{
	KindRejected:       "the engine rejected the request",
	KindNotFound:       "the task could not be found",
	KindNotResumed:     "the corresponding process instance could not be resumed",
	KindNotAcquired:    "the task's most recent lock could not be acquired",
	KindConnectionLost: "connection could not be established",
}

// String returns the kind's label, e.g. "not_found".
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrRejected       = errors.New("engine: " + kindMessages[KindRejected])
	ErrNotFound       = errors.New("engine: " + kindMessages[KindNotFound])
	ErrNotResumed     = errors.New("engine: " + kindMessages[KindNotResumed])
	ErrNotAcquired    = errors.New("engine: " + kindMessages[KindNotAcquired])
	ErrConnectionLost = errors.New("engine: " + kindMessages[KindConnectionLost])
)

var kindSentinels = map[Kind]error{
	KindRejected:       ErrRejected,
	KindNotFound:       ErrNotFound,
	KindNotResumed:     ErrNotResumed,
	KindNotAcquired:    ErrNotAcquired,
	KindConnectionLost: ErrConnectionLost,
}

// Error is the failure of one engine operation.
type Error struct {
	Kind      Kind
	Operation Operation
	// Status is the HTTP status; 0 when no response arrived.
	Status int
	// Message is the engine's own explanation, if it sent one.
	Message string
	// Cause is a *pkgerrors.ContextualError carrying status and engine details.
	Cause error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("engine: %s: %s", e.Operation.Context(), kindMessages[e.Kind])
	if e.Kind == KindRejected {
		if e.Status != 0 {
			msg += fmt.Sprintf(" (status %d)", e.Status)
		}
		if e.Message != "" {
			msg += ": " + e.Message
		}
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Details returns the contextual cause, or nil.
func (e *Error) Details() *pkgerrors.ContextualError {
	var ce *pkgerrors.ContextualError
	if errors.As(e.Cause, &ce) {
		return ce
	}
	return nil
}

// KindOf returns the kind of an engine error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsRetryable reports whether repeating the same call may succeed: the
// connection was lost or the engine rejected the call for a reason unrelated
// to the task's state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConnectionLost) || errors.Is(err, ErrRejected)
}

// IsResolved reports whether the task is already out of this worker's hands
// and retrying is pointless.
func IsResolved(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotResumed)
}

// IsLockLost reports whether the worker lost the task's lock. The task will
// be delivered again by a later fetch.
func IsLockLost(err error) bool {
	return errors.Is(err, ErrNotAcquired)
}
