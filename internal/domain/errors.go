package domain

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrCafeNotFound          = errors.New("cafe not found")
	ErrRecipeNotFound        = errors.New("recipe not found")
	ErrBaristaNotFound       = errors.New("barista not found")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrNoWorktree            = errors.New("order has no worktree")
	ErrWorktreeRemoved       = errors.New("worktree already removed")
	ErrWorktreeExists        = errors.New("worktree already exists")
	ErrNoSession             = errors.New("no live session")
	ErrSessionRunning        = errors.New("session already running")
	ErrEngineNotInitialized  = errors.New("execution engine not initialized")
	ErrNotStartable          = errors.New("order cannot be started in its current status")
	ErrNotCompleted          = errors.New("order is not completed")
	ErrUnknownProvider       = errors.New("unknown provider")
	ErrUncommittedChanges    = errors.New("uncommitted changes exist")
	ErrMergeConflict         = errors.New("merge conflict exists")
	ErrMergeFailed           = errors.New("merge failed")
	ErrNotGitRepository      = errors.New("not a git repository")
	ErrEmptyMessage          = errors.New("message cannot be empty")
	ErrConfigExists          = errors.New("config file already exists")
	ErrCafeExists            = errors.New("cafe already registered")
	ErrCafeFileCorrupted     = errors.New("cafe registry file is corrupted")
	ErrNotInitialized        = errors.New("order store not initialized")
	ErrStageNotFound         = errors.New("stage not found")
	ErrNothingToRetry        = errors.New("nothing to retry")
	ErrInvalidStoreType      = errors.New("invalid store type")
	ErrFollowupNotAvailable  = errors.New("followup not available")
	ErrWorktreeRootNotInRepo = errors.New("worktree root must not be the repository itself")
)

// ErrorKind is a stable machine-readable error category.
type ErrorKind string

// Error kinds surfaced by the orchestrator.
const (
	KindUnknown                ErrorKind = ""
	KindNotFound               ErrorKind = "NOT_FOUND"
	KindWorktreeCreationFailed ErrorKind = "WORKTREE_CREATION_FAILED"
	KindWorktreeRemovalFailed  ErrorKind = "WORKTREE_REMOVAL_FAILED"
	KindSessionRestoreFailed   ErrorKind = "SESSION_RESTORE_FAILED"
	KindEngineNotInitialized   ErrorKind = "ENGINE_NOT_INITIALIZED"
	KindPreconditionFailed     ErrorKind = "PRECONDITION_FAILED"
)

// Error tags an underlying error with a kind.
// The underlying message is kept verbatim for diagnostics.
type Error struct {
	Err  error
	Kind ErrorKind
	Op   string
}

// NewError wraps err with kind and an operation label.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Error implements error.
func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return string(e.Kind)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err.
// Tagged errors win; bare sentinels are mapped to their natural kind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	switch {
	case errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrCafeNotFound),
		errors.Is(err, ErrRecipeNotFound),
		errors.Is(err, ErrStageNotFound):
		return KindNotFound
	case errors.Is(err, ErrEngineNotInitialized):
		return KindEngineNotInitialized
	}
	return KindUnknown
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
