package domain

import (
	"context"
	"io"
	"time"
)

// StoreInitializer initializes the data store.
type StoreInitializer interface {
	// Initialize creates the store if it doesn't exist.
	Initialize() error
}

// OrderRepository manages order persistence.
type OrderRepository interface {
	// Get retrieves an order by ID. Returns nil if not found.
	Get(id string) (*Order, error)

	// List retrieves orders matching the filter, oldest first.
	List(filter OrderFilter) ([]*Order, error)

	// Save creates or updates an order.
	Save(order *Order) error

	// Delete removes an order by ID. Deleting a missing order is not an error.
	Delete(id string) error
}

// CafeRepository manages the registry of known repositories.
type CafeRepository interface {
	// Get retrieves a cafe by ID. Returns nil if not found.
	Get(id string) (*Cafe, error)

	// List returns all registered cafes.
	List() ([]Cafe, error)

	// Add registers a cafe. Returns ErrCafeExists if the ID is taken.
	Add(cafe Cafe) error

	// Remove unregisters a cafe by ID.
	Remove(id string) error
}

// RecipeRepository loads workflow definitions.
type RecipeRepository interface {
	// Get retrieves a recipe by ID. Returns nil if not found.
	Get(id string) (*Recipe, error)

	// List returns all recipes, sorted by ID.
	List() ([]*Recipe, error)
}

// CreateWorktreeOptions configures worktree creation.
type CreateWorktreeOptions struct {
	RepoPath     string // Repository the worktree is attached to
	WorktreeRoot string // Parent directory for worktrees
	Branch       string // New branch name
	BaseBranch   string // Branch to fork from; empty = repository HEAD
}

// MergeOptions configures merging a worktree branch into a target branch.
type MergeOptions struct {
	RepoPath         string
	WorktreePath     string
	Branch           string
	Target           string
	Squash           bool
	DeleteAfterMerge bool // Remove the worktree and delete the branch on success
}

// MergeResult is the outcome of MergeToTarget.
type MergeResult struct {
	Commit       string // Resulting commit on the target branch
	Message      string // Diagnostic message when Success is false
	CleanupError string // Set when the merge landed but DeleteAfterMerge cleanup failed
	Success      bool
}

// WorktreeManager manages git worktrees for orders.
type WorktreeManager interface {
	// Create creates a worktree on a new branch and returns its metadata.
	Create(ctx context.Context, opts CreateWorktreeOptions) (*WorktreeInfo, error)

	// Remove deletes the worktree directory and prunes its branch when the
	// branch is fully merged. Transient lock errors are retried.
	Remove(ctx context.Context, repoPath, worktreePath, branch string) error

	// RemoveOnly deletes the worktree directory but keeps the branch.
	RemoveOnly(ctx context.Context, repoPath, worktreePath string) error

	// MergeToTarget merges the worktree branch into the target branch.
	MergeToTarget(ctx context.Context, opts MergeOptions) (*MergeResult, error)

	// Exists checks if the worktree directory is present on disk.
	Exists(path string) (bool, error)
}

// Git provides repository inspection.
type Git interface {
	// CurrentBranch returns the name of the branch HEAD points at.
	CurrentBranch(repoPath string) (string, error)

	// BranchExists checks if a local branch exists.
	BranchExists(repoPath, branch string) (bool, error)

	// BranchHead returns the commit hash a local branch points at.
	BranchHead(repoPath, branch string) (string, error)

	// RepoRoot returns the top-level directory of the repository containing dir.
	RepoRoot(dir string) (string, error)
}

// ExecuteOptions are passed to the engine when running an order.
type ExecuteOptions struct {
	Variables map[string]string
	Prompt    string
}

// RetryOptions describes what an order can be retried from.
type RetryOptions struct {
	FailedStage string   // First failed stage, if any
	Stages      []string // Stage IDs in recipe order
	CanResume   bool     // Context can be preserved on a full retry
}

// Engine is the execution engine port.
// Implementations stream marker-tagged output to the order transcript.
type Engine interface {
	// StartOrder prepares a live session for the order without running it.
	StartOrder(ctx context.Context, order *Order) error

	// Execute runs the order's recipe in its live session.
	Execute(ctx context.Context, order *Order, opts ExecuteOptions) error

	// SendInput forwards user input to a running session.
	SendInput(ctx context.Context, orderID, message string) error

	// Cancel stops the order's session. Returns ErrNoSession if nothing runs.
	Cancel(ctx context.Context, orderID string) error

	// RetryFromStage reruns the recipe starting at stageID.
	// An empty stageID means the first failed stage.
	RetryFromStage(ctx context.Context, order *Order, stageID string) error

	// RetryFromBeginning reruns the whole recipe.
	RetryFromBeginning(ctx context.Context, order *Order, preserveContext bool) error

	// GetRetryOptions reports the retry points of an order.
	GetRetryOptions(ctx context.Context, order *Order) (*RetryOptions, error)

	// HasSession reports whether a live session exists for the order.
	HasSession(orderID string) bool

	// CanFollowup reports whether the live session accepts followups.
	CanFollowup(orderID string) bool

	// EnterFollowup switches the live session into followup mode.
	EnterFollowup(ctx context.Context, orderID string) error

	// ExecuteFollowup runs a followup prompt in the live session.
	ExecuteFollowup(ctx context.Context, orderID, prompt string) error

	// FinishFollowup leaves followup mode and ends the session.
	FinishFollowup(ctx context.Context, orderID string) error

	// RestoreSessionForFollowup recreates a session for a completed order.
	RestoreSessionForFollowup(ctx context.Context, order *Order, barista *Barista, counter, worktreePath string) error
}

// EngineProvider resolves the execution engine.
// Returns ErrEngineNotInitialized when no engine is available.
type EngineProvider interface {
	Engine() (Engine, error)
}

// BaristaPool tracks worker slots.
type BaristaPool interface {
	// FindAvailable returns an idle barista for the provider, or nil.
	FindAvailable(provider string) *Barista

	// Create adds a new barista for the provider.
	Create(provider string) (*Barista, error)

	// Get returns a barista by ID, or nil.
	Get(id string) *Barista

	// Assign binds the barista to an order.
	Assign(baristaID, orderID string) error

	// Release frees the barista bound to the order, if any.
	Release(orderID string)

	// List returns all baristas.
	List() []Barista
}

// TranscriptStore persists per-order transcripts.
type TranscriptStore interface {
	// Append writes a record to the order's transcript.
	Append(orderID string, at time.Time, msg string) error

	// Open opens the transcript for reading.
	// Returns an error wrapping fs.ErrNotExist if the order has none.
	Open(orderID string) (io.ReadCloser, error)

	// Remove deletes the transcript. Missing transcripts are not an error.
	Remove(orderID string) error
}

// SessionTracker exposes the live awaiting-input flag of order sessions.
type SessionTracker interface {
	IsAwaiting(orderID string) bool
	ClearAwaiting(orderID string)
}

// Logger is the diagnostic logger.
// An empty orderID logs to the global scope.
type Logger interface {
	Info(orderID, category, msg string)
	Debug(orderID, category, msg string)
	Warn(orderID, category, msg string)
	Error(orderID, category, msg string)
}

// ConfigInfo describes a configuration file on disk.
type ConfigInfo struct {
	Path    string
	Content string
	Exists  bool
}

// ConfigManager inspects and initializes configuration files.
type ConfigManager interface {
	// GlobalConfigInfo returns the global config file ($XDG_CONFIG_HOME/cafe/config.toml).
	GlobalConfigInfo() ConfigInfo

	// DataConfigInfo returns the data directory config file.
	DataConfigInfo() ConfigInfo

	// InitGlobalConfig writes a template to the global config path.
	// Returns ErrConfigExists if the file is already present.
	InitGlobalConfig(cfg *Config) error

	// InitDataConfig writes a template to the data directory config path.
	InitDataConfig(cfg *Config) error
}

// ConfigLoader loads configuration from files.
type ConfigLoader interface {
	// Load returns the merged configuration (data dir + global).
	Load() (*Config, error)

	// LoadGlobal returns only the global configuration.
	LoadGlobal() (*Config, error)
}

// IDGenerator creates unique identifiers.
type IDGenerator interface {
	NewID() string
}

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}
