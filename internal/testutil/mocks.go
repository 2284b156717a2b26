// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/runoshun/git-cafe/internal/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	NowTime time.Time
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	return m.NowTime
}

// MockIDGenerator returns IDs from a fixed list, then "id-N".
type MockIDGenerator struct {
	IDs []string
	n   int
	mu  sync.Mutex
}

// NewID returns the next ID.
func (m *MockIDGenerator) NewID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	if m.n <= len(m.IDs) {
		return m.IDs[m.n-1]
	}
	return fmt.Sprintf("id-%d", m.n)
}

// MockOrderRepository is a test double for domain.OrderRepository.
// Fields are ordered to minimize memory padding.
type MockOrderRepository struct {
	Orders     map[string]*domain.Order
	DeleteErrs map[string]error // Per-order delete failures
	SaveErr    error
	GetErr     error
	ListErr    error
	mu         sync.Mutex
}

// NewMockOrderRepository creates a new MockOrderRepository with initialized maps.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		Orders:     make(map[string]*domain.Order),
		DeleteErrs: make(map[string]error),
	}
}

// Get retrieves an order by ID.
func (m *MockOrderRepository) Get(id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	order, ok := m.Orders[id]
	if !ok {
		return nil, nil
	}
	return order, nil
}

// List returns orders matching the filter, sorted by creation time.
func (m *MockOrderRepository) List(filter domain.OrderFilter) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	orders := make([]*domain.Order, 0, len(m.Orders))
	for _, o := range m.Orders {
		if filter.Matches(o) {
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].Created.Equal(orders[j].Created) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].Created.Before(orders[j].Created)
	})
	return orders, nil
}

// Save saves an order.
func (m *MockOrderRepository) Save(order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Orders[order.ID] = order
	return nil
}

// Delete removes an order by ID.
func (m *MockOrderRepository) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.DeleteErrs[id]; err != nil {
		return err
	}
	delete(m.Orders, id)
	return nil
}

// MockCafeRepository is a test double for domain.CafeRepository.
type MockCafeRepository struct {
	Cafes  map[string]domain.Cafe
	GetErr error
	AddErr error
}

// NewMockCafeRepository creates a new MockCafeRepository.
func NewMockCafeRepository() *MockCafeRepository {
	return &MockCafeRepository{Cafes: make(map[string]domain.Cafe)}
}

// Get retrieves a cafe by ID.
func (m *MockCafeRepository) Get(id string) (*domain.Cafe, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	c, ok := m.Cafes[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// List returns all cafes sorted by ID.
func (m *MockCafeRepository) List() ([]domain.Cafe, error) {
	cafes := make([]domain.Cafe, 0, len(m.Cafes))
	for _, c := range m.Cafes {
		cafes = append(cafes, c)
	}
	sort.Slice(cafes, func(i, j int) bool { return cafes[i].ID < cafes[j].ID })
	return cafes, nil
}

// Add registers a cafe.
func (m *MockCafeRepository) Add(cafe domain.Cafe) error {
	if m.AddErr != nil {
		return m.AddErr
	}
	if _, ok := m.Cafes[cafe.ID]; ok {
		return domain.ErrCafeExists
	}
	m.Cafes[cafe.ID] = cafe
	return nil
}

// Remove unregisters a cafe.
func (m *MockCafeRepository) Remove(id string) error {
	if _, ok := m.Cafes[id]; !ok {
		return domain.ErrCafeNotFound
	}
	delete(m.Cafes, id)
	return nil
}

// MockRecipeRepository is a test double for domain.RecipeRepository.
type MockRecipeRepository struct {
	Recipes map[string]*domain.Recipe
	GetErr  error
}

// NewMockRecipeRepository creates a repository holding the default recipe.
func NewMockRecipeRepository() *MockRecipeRepository {
	r := domain.DefaultRecipe()
	return &MockRecipeRepository{Recipes: map[string]*domain.Recipe{r.ID: r}}
}

// Get retrieves a recipe by ID.
func (m *MockRecipeRepository) Get(id string) (*domain.Recipe, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Recipes[id], nil
}

// List returns all recipes sorted by ID.
func (m *MockRecipeRepository) List() ([]*domain.Recipe, error) {
	recipes := make([]*domain.Recipe, 0, len(m.Recipes))
	for _, r := range m.Recipes {
		recipes = append(recipes, r)
	}
	sort.Slice(recipes, func(i, j int) bool { return recipes[i].ID < recipes[j].ID })
	return recipes, nil
}

// MockWorktreeManager is a test double for domain.WorktreeManager.
// Fields are ordered to minimize memory padding.
type MockWorktreeManager struct {
	ExistingPaths map[string]bool
	RemoveErrs    map[string]error // Keyed by worktree path
	CreateErr     error
	RemoveOnlyErr error
	MergeErr      error
	ExistsErr     error
	MergeResult   *domain.MergeResult
	Created       []domain.CreateWorktreeOptions
	Removed       []string
	RemovedOnly   []string
	Merged        []domain.MergeOptions
	mu            sync.Mutex
}

// NewMockWorktreeManager creates a new MockWorktreeManager.
func NewMockWorktreeManager() *MockWorktreeManager {
	return &MockWorktreeManager{
		ExistingPaths: make(map[string]bool),
		RemoveErrs:    make(map[string]error),
		MergeResult:   &domain.MergeResult{Success: true, Commit: "abc1234"},
	}
}

// Create records the call and returns a worktree under the root.
func (m *MockWorktreeManager) Create(_ context.Context, opts domain.CreateWorktreeOptions) (*domain.WorktreeInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Created = append(m.Created, opts)
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	path := opts.WorktreeRoot + "/" + opts.Branch
	m.ExistingPaths[path] = true
	base := opts.BaseBranch
	if base == "" {
		base = "main"
	}
	return &domain.WorktreeInfo{
		Path:       path,
		Branch:     opts.Branch,
		BaseBranch: base,
		RepoPath:   opts.RepoPath,
	}, nil
}

// Remove records the call.
func (m *MockWorktreeManager) Remove(_ context.Context, _, worktreePath, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.RemoveErrs[worktreePath]; err != nil {
		return err
	}
	m.Removed = append(m.Removed, worktreePath)
	delete(m.ExistingPaths, worktreePath)
	return nil
}

// RemoveOnly records the call.
func (m *MockWorktreeManager) RemoveOnly(_ context.Context, _, worktreePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RemoveOnlyErr != nil {
		return m.RemoveOnlyErr
	}
	m.RemovedOnly = append(m.RemovedOnly, worktreePath)
	delete(m.ExistingPaths, worktreePath)
	return nil
}

// MergeToTarget records the call and returns MergeResult.
func (m *MockWorktreeManager) MergeToTarget(_ context.Context, opts domain.MergeOptions) (*domain.MergeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Merged = append(m.Merged, opts)
	if m.MergeErr != nil {
		return nil, m.MergeErr
	}
	res := *m.MergeResult
	return &res, nil
}

// Exists reports whether the path was created and not removed.
func (m *MockWorktreeManager) Exists(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	return m.ExistingPaths[path], nil
}

// MockGit is a test double for domain.Git.
type MockGit struct {
	BranchHeads       map[string]string
	CurrentBranchName string
	CurrentBranchErr  error
	RepoRootErr       error
}

// CurrentBranch returns the configured branch.
func (m *MockGit) CurrentBranch(_ string) (string, error) {
	if m.CurrentBranchErr != nil {
		return "", m.CurrentBranchErr
	}
	if m.CurrentBranchName == "" {
		return "main", nil
	}
	return m.CurrentBranchName, nil
}

// BranchExists checks the configured heads.
func (m *MockGit) BranchExists(_, branch string) (bool, error) {
	_, ok := m.BranchHeads[branch]
	return ok, nil
}

// BranchHead returns the configured head.
func (m *MockGit) BranchHead(_, branch string) (string, error) {
	h, ok := m.BranchHeads[branch]
	if !ok {
		return "", fmt.Errorf("branch %s not found", branch)
	}
	return h, nil
}

// RepoRoot returns dir unchanged.
func (m *MockGit) RepoRoot(dir string) (string, error) {
	if m.RepoRootErr != nil {
		return "", m.RepoRootErr
	}
	return dir, nil
}

// EngineCall records a call to MockEngine.
type EngineCall struct {
	Method  string
	OrderID string
	Arg     string
}

// MockEngine is a test double for domain.Engine.
// Fields are ordered to minimize memory padding.
type MockEngine struct {
	Sessions        map[string]bool // Live sessions
	Followups       map[string]bool // Sessions accepting followups
	RetryOpts       *domain.RetryOptions
	StartErr        error
	ExecuteErr      error
	SendErr         error
	CancelErr       error
	RetryErr        error
	FollowupErr     error
	RestoreErr      error
	Calls           []EngineCall
	RestoredBarista string
	RestoredCounter string
	RestoredCwd     string
	mu              sync.Mutex
}

// NewMockEngine creates a new MockEngine.
func NewMockEngine() *MockEngine {
	return &MockEngine{
		Sessions:  make(map[string]bool),
		Followups: make(map[string]bool),
	}
}

func (m *MockEngine) record(method, orderID, arg string) {
	m.Calls = append(m.Calls, EngineCall{Method: method, OrderID: orderID, Arg: arg})
}

// Called reports whether method was invoked.
func (m *MockEngine) Called(method string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Calls {
		if c.Method == method {
			return true
		}
	}
	return false
}

// StartOrder records the call and opens a session.
func (m *MockEngine) StartOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("StartOrder", order.ID, "")
	if m.StartErr != nil {
		return m.StartErr
	}
	m.Sessions[order.ID] = true
	return nil
}

// Execute records the call.
func (m *MockEngine) Execute(_ context.Context, order *domain.Order, opts domain.ExecuteOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Execute", order.ID, opts.Prompt)
	return m.ExecuteErr
}

// SendInput records the call.
func (m *MockEngine) SendInput(_ context.Context, orderID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SendInput", orderID, message)
	if m.SendErr != nil {
		return m.SendErr
	}
	if !m.Sessions[orderID] {
		return domain.ErrNoSession
	}
	return nil
}

// Cancel records the call and closes the session.
func (m *MockEngine) Cancel(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Cancel", orderID, "")
	if m.CancelErr != nil {
		return m.CancelErr
	}
	if !m.Sessions[orderID] {
		return domain.ErrNoSession
	}
	delete(m.Sessions, orderID)
	return nil
}

// RetryFromStage records the call.
func (m *MockEngine) RetryFromStage(_ context.Context, order *domain.Order, stageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("RetryFromStage", order.ID, stageID)
	return m.RetryErr
}

// RetryFromBeginning records the call.
func (m *MockEngine) RetryFromBeginning(_ context.Context, order *domain.Order, preserveContext bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("RetryFromBeginning", order.ID, fmt.Sprint(preserveContext))
	return m.RetryErr
}

// GetRetryOptions returns RetryOpts.
func (m *MockEngine) GetRetryOptions(_ context.Context, order *domain.Order) (*domain.RetryOptions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetRetryOptions", order.ID, "")
	if m.RetryErr != nil {
		return nil, m.RetryErr
	}
	if m.RetryOpts == nil {
		return &domain.RetryOptions{}, nil
	}
	return m.RetryOpts, nil
}

// HasSession reports whether a session is live.
func (m *MockEngine) HasSession(orderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Sessions[orderID]
}

// CanFollowup reports whether the session accepts followups.
func (m *MockEngine) CanFollowup(orderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Sessions[orderID] && m.Followups[orderID]
}

// EnterFollowup records the call.
func (m *MockEngine) EnterFollowup(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("EnterFollowup", orderID, "")
	return m.FollowupErr
}

// ExecuteFollowup records the call.
func (m *MockEngine) ExecuteFollowup(_ context.Context, orderID, prompt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ExecuteFollowup", orderID, prompt)
	return m.FollowupErr
}

// FinishFollowup records the call.
func (m *MockEngine) FinishFollowup(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("FinishFollowup", orderID, "")
	return m.FollowupErr
}

// RestoreSessionForFollowup records the call and opens a followup session.
func (m *MockEngine) RestoreSessionForFollowup(_ context.Context, order *domain.Order, barista *domain.Barista, counter, worktreePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("RestoreSessionForFollowup", order.ID, worktreePath)
	if m.RestoreErr != nil {
		return m.RestoreErr
	}
	m.RestoredBarista = barista.ID
	m.RestoredCounter = counter
	m.RestoredCwd = worktreePath
	m.Sessions[order.ID] = true
	m.Followups[order.ID] = true
	return nil
}

// MockEngineProvider is a test double for domain.EngineProvider.
type MockEngineProvider struct {
	E   domain.Engine
	Err error
}

// Engine returns the configured engine.
func (m *MockEngineProvider) Engine() (domain.Engine, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.E == nil {
		return nil, domain.ErrEngineNotInitialized
	}
	return m.E, nil
}

// MockBaristaPool is a test double for domain.BaristaPool.
type MockBaristaPool struct {
	Baristas  map[string]*domain.Barista
	CreateErr error
	AssignErr error
	Released  []string
	n         int
	mu        sync.Mutex
}

// NewMockBaristaPool creates an empty pool.
func NewMockBaristaPool() *MockBaristaPool {
	return &MockBaristaPool{Baristas: make(map[string]*domain.Barista)}
}

// FindAvailable returns an idle barista for the provider.
func (m *MockBaristaPool) FindAvailable(provider string) *domain.Barista {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.Baristas))
	for id := range m.Baristas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		b := m.Baristas[id]
		if b.Provider == provider && b.IsIdle() {
			return b
		}
	}
	return nil
}

// Create adds a barista.
func (m *MockBaristaPool) Create(provider string) (*domain.Barista, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.n++
	b := &domain.Barista{ID: fmt.Sprintf("barista-%d", m.n), Provider: provider}
	m.Baristas[b.ID] = b
	return b, nil
}

// Get returns a barista by ID.
func (m *MockBaristaPool) Get(id string) *domain.Barista {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Baristas[id]
}

// Assign binds the barista to an order.
func (m *MockBaristaPool) Assign(baristaID, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AssignErr != nil {
		return m.AssignErr
	}
	b, ok := m.Baristas[baristaID]
	if !ok {
		return domain.ErrBaristaNotFound
	}
	b.OrderID = orderID
	return nil
}

// Release frees the barista bound to the order.
func (m *MockBaristaPool) Release(orderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Released = append(m.Released, orderID)
	for _, b := range m.Baristas {
		if b.OrderID == orderID {
			b.OrderID = ""
		}
	}
}

// List returns all baristas.
func (m *MockBaristaPool) List() []domain.Barista {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Barista, 0, len(m.Baristas))
	for _, b := range m.Baristas {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LogEntry is a message captured by MockLogger.
type LogEntry struct {
	Level    string
	OrderID  string
	Category string
	Msg      string
}

// MockLogger is a test double for domain.Logger.
type MockLogger struct {
	Entries []LogEntry
	mu      sync.Mutex
}

// NewMockLogger creates a new MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) add(level, orderID, category, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, LogEntry{Level: level, OrderID: orderID, Category: category, Msg: msg})
}

// Info records an info message.
func (m *MockLogger) Info(orderID, category, msg string) { m.add("INFO", orderID, category, msg) }

// Debug records a debug message.
func (m *MockLogger) Debug(orderID, category, msg string) { m.add("DEBUG", orderID, category, msg) }

// Warn records a warning message.
func (m *MockLogger) Warn(orderID, category, msg string) { m.add("WARN", orderID, category, msg) }

// Error records an error message.
func (m *MockLogger) Error(orderID, category, msg string) { m.add("ERROR", orderID, category, msg) }

// Count returns the number of entries at level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// MockConfigManager is a test double for domain.ConfigManager.
type MockConfigManager struct {
	Global      domain.ConfigInfo
	Data        domain.ConfigInfo
	InitErr     error
	InitGlobals int
	InitDatas   int
}

// GlobalConfigInfo returns Global.
func (m *MockConfigManager) GlobalConfigInfo() domain.ConfigInfo {
	return m.Global
}

// DataConfigInfo returns Data.
func (m *MockConfigManager) DataConfigInfo() domain.ConfigInfo {
	return m.Data
}

// InitGlobalConfig records the call.
func (m *MockConfigManager) InitGlobalConfig(cfg *domain.Config) error {
	if m.InitErr != nil {
		return m.InitErr
	}
	m.InitGlobals++
	m.Global.Exists = true
	m.Global.Content = domain.RenderConfigTemplate(cfg)
	return nil
}

// InitDataConfig records the call.
func (m *MockConfigManager) InitDataConfig(cfg *domain.Config) error {
	if m.InitErr != nil {
		return m.InitErr
	}
	m.InitDatas++
	m.Data.Exists = true
	m.Data.Content = domain.RenderConfigTemplate(cfg)
	return nil
}

// MockConfigLoader is a test double for domain.ConfigLoader.
type MockConfigLoader struct {
	Config       *domain.Config
	GlobalConfig *domain.Config
	LoadErr      error
}

// NewMockConfigLoader creates a loader returning the default config.
func NewMockConfigLoader() *MockConfigLoader {
	return &MockConfigLoader{Config: domain.NewDefaultConfig()}
}

// Load returns the configured config.
func (m *MockConfigLoader) Load() (*domain.Config, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Config, nil
}

// LoadGlobal returns the configured global config.
func (m *MockConfigLoader) LoadGlobal() (*domain.Config, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.GlobalConfig != nil {
		return m.GlobalConfig, nil
	}
	return m.Config, nil
}

// MockTranscriptStore is an in-memory domain.TranscriptStore.
type MockTranscriptStore struct {
	Data      map[string]string
	AppendErr error
	OpenErr   error
	Removed   []string
	mu        sync.Mutex
}

// NewMockTranscriptStore creates an empty store.
func NewMockTranscriptStore() *MockTranscriptStore {
	return &MockTranscriptStore{Data: make(map[string]string)}
}

// Append stores a record in the transcript format.
func (m *MockTranscriptStore) Append(orderID string, at time.Time, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.Data[orderID] += fmt.Sprintf("[%s] %s\n", at.UTC().Format("2006-01-02T15:04:05.000Z07:00"), msg)
	return nil
}

// Open returns the stored transcript.
func (m *MockTranscriptStore) Open(orderID string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	data, ok := m.Data[orderID]
	if !ok {
		return nil, fmt.Errorf("open transcript %s: %w", orderID, fs.ErrNotExist)
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

// Remove deletes the transcript.
func (m *MockTranscriptStore) Remove(orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Removed = append(m.Removed, orderID)
	delete(m.Data, orderID)
	return nil
}

// MockSessionTracker is a test double for domain.SessionTracker.
type MockSessionTracker struct {
	Awaiting map[string]bool
	Cleared  []string
	mu       sync.Mutex
}

// NewMockSessionTracker creates an empty tracker.
func NewMockSessionTracker() *MockSessionTracker {
	return &MockSessionTracker{Awaiting: make(map[string]bool)}
}

// IsAwaiting reports the configured flag.
func (m *MockSessionTracker) IsAwaiting(orderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Awaiting[orderID]
}

// ClearAwaiting clears the flag and records the call.
func (m *MockSessionTracker) ClearAwaiting(orderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cleared = append(m.Cleared, orderID)
	delete(m.Awaiting, orderID)
}

// Ensure mocks implement their ports.
var (
	_ domain.Clock            = (*MockClock)(nil)
	_ domain.IDGenerator      = (*MockIDGenerator)(nil)
	_ domain.OrderRepository  = (*MockOrderRepository)(nil)
	_ domain.CafeRepository   = (*MockCafeRepository)(nil)
	_ domain.RecipeRepository = (*MockRecipeRepository)(nil)
	_ domain.WorktreeManager  = (*MockWorktreeManager)(nil)
	_ domain.Git              = (*MockGit)(nil)
	_ domain.Engine           = (*MockEngine)(nil)
	_ domain.EngineProvider   = (*MockEngineProvider)(nil)
	_ domain.BaristaPool      = (*MockBaristaPool)(nil)
	_ domain.Logger           = (*MockLogger)(nil)
	_ domain.ConfigManager    = (*MockConfigManager)(nil)
	_ domain.ConfigLoader     = (*MockConfigLoader)(nil)
	_ domain.TranscriptStore  = (*MockTranscriptStore)(nil)
	_ domain.SessionTracker   = (*MockSessionTracker)(nil)
)
