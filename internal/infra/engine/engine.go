// Package engine runs orders locally by executing provider commands
// stage by stage and streaming their output into the order transcript.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"

	"github.com/runoshun/git-cafe/internal/aggregator"
	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/infra/executor"
	"github.com/runoshun/git-cafe/internal/protocol"
	"github.com/runoshun/git-cafe/internal/transcript"
)

// Ensure Engine implements the engine ports.
var (
	_ domain.Engine         = (*Engine)(nil)
	_ domain.EngineProvider = (*Engine)(nil)
	_ domain.SessionTracker = (*Engine)(nil)
)

// Environment variables exported to provider commands.
const (
	EnvPrompt   = "CAFE_PROMPT"
	EnvContinue = "CAFE_CONTINUE"
	EnvOrderID  = "CAFE_ORDER_ID"
	EnvStageID  = "CAFE_STAGE_ID"
)

// promptExpr is what provider templates receive as {{.Prompt}}.
// The prompt itself travels in the environment so it is never shell-parsed.
const promptExpr = `"$` + EnvPrompt + `"`

// SessionEndFunc is called when a run ends on its own.
// runErr is nil when every stage completed. Cancelled runs are not reported.
type SessionEndFunc func(orderID string, runErr error)

// Options configures an Engine.
type Options struct {
	Recipes     domain.RecipeRepository
	Transcripts domain.TranscriptStore
	Config      *domain.Config
	Clock       domain.Clock
	Logger      domain.Logger
	Runner      *executor.Client // Nil = executor.NewClient()
}

// Engine is the local execution engine.
type Engine struct {
	recipes     domain.RecipeRepository
	transcripts domain.TranscriptStore
	cfg         *domain.Config
	clock       domain.Clock
	logger      domain.Logger
	runner      *executor.Client
	agg         *aggregator.Aggregator
	onEnd       SessionEndFunc
	sessions    map[string]*session
	mu          sync.Mutex
}

// session is the live state of one order. Fields other than emitMu and
// the immutable id are guarded by Engine.mu.
type session struct {
	recipe   *domain.Recipe
	order    *domain.Order
	proc     *executor.Process
	cancel   context.CancelFunc
	done     chan struct{}
	id       string
	workDir  string
	provider string // Followup provider; empty = last stage's provider
	emitMu   sync.Mutex
	running  bool
	followup bool
	stopped  bool // Cancelled; the end callback is skipped
}

// New creates an Engine.
func New(opts Options) *Engine {
	runner := opts.Runner
	if runner == nil {
		runner = executor.NewClient()
	}
	bufferSize := 0
	if opts.Config != nil {
		bufferSize = opts.Config.Engine.LogBuffer
	}
	return &Engine{
		recipes:     opts.Recipes,
		transcripts: opts.Transcripts,
		cfg:         opts.Config,
		clock:       opts.Clock,
		logger:      opts.Logger,
		runner:      runner,
		agg:         aggregator.New(bufferSize, opts.Logger),
		sessions:    make(map[string]*session),
	}
}

// SetOnEnd registers the callback invoked when a run ends.
// It must be set before any order is executed.
func (e *Engine) SetOnEnd(fn SessionEndFunc) {
	e.onEnd = fn
}

// Engine returns the engine itself.
func (e *Engine) Engine() (domain.Engine, error) {
	return e, nil
}

// Aggregator returns the live projection of running orders.
func (e *Engine) Aggregator() *aggregator.Aggregator {
	return e.agg
}

// StartOrder opens a session for the order in its project root.
func (e *Engine) StartOrder(_ context.Context, order *domain.Order) error {
	recipe, err := e.resolveRecipe(order)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if s, ok := e.sessions[order.ID]; ok && s.running {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrSessionRunning, order.ID)
	}
	e.sessions[order.ID] = &session{
		id:      order.ID,
		recipe:  recipe,
		order:   order.Clone(),
		workDir: order.ProjectRoot(),
	}
	e.mu.Unlock()

	e.agg.StartSession(order.ID)
	e.debug(order.ID, fmt.Sprintf("session opened in %s with recipe %s", order.ProjectRoot(), recipe.ID))
	return nil
}

// Execute records the request and runs the recipe from its first stage.
// It returns once the run has started; Wait blocks until it ends.
func (e *Engine) Execute(_ context.Context, order *domain.Order, opts domain.ExecuteOptions) error {
	s, err := e.idleSession(order.ID)
	if err != nil {
		return err
	}
	prompt := opts.Prompt
	if prompt == "" {
		prompt = order.Prompt
	}

	e.mu.Lock()
	s.order = order.Clone()
	s.order.MergeVariables(opts.Variables)
	e.mu.Unlock()

	e.emit(s, protocol.Line(protocol.TypeUserPrompt, prompt))
	return e.launch(s, 0, prompt, false)
}

// SendInput writes message to the stdin of the running stage.
func (e *Engine) SendInput(_ context.Context, orderID, message string) error {
	e.mu.Lock()
	s, ok := e.sessions[orderID]
	var proc *executor.Process
	if ok {
		proc = s.proc
	}
	e.mu.Unlock()
	if proc == nil {
		return fmt.Errorf("%w: %s", domain.ErrNoSession, orderID)
	}

	if err := proc.Write(message); err != nil {
		return err
	}
	e.emit(s, protocol.Line(protocol.TypeUserPrompt, message))
	return nil
}

// Cancel stops a running session and drops it. It blocks until the
// running stage has exited or ctx is done.
func (e *Engine) Cancel(ctx context.Context, orderID string) error {
	e.mu.Lock()
	s, ok := e.sessions[orderID]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrNoSession, orderID)
	}
	delete(e.sessions, orderID)
	if !s.running {
		e.mu.Unlock()
		return nil
	}
	s.stopped = true
	cancel, done := s.cancel, s.done
	e.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	e.info(orderID, "session cancelled")
	return nil
}

// Wait blocks until the order's current or last run has ended.
// It returns immediately when the order has no session or never ran.
func (e *Engine) Wait(ctx context.Context, orderID string) error {
	e.mu.Lock()
	s, ok := e.sessions[orderID]
	var done chan struct{}
	if ok {
		// done is closed only after the end of the run has been recorded.
		done = s.done
	}
	e.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryFromStage reruns the recipe from stageID, or from the first failed
// stage of the previous run when stageID is empty.
func (e *Engine) RetryFromStage(_ context.Context, order *domain.Order, stageID string) error {
	s, err := e.idleSession(order.ID)
	if err != nil {
		return err
	}

	if stageID == "" {
		opts, err := e.retryOptions(order.ID, s.recipe)
		if err != nil {
			return err
		}
		if opts.FailedStage == "" {
			return fmt.Errorf("%w: no failed stage", domain.ErrNothingToRetry)
		}
		stageID = opts.FailedStage
	}
	idx := s.recipe.StageIndex(stageID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", domain.ErrStageNotFound, stageID)
	}

	e.mu.Lock()
	s.order = order.Clone()
	e.mu.Unlock()

	e.info(order.ID, "retrying from stage "+stageID)
	return e.launch(s, idx, order.Prompt, true)
}

// RetryFromBeginning reruns the whole recipe. preserveContext resumes the
// provider conversation instead of starting a fresh one.
func (e *Engine) RetryFromBeginning(_ context.Context, order *domain.Order, preserveContext bool) error {
	s, err := e.idleSession(order.ID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	s.order = order.Clone()
	e.mu.Unlock()

	e.info(order.ID, fmt.Sprintf("retrying from the beginning (preserve context: %t)", preserveContext))
	return e.launch(s, 0, order.Prompt, preserveContext)
}

// GetRetryOptions reports the recipe stages and the first failed stage of
// the order's last run, read back from its transcript.
func (e *Engine) GetRetryOptions(_ context.Context, order *domain.Order) (*domain.RetryOptions, error) {
	recipe, err := e.resolveRecipe(order)
	if err != nil {
		return nil, err
	}
	return e.retryOptions(order.ID, recipe)
}

// HasSession reports whether a session exists for the order.
func (e *Engine) HasSession(orderID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.sessions[orderID]
	return ok
}

// CanFollowup reports whether the session exists and is idle.
func (e *Engine) CanFollowup(orderID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[orderID]
	return ok && !s.running
}

// EnterFollowup switches an idle session into followup mode.
func (e *Engine) EnterFollowup(_ context.Context, orderID string) error {
	e.mu.Lock()
	s, ok := e.sessions[orderID]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrNoSession, orderID)
	}
	if s.running {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrSessionRunning, orderID)
	}
	s.followup = true
	e.mu.Unlock()

	e.info(orderID, "followup mode entered")
	return nil
}

// ExecuteFollowup runs prompt in the session, resuming the provider
// conversation. It blocks until the provider exits and never changes the
// order's status.
func (e *Engine) ExecuteFollowup(ctx context.Context, orderID, prompt string) error {
	e.mu.Lock()
	s, ok := e.sessions[orderID]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrNoSession, orderID)
	}
	if s.running {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrSessionRunning, orderID)
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.followup = true
	s.running = true
	s.stopped = false
	s.cancel = cancel
	s.done = make(chan struct{})
	provider := s.followupProvider(e.defaultProvider())
	e.mu.Unlock()

	e.emit(s, protocol.Line(protocol.TypeUserPrompt, prompt))
	err := e.exec(runCtx, s, provider, "", prompt, true)

	e.mu.Lock()
	s.running = false
	s.proc = nil
	close(s.done)
	e.mu.Unlock()

	if err != nil {
		e.warn(orderID, "followup failed: "+err.Error())
		return err
	}
	return nil
}

// FinishFollowup drops the idle session.
func (e *Engine) FinishFollowup(_ context.Context, orderID string) error {
	e.mu.Lock()
	s, ok := e.sessions[orderID]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrNoSession, orderID)
	}
	if s.running {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrSessionRunning, orderID)
	}
	delete(e.sessions, orderID)
	e.mu.Unlock()

	e.info(orderID, "followup finished")
	return nil
}

// RestoreSessionForFollowup recreates an idle followup session for a
// completed order, scoped to its worktree.
func (e *Engine) RestoreSessionForFollowup(_ context.Context, order *domain.Order, barista *domain.Barista, counter, worktreePath string) error {
	if worktreePath == "" {
		return fmt.Errorf("restore session: %w", domain.ErrNoWorktree)
	}
	info, err := os.Stat(worktreePath)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("restore session: %s is not a directory", worktreePath)
	}
	recipe, err := e.resolveRecipe(order)
	if err != nil {
		return err
	}

	provider := order.Provider
	if barista != nil && barista.Provider != "" {
		provider = barista.Provider
	}

	e.mu.Lock()
	if s, ok := e.sessions[order.ID]; ok && s.running {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrSessionRunning, order.ID)
	}
	e.sessions[order.ID] = &session{
		id:       order.ID,
		recipe:   recipe,
		order:    order.Clone(),
		workDir:  worktreePath,
		provider: provider,
		followup: true,
	}
	e.mu.Unlock()

	e.info(order.ID, fmt.Sprintf("session restored for followup in %s (%s)", worktreePath, counter))
	return nil
}

// IsAwaiting reports whether the order waits for input. Orders without a
// live session in this process are read back from their transcript.
func (e *Engine) IsAwaiting(orderID string) bool {
	if _, ok := e.agg.Session(orderID); ok {
		return e.agg.IsAwaiting(orderID)
	}
	records, err := e.readTranscript(orderID)
	if err != nil || len(records) == 0 {
		return false
	}
	replayed := aggregator.New(0, nil)
	replayed.Replay(orderID, records)
	return replayed.IsAwaiting(orderID)
}

// ClearAwaiting clears the live awaiting-input flag.
func (e *Engine) ClearAwaiting(orderID string) {
	e.agg.ClearAwaiting(orderID)
}

// idleSession returns the order's session if it exists and is not running.
func (e *Engine) idleSession(orderID string) (*session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoSession, orderID)
	}
	if s.running {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionRunning, orderID)
	}
	return s, nil
}

// launch starts a run of the session's recipe at stage index from.
// The run is detached from the caller's context; Cancel stops it.
func (e *Engine) launch(s *session, from int, prompt string, resume bool) error {
	e.mu.Lock()
	if s.running {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrSessionRunning, s.id)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.running = true
	s.stopped = false
	s.followup = false
	s.cancel = cancel
	s.done = make(chan struct{})
	e.mu.Unlock()

	e.agg.StartSession(s.id)
	go e.run(ctx, s, from, prompt, resume)
	return nil
}

func (e *Engine) run(ctx context.Context, s *session, from int, prompt string, resume bool) {
	var runErr error
	previous := ""
	for i := from; i < len(s.recipe.Stages); i++ {
		stage := s.recipe.Stages[i]
		provider := s.recipe.StageProvider(stage, e.orderProvider(s.order))
		// Consecutive stages on the same provider share one conversation.
		cont := resume || (i > from && provider == previous)
		previous = provider

		if runErr = e.runStage(ctx, s, stage, provider, prompt, cont); runErr != nil {
			break
		}
	}
	e.finish(s, runErr)
}

func (e *Engine) runStage(ctx context.Context, s *session, stage domain.RecipeStage, provider, prompt string, cont bool) error {
	e.emit(s, protocol.StageStartLine(stage.ID, stage.Name, provider, stage.Skills))
	started := e.clock.Now()
	err := e.exec(ctx, s, provider, stage.ID, s.recipe.StagePrompt(stage, prompt), cont)
	e.emit(s, protocol.StageEndLine(stage.ID, e.clock.Now().Sub(started), err))
	return err
}

// exec runs one provider invocation in the session's working directory.
func (e *Engine) exec(ctx context.Context, s *session, providerName, stageID, prompt string, cont bool) error {
	provider, ok := e.cfg.Providers[providerName]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownProvider, providerName)
	}
	script, err := provider.RenderCommand(domain.ProviderCommandData{Prompt: promptExpr, Continue: cont})
	if err != nil {
		return err
	}

	e.mu.Lock()
	cmd := executor.Command{
		Script: script,
		Dir:    s.workDir,
		Env:    commandEnv(s.order, stageID, prompt, cont),
	}
	e.mu.Unlock()

	e.debug(s.id, fmt.Sprintf("running %s: %s", providerName, script))
	proc, err := e.runner.Start(ctx, cmd, func(stream executor.Stream, line string) {
		if stream == executor.Stderr {
			line = protocol.Line(protocol.TypeStderr, line)
		}
		e.emit(s, line)
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	s.proc = proc
	e.mu.Unlock()

	err = proc.Wait()

	e.mu.Lock()
	s.proc = nil
	e.mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w", providerName, err)
	}
	return nil
}

func (e *Engine) finish(s *session, runErr error) {
	e.mu.Lock()
	stopped := s.stopped
	s.running = false
	s.proc = nil
	done := s.done
	cancel := s.cancel
	e.mu.Unlock()
	cancel()

	status := domain.StageCompleted
	if runErr != nil {
		status = domain.StageFailed
	}
	e.agg.EndSession(s.id, status)

	switch {
	case stopped:
	case runErr != nil:
		e.warn(s.id, "run failed: "+runErr.Error())
	default:
		e.info(s.id, "run completed")
	}
	if !stopped && e.onEnd != nil {
		e.onEnd(s.id, runErr)
	}
	close(done)
}

// emit appends line to the transcript and folds it into the live projection.
func (e *Engine) emit(s *session, line string) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	at := e.clock.Now()
	if err := e.transcripts.Append(s.id, at, line); err != nil {
		e.warn(s.id, fmt.Sprintf("append transcript: %v", err))
	}
	e.agg.Apply(s.id, at, protocol.Decode(line))
}

func (e *Engine) retryOptions(orderID string, recipe *domain.Recipe) (*domain.RetryOptions, error) {
	records, err := e.readTranscript(orderID)
	if err != nil {
		return nil, err
	}
	replayed := aggregator.New(0, nil)
	replayed.Replay(orderID, records)

	opts := &domain.RetryOptions{Stages: recipe.StageIDs()}
	for _, id := range opts.Stages {
		sr, ok := replayed.Stage(orderID, id)
		if !ok {
			continue
		}
		opts.CanResume = true
		if sr.Status == domain.StageFailed && opts.FailedStage == "" {
			opts.FailedStage = id
		}
	}
	return opts, nil
}

func (e *Engine) readTranscript(orderID string) ([]transcript.Record, error) {
	rc, err := e.transcripts.Open(orderID)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer func() { _ = rc.Close() }()
	return transcript.Reconstruct(rc, e.clock.Now)
}

func (e *Engine) resolveRecipe(order *domain.Order) (*domain.Recipe, error) {
	id := order.WorkflowID
	if id == "" {
		id = domain.DefaultRecipeID
	}
	recipe, err := e.recipes.Get(id)
	if err != nil {
		return nil, fmt.Errorf("load recipe %s: %w", id, err)
	}
	if recipe == nil {
		if id == domain.DefaultRecipeID {
			return domain.DefaultRecipe(), nil
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrRecipeNotFound, id)
	}
	return recipe, nil
}

func (e *Engine) defaultProvider() string {
	if e.cfg == nil {
		return ""
	}
	return e.cfg.DefaultProvider
}

func (e *Engine) orderProvider(order *domain.Order) string {
	if order.Provider != "" {
		return order.Provider
	}
	return e.defaultProvider()
}

// followupProvider returns the provider a followup runs on. Caller holds Engine.mu.
func (s *session) followupProvider(fallback string) string {
	if s.provider != "" {
		return s.provider
	}
	if s.order.Provider != "" {
		fallback = s.order.Provider
	}
	if n := len(s.recipe.Stages); n > 0 {
		return s.recipe.StageProvider(s.recipe.Stages[n-1], fallback)
	}
	return fallback
}

// commandEnv builds the environment of a provider command.
// Order variables are exported under their own names.
func commandEnv(order *domain.Order, stageID, prompt string, cont bool) []string {
	env := []string{
		EnvPrompt + "=" + prompt,
		EnvOrderID + "=" + order.ID,
	}
	if stageID != "" {
		env = append(env, EnvStageID+"="+stageID)
	}
	if cont {
		env = append(env, EnvContinue+"=1")
	}
	keys := make([]string, 0, len(order.Variables))
	for k := range order.Variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+order.Variables[k])
	}
	return env
}

func (e *Engine) info(orderID, msg string) {
	if e.logger != nil {
		e.logger.Info(orderID, "engine", msg)
	}
}

func (e *Engine) debug(orderID, msg string) {
	if e.logger != nil {
		e.logger.Debug(orderID, "engine", msg)
	}
}

func (e *Engine) warn(orderID, msg string) {
	if e.logger != nil {
		e.logger.Warn(orderID, "engine", msg)
	}
}
