// Package app provides the dependency injection container for the application.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/infra/baristas"
	"github.com/runoshun/git-cafe/internal/infra/cafestore"
	"github.com/runoshun/git-cafe/internal/infra/config"
	"github.com/runoshun/git-cafe/internal/infra/engine"
	"github.com/runoshun/git-cafe/internal/infra/git"
	"github.com/runoshun/git-cafe/internal/infra/ids"
	"github.com/runoshun/git-cafe/internal/infra/jsonstore"
	"github.com/runoshun/git-cafe/internal/infra/logging"
	"github.com/runoshun/git-cafe/internal/infra/orderlog"
	"github.com/runoshun/git-cafe/internal/infra/recipestore"
	"github.com/runoshun/git-cafe/internal/infra/sqlitestore"
	"github.com/runoshun/git-cafe/internal/infra/worktree"
	"github.com/runoshun/git-cafe/internal/usecase"
)

// Config holds the application paths.
type Config struct {
	LookPath        func(string) (string, error) // Builtin provider detection; nil disables builtins
	DataDir         string                       // Data directory (~/.cafe)
	GlobalConfigDir string                       // Global config directory (~/.config/cafe)
}

// DefaultConfig returns the paths used by the cafe binary.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:         dataDir,
		GlobalConfigDir: config.DefaultGlobalConfigDir(),
		LookPath:        exec.LookPath,
	}
}

// Container provides dependency injection for the application.
// It holds all port implementations and provides factory methods for use cases.
type Container struct {
	// Ports (interfaces bound to implementations)
	Orders           domain.OrderRepository
	StoreInitializer domain.StoreInitializer
	Cafes            domain.CafeRepository
	Recipes          domain.RecipeRepository
	Git              domain.Git
	Worktrees        domain.WorktreeManager
	Baristas         domain.BaristaPool
	IDs              domain.IDGenerator
	Clock            domain.Clock
	ConfigLoader     domain.ConfigLoader
	ConfigManager    domain.ConfigManager

	// Concrete infrastructure used directly by the CLI
	Engine      *engine.Engine
	Transcripts *orderlog.Store
	Logger      *logging.Logger

	// Configuration
	AppConfig *domain.Config
	Config    Config

	closers []io.Closer
}

// New creates a new Container rooted at cfg.DataDir.
// The order store selected by [store] type is initialized on first use.
func New(cfg Config) (*Container, error) {
	if cfg.DataDir == "" {
		return nil, errors.New("data directory is required")
	}

	configLoader := config.NewLoaderWithGlobalDir(cfg.DataDir, cfg.GlobalConfigDir, cfg.LookPath)
	appConfig, err := configLoader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	c := &Container{
		Cafes:         cafestore.NewStore(cfg.DataDir),
		Recipes:       recipestore.New(cfg.DataDir),
		Git:           git.NewClient(),
		Worktrees:     worktree.NewClient(),
		IDs:           ids.UUIDGenerator{},
		Clock:         domain.RealClock{},
		ConfigLoader:  configLoader,
		ConfigManager: config.NewManagerWithGlobalDir(cfg.DataDir, cfg.GlobalConfigDir),
		Transcripts:   orderlog.New(cfg.DataDir),
		Logger:        logging.New(cfg.DataDir, logging.ParseLevel(appConfig.Log.Level)),
		AppConfig:     appConfig,
		Config:        cfg,
	}
	c.closers = append(c.closers, c.Logger)
	c.Baristas = baristas.New(c.Clock)

	if err := c.openStore(); err != nil {
		_ = c.Close()
		return nil, err
	}

	for _, w := range appConfig.Warnings {
		c.Logger.Warn("", "config", w)
	}

	c.Engine = engine.New(engine.Options{
		Recipes:     c.Recipes,
		Transcripts: c.Transcripts,
		Config:      appConfig,
		Clock:       c.Clock,
		Logger:      c.Logger,
	})
	sessionEnded := c.SessionEndedUseCase()
	c.Engine.SetOnEnd(func(orderID string, runErr error) {
		in := usecase.SessionEndedInput{OrderID: orderID}
		if runErr != nil {
			in.Error = runErr.Error()
		}
		if _, err := sessionEnded.Execute(context.Background(), in); err != nil {
			c.Logger.Error(orderID, "order", fmt.Sprintf("record session end: %v", err))
		}
	})

	return c, nil
}

// openStore binds the order repository selected by the configuration.
func (c *Container) openStore() error {
	switch c.AppConfig.Store.Type {
	case domain.StoreTypeSQLite:
		store, err := sqlitestore.New(domain.OrdersDBPath(c.Config.DataDir))
		if err != nil {
			return fmt.Errorf("open order database: %w", err)
		}
		c.closers = append(c.closers, store)
		c.Orders = store
		c.StoreInitializer = store
	default:
		store := jsonstore.New(domain.OrdersStorePath(c.Config.DataDir))
		c.Orders = store
		c.StoreInitializer = store
	}
	if err := c.StoreInitializer.Initialize(); err != nil {
		return fmt.Errorf("initialize order store: %w", err)
	}
	return nil
}

// Close releases open files and database connections.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// UseCase factory methods

// CreateOrderUseCase returns a new CreateOrder use case.
func (c *Container) CreateOrderUseCase() *usecase.CreateOrder {
	return usecase.NewCreateOrder(c.Orders, c.Cafes, c.Recipes, c.Worktrees, c.Git, c.Engine, c.Clock, c.IDs, c.Logger, c.AppConfig)
}

// ListOrdersUseCase returns a new ListOrders use case.
func (c *Container) ListOrdersUseCase() *usecase.ListOrders {
	return usecase.NewListOrders(c.Orders, c.Engine)
}

// ShowOrderUseCase returns a new ShowOrder use case.
func (c *Container) ShowOrderUseCase() *usecase.ShowOrder {
	return usecase.NewShowOrder(c.Orders, c.Engine)
}

// StartOrderUseCase returns a new StartOrder use case.
func (c *Container) StartOrderUseCase() *usecase.StartOrder {
	return usecase.NewStartOrder(c.Orders, c.Engine, c.Baristas, c.Clock, c.Logger)
}

// ExecuteOrderUseCase returns a new ExecuteOrder use case.
func (c *Container) ExecuteOrderUseCase() *usecase.ExecuteOrder {
	return usecase.NewExecuteOrder(c.StartOrderUseCase(), c.Orders, c.Baristas, c.Clock, c.Logger)
}

// CancelOrderUseCase returns a new CancelOrder use case.
func (c *Container) CancelOrderUseCase() *usecase.CancelOrder {
	return usecase.NewCancelOrder(c.Orders, c.Engine, c.Baristas, c.Engine, c.Clock, c.Logger)
}

// SendInputUseCase returns a new SendInput use case.
func (c *Container) SendInputUseCase() *usecase.SendInput {
	return usecase.NewSendInput(c.Orders, c.Engine, c.Engine, c.Logger)
}

// SessionEndedUseCase returns a new SessionEnded use case.
func (c *Container) SessionEndedUseCase() *usecase.SessionEnded {
	return usecase.NewSessionEnded(c.Orders, c.Baristas, c.Engine, c.Clock, c.Logger)
}

// DeleteOrderUseCase returns a new DeleteOrder use case.
func (c *Container) DeleteOrderUseCase() *usecase.DeleteOrder {
	return usecase.NewDeleteOrder(c.Orders, c.Worktrees, c.Engine, c.Baristas, c.Transcripts, c.Logger)
}

// DeleteOrdersUseCase returns a new DeleteOrders use case.
func (c *Container) DeleteOrdersUseCase() *usecase.DeleteOrders {
	return usecase.NewDeleteOrders(c.Orders, c.Worktrees, c.Engine, c.Baristas, c.Transcripts, c.Logger)
}

// OrderHistoryUseCase returns a new OrderHistory use case.
func (c *Container) OrderHistoryUseCase() *usecase.OrderHistory {
	return usecase.NewOrderHistory(c.Orders, c.Transcripts, c.Clock)
}

// OrderStagesUseCase returns a new OrderStages use case.
func (c *Container) OrderStagesUseCase() *usecase.OrderStages {
	return usecase.NewOrderStages(c.Orders, c.Transcripts, c.Clock, c.Logger, c.AppConfig.Engine.LogBuffer)
}

// RetryOrderUseCase returns a new RetryOrder use case.
func (c *Container) RetryOrderUseCase() *usecase.RetryOrder {
	return usecase.NewRetryOrder(c.StartOrderUseCase(), c.Orders, c.Baristas, c.Clock, c.Logger)
}

// GetRetryOptionsUseCase returns a new GetRetryOptions use case.
func (c *Container) GetRetryOptionsUseCase() *usecase.GetRetryOptions {
	return usecase.NewGetRetryOptions(c.Orders, c.Engine)
}

// FollowupUseCase returns a new Followup use case for action.
func (c *Container) FollowupUseCase(action usecase.FollowupAction) *usecase.Followup {
	return usecase.NewFollowup(c.Orders, c.Engine, c.Baristas, c.Logger, action)
}

// CleanupWorktreeUseCase returns a new CleanupWorktree use case.
func (c *Container) CleanupWorktreeUseCase() *usecase.CleanupWorktree {
	return usecase.NewCleanupWorktree(c.Orders, c.Worktrees, c.Logger)
}

// MergeWorktreeUseCase returns a new MergeWorktree use case.
func (c *Container) MergeWorktreeUseCase() *usecase.MergeWorktree {
	return usecase.NewMergeWorktree(c.Orders, c.Worktrees, c.Logger, c.AppConfig)
}

// RetryWorktreeUseCase returns a new RetryWorktree use case.
func (c *Container) RetryWorktreeUseCase() *usecase.RetryWorktree {
	return usecase.NewRetryWorktree(c.Orders, c.Cafes, c.Worktrees, c.Clock, c.Logger, c.AppConfig)
}

// AddCafeUseCase returns a new AddCafe use case.
func (c *Container) AddCafeUseCase() *usecase.AddCafe {
	return usecase.NewAddCafe(c.Cafes, c.Git, c.Clock, c.Logger)
}

// ListCafesUseCase returns a new ListCafes use case.
func (c *Container) ListCafesUseCase() *usecase.ListCafes {
	return usecase.NewListCafes(c.Cafes)
}

// RemoveCafeUseCase returns a new RemoveCafe use case.
func (c *Container) RemoveCafeUseCase() *usecase.RemoveCafe {
	return usecase.NewRemoveCafe(c.Cafes, c.Orders, c.Logger)
}

// ShowConfigUseCase returns a new ShowConfig use case.
func (c *Container) ShowConfigUseCase() *usecase.ShowConfig {
	return usecase.NewShowConfig(c.ConfigManager, c.AppConfig)
}

// InitConfigUseCase returns a new InitConfig use case.
func (c *Container) InitConfigUseCase() *usecase.InitConfig {
	return usecase.NewInitConfig(c.ConfigManager)
}

// ListRecipesUseCase returns a new ListRecipes use case.
func (c *Container) ListRecipesUseCase() *usecase.ListRecipes {
	return usecase.NewListRecipes(c.Recipes)
}
