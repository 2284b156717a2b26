// Package usecase contains application use cases.
package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/usecase/shared"
)

// CreateOrderInput contains the parameters for creating an order.
// Fields are ordered to minimize memory padding.
type CreateOrderInput struct {
	Variables      map[string]string // Extra variables (optional)
	WorkflowID     string            // Recipe ID (empty = default recipe)
	Cafe           string            // Cafe ID or repository directory (required)
	Provider       string            // Provider override (optional)
	Prompt         string            // The request
	BaseBranch     string            // Worktree base branch override (optional)
	BranchPrefix   string            // Worktree branch prefix override (optional)
	CreateWorktree bool              // Isolate the order in its own worktree
}

// CreateOrderOutput contains the result of creating an order.
type CreateOrderOutput struct {
	Order *domain.Order
}

// CreateOrder is the use case for placing a new order.
// Fields are ordered to minimize memory padding.
type CreateOrder struct {
	orders    domain.OrderRepository
	cafes     domain.CafeRepository
	recipes   domain.RecipeRepository
	worktrees domain.WorktreeManager
	git       domain.Git
	engines   domain.EngineProvider
	clock     domain.Clock
	ids       domain.IDGenerator
	logger    domain.Logger
	config    *domain.Config
}

// NewCreateOrder creates a new CreateOrder use case.
func NewCreateOrder(
	orders domain.OrderRepository,
	cafes domain.CafeRepository,
	recipes domain.RecipeRepository,
	worktrees domain.WorktreeManager,
	git domain.Git,
	engines domain.EngineProvider,
	clock domain.Clock,
	ids domain.IDGenerator,
	logger domain.Logger,
	config *domain.Config,
) *CreateOrder {
	return &CreateOrder{
		orders:    orders,
		cafes:     cafes,
		recipes:   recipes,
		worktrees: worktrees,
		git:       git,
		engines:   engines,
		clock:     clock,
		ids:       ids,
		logger:    logger,
		config:    config,
	}
}

// Execute creates the order and, if requested, its worktree.
// Worktree creation is all-or-nothing: on failure the order is rolled back
// and a WORKTREE_CREATION_FAILED error carrying the cause is returned.
func (uc *CreateOrder) Execute(ctx context.Context, in CreateOrderInput) (*CreateOrderOutput, error) {
	if err := shared.ValidateVariables(in.Variables); err != nil {
		return nil, err
	}

	counter, err := shared.ResolveCounter(uc.cafes, uc.git, in.Cafe)
	if err != nil {
		return nil, err
	}

	recipe, err := uc.resolveRecipe(in.WorkflowID)
	if err != nil {
		return nil, err
	}

	provider, err := uc.resolveProvider(in.Provider, recipe)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		ID:           uc.ids.NewID(),
		WorkflowID:   recipe.ID,
		WorkflowName: recipe.DisplayName(),
		Provider:     provider,
		Prompt:       in.Prompt,
		Counter:      counter.Path,
		CafeID:       counter.CafeID,
		Status:       domain.StatusPending,
		Created:      uc.clock.Now(),
	}
	order.MergeVariables(in.Variables)
	order.SetVariable(domain.ProjectRootVar, counter.Path)

	if err := uc.orders.Save(order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}
	uc.log(order.ID, "order", fmt.Sprintf("created: workflow=%s counter=%s", order.WorkflowID, order.RepoRef()))

	if !in.CreateWorktree {
		return &CreateOrderOutput{Order: order}, nil
	}

	params := shared.WorktreeParams{
		RepoPath:   counter.Path,
		Root:       firstNonEmpty(counter.WorktreeRoot, uc.config.Worktree.Root),
		Prefix:     firstNonEmpty(in.BranchPrefix, uc.config.Worktree.Prefix),
		BaseBranch: firstNonEmpty(in.BaseBranch, counter.BaseBranch, uc.config.Worktree.BaseBranch),
	}
	if err := shared.AttachWorktree(ctx, uc.worktrees, uc.clock, order, params); err != nil {
		uc.rollback(ctx, order.ID)
		return nil, domain.NewError(domain.KindWorktreeCreationFailed, "create worktree", err)
	}

	if err := uc.orders.Save(order); err != nil {
		// The worktree exists but the order cannot reference it; undo both.
		if rmErr := uc.worktrees.Remove(ctx, order.Worktree.RepoPath, order.Worktree.Path, order.Worktree.Branch); rmErr != nil {
			uc.warn(order.ID, "worktree", fmt.Sprintf("rollback remove worktree: %v", rmErr))
		}
		uc.rollback(ctx, order.ID)
		return nil, domain.NewError(domain.KindWorktreeCreationFailed, "save order", err)
	}
	uc.log(order.ID, "worktree", fmt.Sprintf("created %s on %s", order.Worktree.Path, order.Worktree.Branch))

	return &CreateOrderOutput{Order: order}, nil
}

// rollback cancels and deletes a half-created order.
// Failures are logged only; the caller reports the original cause.
func (uc *CreateOrder) rollback(ctx context.Context, orderID string) {
	shared.CancelBestEffort(ctx, uc.engines, uc.logger, orderID)
	if err := uc.orders.Delete(orderID); err != nil {
		uc.warn(orderID, "order", fmt.Sprintf("rollback delete order: %v", err))
		return
	}
	uc.log(orderID, "order", "rolled back")
}

func (uc *CreateOrder) resolveRecipe(id string) (*domain.Recipe, error) {
	if id == "" {
		id = domain.DefaultRecipeID
	}
	recipe, err := uc.recipes.Get(id)
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	if recipe == nil {
		return nil, domain.NewError(domain.KindNotFound, "resolve recipe", fmt.Errorf("%w: %s", domain.ErrRecipeNotFound, id))
	}
	return recipe, nil
}

func (uc *CreateOrder) resolveProvider(requested string, recipe *domain.Recipe) (string, error) {
	provider := firstNonEmpty(requested, recipe.Provider, uc.config.DefaultProvider)
	if len(uc.config.Providers) > 0 {
		if _, ok := uc.config.Providers[provider]; !ok {
			return "", fmt.Errorf("%w: %q", domain.ErrUnknownProvider, provider)
		}
	}
	return provider, nil
}

func (uc *CreateOrder) log(orderID, category, msg string) {
	if uc.logger != nil {
		uc.logger.Info(orderID, category, msg)
	}
}

func (uc *CreateOrder) warn(orderID, category, msg string) {
	if uc.logger != nil {
		uc.logger.Warn(orderID, category, msg)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
