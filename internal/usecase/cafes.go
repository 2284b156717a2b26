package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/runoshun/git-cafe/internal/domain"
)

// AddCafeInput contains the parameters for registering a cafe.
type AddCafeInput struct {
	ID           string
	Name         string
	Path         string // Any directory inside the repository
	BaseBranch   string
	WorktreeRoot string
}

// AddCafeOutput contains the registered cafe.
type AddCafeOutput struct {
	Cafe domain.Cafe
}

// AddCafe registers a repository under a cafe ID.
type AddCafe struct {
	cafes  domain.CafeRepository
	git    domain.Git
	clock  domain.Clock
	logger domain.Logger
}

// NewAddCafe creates a new AddCafe use case.
func NewAddCafe(cafes domain.CafeRepository, git domain.Git, clock domain.Clock, logger domain.Logger) *AddCafe {
	return &AddCafe{
		cafes:  cafes,
		git:    git,
		clock:  clock,
		logger: logger,
	}
}

// Execute validates and registers the cafe. The path is stored as the
// repository root.
func (uc *AddCafe) Execute(_ context.Context, in AddCafeInput) (*AddCafeOutput, error) {
	if err := domain.ValidateCafeID(in.ID); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(in.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}
	root, err := uc.git.RepoRoot(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotGitRepository, abs)
	}

	cafe := domain.Cafe{
		ID:           in.ID,
		Name:         in.Name,
		Path:         root,
		BaseBranch:   in.BaseBranch,
		WorktreeRoot: in.WorktreeRoot,
		Created:      uc.clock.Now(),
	}
	if err := uc.cafes.Add(cafe); err != nil {
		return nil, fmt.Errorf("add cafe: %w", err)
	}
	if uc.logger != nil {
		uc.logger.Info("", "cafe", fmt.Sprintf("registered %s at %s", cafe.ID, cafe.Path))
	}
	return &AddCafeOutput{Cafe: cafe}, nil
}

// ListCafesInput contains the parameters for listing cafes.
type ListCafesInput struct{}

// ListCafesOutput contains the registered cafes.
type ListCafesOutput struct {
	Cafes []domain.Cafe
}

// ListCafes lists registered cafes.
type ListCafes struct {
	cafes domain.CafeRepository
}

// NewListCafes creates a new ListCafes use case.
func NewListCafes(cafes domain.CafeRepository) *ListCafes {
	return &ListCafes{cafes: cafes}
}

// Execute lists the cafes.
func (uc *ListCafes) Execute(_ context.Context, _ ListCafesInput) (*ListCafesOutput, error) {
	cafes, err := uc.cafes.List()
	if err != nil {
		return nil, fmt.Errorf("list cafes: %w", err)
	}
	return &ListCafesOutput{Cafes: cafes}, nil
}

// RemoveCafeInput contains the parameters for unregistering a cafe.
type RemoveCafeInput struct {
	ID    string
	Force bool // Remove even if unfinished orders reference the cafe
}

// RemoveCafeOutput contains the result of unregistering a cafe.
type RemoveCafeOutput struct{}

// RemoveCafe unregisters a cafe. Orders and worktrees are left in place.
type RemoveCafe struct {
	cafes  domain.CafeRepository
	orders domain.OrderRepository
	logger domain.Logger
}

// NewRemoveCafe creates a new RemoveCafe use case.
func NewRemoveCafe(cafes domain.CafeRepository, orders domain.OrderRepository, logger domain.Logger) *RemoveCafe {
	return &RemoveCafe{cafes: cafes, orders: orders, logger: logger}
}

// Execute removes the cafe.
func (uc *RemoveCafe) Execute(_ context.Context, in RemoveCafeInput) (*RemoveCafeOutput, error) {
	cafe, err := uc.cafes.Get(in.ID)
	if err != nil {
		return nil, fmt.Errorf("get cafe: %w", err)
	}
	if cafe == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrCafeNotFound, in.ID)
	}

	if !in.Force {
		active, err := uc.orders.List(domain.OrderFilter{CafeID: in.ID})
		if err != nil {
			return nil, fmt.Errorf("list orders: %w", err)
		}
		if len(active) > 0 {
			return nil, domain.NewError(domain.KindPreconditionFailed, "remove cafe",
				fmt.Errorf("%d unfinished orders reference %s", len(active), in.ID))
		}
	}

	if err := uc.cafes.Remove(in.ID); err != nil && !errors.Is(err, domain.ErrCafeNotFound) {
		return nil, fmt.Errorf("remove cafe: %w", err)
	}
	if uc.logger != nil {
		uc.logger.Info("", "cafe", "unregistered "+in.ID)
	}
	return &RemoveCafeOutput{}, nil
}
