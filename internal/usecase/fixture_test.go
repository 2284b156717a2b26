package usecase

import (
	"time"

	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/testutil"
)

// fixture bundles the doubles most use cases need.
type fixture struct {
	orders      *testutil.MockOrderRepository
	cafes       *testutil.MockCafeRepository
	recipes     *testutil.MockRecipeRepository
	worktrees   *testutil.MockWorktreeManager
	git         *testutil.MockGit
	engine      *testutil.MockEngine
	engines     *testutil.MockEngineProvider
	baristas    *testutil.MockBaristaPool
	transcripts *testutil.MockTranscriptStore
	tracker     *testutil.MockSessionTracker
	logger      *testutil.MockLogger
	clock       *testutil.MockClock
	ids         *testutil.MockIDGenerator
	config      *domain.Config
}

var fixtureNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func newFixture() *fixture {
	f := &fixture{
		orders:      testutil.NewMockOrderRepository(),
		cafes:       testutil.NewMockCafeRepository(),
		recipes:     testutil.NewMockRecipeRepository(),
		worktrees:   testutil.NewMockWorktreeManager(),
		git:         &testutil.MockGit{},
		engine:      testutil.NewMockEngine(),
		baristas:    testutil.NewMockBaristaPool(),
		transcripts: testutil.NewMockTranscriptStore(),
		tracker:     testutil.NewMockSessionTracker(),
		logger:      testutil.NewMockLogger(),
		clock:       &testutil.MockClock{NowTime: fixtureNow},
		ids:         &testutil.MockIDGenerator{IDs: []string{"o1", "o2", "o3"}},
		config:      domain.NewDefaultConfig(),
	}
	f.engines = &testutil.MockEngineProvider{E: f.engine}
	f.cafes.Cafes["shop"] = domain.Cafe{ID: "shop", Name: "Shop", Path: "/repo"}
	return f
}

// addOrder stores an order placed against the "shop" cafe.
func (f *fixture) addOrder(id string, status domain.OrderStatus, withWorktree bool) *domain.Order {
	o := &domain.Order{
		ID:           id,
		WorkflowID:   domain.DefaultRecipeID,
		WorkflowName: "Default",
		Provider:     "claude",
		Prompt:       "fix the bug",
		Counter:      "/repo",
		CafeID:       "shop",
		Status:       status,
		Created:      fixtureNow.Add(-time.Hour),
	}
	o.SetVariable(domain.ProjectRootVar, "/repo")
	if withWorktree {
		path := "/repo/.cafe-worktrees/order-" + id
		o.Worktree = &domain.WorktreeInfo{
			Path:       path,
			Branch:     "order-" + id,
			BaseBranch: "main",
			RepoPath:   "/repo",
		}
		o.SetVariable(domain.ProjectRootVar, path)
		f.worktrees.ExistingPaths[path] = true
	}
	f.orders.Orders[id] = o
	return o
}

func (f *fixture) createOrder() *CreateOrder {
	return NewCreateOrder(f.orders, f.cafes, f.recipes, f.worktrees, f.git, f.engines, f.clock, f.ids, f.logger, f.config)
}

func (f *fixture) startOrder() *StartOrder {
	return NewStartOrder(f.orders, f.engines, f.baristas, f.clock, f.logger)
}
