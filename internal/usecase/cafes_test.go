package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/git-cafe/internal/domain"
)

func TestAddCafe_Execute(t *testing.T) {
	// Setup
	f := newFixture()
	dir := t.TempDir()
	uc := NewAddCafe(f.cafes, f.git, f.clock, f.logger)

	// Execute
	out, err := uc.Execute(context.Background(), AddCafeInput{
		ID:         "web",
		Name:       "Web frontend",
		Path:       dir,
		BaseBranch: "develop",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "web", out.Cafe.ID)
	assert.Equal(t, dir, out.Cafe.Path)
	assert.Equal(t, fixtureNow, out.Cafe.Created)
	assert.Equal(t, "develop", f.cafes.Cafes["web"].BaseBranch)
}

func TestAddCafe_Execute_Errors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	tests := []struct {
		name  string
		in    AddCafeInput
		setup func(f *fixture)
		want  error
	}{
		{name: "invalid id", in: AddCafeInput{ID: "Bad ID", Path: dir}},
		{name: "missing dir", in: AddCafeInput{ID: "x", Path: filepath.Join(dir, "missing")}},
		{name: "file", in: AddCafeInput{ID: "x", Path: file}},
		{
			name:  "not a repository",
			in:    AddCafeInput{ID: "x", Path: dir},
			setup: func(f *fixture) { f.git.RepoRootErr = errors.New("repository does not exist") },
			want:  domain.ErrNotGitRepository,
		},
		{name: "duplicate", in: AddCafeInput{ID: "shop", Path: dir}, want: domain.ErrCafeExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.setup != nil {
				tt.setup(f)
			}

			_, err := NewAddCafe(f.cafes, f.git, f.clock, f.logger).Execute(context.Background(), tt.in)

			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			assert.Len(t, f.cafes.Cafes, 1)
		})
	}
}

func TestListCafes_Execute(t *testing.T) {
	f := newFixture()
	f.cafes.Cafes["api"] = domain.Cafe{ID: "api", Path: "/srv/api"}

	out, err := NewListCafes(f.cafes).Execute(context.Background(), ListCafesInput{})

	require.NoError(t, err)
	require.Len(t, out.Cafes, 2)
	assert.Equal(t, "api", out.Cafes[0].ID)
	assert.Equal(t, "shop", out.Cafes[1].ID)
}

func TestRemoveCafe_Execute(t *testing.T) {
	t.Run("refuses with unfinished orders", func(t *testing.T) {
		f := newFixture()
		f.addOrder("o1", domain.StatusRunning, false)

		_, err := NewRemoveCafe(f.cafes, f.orders, f.logger).Execute(context.Background(), RemoveCafeInput{ID: "shop"})

		assert.Equal(t, domain.KindPreconditionFailed, domain.KindOf(err))
		assert.Contains(t, f.cafes.Cafes, "shop")
	})

	t.Run("force", func(t *testing.T) {
		f := newFixture()
		f.addOrder("o1", domain.StatusRunning, false)

		_, err := NewRemoveCafe(f.cafes, f.orders, f.logger).Execute(context.Background(), RemoveCafeInput{ID: "shop", Force: true})

		require.NoError(t, err)
		assert.NotContains(t, f.cafes.Cafes, "shop")
		assert.Contains(t, f.orders.Orders, "o1")
	})

	t.Run("finished orders do not block", func(t *testing.T) {
		f := newFixture()
		f.addOrder("o1", domain.StatusCompleted, false)

		_, err := NewRemoveCafe(f.cafes, f.orders, f.logger).Execute(context.Background(), RemoveCafeInput{ID: "shop"})

		require.NoError(t, err)
	})

	t.Run("unknown", func(t *testing.T) {
		f := newFixture()
		_, err := NewRemoveCafe(f.cafes, f.orders, f.logger).Execute(context.Background(), RemoveCafeInput{ID: "nope"})
		assert.ErrorIs(t, err, domain.ErrCafeNotFound)
	})
}
