// Package baristas provides the in-memory worker slot pool.
package baristas

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/runoshun/git-cafe/internal/domain"
)

// Ensure Pool implements domain.BaristaPool.
var _ domain.BaristaPool = (*Pool)(nil)

// Pool tracks baristas for the lifetime of the process.
type Pool struct {
	baristas map[string]*domain.Barista
	now      func() time.Time
	mu       sync.Mutex
}

// New creates an empty pool.
func New(clock domain.Clock) *Pool {
	return &Pool{
		baristas: make(map[string]*domain.Barista),
		now:      clock.Now,
	}
}

// FindAvailable returns an idle barista for the provider, or nil.
// The oldest idle barista is preferred.
func (p *Pool) FindAvailable(provider string) *domain.Barista {
	p.mu.Lock()
	defer p.mu.Unlock()

	var found *domain.Barista
	for _, b := range p.baristas {
		if b.Provider != provider || !b.IsIdle() {
			continue
		}
		if found == nil || b.Created.Before(found.Created) || (b.Created.Equal(found.Created) && b.ID < found.ID) {
			found = b
		}
	}
	if found == nil {
		return nil
	}
	c := *found
	return &c
}

// Create adds a new idle barista for the provider.
func (p *Pool) Create(provider string) (*domain.Barista, error) {
	if provider == "" {
		return nil, fmt.Errorf("create barista: %w: empty provider", domain.ErrUnknownProvider)
	}
	b := &domain.Barista{
		ID:       uuid.NewString(),
		Provider: provider,
		Created:  p.now(),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.baristas[b.ID] = b
	c := *b
	return &c, nil
}

// Get returns a barista by ID, or nil.
func (p *Pool) Get(id string) *domain.Barista {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.baristas[id]
	if !ok {
		return nil
	}
	c := *b
	return &c
}

// Assign binds the barista to an order.
// A barista already serving another order cannot be assigned.
func (p *Pool) Assign(baristaID, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.baristas[baristaID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrBaristaNotFound, baristaID)
	}
	if !b.IsIdle() && b.OrderID != orderID {
		return fmt.Errorf("barista %s is serving order %s", baristaID, b.OrderID)
	}
	b.OrderID = orderID
	return nil
}

// Release frees the barista bound to the order, if any.
func (p *Pool) Release(orderID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, b := range p.baristas {
		if b.OrderID == orderID {
			b.OrderID = ""
		}
	}
}

// List returns all baristas sorted by creation time.
func (p *Pool) List() []domain.Barista {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.Barista, 0, len(p.baristas))
	for _, b := range p.baristas {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
