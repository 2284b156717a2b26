// Package jsonstore provides a JSON file-based implementation of OrderRepository.
package jsonstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/runoshun/git-cafe/internal/domain"
)

// storeVersion is bumped when the file layout changes incompatibly.
const storeVersion = 1

// storeData represents the JSON file structure.
type storeData struct {
	Orders map[string]*domain.Order `json:"orders"`
	Meta   meta                     `json:"meta"`
}

// meta contains store metadata.
type meta struct {
	Version int `json:"version"`
}

// Store implements domain.OrderRepository using a JSON file.
// Every operation takes a flock on a sibling lock file so that several
// cafe processes can share one data directory.
type Store struct {
	path     string
	lockPath string
}

// Ensure Store implements the repository ports.
var (
	_ domain.OrderRepository  = (*Store)(nil)
	_ domain.StoreInitializer = (*Store)(nil)
)

// New creates a new Store for the given file path.
// The file does not need to exist; Initialize creates it.
func New(path string) *Store {
	return &Store{
		path:     path,
		lockPath: path + ".lock",
	}
}

// Get retrieves an order by ID. Returns nil if not found.
func (s *Store) Get(id string) (*domain.Order, error) {
	var order *domain.Order
	err := s.withLock(func(data *storeData) error {
		if o, ok := data.Orders[id]; ok {
			o.ID = id
			order = o
		}
		return nil
	})
	return order, err
}

// List retrieves orders matching the filter, oldest first.
func (s *Store) List(filter domain.OrderFilter) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := s.withLock(func(data *storeData) error {
		for id, o := range data.Orders {
			o.ID = id
			if filter.Matches(o) {
				orders = append(orders, o)
			}
		}
		return nil
	})

	slices.SortFunc(orders, func(a, b *domain.Order) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	return orders, err
}

// Save creates or updates an order.
func (s *Store) Save(order *domain.Order) error {
	if order.ID == "" {
		return fmt.Errorf("save order: empty id")
	}
	return s.withLockWrite(func(data *storeData) error {
		data.Orders[order.ID] = order.Clone()
		return nil
	})
}

// Delete removes an order by ID.
func (s *Store) Delete(id string) error {
	return s.withLockWrite(func(data *storeData) error {
		delete(data.Orders, id)
		return nil
	})
}

// IsInitialized checks if the store file exists.
func (s *Store) IsInitialized() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Initialize creates an empty store file if it doesn't exist.
func (s *Store) Initialize() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	lock, err := s.acquireLock(syscall.LOCK_EX)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	if _, err := os.Stat(s.path); err == nil {
		return nil // Already exists
	}

	return s.write(&storeData{
		Meta:   meta{Version: storeVersion},
		Orders: make(map[string]*domain.Order),
	})
}

// withLock executes fn with a shared (read) lock.
func (s *Store) withLock(fn func(*storeData) error) error {
	lock, err := s.acquireLock(syscall.LOCK_SH)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	data, err := s.read()
	if err != nil {
		return err
	}

	return fn(data)
}

// withLockWrite executes fn with an exclusive (write) lock and writes the result.
func (s *Store) withLockWrite(fn func(*storeData) error) error {
	lock, err := s.acquireLock(syscall.LOCK_EX)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	data, err := s.read()
	if err != nil {
		return err
	}

	if err := fn(data); err != nil {
		return err
	}

	return s.write(data)
}

func (s *Store) acquireLock(lockType int) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(s.lockPath), 0o750); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(lock.Fd()), lockType); err != nil {
		_ = lock.Close()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	return lock, nil
}

func (s *Store) releaseLock(lock *os.File) {
	_ = syscall.Flock(int(lock.Fd()), syscall.LOCK_UN)
	_ = lock.Close()
}

func (s *Store) read() (*storeData, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotInitialized
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}

	var data storeData
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("parse store file: %w", err)
	}
	if data.Meta.Version > storeVersion {
		return nil, fmt.Errorf("store file version %d is newer than supported version %d", data.Meta.Version, storeVersion)
	}

	if data.Orders == nil {
		data.Orders = make(map[string]*domain.Order)
	}

	return &data, nil
}

func (s *Store) write(data *storeData) error {
	data.Meta.Version = storeVersion
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store data: %w", err)
	}

	// Write to temp file first, then rename for atomicity
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
