// Package sqlitestore provides a SQLite-backed implementation of OrderRepository.
package sqlitestore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/runoshun/git-cafe/internal/domain"
)

// Ensure Store implements the repository ports.
var (
	_ domain.OrderRepository  = (*Store)(nil)
	_ domain.StoreInitializer = (*Store)(nil)
)

// Store keeps each order as a JSON document with indexed columns for filtering.
type Store struct {
	db   *sql.DB
	path string
}

// New opens the database at path. Initialize creates the schema.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Pragmas are per connection; a single connection keeps them in force.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Initialize runs the schema migrations.
func (s *Store) Initialize() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Get retrieves an order by ID. Returns nil if not found.
func (s *Store) Get(id string) (*domain.Order, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM orders WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return decodeOrder(id, data)
}

// List retrieves orders matching the filter, oldest first.
func (s *Store) List(filter domain.OrderFilter) ([]*domain.Order, error) {
	query := `SELECT id, data FROM orders WHERE 1=1`
	var args []any

	if filter.CafeID != "" {
		query += " AND cafe_id = ?"
		args = append(args, filter.CafeID)
	}

	query += " ORDER BY created_ns, id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var orders []*domain.Order
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		order, err := decodeOrder(id, data)
		if err != nil {
			return nil, err
		}
		if filter.Matches(order) {
			orders = append(orders, order)
		}
	}

	return orders, rows.Err()
}

// Save creates or updates an order.
func (s *Store) Save(order *domain.Order) error {
	if order.ID == "" {
		return fmt.Errorf("save order: empty id")
	}
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO orders (id, cafe_id, status, created_ns, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cafe_id = excluded.cafe_id,
			status = excluded.status,
			created_ns = excluded.created_ns,
			data = excluded.data
	`,
		order.ID,
		order.CafeID,
		string(order.Status),
		order.Created.UnixNano(),
		string(data),
	)
	if err != nil {
		return fmt.Errorf("save order %s: %w", order.ID, err)
	}
	return nil
}

// Delete removes an order by ID.
func (s *Store) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM orders WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete order %s: %w", id, err)
	}
	return nil
}

func decodeOrder(id, data string) (*domain.Order, error) {
	var order domain.Order
	if err := json.Unmarshal([]byte(data), &order); err != nil {
		return nil, fmt.Errorf("decode order %s: %w", id, err)
	}
	order.ID = id
	return &order, nil
}
