package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when no item has the requested id
var ErrNotFound = errors.New("item not found")

// ErrInvalidItem is returned for items that cannot be stored
var ErrInvalidItem = errors.New("invalid item")

// Item is a stored record
type Item struct {
	ID          int64   `db:"id" json:"id" yaml:"id"`
	Name        string  `db:"name" json:"name" yaml:"name"`
	Description *string `db:"description" json:"description" yaml:"description"`
}

// NewItem is the payload for creating an item
type NewItem struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

// Store persists items in a SQL database
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Create inserts an item and returns it with its assigned id
func (s *Store) Create(ctx context.Context, item NewItem) (*Item, error) {
	if strings.TrimSpace(item.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidItem)
	}

	created := &Item{Name: item.Name, Description: item.Description}

	query := s.db.Rebind(`INSERT INTO items (name, description) VALUES (?, ?) RETURNING id`)
	if err := s.db.GetContext(ctx, &created.ID, query, item.Name, item.Description); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	return created, nil
}

// List returns all items ordered by id
func (s *Store) List(ctx context.Context) ([]Item, error) {
	result := []Item{}
	if err := s.db.SelectContext(ctx, &result, `SELECT id, name, description FROM items ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	return result, nil
}

// Get returns the item with the given id
func (s *Store) Get(ctx context.Context, id int64) (*Item, error) {
	var item Item

	query := s.db.Rebind(`SELECT id, name, description FROM items WHERE id = ?`)
	if err := s.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item %d: %w", id, err)
	}

	return &item, nil
}

// Delete removes the item with the given id
func (s *Store) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM items WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete item %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete item %d: %w", id, err)
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// Ping reports whether the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
