// Package store is the Postgres-backed entity store. Every domain service
// declares the narrow slice of it that it needs as a local interface and
// receives the store by injection, so the decision logic stays testable
// against in-memory fakes.
package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned by point lookups when no row matches
var ErrNotFound = errors.New("store: not found")

// ErrNotConfigured is returned by mutating operations when no database
// connection was established. Read operations fail closed instead: point
// lookups report ErrNotFound and listings come back empty, so read paths
// degrade to empty results rather than hard failures.
var ErrNotConfigured = errors.New("store: not configured")

// Store wraps the connection pool with typed queries for every entity.
// A nil pool is legal and puts the store in the unconfigured state.
type Store struct {
	db *pgxpool.Pool
}

// New creates a store over an established connection pool
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) ready() bool {
	return s.db != nil
}
