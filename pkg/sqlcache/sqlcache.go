// Package sqlcache is a write-once key/value table over SQLite, used to
// memoize rendered query results in the exploration tools. It uses
// modernc.org/sqlite, a pure Go driver, so no cgo is involved.
package sqlcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS cache (
	query      TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

// Cache is a durable query → payload table.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlcache: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlcache: create schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the payload stored for query, if any.
func (c *Cache) Get(ctx context.Context, query string) (string, bool, error) {
	var payload string
	err := c.db.QueryRowContext(ctx, `SELECT payload FROM cache WHERE query = ?`, query).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlcache: get: %w", err)
	}
	return payload, true, nil
}

// Put stores the payload for query. Keys are write-once: a second Put for the
// same query is a no-op, so a cached key can never change shape.
func (c *Cache) Put(ctx context.Context, query, payload string) error {
	_, err := c.db.ExecContext(ctx, `INSERT OR IGNORE INTO cache (query, payload) VALUES (?, ?)`, query, payload)
	if err != nil {
		return fmt.Errorf("sqlcache: put: %w", err)
	}
	return nil
}

// History returns the most recent cached queries, newest first.
func (c *Cache) History(ctx context.Context, limit int) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT query FROM cache ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlcache: history: %w", err)
	}
	defer rows.Close()

	var queries []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("sqlcache: history scan: %w", err)
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}
