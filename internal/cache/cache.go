// Package cache persists completion replies keyed by a hash of the request
// payload, so repeated identical invocations skip the network call.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Cache is a SQLite-backed completion cache with a bounded entry count
type Cache struct {
	db     *sql.DB
	length int
	mu     sync.Mutex
}

// Open opens (creating if needed) the cache database at dbPath. length
// bounds the number of retained entries; older entries are evicted first.
func Open(dbPath string, length int) (*Cache, error) {
	if length <= 0 {
		length = 100
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	c := &Cache{db: db, length: length}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return c, nil
}

func (c *Cache) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS completions (
		key TEXT PRIMARY KEY,
		reply TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_created_at ON completions(created_at);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Get returns the cached reply for key, with found=false on a miss
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var reply string
	err := c.db.QueryRowContext(ctx,
		`SELECT reply FROM completions WHERE key = ?`, key).Scan(&reply)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return reply, true, nil
}

// Put stores a reply and evicts the oldest entries beyond the length bound
func (c *Cache) Put(ctx context.Context, key, reply string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO completions (key, reply, created_at)
		VALUES (?, ?, ?)
	`, key, reply, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		DELETE FROM completions WHERE key NOT IN (
			SELECT key FROM completions ORDER BY created_at DESC LIMIT ?
		)
	`, c.length)
	if err != nil {
		return fmt.Errorf("failed to evict cache entries: %w", err)
	}
	return nil
}

// Count returns the number of cached entries
func (c *Cache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var count int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM completions`).Scan(&count); err != nil {
		return 0
	}
	return count
}

// Clear removes all cached entries
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.ExecContext(ctx, `DELETE FROM completions`)
	return err
}

// Close closes the database connection
func (c *Cache) Close() error {
	return c.db.Close()
}

// Key derives a stable cache key from any JSON-encodable request payload
func Key(payload any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		// Marshal of the request types cannot fail; fall back to a key
		// that never matches.
		return fmt.Sprintf("unkeyed-%d", time.Now().UnixNano())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
