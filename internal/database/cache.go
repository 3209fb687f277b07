package database

import (
	"crypto/sha256"
	"encoding/hex"
	"log"
	"time"
)

// ResponseCache stores model responses keyed by model and query text so that
// repeated runs against the same brand do not re-bill identical calls.
// Entries expire after the configured TTL.
type ResponseCache struct {
	db  *DB
	ttl time.Duration
}

// NewResponseCache creates a cache over db with the given TTL. A zero TTL
// disables expiry.
func NewResponseCache(db *DB, ttl time.Duration) *ResponseCache {
	return &ResponseCache{db: db, ttl: ttl}
}

func cacheKey(model, query string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + query))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached response for a model/query pair if present and not
// expired.
func (c *ResponseCache) Get(model, query string) (string, bool) {
	var response, createdAt string
	err := c.db.conn.QueryRow(
		"SELECT response, created_at FROM response_cache WHERE key = ?",
		cacheKey(model, query),
	).Scan(&response, &createdAt)
	if err != nil {
		return "", false
	}

	if c.ttl != 0 {
		created, err := time.Parse("2006-01-02 15:04:05", createdAt)
		if err != nil || time.Since(created.UTC()) > c.ttl {
			return "", false
		}
	}
	return response, true
}

// Set stores a response. Cache failures are logged, never propagated.
func (c *ResponseCache) Set(model, query, response string) {
	_, err := c.db.conn.Exec(`
INSERT INTO response_cache (key, model, query, response, created_at)
VALUES (?, ?, ?, ?, datetime('now'))
ON CONFLICT(key) DO UPDATE SET response = excluded.response, created_at = excluded.created_at`,
		cacheKey(model, query), model, query, response)
	if err != nil {
		log.Printf("response cache write failed: %v", err)
	}
}

// PruneExpired deletes cache entries older than the TTL. Returns the number
// of rows removed.
func (c *ResponseCache) PruneExpired() (int64, error) {
	if c.ttl == 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-c.ttl).Format("2006-01-02 15:04:05")
	res, err := c.db.conn.Exec("DELETE FROM response_cache WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
