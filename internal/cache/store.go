// Package cache is a content-addressed store of extraction results, keyed by
// a digest of the exact image bytes. Identical image content always
// short-circuits extraction, which is the pipeline's main cost control: a hit
// bypasses the paid vision service entirely.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/smendez-hq/ticket-verifier/constants"
	"github.com/smendez-hq/ticket-verifier/internal/extract"
)

// Entry is the persisted subset of an extraction result. The store owns
// entries exclusively; one entry per distinct image content, independent of
// file name.
type Entry struct {
	Email    string           `json:"email,omitempty"`
	Match    *int             `json:"match,omitempty"`
	Quantity *int             `json:"quantity,omitempty"`
	Category string           `json:"category,omitempty"`
	Method   constants.Method `json:"method"`
	CachedAt time.Time        `json:"cached_at"`
}

// Store is safe for concurrent use by batch workers.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]Entry
}

func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:    path,
		logger:  logger,
		entries: make(map[string]Entry),
	}
}

// Key computes the content digest identifying an image in the cache.
func Key(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Load reads the persisted cache document. A missing or corrupt file is
// treated as an empty cache, never as a fatal error.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("cache unreadable, starting empty", "path", s.path, "error", err)
		}
		s.entries = make(map[string]Entry)
		return
	}

	entries := make(map[string]Entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("cache corrupt, starting empty", "path", s.path, "error", err)
		s.entries = make(map[string]Entry)
		return
	}
	s.entries = entries
	s.logger.Debug("cache loaded", "path", s.path, "entries", len(entries))
}

// Save persists the cache document to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

// Clear drops every entry and removes the persisted document.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]Entry)
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cache: %w", err)
	}
	return nil
}

// Len reports the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// GetOrExtract returns the cached fields for the image content, or runs fn
// and stores its result. Results carrying an error are returned but never
// persisted, so the next run retries them. With useCache false the lookup is
// skipped but a clean result is still stored for later runs.
func (s *Store) GetOrExtract(ctx context.Context, img extract.Image, useCache bool, fn func(ctx context.Context, img extract.Image) extract.Result) extract.Result {
	key := Key(img.Data)

	if useCache {
		s.mu.Lock()
		e, ok := s.entries[key]
		s.mu.Unlock()
		if ok {
			return extract.Result{
				Email:     e.Email,
				Match:     e.Match,
				Quantity:  e.Quantity,
				Category:  e.Category,
				Method:    e.Method,
				FromCache: true,
			}
		}
	}

	res := fn(ctx, img)
	if res.Err == "" {
		s.mu.Lock()
		s.entries[key] = Entry{
			Email:    res.Email,
			Match:    res.Match,
			Quantity: res.Quantity,
			Category: res.Category,
			Method:   res.Method,
			CachedAt: time.Now().UTC(),
		}
		s.mu.Unlock()
	}
	return res
}
