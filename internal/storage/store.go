// Package storage keeps the downloader provider's persistent name→path
// cache in sqlite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// CachedTrack is one materialized download remembered across restarts.
type CachedTrack struct {
	ID        int64
	URL       string
	Title     string
	LocalPath string
	CreatedAt time.Time
}

// Store wraps the sqlite connection. A single connection is enough: the
// registry lock already serializes provider calls.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	debug  bool
}

func Open(dbPath string, enableWAL, debug bool) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=memory",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=30000",
	}
	if enableWAL {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			if closeErr := db.Close(); closeErr != nil {
				log.Printf("Failed to close database after pragma error: %v", closeErr)
			}
			return nil, fmt.Errorf("execute pragma %s: %w", pragma, err)
		}
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("Failed to close database after ping error: %v", closeErr)
		}
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, debug: debug}
	if err := s.migrate(); err != nil {
		if closeErr := s.Close(); closeErr != nil {
			log.Printf("Failed to close database after migration error: %v", closeErr)
		}
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS tracks (
			id          INTEGER PRIMARY KEY,
			url         TEXT NOT NULL,
			title       TEXT NOT NULL,
			local_path  TEXT NOT NULL,
			created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_tracks_url ON tracks(url);
		CREATE INDEX IF NOT EXISTS idx_tracks_title ON tracks(title);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) debugLog(operation string, err error, duration time.Duration) {
	if !s.debug || err == nil {
		return
	}
	log.Printf("[STORE] %s failed in %v: %v", operation, duration, err)
}

func (s *Store) checkClosed() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}

// Insert records a materialized download, replacing any previous entry for
// the same URL.
func (s *Store) Insert(ctx context.Context, url, title, localPath string) error {
	start := time.Now()

	if err := s.checkClosed(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM tracks WHERE url = ?", url,
	)
	if err != nil {
		s.debugLog("Insert", err, time.Since(start))
		return fmt.Errorf("replace track: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO tracks (url, title, local_path) VALUES (?, ?, ?)",
		url, title, localPath,
	)
	if err != nil {
		s.debugLog("Insert", err, time.Since(start))
		return fmt.Errorf("insert track: %w", err)
	}
	return nil
}

// LookupByURL returns the cached entry for a source URL, or nil when absent.
func (s *Store) LookupByURL(ctx context.Context, url string) (*CachedTrack, error) {
	start := time.Now()

	if err := s.checkClosed(); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT id, url, title, local_path, created_at FROM tracks WHERE url = ?",
		url,
	)
	return s.scanTrack(row, "LookupByURL", start)
}

// LookupByID returns the cached entry with the given rowid, or nil.
func (s *Store) LookupByID(ctx context.Context, id int64) (*CachedTrack, error) {
	start := time.Now()

	if err := s.checkClosed(); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT id, url, title, local_path, created_at FROM tracks WHERE id = ?",
		id,
	)
	return s.scanTrack(row, "LookupByID", start)
}

// Delete removes a cache entry whose backing file vanished.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := s.checkClosed(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, "DELETE FROM tracks WHERE id = ?", id)
	return err
}

// SearchTitles returns up to limit cached entries whose title contains term,
// newest first. A non-positive limit means no cap.
func (s *Store) SearchTitles(ctx context.Context, term string, limit int) ([]*CachedTrack, error) {
	start := time.Now()

	if err := s.checkClosed(); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, title, local_path, created_at
		FROM tracks
		WHERE title LIKE ?
		ORDER BY created_at DESC
		LIMIT ?`,
		"%"+term+"%", limit,
	)
	if err != nil {
		s.debugLog("SearchTitles", err, time.Since(start))
		return nil, fmt.Errorf("search titles: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Printf("Failed to close rows: %v", closeErr)
		}
	}()

	var tracks []*CachedTrack
	for rows.Next() {
		var t CachedTrack
		if err := rows.Scan(&t.ID, &t.URL, &t.Title, &t.LocalPath, &t.CreatedAt); err != nil {
			s.debugLog("SearchTitles", err, time.Since(start))
			return nil, fmt.Errorf("scan track: %w", err)
		}
		tracks = append(tracks, &t)
	}

	if err := rows.Err(); err != nil {
		s.debugLog("SearchTitles", err, time.Since(start))
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tracks, nil
}

func (s *Store) scanTrack(row *sql.Row, op string, start time.Time) (*CachedTrack, error) {
	var t CachedTrack
	err := row.Scan(&t.ID, &t.URL, &t.Title, &t.LocalPath, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		s.debugLog(op, err, time.Since(start))
		return nil, fmt.Errorf("scan track: %w", err)
	}
	return &t, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.db != nil {
		if _, err := s.db.Exec("PRAGMA optimize"); err != nil {
			log.Printf("Warning: Failed to optimize database: %v", err)
		}
		return s.db.Close()
	}
	return nil
}
