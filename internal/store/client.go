// Package store is the persistent Component/Relationship/Embedding store
// (spec.md §4.3), backed by SurrealDB in either embedded or remote mode. All
// writes funnel through a single-writer lane (writelane.go) so concurrent
// callers never race SurrealDB transactions; reads go straight to the
// driver.
package store

import (
	"context"
	"fmt"
	"time"

	embedded "github.com/madeindigio/surrealdb-embedded-golang"
	"github.com/surrealdb/surrealdb.go"
)

// ConnectionConfig selects embedded vs. remote SurrealDB and carries auth.
type ConnectionConfig struct {
	// DBPath, when set and URL is empty, opens an embedded database at this
	// path (e.g. "rocksdb://.felix/db" or "memory").
	DBPath string

	// URL, when set, connects to a remote SurrealDB instance instead.
	URL      string
	Username string
	Password string

	Namespace string
	Database  string
	Timeout   time.Duration
}

// Store wraps a SurrealDB connection (embedded or remote) and the
// single-writer lane every mutating operation goes through.
type Store struct {
	db         *surrealdb.DB
	embeddedDB *embedded.DB

	config      *ConnectionConfig
	useEmbedded bool

	lane *writeLane
}

// New builds a Store with config defaults applied; call Connect before use.
func New(config *ConnectionConfig) *Store {
	if config.Namespace == "" {
		config.Namespace = "felix"
	}
	if config.Database == "" {
		config.Database = "index"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &Store{config: config}
}

// Connect establishes the SurrealDB connection and starts the write lane.
func (s *Store) Connect(ctx context.Context) error {
	var err error

	switch {
	case s.config.DBPath != "" && s.config.URL == "":
		s.embeddedDB, err = embedded.NewFromURL(s.config.DBPath)
		if err != nil {
			return fmt.Errorf("connect embedded surrealdb: %w", err)
		}
		if err := s.embeddedDB.Use(s.config.Namespace, s.config.Database); err != nil {
			return fmt.Errorf("use namespace/database: %w", err)
		}
		s.useEmbedded = true

	case s.config.URL != "":
		s.db, err = surrealdb.New(s.config.URL)
		if err != nil {
			return fmt.Errorf("connect remote surrealdb: %w", err)
		}
		if s.config.Username != "" {
			if _, err := s.db.SignIn(map[string]interface{}{
				"user": s.config.Username,
				"pass": s.config.Password,
			}); err != nil {
				return fmt.Errorf("authenticate: %w", err)
			}
		}
		if err := s.db.Use(s.config.Namespace, s.config.Database); err != nil {
			return fmt.Errorf("use namespace/database: %w", err)
		}
		s.useEmbedded = false

	default:
		return fmt.Errorf("store: either DBPath or URL must be configured")
	}

	s.lane = newWriteLane(s, defaultRetryPolicy())
	if err := s.InitializeSchema(ctx); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}

// Close stops the write lane and closes the underlying connection.
func (s *Store) Close() error {
	if s.lane != nil {
		s.lane.close()
	}
	if s.useEmbedded {
		if s.embeddedDB != nil {
			return s.embeddedDB.Close()
		}
		return nil
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.query(ctx, "SELECT 1", nil)
	return err
}
