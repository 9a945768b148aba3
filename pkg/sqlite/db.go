// Package sqlite opens embedded SQLite databases with sane pragmas for long-running use.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Profile selects durability vs speed trade-offs.
type Profile string

const (
	// ProfileLedger fsyncs every commit; used for append-only history.
	ProfileLedger Profile = "ledger"
	// ProfileStandard fsyncs at checkpoints.
	ProfileStandard Profile = "standard"
)

// DB wraps *sql.DB with the path and profile it was opened with.
type DB struct {
	conn    *sql.DB
	path    string
	profile Profile
}

// Option configures Open.
type Option func(*config)

type config struct {
	profile     Profile
	busyTimeout time.Duration
}

func WithProfile(p Profile) Option {
	return func(c *config) {
		if p != "" {
			c.profile = p
		}
	}
}

func WithBusyTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.busyTimeout = d
		}
	}
}

// Open creates parent directories, opens the file and pings it.
// "file:" URIs are used as-is, which allows shared in-memory databases in tests.
func Open(path string, opts ...Option) (*DB, error) {
	cfg := &config{profile: ProfileStandard, busyTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}

	memory := strings.HasPrefix(path, "file:")
	if !memory {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve sqlite path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		path = abs
	}

	conn, err := sql.Open("sqlite", dsn(path, cfg))
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if memory {
		// every extra connection would see its own empty database
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(8)
		conn.SetMaxIdleConns(2)
		conn.SetConnMaxIdleTime(30 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}

	return &DB{conn: conn, path: path, profile: cfg.profile}, nil
}

func dsn(path string, cfg *config) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	pragmas := []string{
		"journal_mode(WAL)",
		fmt.Sprintf("busy_timeout(%d)", cfg.busyTimeout.Milliseconds()),
	}
	switch cfg.profile {
	case ProfileLedger:
		pragmas = append(pragmas, "synchronous(FULL)", "auto_vacuum(NONE)")
	default:
		pragmas = append(pragmas, "synchronous(NORMAL)", "auto_vacuum(INCREMENTAL)", "temp_store(MEMORY)")
	}

	var b strings.Builder
	b.WriteString(path)
	for i, p := range pragmas {
		if i == 0 {
			b.WriteString(sep)
		} else {
			b.WriteString("&")
		}
		b.WriteString("_pragma=")
		b.WriteString(p)
	}
	return b.String()
}

// Conn returns the underlying pool.
func (db *DB) Conn() *sql.DB { return db.conn }

func (db *DB) Path() string { return db.path }

// InitSchema runs idempotent DDL statements in order.
func (db *DB) InitSchema(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (db *DB) Health(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
