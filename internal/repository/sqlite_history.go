package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"FarePull/internal/domain/models"
	domrepo "FarePull/internal/domain/repository"
	applogger "FarePull/pkg/logger"
	"FarePull/pkg/sqlite"
)

var historySchema = []string{
	`CREATE TABLE IF NOT EXISTS history (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		stream  TEXT    NOT NULL,
		key     TEXT    NOT NULL,
		ts      INTEGER NOT NULL,
		payload TEXT    NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_history_stream_key_ts ON history (stream, key, ts)`,
}

// SQLiteHistory is the default durable HistoryStore.
type SQLiteHistory struct {
	db    *sqlite.DB
	locks *streamLocks
	l     *applogger.Logger
}

var _ domrepo.HistoryStore = (*SQLiteHistory)(nil)

// NewSQLiteHistory creates the schema if needed.
func NewSQLiteHistory(ctx context.Context, db *sqlite.DB, l *applogger.Logger) (*SQLiteHistory, error) {
	if err := db.InitSchema(ctx, historySchema); err != nil {
		return nil, err
	}
	return &SQLiteHistory{db: db, locks: newStreamLocks(), l: l}, nil
}

func (s *SQLiteHistory) Append(ctx context.Context, e models.HistoryEntry) error {
	return s.AppendBatch(ctx, []models.HistoryEntry{e})
}

// AppendBatch writes all entries in one transaction. Entries may span streams.
func (s *SQLiteHistory) AppendBatch(ctx context.Context, entries []models.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, stream := range streamsOf(entries) {
		lk := s.locks.get(stream)
		lk.Lock()
		defer lk.Unlock()
	}

	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO history (stream, key, ts, payload) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("history append: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, string(e.Stream), e.Key, e.Timestamp.UnixNano(), string(e.Payload)); err != nil {
			return fmt.Errorf("history append %s/%s: %w", e.Stream, e.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history append commit: %w", err)
	}
	return nil
}

func (s *SQLiteHistory) RecentEntries(ctx context.Context, stream models.Stream, key string, since time.Time) ([]models.HistoryEntry, error) {
	lk := s.locks.get(stream)
	lk.RLock()
	defer lk.RUnlock()
	return s.query(ctx,
		`SELECT stream, key, ts, payload FROM history WHERE stream = ? AND key = ? AND ts >= ? ORDER BY id ASC`,
		string(stream), key, since.UnixNano())
}

func (s *SQLiteHistory) Load(ctx context.Context, stream models.Stream, key string) ([]models.HistoryEntry, error) {
	lk := s.locks.get(stream)
	lk.RLock()
	defer lk.RUnlock()
	return s.query(ctx,
		`SELECT stream, key, ts, payload FROM history WHERE stream = ? AND key = ? ORDER BY id ASC`,
		string(stream), key)
}

// Latest returns nil without error when the key has no entries.
func (s *SQLiteHistory) Latest(ctx context.Context, stream models.Stream, key string) (*models.HistoryEntry, error) {
	lk := s.locks.get(stream)
	lk.RLock()
	defer lk.RUnlock()

	row := s.db.Conn().QueryRowContext(ctx,
		`SELECT stream, key, ts, payload FROM history WHERE stream = ? AND key = ? ORDER BY id DESC LIMIT 1`,
		string(stream), key)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history latest: %w", err)
	}
	return &e, nil
}

// Trim keeps the newest maxEntries rows of the stream.
func (s *SQLiteHistory) Trim(ctx context.Context, stream models.Stream, maxEntries int) error {
	if maxEntries <= 0 {
		return nil
	}
	lk := s.locks.get(stream)
	lk.Lock()
	defer lk.Unlock()

	res, err := s.db.Conn().ExecContext(ctx,
		`DELETE FROM history WHERE stream = ? AND id NOT IN (
			SELECT id FROM history WHERE stream = ? ORDER BY id DESC LIMIT ?
		)`, string(stream), string(stream), maxEntries)
	if err != nil {
		return fmt.Errorf("history trim %s: %w", stream, err)
	}
	if n, _ := res.RowsAffected(); n > 0 && s.l != nil {
		s.l.Debug("history trimmed", applogger.String("stream", string(stream)), applogger.Int64("removed", n))
	}
	return nil
}

func (s *SQLiteHistory) Close() error { return s.db.Close() }

func (s *SQLiteHistory) query(ctx context.Context, q string, args ...any) ([]models.HistoryEntry, error) {
	rows, err := s.db.Conn().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("history query: %w", err)
	}
	defer rows.Close()

	var out []models.HistoryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("history scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (models.HistoryEntry, error) {
	var (
		e       models.HistoryEntry
		stream  string
		ts      int64
		payload string
	)
	if err := sc.Scan(&stream, &e.Key, &ts, &payload); err != nil {
		return e, err
	}
	e.Stream = models.Stream(stream)
	e.Timestamp = time.Unix(0, ts).UTC()
	e.Payload = []byte(payload)
	return e, nil
}

// streamsOf returns the distinct streams in a stable order so locks are always taken the same way.
func streamsOf(entries []models.HistoryEntry) []models.Stream {
	seen := make(map[models.Stream]bool, 3)
	var out []models.Stream
	for _, e := range entries {
		if !seen[e.Stream] {
			seen[e.Stream] = true
			out = append(out, e.Stream)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

