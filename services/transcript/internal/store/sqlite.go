package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver
)

const (
	sqliteSchema = `CREATE TABLE IF NOT EXISTS ` + Table + ` (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	` + FieldLecture + ` INTEGER NOT NULL,
	start_ms     INTEGER NOT NULL CHECK (start_ms >= 0),
	duration_ms  INTEGER NOT NULL CHECK (duration_ms >= 0),
	end_ms       INTEGER NOT NULL,
	content      TEXT NOT NULL DEFAULT '',
	CHECK (end_ms = start_ms + duration_ms)
);
CREATE INDEX IF NOT EXISTS ` + Table + `_` + FieldLecture + `_idx ON ` + Table + ` (` + FieldLecture + `, id);`

	sqliteInsert = `INSERT INTO ` + Table + ` (` + FieldLecture + `, start_ms, duration_ms, end_ms, content)
	                VALUES (?, ?, ?, ?, ?)`

	sqliteSelectByLecture = `SELECT id, ` + FieldLecture + `, start_ms, duration_ms, end_ms, content
	                         FROM ` + Table + `
	                         WHERE ` + FieldLecture + ` = ? AND id > ?
	                         ORDER BY id
	                         LIMIT ?`
)

// SQLiteConfig defines SQLite operational parameters.
type SQLiteConfig struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultSQLiteConfig returns WAL-friendly defaults.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 8,
	}
}

// SQLiteStore persists transcript lines in a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path with WAL and busy_timeout
// applied to every pooled connection, then creates the schema.
func OpenSQLite(ctx context.Context, path string, cfg SQLiteConfig) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, rec Record) (Record, error) {
	res, err := s.db.ExecContext(ctx, sqliteInsert, rec.LectureID, rec.StartMs, rec.DurationMs, rec.EndMs, rec.Content)
	if err != nil {
		return Record{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Record{}, err
	}
	rec.ID = id
	return rec, nil
}

func (s *SQLiteStore) Query(ctx context.Context, q Query) (Page, error) {
	lectureID, limit, err := lectureFilter(q)
	if err != nil {
		return Page{}, err
	}
	after, err := decodeIDCursor(q.Cursor)
	if err != nil {
		return Page{}, err
	}

	rows, err := s.db.QueryContext(ctx, sqliteSelectByLecture, lectureID, after, limit+1)
	if err != nil {
		return Page{}, err
	}
	defer rows.Close()

	out := make([]Record, 0, limit+1)
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.LectureID, &r.StartMs, &r.DurationMs, &r.EndMs, &r.Content); err != nil {
			return Page{}, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return Page{}, err
	}
	recs, next := nextCursor(out, limit)
	return Page{Records: recs, Next: next}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() error { return s.db.Close() }
