package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgSchema = `CREATE TABLE IF NOT EXISTS ` + Table + ` (
	id           BIGSERIAL PRIMARY KEY,
	` + FieldLecture + ` BIGINT NOT NULL,
	start_ms     BIGINT NOT NULL CHECK (start_ms >= 0),
	duration_ms  BIGINT NOT NULL CHECK (duration_ms >= 0),
	end_ms       BIGINT NOT NULL,
	content      TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK (end_ms = start_ms + duration_ms)
);
CREATE INDEX IF NOT EXISTS ` + Table + `_` + FieldLecture + `_idx ON ` + Table + ` (` + FieldLecture + `, id);`

	pgInsert = `INSERT INTO ` + Table + ` (` + FieldLecture + `, start_ms, duration_ms, end_ms, content)
	            VALUES ($1, $2, $3, $4, $5)
	            RETURNING id`

	pgSelectByLecture = `SELECT id, ` + FieldLecture + `, start_ms, duration_ms, end_ms, content
	                     FROM ` + Table + `
	                     WHERE ` + FieldLecture + ` = $1 AND id > $2
	                     ORDER BY id
	                     LIMIT $3`
)

// PostgresStore persists transcript lines in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store backed by Postgres.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the transcript table and its lecture index if missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, pgSchema)
	return err
}

func (s *PostgresStore) Create(ctx context.Context, rec Record) (Record, error) {
	row := s.pool.QueryRow(ctx, pgInsert, rec.LectureID, rec.StartMs, rec.DurationMs, rec.EndMs, rec.Content)
	if err := row.Scan(&rec.ID); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *PostgresStore) Query(ctx context.Context, q Query) (Page, error) {
	lectureID, limit, err := lectureFilter(q)
	if err != nil {
		return Page{}, err
	}
	after, err := decodeIDCursor(q.Cursor)
	if err != nil {
		return Page{}, err
	}

	rows, err := s.pool.Query(ctx, pgSelectByLecture, lectureID, after, limit+1)
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

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
