package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
)

const (
	cqlSchema = `CREATE TABLE IF NOT EXISTS ` + Table + ` (
		` + FieldLecture + ` bigint,
		id bigint,
		start_ms bigint,
		duration_ms bigint,
		end_ms bigint,
		content text,
		PRIMARY KEY ((` + FieldLecture + `), id)
	) WITH CLUSTERING ORDER BY (id ASC)`

	cqlSeqSchema = `CREATE TABLE IF NOT EXISTS id_sequences (
		name text PRIMARY KEY,
		next_id bigint
	)`

	cqlSeqInit    = `INSERT INTO id_sequences (name, next_id) VALUES (?, 1) IF NOT EXISTS`
	cqlSeqRead    = `SELECT next_id FROM id_sequences WHERE name = ?`
	cqlSeqAdvance = `UPDATE id_sequences SET next_id = ? WHERE name = ? IF next_id = ?`

	cqlInsert = `INSERT INTO ` + Table + ` (` + FieldLecture + `, id, start_ms, duration_ms, end_ms, content)
		VALUES (?, ?, ?, ?, ?, ?)`

	cqlSelectByLecture = `SELECT id, ` + FieldLecture + `, start_ms, duration_ms, end_ms, content
		FROM ` + Table + `
		WHERE ` + FieldLecture + ` = ?`
)

// maxSeqAttempts bounds the compare-and-set loop that hands out ids.
const maxSeqAttempts = 32

var errSeqContention = errors.New("cassandra: id sequence contention")

// CassandraConfig holds the cluster connection settings.
type CassandraConfig struct {
	Hosts    []string
	Keyspace string
}

// CassandraStore partitions transcript lines by lecture and pages with the
// driver's paging state.
type CassandraStore struct {
	session *gocql.Session
}

// ConnectCassandra establishes a connection to Cassandra.
func ConnectCassandra(cfg CassandraConfig) (*CassandraStore, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Cassandra: %w", err)
	}
	return &CassandraStore{session: session}, nil
}

// Migrate creates the line and sequence tables if missing.
func (s *CassandraStore) Migrate(ctx context.Context) error {
	for _, stmt := range []string{cqlSchema, cqlSeqSchema} {
		if err := s.session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("cassandra: schema: %w", err)
		}
	}
	// Seed the sequence; a no-op when it already exists.
	if _, err := s.session.Query(cqlSeqInit, Kind).WithContext(ctx).MapScanCAS(map[string]any{}); err != nil {
		return fmt.Errorf("cassandra: seed sequence: %w", err)
	}
	return nil
}

// nextID claims the next id with a lightweight transaction.
func (s *CassandraStore) nextID(ctx context.Context) (int64, error) {
	for attempt := 0; attempt < maxSeqAttempts; attempt++ {
		var cur int64
		if err := s.session.Query(cqlSeqRead, Kind).WithContext(ctx).Scan(&cur); err != nil {
			return 0, err
		}
		applied, err := s.session.Query(cqlSeqAdvance, cur+1, Kind, cur).WithContext(ctx).MapScanCAS(map[string]any{})
		if err != nil {
			return 0, err
		}
		if applied {
			return cur, nil
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
	}
	return 0, errSeqContention
}

func (s *CassandraStore) Create(ctx context.Context, rec Record) (Record, error) {
	id, err := s.nextID(ctx)
	if err != nil {
		return Record{}, err
	}
	rec.ID = id
	err = s.session.Query(cqlInsert, rec.LectureID, rec.ID, rec.StartMs, rec.DurationMs, rec.EndMs, rec.Content).
		WithContext(ctx).Exec()
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *CassandraStore) Query(ctx context.Context, q Query) (Page, error) {
	lectureID, limit, err := lectureFilter(q)
	if err != nil {
		return Page{}, err
	}
	var state []byte
	if q.Cursor != "" {
		if state, err = base64.RawURLEncoding.DecodeString(q.Cursor); err != nil {
			return Page{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
		}
	}

	// Setting PageState, even to nil, turns off the driver's auto-paging:
	// one page per call, resumed through the cursor.
	iter := s.session.Query(cqlSelectByLecture, lectureID).
		WithContext(ctx).
		PageSize(limit).
		PageState(state).
		Iter()
	next := iter.PageState()

	page, err := readCQLPage(iter.Scanner(), next, limit)
	if err != nil {
		_ = iter.Close()
		return Page{}, err
	}
	return page, nil
}

// cqlRows is the part of gocql.Scanner a page read uses.
type cqlRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// readCQLPage scans one driver page. next is the paging state the driver
// returned for it; an empty state means the partition is exhausted.
func readCQLPage(rows cqlRows, next []byte, limit int) (Page, error) {
	out := make([]Record, 0, limit)
	for rows.Next() {
		if len(out) == limit {
			return Page{}, fmt.Errorf("cassandra: page holds more than %d rows", limit)
		}
		var r Record
		if err := rows.Scan(&r.ID, &r.LectureID, &r.StartMs, &r.DurationMs, &r.EndMs, &r.Content); err != nil {
			return Page{}, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return Page{}, err
	}

	page := Page{Records: out}
	if len(next) > 0 {
		page.Next = base64.RawURLEncoding.EncodeToString(next)
	}
	return page, nil
}

func (s *CassandraStore) Ping(ctx context.Context) error {
	return s.session.Query(`SELECT release_version FROM system.local`).WithContext(ctx).Exec()
}

func (s *CassandraStore) Close() error {
	s.session.Close()
	return nil
}
