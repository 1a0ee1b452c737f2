package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/example/lecture-platform/services/transcript/internal/transcript"
)

// BadgerStore keeps transcript lines in an embedded Badger database:
//   - records:  key = "TranscriptLine:" + id (big-endian)            value = line JSON
//   - index:    key = "lecture_id:" + lecture id + id (big-endian)  value = empty
//   - sequence: key = "seq:TranscriptLine"
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

var (
	badgerRecordPrefix = []byte(Kind + ":")
	badgerIndexPrefix  = []byte(FieldLecture + ":")
	badgerSeqKey       = []byte("seq:" + Kind)
)

// OpenBadger opens the database at path. An empty path opens an in-memory
// database.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	seq, err := db.GetSequence(badgerSeqKey, 64)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BadgerStore{db: db, seq: seq}, nil
}

func badgerRecordKey(id int64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte{}, badgerRecordPrefix...), uint64(id))
}

func badgerIndexKey(lectureID, id int64) []byte {
	k := binary.BigEndian.AppendUint64(badgerLecturePrefix(lectureID), uint64(id))
	return k
}

func badgerLecturePrefix(lectureID int64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte{}, badgerIndexPrefix...), uint64(lectureID))
}

func (s *BadgerStore) Create(_ context.Context, rec Record) (Record, error) {
	n, err := s.seq.Next()
	if err != nil {
		return Record{}, err
	}
	// Sequences start at 0; ids start at 1.
	rec.ID = int64(n) + 1

	val, err := recordLine(rec).MarshalJSON()
	if err != nil {
		return Record{}, err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(badgerRecordKey(rec.ID), val); err != nil {
			return err
		}
		return txn.Set(badgerIndexKey(rec.LectureID, rec.ID), nil)
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *BadgerStore) Query(ctx context.Context, q Query) (Page, error) {
	lectureID, limit, err := lectureFilter(q)
	if err != nil {
		return Page{}, err
	}
	after, err := decodeIDCursor(q.Cursor)
	if err != nil {
		return Page{}, err
	}

	prefix := badgerLecturePrefix(lectureID)
	out := make([]Record, 0, limit+1)
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(badgerIndexKey(lectureID, after+1)); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := it.Item().Key()
			id := int64(binary.BigEndian.Uint64(key[len(prefix):]))
			rec, err := badgerGet(txn, id)
			if err != nil {
				return err
			}
			out = append(out, rec)
			if len(out) > limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return Page{}, err
	}
	recs, next := nextCursor(out, limit)
	return Page{Records: recs, Next: next}, nil
}

func badgerGet(txn *badger.Txn, id int64) (Record, error) {
	item, err := txn.Get(badgerRecordKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return Record{}, fmt.Errorf("index points at missing %s %d", Kind, id)
		}
		return Record{}, err
	}
	var l transcript.Line
	if err := item.Value(func(val []byte) error {
		return l.UnmarshalJSON(val)
	}); err != nil {
		return Record{}, err
	}
	return FromLine(l), nil
}

func (s *BadgerStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

func (s *BadgerStore) Close() error {
	if err := s.seq.Release(); err != nil {
		_ = s.db.Close()
		return err
	}
	return s.db.Close()
}

// recordLine converts without validation; records are validated before Create.
func recordLine(r Record) transcript.Line {
	return transcript.Line{
		ID:         r.ID,
		LectureID:  r.LectureID,
		StartMs:    r.StartMs,
		DurationMs: r.DurationMs,
		EndMs:      r.EndMs,
		Content:    r.Content,
	}
}
