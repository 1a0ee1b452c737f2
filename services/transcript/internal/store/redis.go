package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "transcript:"

// RedisStore keeps each record in a hash and indexes it in a per-lecture
// sorted set scored by id.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// OpenRedis parses url (redis://...) and falls back to treating it as a bare
// host:port address.
func OpenRedis(url string) *RedisStore {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	return NewRedisStore(redis.NewClient(opts))
}

func redisSeqKey() string            { return redisPrefix + Kind + ":seq" }
func redisRecordKey(id int64) string { return redisPrefix + Kind + ":" + strconv.FormatInt(id, 10) }

func redisIndexKey(lecture int64) string {
	return redisPrefix + FieldLecture + ":" + strconv.FormatInt(lecture, 10)
}

func (s *RedisStore) Create(ctx context.Context, rec Record) (Record, error) {
	id, err := s.client.Incr(ctx, redisSeqKey()).Result()
	if err != nil {
		return Record{}, err
	}
	rec.ID = id

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, redisRecordKey(id),
			FieldLecture, rec.LectureID,
			"start_ms", rec.StartMs,
			"duration_ms", rec.DurationMs,
			"end_ms", rec.EndMs,
			"content", rec.Content,
		)
		pipe.ZAdd(ctx, redisIndexKey(rec.LectureID), redis.Z{Score: float64(id), Member: id})
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *RedisStore) Query(ctx context.Context, q Query) (Page, error) {
	lectureID, limit, err := lectureFilter(q)
	if err != nil {
		return Page{}, err
	}
	after, err := decodeIDCursor(q.Cursor)
	if err != nil {
		return Page{}, err
	}

	lo := "-inf"
	if after > 0 {
		lo = "(" + strconv.FormatInt(after, 10)
	}
	members, err := s.client.ZRangeByScore(ctx, redisIndexKey(lectureID), &redis.ZRangeBy{
		Min:   lo,
		Max:   "+inf",
		Count: int64(limit + 1),
	}).Result()
	if err != nil {
		return Page{}, err
	}
	if len(members) == 0 {
		return Page{Records: []Record{}}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(members))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, m := range members {
			id, err := strconv.ParseInt(m, 10, 64)
			if err != nil {
				return fmt.Errorf("bad index member %q: %w", m, err)
			}
			cmds[i] = pipe.HGetAll(ctx, redisRecordKey(id))
		}
		return nil
	})
	if err != nil {
		return Page{}, err
	}

	out := make([]Record, 0, len(members))
	for i, cmd := range cmds {
		rec, err := redisRecord(members[i], cmd.Val())
		if err != nil {
			return Page{}, err
		}
		out = append(out, rec)
	}
	recs, next := nextCursor(out, limit)
	return Page{Records: recs, Next: next}, nil
}

func redisRecord(member string, h map[string]string) (Record, error) {
	if len(h) == 0 {
		return Record{}, fmt.Errorf("index points at missing %s %s", Kind, member)
	}
	var (
		r   Record
		err error
	)
	ints := []struct {
		field string
		dst   *int64
	}{
		{"id", &r.ID},
		{FieldLecture, &r.LectureID},
		{"start_ms", &r.StartMs},
		{"duration_ms", &r.DurationMs},
		{"end_ms", &r.EndMs},
	}
	h["id"] = member
	for _, f := range ints {
		if *f.dst, err = strconv.ParseInt(h[f.field], 10, 64); err != nil {
			return Record{}, fmt.Errorf("%s %s: field %s: %w", Kind, member, f.field, err)
		}
	}
	r.Content = h["content"]
	return r, nil
}

func (s *RedisStore) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *RedisStore) Close() error { return s.client.Close() }
