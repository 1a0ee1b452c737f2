// Package storetest holds the behaviour every store.Store backend must share.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/lecture-platform/services/transcript/internal/store"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

// Run exercises s against the shared contract.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	cases := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"EmptyLecture", testEmptyLecture},
		{"CreateAssignsID", testCreateAssignsID},
		{"UniqueIDs", testUniqueIDs},
		{"Isolation", testIsolation},
		{"Completeness", testCompleteness},
		{"PageBoundaries", testPageBoundaries},
		{"ContentRoundTrip", testContentRoundTrip},
		{"UnsupportedQuery", testUnsupportedQuery},
		{"CreateRecordValidates", testCreateRecordValidates},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tc.fn(t, s)
		})
	}
}

// Collect drains every page for lectureID with the given page size and
// returns the records sorted by id.
func Collect(t *testing.T, s store.Store, lectureID int64, limit int) []store.Record {
	t.Helper()
	ctx := context.Background()

	var (
		all    []store.Record
		cursor string
		seen   = map[string]bool{}
	)
	for {
		page, err := s.Query(ctx, store.LectureQuery(lectureID, limit, cursor))
		require.NoError(t, err)
		require.LessOrEqual(t, len(page.Records), limit, "page larger than limit")
		all = append(all, page.Records...)
		if page.Next == "" {
			break
		}
		require.False(t, seen[page.Next], "cursor %q repeated", page.Next)
		seen[page.Next] = true
		cursor = page.Next
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

func seed(t *testing.T, s store.Store, lectureID int64, n int) []store.Record {
	t.Helper()
	out := make([]store.Record, 0, n)
	for i := 0; i < n; i++ {
		start := int64(i) * 1000
		rec, err := store.CreateRecord(context.Background(), s, lectureID,
			fmt.Sprintf("lecture %d line %d", lectureID, i), start, 900, start+900)
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func testEmptyLecture(t *testing.T, s store.Store) {
	seed(t, s, 345, 2)

	page, err := s.Query(context.Background(), store.LectureQuery(999, 0, ""))
	require.NoError(t, err)
	require.Empty(t, page.Records)
	require.Empty(t, page.Next)
}

func testCreateAssignsID(t *testing.T, s store.Store) {
	in := store.NewRecord(123, "Hello", 400, 1000, 1400)
	out, err := s.Create(context.Background(), in)
	require.NoError(t, err)
	require.Positive(t, out.ID)

	in.ID = out.ID
	require.Equal(t, in, out)

	got := Collect(t, s, 123, 10)
	require.Equal(t, []store.Record{out}, got)
}

func testUniqueIDs(t *testing.T, s store.Store) {
	recs := append(seed(t, s, 1, 4), seed(t, s, 2, 4)...)
	ids := make(map[int64]bool, len(recs))
	for _, r := range recs {
		require.False(t, ids[r.ID], "id %d handed out twice", r.ID)
		ids[r.ID] = true
	}
}

func testIsolation(t *testing.T, s store.Store) {
	seed(t, s, 345, 3)
	want := seed(t, s, 123, 5)

	got := Collect(t, s, 123, 0)
	require.Equal(t, want, got)
	for _, r := range got {
		require.Equal(t, int64(123), r.LectureID)
	}
	require.Len(t, Collect(t, s, 345, 0), 3)
}

func testCompleteness(t *testing.T, s store.Store) {
	for lecture, n := range map[int64]int{10: 0, 11: 3, 12: 5, 13: 25} {
		want := seed(t, s, lecture, n)
		got := Collect(t, s, lecture, 0)
		require.Len(t, got, n, "lecture %d", lecture)
		if n > 0 {
			require.Equal(t, want, got, "lecture %d", lecture)
		}
	}
}

func testPageBoundaries(t *testing.T, s store.Store) {
	want := seed(t, s, 7, 6)
	for _, limit := range []int{1, 2, 3, 5, 6, 7} {
		got := Collect(t, s, 7, limit)
		require.Equal(t, want, got, "limit %d", limit)
	}
}

func testContentRoundTrip(t *testing.T, s store.Store) {
	contents := []string{
		"",
		"first line\nsecond line",
		`she said "hi" and it's \ fine`,
		"<b>&amp;</b>",
		"λέξη 字幕 🎓",
	}
	var want []store.Record
	for i, c := range contents {
		rec, err := store.CreateRecord(context.Background(), s, 55, c, int64(i), 0, int64(i))
		require.NoError(t, err)
		want = append(want, rec)
	}
	require.Equal(t, want, Collect(t, s, 55, 2))
}

func testUnsupportedQuery(t *testing.T, s store.Store) {
	ctx := context.Background()

	q := store.LectureQuery(1, 10, "")
	q.Kind = "Lecture"
	_, err := s.Query(ctx, q)
	require.ErrorIs(t, err, store.ErrUnsupportedQuery)

	q = store.LectureQuery(1, 10, "")
	q.Filter.Field = "content"
	_, err = s.Query(ctx, q)
	require.ErrorIs(t, err, store.ErrUnsupportedQuery)
}

func testCreateRecordValidates(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := store.CreateRecord(ctx, s, 1, "bad", 100, 50, 100)
	require.Error(t, err)
	_, err = store.CreateRecord(ctx, s, 1, "bad", -1, 50, 49)
	require.Error(t, err)
	_, err = store.CreateRecord(ctx, s, 0, "bad", 0, 0, 0)
	require.Error(t, err)

	require.Empty(t, Collect(t, s, 1, 0))
}
