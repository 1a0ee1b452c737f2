package store

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeRows replays rows the way gocql.Scanner hands them out.
type fakeRows struct {
	rows []Record
	pos  int
	err  error
}

func (f *fakeRows) Next() bool {
	if f.pos >= len(f.rows) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	r := f.rows[f.pos-1]
	*dest[0].(*int64) = r.ID
	*dest[1].(*int64) = r.LectureID
	*dest[2].(*int64) = r.StartMs
	*dest[3].(*int64) = r.DurationMs
	*dest[4].(*int64) = r.EndMs
	*dest[5].(*string) = r.Content
	return nil
}

func (f *fakeRows) Err() error { return f.err }

func cqlRecords(lectureID int64, n int) []Record {
	out := make([]Record, n)
	for i := range out {
		start := int64(i) * 1000
		out[i] = Record{ID: int64(i + 1), LectureID: lectureID, StartMs: start, DurationMs: 900, EndMs: start + 900, Content: "x"}
	}
	return out
}

func TestReadCQLPage_FullPageCarriesCursor(t *testing.T) {
	state := []byte{0x01, 0xfe, 0x7f}
	rows := cqlRecords(123, 3)

	page, err := readCQLPage(&fakeRows{rows: rows}, state, 3)
	require.NoError(t, err)
	require.LessOrEqual(t, len(page.Records), 3)
	require.Equal(t, rows, page.Records)
	require.Equal(t, base64.RawURLEncoding.EncodeToString(state), page.Next)

	decoded, err := base64.RawURLEncoding.DecodeString(page.Next)
	require.NoError(t, err)
	require.Equal(t, state, decoded)
}

func TestReadCQLPage_LastPage(t *testing.T) {
	page, err := readCQLPage(&fakeRows{rows: cqlRecords(123, 2)}, nil, 5)
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	require.Empty(t, page.Next)

	page, err = readCQLPage(&fakeRows{}, nil, 5)
	require.NoError(t, err)
	require.Empty(t, page.Records)
	require.Empty(t, page.Next)
}

func TestReadCQLPage_NeverExceedsLimit(t *testing.T) {
	// A driver that keeps yielding rows past one page must not be drained.
	rows := &fakeRows{rows: cqlRecords(123, 25)}
	_, err := readCQLPage(rows, []byte{0x02}, 10)
	require.Error(t, err)
	require.LessOrEqual(t, rows.pos, 11, "scanned past the page")
}

func TestReadCQLPage_ScannerError(t *testing.T) {
	boom := errors.New("read timeout")
	_, err := readCQLPage(&fakeRows{rows: cqlRecords(1, 1), err: boom}, nil, 5)
	require.ErrorIs(t, err, boom)
}
