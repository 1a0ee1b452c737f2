package captions

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// maxSRTHours keeps a full HH:59:59,999 timestamp within int64 milliseconds.
const maxSRTHours = (math.MaxInt64 - 3_599_999) / 3_600_000

// ParseSRT parses SubRip text:
//
//	1
//	00:00:00,000 --> 00:00:01,830
//	I'm happy to
//	have you here today.
//
// Multi-line text is joined with "\n". Sequence numbers are optional.
func ParseSRT(r io.Reader) ([]Cue, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		cues   []Cue
		cur    *Cue
		text   []string
		lineNo int
	)
	flush := func() {
		if cur != nil {
			cur.Content = strings.Join(text, "\n")
			cues = append(cues, *cur)
		}
		cur, text = nil, nil
	}

	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			flush()
		case cur == nil && strings.Contains(trimmed, "-->"):
			start, end, err := parseSRTRange(trimmed)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
			}
			cur = &Cue{StartMs: start, DurationMs: end - start}
		case cur == nil && isDigitOnly(trimmed):
			// sequence number
		case cur == nil:
			return nil, fmt.Errorf("%w: line %d: text outside a cue", ErrMalformed, lineNo)
		default:
			text = append(text, trimmed)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()
	if cues == nil {
		cues = []Cue{}
	}
	return cues, nil
}

func parseSRTRange(line string) (int64, int64, error) {
	parts := strings.SplitN(line, "-->", 2)
	start, err := parseSRTTime(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	// Position hints may follow the end timestamp.
	endField := strings.Fields(parts[1])
	if len(endField) == 0 {
		return 0, 0, fmt.Errorf("missing end timestamp")
	}
	end, err := parseSRTTime(endField[0])
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("end %s before start %s", endField[0], strings.TrimSpace(parts[0]))
	}
	return start, end, nil
}

// parseSRTTime parses HH:MM:SS,mmm (a '.' separator is accepted too).
func parseSRTTime(s string) (int64, error) {
	hms, frac, ok := strings.Cut(strings.Replace(s, ".", ",", 1), ",")
	if !ok {
		return 0, fmt.Errorf("timestamp %q: missing milliseconds", s)
	}
	parts := strings.Split(hms, ":")
	if len(parts) != 3 || len(frac) != 3 {
		return 0, fmt.Errorf("timestamp %q: want HH:MM:SS,mmm", s)
	}
	var vals [4]int64
	for i, p := range append(parts, frac) {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("timestamp %q: bad field %q", s, p)
		}
		vals[i] = n
	}
	if vals[0] > maxSRTHours || vals[1] > 59 || vals[2] > 59 {
		return 0, fmt.Errorf("timestamp %q: out of range", s)
	}
	return ((vals[0]*60+vals[1])*60+vals[2])*1000 + vals[3], nil
}

// isDigitOnly reports whether s is a non-empty run of ASCII digits.
func isDigitOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
