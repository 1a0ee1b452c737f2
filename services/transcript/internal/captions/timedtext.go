package captions

import (
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"math"
	"strconv"
	"strings"
)

type timedText struct {
	XMLName xml.Name        `xml:"transcript"`
	Texts   []timedTextNode `xml:"text"`
}

type timedTextNode struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Body  string `xml:",chardata"`
}

// ParseTimedText parses YouTube timedtext XML:
//
//	<transcript><text start="0.4" dur="1.2">Hi &amp;#39;there</text></transcript>
//
// Offsets are seconds and are rounded to milliseconds. Entities that survive
// XML decoding (the feed escapes twice) are unescaped.
func ParseTimedText(r io.Reader) ([]Cue, error) {
	var doc timedText
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	cues := make([]Cue, 0, len(doc.Texts))
	for i, n := range doc.Texts {
		start, err := secondsToMs(n.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: text %d: start: %v", ErrMalformed, i, err)
		}
		var dur int64
		if strings.TrimSpace(n.Dur) != "" {
			if dur, err = secondsToMs(n.Dur); err != nil {
				return nil, fmt.Errorf("%w: text %d: dur: %v", ErrMalformed, i, err)
			}
		}
		cues = append(cues, Cue{
			StartMs:    start,
			DurationMs: dur,
			Content:    html.UnescapeString(n.Body),
		})
	}
	return cues, nil
}

func secondsToMs(s string) (int64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q out of range", s)
	}
	ms := math.Round(f * 1000)
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if ms >= float64(math.MaxInt64) {
		return 0, fmt.Errorf("%q out of range", s)
	}
	return int64(ms), nil
}
