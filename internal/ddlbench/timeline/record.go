// Package timeline reads and writes the per-run latency logs. Each line records one timed event:
//
//	<type>\t<startOffsetMs>\t<endOffsetMs>\t<durationMs>\n
//
// Offsets are milliseconds since the start of the run.
package timeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// OperationType is the type of the single record describing the schema operation itself.
const OperationType = "Operation"

// Record is one timed event. Start and End are milliseconds since the session started.
type Record struct {
	Type     string `json:"type"`
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	Duration int64  `json:"duration"`
}

// NewRecord builds a record for an event between start and end, relative to origin.
func NewRecord(recordType string, origin, start, end time.Time) Record {
	startMs := start.Sub(origin).Milliseconds()
	endMs := end.Sub(origin).Milliseconds()
	return Record{Type: recordType, Start: startMs, End: endMs, Duration: endMs - startMs}
}

func (r Record) String() string {
	return fmt.Sprintf("%s\t%d\t%d\t%d\n", r.Type, r.Start, r.End, r.Duration)
}

// Parse reads a single line, with or without its trailing newline.
func Parse(line string) (Record, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(fields) != 4 {
		return Record{}, errors.Errorf("expected 4 tab-separated fields but got %d in %q", len(fields), line)
	}
	if fields[0] == "" {
		return Record{}, errors.Errorf("missing record type in %q", line)
	}
	values := make([]int64, 3)
	for i, field := range fields[1:] {
		v, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return Record{}, errors.Wrapf(err, "invalid number in %q", line)
		}
		values[i] = v
	}
	return Record{Type: fields[0], Start: values[0], End: values[1], Duration: values[2]}, nil
}

// Overlaps reports whether the record's interval intersects [from, to].
func (r Record) Overlaps(from, to int64) bool {
	return r.Start <= to && r.End >= from
}
