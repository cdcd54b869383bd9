// Package analysis post-processes the latency logs of completed sessions.
package analysis

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/ddlbench/internal/ddlbench/timeline"
)

const operationLog = "OPERATION.log"

// Window names a phase of a session relative to its operation.
type Window string

const (
	Pre    Window = "pre"
	During Window = "during"
	Post   Window = "post"
)

// Windows returns the windows in chronological order.
func Windows() []Window {
	return []Window{Pre, During, Post}
}

// WindowConfig sizes the windows a session's queries are sorted into. Pre starts Offset after
// the session began, During is centred on the middle of the operation and Post starts Offset
// after the operation ended. Each spans Width.
type WindowConfig struct {
	Offset time.Duration
	Width  time.Duration
}

func DefaultWindowConfig() WindowConfig {
	return WindowConfig{Offset: time.Second, Width: 50 * time.Second}
}

type interval struct {
	from, to int64
}

func (i interval) contains(ms int64) bool {
	return ms >= i.from && ms <= i.to
}

// Classifier places query records into the windows around one operation.
type Classifier struct {
	intervals map[Window]interval
}

func NewClassifier(operation timeline.Record, config WindowConfig) *Classifier {
	offset := config.Offset.Milliseconds()
	width := config.Width.Milliseconds()
	middle := operation.Start + (operation.End-operation.Start)/2
	return &Classifier{intervals: map[Window]interval{
		Pre:    {from: offset, to: offset + width},
		During: {from: middle - width/2, to: middle + width/2},
		Post:   {from: operation.End + offset, to: operation.End + offset + width},
	}}
}

// Classify returns the first window, in chronological order, containing the record's start.
func (c *Classifier) Classify(record timeline.Record) (Window, bool) {
	for _, w := range Windows() {
		if c.intervals[w].contains(record.Start) {
			return w, true
		}
	}
	return "", false
}

// Scenarios returns the session folders below root, or root itself if it holds an operation log.
// Hidden folders and those starting with an underscore are ignored.
func Scenarios(root string) ([]string, error) {
	if _, err := os.Stat(filepath.Join(root, operationLog)); err == nil {
		return []string{root}, nil
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var scenarios []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, name, operationLog)); err != nil {
			continue
		}
		scenarios = append(scenarios, filepath.Join(root, name))
	}
	slices.Sort(scenarios)
	return scenarios, nil
}

// scenario is a session folder's parsed logs.
type scenario struct {
	folder    string
	operation timeline.Record
	// Worker log file name to records.
	workers map[string][]timeline.Record
}

func readScenario(folder string) (*scenario, error) {
	ops, err := timeline.ReadFile(filepath.Join(folder, operationLog))
	if err != nil {
		return nil, err
	}
	if len(ops) != 1 {
		return nil, errors.Errorf("%s: expected one operation record but found %d", folder, len(ops))
	}
	files, err := filepath.Glob(filepath.Join(folder, "*.log"))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	s := &scenario{folder: folder, operation: ops[0], workers: map[string][]timeline.Record{}}
	for _, file := range files {
		name := filepath.Base(file)
		if name == operationLog {
			continue
		}
		records, err := timeline.ReadFile(file)
		if err != nil {
			return nil, err
		}
		s.workers[name] = records
	}
	return s, nil
}

// SplitScenario writes <log>.pre, <log>.during and <log>.post next to every worker log in the
// folder, each holding the records whose start falls in that window.
func SplitScenario(folder string, config WindowConfig) error {
	s, err := readScenario(folder)
	if err != nil {
		return err
	}
	classifier := NewClassifier(s.operation, config)
	for name, records := range s.workers {
		log.Infof("Splitting %s", filepath.Join(folder, name))
		split := map[Window][]timeline.Record{}
		for _, r := range records {
			if w, ok := classifier.Classify(r); ok {
				split[w] = append(split[w], r)
			}
		}
		for _, w := range Windows() {
			if err := timeline.WriteFile(filepath.Join(folder, name+"."+string(w)), split[w]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Split splits every scenario below root, carrying on past scenarios that fail.
func Split(root string, config WindowConfig) error {
	scenarios, err := Scenarios(root)
	if err != nil {
		return err
	}
	var result *multierror.Error
	for _, folder := range scenarios {
		if err := SplitScenario(folder, config); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
