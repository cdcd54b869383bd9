package analysis

import (
	"encoding/json"
	"math"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"sigs.k8s.io/yaml"

	"github.com/armadaproject/ddlbench/internal/common/util"
	"github.com/armadaproject/ddlbench/internal/ddlbench/timeline"
)

// Stats summarises query durations in milliseconds.
type Stats struct {
	Count int   `json:"count"`
	P50   int64 `json:"p50"`
	P95   int64 `json:"p95"`
	P99   int64 `json:"p99"`
	Max   int64 `json:"max"`
}

type RoleStats struct {
	Role   string `json:"role"`
	Window Window `json:"window"`
	Stats
}

type Report struct {
	Scenario  string          `json:"scenario"`
	Operation timeline.Record `json:"operation"`
	Roles     []RoleStats     `json:"roles"`
}

// Percentile returns the nearest-rank percentile of sorted values, or 0 if there are none.
func Percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

func Summarise(durations []int64) Stats {
	if len(durations) == 0 {
		return Stats{}
	}
	sorted := slices.Clone(durations)
	slices.Sort(sorted)
	return Stats{
		Count: len(sorted),
		P50:   Percentile(sorted, 50),
		P95:   Percentile(sorted, 95),
		P99:   Percentile(sorted, 99),
		Max:   sorted[len(sorted)-1],
	}
}

// Analyse reports latency per role and window for one session folder.
func Analyse(folder string, config WindowConfig) (Report, error) {
	s, err := readScenario(folder)
	if err != nil {
		return Report{}, err
	}
	classifier := NewClassifier(s.operation, config)
	durations := map[string]map[Window][]int64{}
	for _, records := range s.workers {
		for _, r := range records {
			w, ok := classifier.Classify(r)
			if !ok {
				continue
			}
			if durations[r.Type] == nil {
				durations[r.Type] = map[Window][]int64{}
			}
			durations[r.Type][w] = append(durations[r.Type][w], r.Duration)
		}
	}

	report := Report{Scenario: filepath.Base(folder), Operation: s.operation}
	roles := maps.Keys(durations)
	slices.Sort(roles)
	for _, role := range roles {
		for _, w := range Windows() {
			report.Roles = append(report.Roles, RoleStats{Role: role, Window: w, Stats: Summarise(durations[role][w])})
		}
	}
	return report, nil
}

// AnalyseAll reports on every scenario below root, skipping those that cannot be read.
func AnalyseAll(root string, config WindowConfig) ([]Report, error) {
	scenarios, err := Scenarios(root)
	if err != nil {
		return nil, err
	}
	var reports []Report
	var result *multierror.Error
	for _, folder := range scenarios {
		report, err := Analyse(folder, config)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		reports = append(reports, report)
	}
	return reports, result.ErrorOrNil()
}

// Format renders reports as "table", "yaml" or "json".
func Format(reports []Report, format string) (string, error) {
	switch format {
	case "", "table":
		return formatTable(reports), nil
	case "yaml":
		out, err := yaml.Marshal(reports)
		return string(out), errors.WithStack(err)
	case "json":
		out, err := json.MarshalIndent(reports, "", "  ")
		return string(out) + "\n", errors.WithStack(err)
	}
	return "", errors.Errorf("unknown output format %q, expected table, yaml or json", format)
}

func formatTable(reports []Report) string {
	table := util.NewTable("SCENARIO", "OPERATION MS", "ROLE", "WINDOW", "COUNT", "P50", "P95", "P99", "MAX")
	for _, report := range reports {
		for _, r := range report.Roles {
			table.AddRow(report.Scenario, report.Operation.Duration, r.Role, r.Window, r.Count, r.P50, r.P95, r.P99, r.Max)
		}
	}
	return table.String()
}
