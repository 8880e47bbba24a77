// Command export summarizes a results CSV: per-condition row counts,
// mean latency and error-turn counts, for a quick look at a study's
// data before full analysis.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/driverlab/persona-gateway/internal/results"
)

type conditionSummary struct {
	rows         int
	participants map[string]struct{}
	latencySum   float64
	latencyCount int
	errorTurns   int
}

func main() {
	path := flag.String("results", "data/experiment_results.csv", "path to the results CSV")
	flag.Parse()

	f, err := os.Open(*path)
	if err != nil {
		slog.Error("open results file", "path", *path, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		slog.Error("read results file", "path", *path, "error", err)
		os.Exit(1)
	}
	if len(records) < 2 {
		fmt.Println("no rows yet")
		return
	}

	col := columnIndex(records[0])
	required := []string{"condition", "participant_id", "latency_sec", "llm_response"}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			slog.Error("results file missing column", "column", name)
			os.Exit(1)
		}
	}

	summaries := make(map[string]*conditionSummary)
	for _, rec := range records[1:] {
		if len(rec) != len(records[0]) {
			continue
		}
		cond := rec[col["condition"]]
		s, ok := summaries[cond]
		if !ok {
			s = &conditionSummary{participants: make(map[string]struct{})}
			summaries[cond] = s
		}
		s.rows++
		s.participants[rec[col["participant_id"]]] = struct{}{}
		if lat, err := strconv.ParseFloat(rec[col["latency_sec"]], 64); err == nil && lat > 0 {
			s.latencySum += lat
			s.latencyCount++
		}
		if strings.Contains(rec[col["llm_response"]], "error:") {
			s.errorTurns++
		}
	}

	conditions := make([]string, 0, len(summaries))
	for cond := range summaries {
		conditions = append(conditions, cond)
	}
	sort.Strings(conditions)

	fmt.Printf("%s: %d rows\n\n", *path, len(records)-1)
	for _, cond := range conditions {
		s := summaries[cond]
		fmt.Printf("%s\n", cond)
		fmt.Printf("  rows:          %d\n", s.rows)
		fmt.Printf("  participants:  %d\n", len(s.participants))
		if s.latencyCount > 0 {
			fmt.Printf("  mean latency:  %.2fs (n=%d)\n", s.latencySum/float64(s.latencyCount), s.latencyCount)
		} else {
			fmt.Printf("  mean latency:  n/a\n")
		}
		fmt.Printf("  error turns:   %d\n", s.errorTurns)
	}
}

// columnIndex maps header names to positions so older files with the
// same columns in a different order still summarize correctly.
func columnIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range results.Header() {
		if _, ok := col[name]; !ok {
			slog.Warn("column absent from results file", "column", name)
		}
	}
	return col
}
