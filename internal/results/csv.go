// Package results persists one CSV row per saved condition outcome, in
// the column layout the analysis notebooks expect. The file is created
// with its header on first write and appended to afterwards.
package results

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/driverlab/persona-gateway/internal/persona"
)

var header = []string{
	"timestamp",
	"participant_id",
	"scenario_id",
	"condition",
	"O",
	"C",
	"E",
	"A",
	"N",
	"dbq_violations",
	"dbq_errors",
	"dbq_lapses",
	"bsss_experience",
	"bsss_thrill",
	"bsss_disinhibition",
	"bsss_boredom",
	"persona_summary",
	"driver_transcript",
	"llm_response",
	"latency_sec",
}

// Row is one saved condition outcome.
type Row struct {
	Timestamp      time.Time
	ParticipantID  string
	ScenarioID     string
	Condition      string
	Profile        persona.Profile
	PersonaSummary string
	Transcript     string
	Response       string
	LatencySec     float64
}

// Writer appends rows to a results CSV file.
type Writer struct {
	path string
}

func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Path returns the configured results file location.
func (w *Writer) Path() string {
	return w.path
}

// Append writes one row, creating the file with its header first if
// needed.
func (w *Writer) Append(row Row) error {
	if err := w.ensureFile(); err != nil {
		return err
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open results file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err = cw.Write(row.record()); err != nil {
		return fmt.Errorf("write results row: %w", err)
	}
	cw.Flush()
	if err = cw.Error(); err != nil {
		return fmt.Errorf("flush results row: %w", err)
	}
	return nil
}

func (w *Writer) ensureFile() error {
	if _, err := os.Stat(w.path); err == nil {
		return nil
	}
	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create results dir: %w", err)
		}
	}

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("create results file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err = cw.Write(header); err != nil {
		return fmt.Errorf("write results header: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

func (r Row) record() []string {
	p := r.Profile
	return []string{
		r.Timestamp.UTC().Format(time.RFC3339),
		r.ParticipantID,
		r.ScenarioID,
		r.Condition,
		strconv.Itoa(p.Openness),
		strconv.Itoa(p.Conscientiousness),
		strconv.Itoa(p.Extraversion),
		strconv.Itoa(p.Agreeableness),
		strconv.Itoa(p.Neuroticism),
		strconv.Itoa(p.DBQViolations),
		strconv.Itoa(p.DBQErrors),
		strconv.Itoa(p.DBQLapses),
		strconv.Itoa(p.BSSSExperience),
		strconv.Itoa(p.BSSSThrill),
		strconv.Itoa(p.BSSSDisinhibition),
		strconv.Itoa(p.BSSSBoredom),
		r.PersonaSummary,
		r.Transcript,
		r.Response,
		strconv.FormatFloat(r.LatencySec, 'f', -1, 64),
	}
}

// Header returns the column layout, for readers and summaries.
func Header() []string {
	out := make([]string, len(header))
	copy(out, header)
	return out
}
