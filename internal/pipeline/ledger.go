package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// LedgerFileName is the results table written at the end of a batch.
const LedgerFileName = "Processing results.csv"

// missingUID is written in place of an empty UID.
const missingUID = "N/A"

// Ledger is the append-only list of case results for one run.
type Ledger struct {
	mu      sync.Mutex
	results []Result
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Append records a result.
func (l *Ledger) Append(r Result) {
	l.mu.Lock()
	l.results = append(l.results, r)
	l.mu.Unlock()
}

// Len returns the number of recorded results.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.results)
}

// Results returns a copy of the recorded results in append order.
func (l *Ledger) Results() []Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Result, len(l.results))
	copy(out, l.results)
	return out
}

// Counts returns the number of successful and failed results.
func (l *Ledger) Counts() (succeeded, failed int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.results {
		if r.Success {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// ResultSink persists the ledger of a run.
type ResultSink interface {
	Name() string
	Write(ctx context.Context, runID string, results []Result) error
}

// CSVSink writes the ledger as a CSV table with the columns success, error
// and UID. Booleans are written as True and False.
type CSVSink struct {
	Path string
}

// Name implements ResultSink.
func (s CSVSink) Name() string { return "csv" }

// Write implements ResultSink. The file is replaced on every call.
func (s CSVSink) Write(_ context.Context, _ string, results []Result) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrSink, err)
	}

	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSink, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"success", "error", "UID"}); err != nil {
		return fmt.Errorf("%w: %v", ErrSink, err)
	}
	for _, r := range results {
		if err := w.Write(ledgerRow(r)); err != nil {
			return fmt.Errorf("%w: %v", ErrSink, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrSink, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrSink, err)
	}
	return nil
}

func ledgerRow(r Result) []string {
	success := "False"
	if r.Success {
		success = "True"
	}
	errText := ""
	if !r.Success {
		errText = r.Error
	}
	return []string{success, errText, ledgerUID(r.UID)}
}

func ledgerUID(uid string) string {
	if uid == "" {
		return missingUID
	}
	return uid
}

// ReadLedgerCSV reads a table written by CSVSink.
func ReadLedgerCSV(path string) ([]Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("parsing %s: missing header", path)
	}

	out := make([]Result, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != 3 {
			return nil, fmt.Errorf("parsing %s: row %d has %d columns", path, i+2, len(row))
		}
		ok, err := strconv.ParseBool(row[0])
		if err != nil {
			return nil, fmt.Errorf("parsing %s: row %d: %w", path, i+2, err)
		}
		out = append(out, Result{Success: ok, Error: row[1], UID: row[2]})
	}
	return out, nil
}
