package bot

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ledgerHeader is written once when the file is created and never touched again.
var ledgerHeader = []string{"Date", "Quote", "Source", "Posted", "Post_Date"}

const dateLayout = "2006-01-02"

// Record is one row of the ledger: a quote that was produced, and whether
// posting it succeeded.
type Record struct {
	Date     string
	Quote    string
	Source   string
	Posted   bool
	PostDate string // empty when Posted is false
}

// Ledger is an append-only CSV log of every quote ever produced. Rows are
// appended, never rewritten; the quote text acts as the dedup key.
type Ledger struct {
	mu   sync.Mutex
	path string
}

// NewLedger opens the ledger at path, creating it with a header row if it
// does not exist. An existing file is left untouched.
func NewLedger(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}
	l := &Ledger{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
		if err != nil {
			return nil, fmt.Errorf("create ledger: %w", err)
		}
		w := csv.NewWriter(f)
		if err := w.Write(ledgerHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("write ledger header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("write ledger header: %w", err)
		}
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("close ledger: %w", err)
		}
	}
	return l, nil
}

// Path returns the backing file path.
func (l *Ledger) Path() string {
	return l.path
}

// Exists reports whether any prior record carries exactly this quote text.
// Presence alone blocks reprocessing; the Posted flag is deliberately
// ignored here (a quote that failed to post is not retried).
func (l *Ledger) Exists(text string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.readAll()
	if err != nil {
		return false, err
	}
	for _, r := range rows {
		if r.Quote == text {
			return true, nil
		}
	}
	return false, nil
}

// Append adds one record. Date fields default to today when empty.
// Storage errors are surfaced to the caller, not retried.
func (l *Ledger) Append(rec Record) error {
	if rec.Date == "" {
		rec.Date = time.Now().Format(dateLayout)
	}
	if rec.Posted && rec.PostDate == "" {
		rec.PostDate = time.Now().Format(dateLayout)
	}
	if !rec.Posted {
		rec.PostDate = ""
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger for append: %w", err)
	}
	w := csv.NewWriter(f)
	row := []string{rec.Date, rec.Quote, rec.Source, fmt.Sprintf("%t", rec.Posted), rec.PostDate}
	if err := w.Write(row); err != nil {
		f.Close()
		return fmt.Errorf("append ledger row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("append ledger row: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	return nil
}

// Records returns every row in file order, oldest first.
func (l *Ledger) Records() ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readAll()
}

// Recent returns up to n of the newest records, newest first.
func (l *Ledger) Recent(n int) ([]Record, error) {
	rows, err := l.Records()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, n)
	for i := len(rows) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, rows[i])
	}
	return out, nil
}

// readAll reads the file sequentially, skipping the header. Callers hold mu.
func (l *Ledger) readAll() ([]Record, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	var out []Record
	for i, row := range rows {
		if i == 0 || len(row) < 4 {
			continue
		}
		rec := Record{
			Date:   row[0],
			Quote:  row[1],
			Source: row[2],
			Posted: row[3] == "true" || row[3] == "True",
		}
		if len(row) > 4 {
			rec.PostDate = row[4]
		}
		out = append(out, rec)
	}
	return out, nil
}
