// Package importlog keeps an append-only CSV history of import batches.
package importlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cleared-dev/mt940import/internal/batch"
)

// Status values written to the log.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Entry is one row in the import log.
type Entry struct {
	Timestamp time.Time
	Batch     string
	Account   string
	Files     int
	Inserted  int
	Ignored   int
	Status    string
	Error     string
}

// Header is the CSV header for import-log.csv.
const Header = "timestamp,batch,account,files,inserted,ignored,status,error"

const (
	numFields   = 8
	logDir      = "logs"
	logFile     = "logs/import-log.csv"
	colTime     = 0
	colBatch    = 1
	colAccount  = 2
	colFiles    = 3
	colInserted = 4
	colIgnored  = 5
	colStatus   = 6
	colError    = 7
)

// FromResult builds a log entry for a finished batch.
func FromResult(r batch.Result, at time.Time) Entry {
	e := Entry{
		Timestamp: at,
		Batch:     r.Batch.ID,
		Account:   r.Batch.Account.Name,
		Files:     len(r.Batch.Files),
		Inserted:  r.Inserted,
		Ignored:   r.Ignored,
		Status:    StatusSucceeded,
	}
	if !r.Succeeded {
		e.Status = StatusFailed
		e.Error = r.Err
	}
	return e
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTime] = e.Timestamp.Format(time.RFC3339)
	row[colBatch] = e.Batch
	row[colAccount] = e.Account
	row[colFiles] = strconv.Itoa(e.Files)
	row[colInserted] = strconv.Itoa(e.Inserted)
	row[colIgnored] = strconv.Itoa(e.Ignored)
	row[colStatus] = e.Status
	row[colError] = e.Error
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTime])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTime], err)
	}

	counts := make([]int, 3)
	for i, col := range []int{colFiles, colInserted, colIgnored} {
		n, err := strconv.Atoi(record[col])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing count %q: %w", record[col], err)
		}
		counts[i] = n
	}

	return Entry{
		Timestamp: ts,
		Batch:     record[colBatch],
		Account:   record[colAccount],
		Files:     counts[0],
		Inserted:  counts[1],
		Ignored:   counts[2],
		Status:    record[colStatus],
		Error:     record[colError],
	}, nil
}

// Append writes entries to <root>/logs/import-log.csv, creating the file and header if needed.
func Append(root string, entries []Entry) error {
	dir := filepath.Join(root, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(root, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	return cw.Error()
}

// Read returns all entries from <root>/logs/import-log.csv.
// Returns an empty slice if the file does not exist.
func Read(root string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(root, logFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Recorder appends one entry per batch result under Root.
type Recorder struct {
	Root string
	Now  func() time.Time
}

// Record implements batch.Recorder.
func (r Recorder) Record(res batch.Result) error {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return Append(r.Root, []Entry{FromResult(res, now().UTC())})
}
