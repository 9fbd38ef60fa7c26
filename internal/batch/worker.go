package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/cleared-dev/mt940import/internal/importer"
	"github.com/cleared-dev/mt940import/internal/store"
)

// ErrBusy is returned when a worker is asked to start while running.
var ErrBusy = errors.New("worker is already running a batch")

var errCanceled = errors.New("import canceled")

// DefaultPlaceholderLabel labels type codes discovered during import.
const DefaultPlaceholderLabel = "Unclassified"

// Opener opens a fresh database connection for one worker run.
type Opener func(ctx context.Context) (*store.DB, error)

// State is the lifecycle state of a Worker.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Worker runs one batch at a time on its own goroutine.
type Worker struct {
	open        Opener
	parser      importer.Parser
	placeholder string
	logger      *log.Logger
	state       atomic.Int32
}

// NewWorker creates a Worker. An empty placeholder uses DefaultPlaceholderLabel.
func NewWorker(open Opener, parser importer.Parser, placeholder string, logger *log.Logger) *Worker {
	if placeholder == "" {
		placeholder = DefaultPlaceholderLabel
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Worker{open: open, parser: parser, placeholder: placeholder, logger: logger}
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Start runs b in the background. The returned channel carries zero or more
// Progress messages followed by exactly one Done or Failed, then is closed.
// Cancelling ctx stops the run between files.
func (w *Worker) Start(ctx context.Context, b ImportBatch) (<-chan Message, error) {
	for {
		cur := w.state.Load()
		if State(cur) == StateRunning {
			return nil, ErrBusy
		}
		if w.state.CompareAndSwap(cur, int32(StateRunning)) {
			break
		}
	}

	// One slot per file plus the terminal message: the worker never blocks.
	out := make(chan Message, len(b.Files)+1)
	go w.run(ctx, b, out)
	return out, nil
}

// FileResult is the outcome of importing one statement file.
type FileResult struct {
	Inserted int
	Ignored  int
	Skipped  int // malformed blocks
	NewCodes []string
}

func (w *Worker) run(ctx context.Context, b ImportBatch, out chan<- Message) {
	defer close(out)
	logger := w.logger.With("batch", b.ID, "account", b.Account.Name)

	fail := func(err error) {
		logger.Error("batch failed", "error", err)
		w.state.Store(int32(StateFailed))
		out <- Failed{Op: OpImport, Message: err.Error()}
	}

	if ctx.Err() != nil {
		fail(errCanceled)
		return
	}
	db, err := w.open(ctx)
	if err != nil {
		fail(fmt.Errorf("opening database: %w", err))
		return
	}
	defer db.Close()

	var inserted, ignored int
	for i, path := range b.Files {
		if ctx.Err() != nil {
			fail(errCanceled)
			return
		}
		name := filepath.Base(path)
		out <- Progress{Op: OpImport, Index: i, Status: fmt.Sprintf("Importing %s (%d/%d)", name, i+1, len(b.Files))}

		res, err := w.ImportFile(ctx, db, b.Account.ID, path)
		if err != nil {
			fail(fmt.Errorf("%s: %w", name, err))
			return
		}
		logger.Info("imported file", "file", name, "inserted", res.Inserted, "ignored", res.Ignored,
			"skipped", res.Skipped, "new_codes", len(res.NewCodes))
		inserted += res.Inserted
		ignored += res.Ignored
	}

	w.state.Store(int32(StateSucceeded))
	out <- Done{Op: OpImport, Inserted: inserted, Ignored: ignored}
}

// ImportFile parses path, registers unseen type codes and inserts every
// entry that is not already stored for accountID. Inserts of one file are
// committed together; on error they are rolled back.
func (w *Worker) ImportFile(ctx context.Context, db *store.DB, accountID int64, path string) (FileResult, error) {
	st, err := importer.ParseFile(w.parser, path)
	if err != nil {
		return FileResult{}, err
	}
	res := FileResult{Skipped: st.Skipped}

	res.NewCodes, err = importer.SyncTypeCodes(ctx, db, st, w.placeholder)
	if err != nil {
		return res, err
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return res, err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, e := range st.Entries {
		rec, err := e.Record(accountID)
		if err != nil {
			res.Skipped++
			continue
		}
		exists, err := tx.TransactionExists(ctx, rec.Key())
		if err != nil {
			return res, err
		}
		if exists {
			res.Ignored++
			continue
		}
		if _, err := tx.InsertTransaction(ctx, rec); err != nil {
			return res, err
		}
		res.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return res, err
	}
	return res, nil
}
