package batch

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/mt940import/internal/accounts"
	"github.com/cleared-dev/mt940import/internal/importer"
	"github.com/cleared-dev/mt940import/internal/model"
	"github.com/cleared-dev/mt940import/internal/store"
)

var quiet = log.New(io.Discard)

type recordingView struct {
	events   []string
	progress []Progress
	done     []Done
	failed   []Failed
	dropped  int
}

func (v *recordingView) BatchStarted(b ImportBatch) { v.events = append(v.events, "start:"+b.Account.Name) }

func (v *recordingView) Progress(_ ImportBatch, p Progress) {
	v.events = append(v.events, "progress")
	v.progress = append(v.progress, p)
}

func (v *recordingView) BatchDone(b ImportBatch, d Done) {
	v.events = append(v.events, "done:"+b.Account.Name)
	v.done = append(v.done, d)
}

func (v *recordingView) BatchFailed(b ImportBatch, f Failed, dropped int) {
	v.events = append(v.events, "failed:"+b.Account.Name)
	v.failed = append(v.failed, f)
	v.dropped = dropped
}

type memRecorder struct{ results []Result }

func (m *memRecorder) Record(r Result) error {
	m.results = append(m.results, r)
	return nil
}

type fixture struct {
	dbPath  string
	db      *store.DB
	account model.BankAccount
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "stmt.db")
	db, err := store.Open(ctx, path, quiet)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	acct, err := db.CreateAccount(ctx, model.BankAccount{Name: "Operating", IBAN: "RO49AAAA1B31007593840000", Currency: "RON"})
	require.NoError(t, err)
	ntrf, err := model.NewTypeCode("NTRF", "Transfer")
	require.NoError(t, err)
	require.NoError(t, db.RegisterTypeCodes(ctx, []model.TypeCode{ntrf}))

	return fixture{dbPath: path, db: db, account: acct}
}

func (f fixture) opener() Opener {
	return func(ctx context.Context) (*store.DB, error) {
		return store.Open(ctx, f.dbPath, quiet)
	}
}

func testdata(name string) string {
	return filepath.Join("..", "..", "testdata", name)
}

func newCoordinator(w *Worker, v View) *Coordinator {
	return &Coordinator{Worker: w, View: v, PollInterval: 5 * time.Millisecond, Logger: quiet}
}

func TestRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := NewWorker(f.opener(), &importer.MT940Parser{}, "", quiet)

	run := func() (*recordingView, []Result) {
		view := &recordingView{}
		s := &Session{}
		s.Schedule([]accounts.Assignment{{File: testdata("statement.sta"), Account: f.account}})
		results, err := newCoordinator(w, view).Run(ctx, s)
		require.NoError(t, err)
		return view, results
	}

	view, results := run()
	require.Len(t, results, 1)
	assert.True(t, results[0].Succeeded)
	assert.Equal(t, []Done{{Op: OpImport, Inserted: 3, Ignored: 0}}, view.done)
	assert.Equal(t, StateSucceeded, w.State())

	codes, err := f.db.TypeCodes(ctx)
	require.NoError(t, err)
	require.Len(t, codes, 3)
	assert.Equal(t, "NTRF", codes[0].Code)
	assert.Equal(t, "Transfer", codes[0].Label)
	assert.Equal(t, model.TypeCode{Code: "X100", Label: DefaultPlaceholderLabel}, codes[1])
	assert.Equal(t, model.TypeCode{Code: "X200", Label: DefaultPlaceholderLabel}, codes[2])

	view, _ = run()
	assert.Equal(t, []Done{{Op: OpImport, Inserted: 0, Ignored: 3}}, view.done)

	n, err := f.db.CountTransactions(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	codes, err = f.db.TypeCodes(ctx)
	require.NoError(t, err)
	assert.Len(t, codes, 3)
}

func TestRun_ProgressOrdering(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := NewWorker(f.opener(), &importer.MT940Parser{}, "", quiet)

	files := []string{testdata("statement.sta"), testdata("malformed.sta"), testdata("statement.sta")}
	var as []accounts.Assignment
	for _, file := range files {
		as = append(as, accounts.Assignment{File: file, Account: f.account})
	}
	view := &recordingView{}
	s := &Session{}
	s.Schedule(as)

	_, err := newCoordinator(w, view).Run(ctx, s)
	require.NoError(t, err)

	require.Len(t, view.progress, len(files))
	for i, p := range view.progress {
		assert.Equal(t, i, p.Index)
		assert.Equal(t, OpImport, p.Op)
		assert.NotEmpty(t, p.Status)
	}
	assert.Equal(t, []string{"start:Operating", "progress", "progress", "progress", "done:Operating"}, view.events)
	// statement.sta twice plus the two good blocks of malformed.sta.
	assert.Equal(t, []Done{{Op: OpImport, Inserted: 5, Ignored: 3}}, view.done)
}

func TestRun_FailureClearsQueue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	savings, err := f.db.CreateAccount(ctx, model.BankAccount{Name: "Savings", IBAN: "GB82WEST12345698765432"})
	require.NoError(t, err)

	calls := 0
	open := func(ctx context.Context) (*store.DB, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("disk on fire")
		}
		return store.Open(ctx, f.dbPath, quiet)
	}
	w := NewWorker(open, &importer.MT940Parser{}, "", quiet)

	view := &recordingView{}
	rec := &memRecorder{}
	s := &Session{}
	s.Schedule([]accounts.Assignment{
		{File: testdata("statement.sta"), Account: f.account},
		{File: testdata("statement.sta"), Account: savings},
	})
	require.Equal(t, 2, s.Queue.Len())

	c := newCoordinator(w, view)
	c.Recorder = rec
	results, err := c.Run(ctx, s)
	require.ErrorIs(t, err, ErrAborted)
	assert.Contains(t, err.Error(), "disk on fire")

	assert.Equal(t, 1, calls, "second batch never started")
	assert.Equal(t, 0, s.Queue.Len())
	assert.Equal(t, 1, view.dropped)
	assert.Equal(t, []string{"start:Operating", "failed:Operating"}, view.events)
	require.Len(t, results, 1)
	assert.False(t, results[0].Succeeded)
	assert.Equal(t, results, rec.results)
	assert.Equal(t, StateFailed, w.State())
}

func TestRun_MissingFileFailsBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := NewWorker(f.opener(), &importer.MT940Parser{}, "", quiet)

	view := &recordingView{}
	s := &Session{}
	s.Schedule([]accounts.Assignment{
		{File: testdata("statement.sta"), Account: f.account},
		{File: filepath.Join(t.TempDir(), "gone.sta"), Account: f.account},
	})
	_, err := newCoordinator(w, view).Run(ctx, s)
	require.ErrorIs(t, err, ErrAborted)

	require.Len(t, view.failed, 1)
	assert.Contains(t, view.failed[0].Message, "gone.sta")
	assert.Len(t, view.progress, 2)

	// The first file's inserts were committed before the second failed.
	n, err := f.db.CountTransactions(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestWorker_Canceled(t *testing.T) {
	f := newFixture(t)
	w := NewWorker(f.opener(), &importer.MT940Parser{}, "", quiet)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch, err := w.Start(ctx, ImportBatch{ID: "b1", Account: f.account, Files: []string{testdata("statement.sta")}})
	require.NoError(t, err)

	var msgs []Message
	for m := range ch {
		msgs = append(msgs, m)
	}
	require.Len(t, msgs, 1)
	assert.Equal(t, Failed{Op: OpImport, Message: "import canceled"}, msgs[0])
	assert.True(t, Terminal(msgs[0]))

	n, err := f.db.CountTransactions(context.Background(), f.account.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWorker_Busy(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	open := func(ctx context.Context) (*store.DB, error) {
		<-release
		return store.Open(ctx, f.dbPath, quiet)
	}
	w := NewWorker(open, &importer.MT940Parser{}, "Pending", quiet)
	b := ImportBatch{ID: "b1", Account: f.account, Files: []string{testdata("statement.sta")}}

	ch, err := w.Start(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, w.State())

	_, err = w.Start(context.Background(), b)
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	var last Message
	for m := range ch {
		last = m
	}
	assert.Equal(t, Done{Op: OpImport, Inserted: 3}, last)

	codes, err := f.db.TypeCodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Pending", codes[1].Label)
}

func TestWorker_ImportFile_SkipsMalformed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := NewWorker(f.opener(), &importer.MT940Parser{}, "", quiet)

	res, err := w.ImportFile(ctx, f.db, f.account.ID, testdata("malformed.sta"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, []string{"NCHG"}, res.NewCodes)
}

func TestSchedule_GroupsByAccount(t *testing.T) {
	a := model.BankAccount{ID: 1, Name: "A"}
	b := model.BankAccount{ID: 2, Name: "B"}
	s := &Session{}
	batches := s.Schedule([]accounts.Assignment{
		{File: "1.sta", Account: b},
		{File: "2.sta", Account: a},
		{File: "3.sta", Account: b},
		{File: "4.sta", Account: a},
	})

	require.Len(t, batches, 2)
	assert.Equal(t, "B", batches[0].Account.Name)
	assert.Equal(t, []string{"1.sta", "3.sta"}, batches[0].Files)
	assert.Equal(t, "A", batches[1].Account.Name)
	assert.Equal(t, []string{"2.sta", "4.sta"}, batches[1].Files)
	assert.NotEqual(t, batches[0].ID, batches[1].ID)

	first, ok := s.Queue.Pop()
	require.True(t, ok)
	assert.Equal(t, batches[0].ID, first.ID)
	assert.Equal(t, 1, s.Queue.Len())
	assert.Equal(t, 1, s.Queue.Clear())
	_, ok = s.Queue.Pop()
	assert.False(t, ok)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "State(9)", State(9).String())
}
