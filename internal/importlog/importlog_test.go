package importlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/mt940import/internal/batch"
	"github.com/cleared-dev/mt940import/internal/model"
)

var testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp: testTime,
		Batch:     "0b6f7c1e-7d8a-4f7e-9a55-2f7f2b9a1c11",
		Account:   "Operating",
		Files:     2,
		Inserted:  3,
		Ignored:   1,
		Status:    StatusSucceeded,
	}
}

func TestAppend_NewFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Operating", entries[0].Account)
	assert.Equal(t, 3, entries[0].Inserted)
}

func TestAppend_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	e2 := testEntry()
	e2.Account = "Savings"
	e2.Status = StatusFailed
	e2.Error = "opening database: locked, retry later"
	require.NoError(t, Append(dir, []Entry{e2}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Operating", entries[0].Account)
	assert.Equal(t, "Savings", entries[1].Account)
	assert.Equal(t, "opening database: locked, retry later", entries[1].Error)

	data, err := os.ReadFile(filepath.Join(dir, "logs", "import-log.csv"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), Header))
}

func TestRead_NotFound(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRead_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logs", "import-log.csv"), []byte(Header+"\n"), 0o644))

	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestUnmarshalEntry_Errors(t *testing.T) {
	_, err := UnmarshalEntry([]string{"one", "two"})
	assert.ErrorContains(t, err, "expected 8 fields")

	row := MarshalEntry(testEntry())
	row[colInserted] = "many"
	_, err = UnmarshalEntry(row)
	assert.ErrorContains(t, err, `parsing count "many"`)

	row = MarshalEntry(testEntry())
	row[colTime] = "yesterday"
	_, err = UnmarshalEntry(row)
	assert.ErrorContains(t, err, "parsing timestamp")
}

func TestTimestampFormat(t *testing.T) {
	row := MarshalEntry(testEntry())
	assert.Equal(t, "2025-01-15T10:30:00Z", row[colTime])
	assert.Equal(t, "2", row[colFiles])
}

func TestRecorder(t *testing.T) {
	dir := t.TempDir()
	rec := Recorder{Root: dir, Now: func() time.Time { return testTime }}

	b := batch.ImportBatch{ID: "b-1", Account: model.BankAccount{ID: 1, Name: "Operating"}, Files: []string{"a.sta"}}
	require.NoError(t, rec.Record(batch.Result{Batch: b, Inserted: 3, Succeeded: true}))
	require.NoError(t, rec.Record(batch.Result{Batch: b, Err: "import canceled"}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Timestamp: testTime, Batch: "b-1", Account: "Operating", Files: 1, Inserted: 3, Status: StatusSucceeded}, entries[0])
	assert.Equal(t, StatusFailed, entries[1].Status)
	assert.Equal(t, "import canceled", entries[1].Error)
}
