package commands_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func copyStatement(t *testing.T, dir, name, as string) {
	t.Helper()
	data, err := os.ReadFile(testdataPath(t, name))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "import", as), data, 0o644))
}

func initProject(t *testing.T, withAccounts bool) string {
	t.Helper()
	dir := t.TempDir()
	args := []string{"init"}
	if withAccounts {
		args = append(args, "--accounts", testdataPath(t, "accounts.csv"))
	}
	out, err := runIn(t, dir, "", args...)
	require.NoError(t, err, out)
	return dir
}

func TestImport_Idempotent(t *testing.T) {
	dir := initProject(t, true)
	copyStatement(t, dir, "statement.sta", "jan.sta")

	out, err := runIn(t, dir, "", "import", "--yes", "--move")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Imported 3 transaction(s), ignored 0 duplicate(s)")

	// Moved out of import/ after a successful batch.
	_, err = os.Stat(filepath.Join(dir, "import", "jan.sta"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "import", "processed", "jan.sta"))
	require.NoError(t, err)

	copyStatement(t, dir, "statement.sta", "jan-again.sta")
	out, err = runIn(t, dir, "", "import", "--yes")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Imported 0 transaction(s), ignored 3 duplicate(s)")

	out, err = runIn(t, dir, "", "types", "list")
	require.NoError(t, err, out)
	assert.Contains(t, out, "X100")
	assert.Contains(t, out, "X200")
	assert.Contains(t, out, "Unclassified")

	data, err := os.ReadFile(filepath.Join(dir, "logs", "import-log.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Operating,1,3,0,succeeded")
	assert.Contains(t, string(data), "Operating,1,0,3,succeeded")
}

func TestImport_ActiveAccountSkipsPrompt(t *testing.T) {
	dir := initProject(t, true)

	// No --yes and no input: only the active-account match avoids a prompt.
	out, err := runIn(t, dir, "", "import", "--account", "operating", testdataPath(t, "statement.sta"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "Imported 3 transaction(s)")
	assert.NotContains(t, out, "Import into this account?")
}

func TestImport_InteractiveCreate(t *testing.T) {
	dir := initProject(t, false)
	copyStatement(t, dir, "statement.sta", "jan.sta")

	out, err := runIn(t, dir, "c\nOperating\nBanca Test\nRON\n", "import")
	require.NoError(t, err, out)
	assert.Contains(t, out, "is not registered")
	assert.Contains(t, out, "Imported 3 transaction(s)")

	out, err = runIn(t, dir, "", "accounts", "list")
	require.NoError(t, err, out)
	assert.Contains(t, out, "RO49AAAA1B31007593840000")
	assert.Contains(t, out, "Banca Test")
}

func TestImport_NoIdentifierPicksAccount(t *testing.T) {
	dir := initProject(t, true)
	copyStatement(t, dir, "no_identifier.sta", "cash.sta")

	// Accounts are listed by name: Operating, Petty Cash, Savings.
	out, err := runIn(t, dir, "2\n", "import")
	require.NoError(t, err, out)
	assert.Contains(t, out, "no account identifier found")
	assert.Contains(t, out, "Importing into Petty Cash")
}

func TestImport_YesSkipsUnknown(t *testing.T) {
	dir := initProject(t, false)
	copyStatement(t, dir, "statement.sta", "jan.sta")

	out, err := runIn(t, dir, "", "import", "--yes")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Nothing to import")

	_, err = os.Stat(filepath.Join(dir, "logs", "import-log.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestImport_EmptyDirectory(t *testing.T) {
	dir := initProject(t, false)
	out, err := runIn(t, dir, "", "import")
	require.NoError(t, err, out)
	assert.Contains(t, out, "No statement files to import.")
}

func TestImport_UnknownActiveAccount(t *testing.T) {
	dir := initProject(t, true)
	out, err := runIn(t, dir, "", "import", "--account", "Nope", testdataPath(t, "statement.sta"))
	require.Error(t, err)
	assert.Contains(t, out, `active account "Nope"`)
}
