package tabfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTab(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tab")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestReadSkipsBlanksAndComments(t *testing.T) {
	t.Parallel()

	path := writeTab(t, "# a comment\n\n* * * * * echo one\n   \n# another\n*/5 * * * * echo two\n")
	lines, err := Read(path)
	require.NoError(t, err)

	require.Len(t, lines, 2)
	assert.Equal(t, Line{Number: 3, Text: "* * * * * echo one"}, lines[0])
	assert.Equal(t, Line{Number: 6, Text: "*/5 * * * * echo two"}, lines[1])
}

func TestReadTrimsLeadingWhitespace(t *testing.T) {
	t.Parallel()

	path := writeTab(t, "   * * * * * echo hi\n")
	lines, err := Read(path)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "* * * * * echo hi", lines[0].Text)
}

func TestReadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Read(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestReadEmptyFile(t *testing.T) {
	t.Parallel()

	path := writeTab(t, "")
	lines, err := Read(path)
	require.NoError(t, err)
	assert.Empty(t, lines)
}
