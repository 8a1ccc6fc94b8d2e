package atomicfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileCreatesAndReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "es.json")

	require.NoError(t, WriteFile(path, []byte("one\n"), 0o644))
	require.NoError(t, WriteFile(path, []byte("two\n"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteFileFallsBackWhenRenameFails(t *testing.T) {
	old := rename
	rename = func(string, string) error { return errors.New("cross-device link") }
	t.Cleanup(func() { rename = old })

	dir := t.TempDir()
	path := filepath.Join(dir, "fr.json")

	require.NoError(t, WriteFile(path, []byte("{}\n"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFileFailsWhenFallbackFails(t *testing.T) {
	old := rename
	rename = func(string, string) error { return errors.New("rename refused") }
	t.Cleanup(func() { rename = old })

	dir := t.TempDir()
	path := filepath.Join(dir, "de.json")
	// A directory in place of the target file makes the direct write fail.
	require.NoError(t, os.Mkdir(path, 0o755))

	err := WriteFile(path, []byte("{}\n"), 0o644)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rename refused")
}
