package cookie

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCookiesDirCreatesDirectoryLazily(t *testing.T) {
	c := New(t.TempDir(), nil)

	dir, err := c.UserCookiesDir("acct-1")
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestDispatchCopiesSourceIntoDestCookieFile(t *testing.T) {
	c := New(t.TempDir(), nil)
	root := t.TempDir()

	source := filepath.Join(root, "source.json")
	require.NoError(t, os.WriteFile(source, []byte(`{"a":1}`), 0o644))
	dest := filepath.Join(root, "sidecar")
	require.NoError(t, os.Mkdir(dest, 0o755))

	require.NoError(t, c.Dispatch(source, dest))

	data, err := os.ReadFile(filepath.Join(dest, cookieFileName))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
}

func TestDispatchRejectsEmptySource(t *testing.T) {
	c := New(t.TempDir(), nil)
	root := t.TempDir()

	source := filepath.Join(root, "empty.json")
	require.NoError(t, os.WriteFile(source, nil, 0o644))
	dest := filepath.Join(root, "sidecar")
	require.NoError(t, os.Mkdir(dest, 0o755))

	assert.Error(t, c.Dispatch(source, dest))
}

func TestDispatchRejectsMissingDestDir(t *testing.T) {
	c := New(t.TempDir(), nil)
	root := t.TempDir()

	source := filepath.Join(root, "source.json")
	require.NoError(t, os.WriteFile(source, []byte(`x`), 0o644))

	assert.Error(t, c.Dispatch(source, filepath.Join(root, "missing")))
}

func TestClearRemovesCookieFileAndToleratesAbsence(t *testing.T) {
	c := New(t.TempDir(), nil)
	dest := t.TempDir()

	require.NoError(t, c.Clear(dest))

	path := filepath.Join(dest, cookieFileName)
	require.NoError(t, os.WriteFile(path, []byte(`x`), 0o644))
	require.NoError(t, c.Clear(dest))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestCloseTaskCopiesBackThenRemovesSidecarCopy(t *testing.T) {
	root := t.TempDir()
	c := New(root, nil)
	dest := t.TempDir()

	sidecarCopy := filepath.Join(dest, cookieFileName)
	require.NoError(t, os.WriteFile(sidecarCopy, []byte(`{"b":2}`), 0o644))

	c.CloseTask("acct-2", dest)

	userDir, err := c.UserCookiesDir("acct-2")
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(userDir, cookieFileName))
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, string(data))

	_, err = os.Stat(sidecarCopy)
	assert.True(t, os.IsNotExist(err))
}

func TestCloseTaskIsNoOpWhenSidecarCopyAbsent(t *testing.T) {
	c := New(t.TempDir(), nil)
	dest := t.TempDir()

	c.CloseTask("acct-3", dest)
}
