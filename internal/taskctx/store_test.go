package taskctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateNewThenLoadRoundTrips(t *testing.T) {
	s := NewStore(t.TempDir(), nil)

	doc, err := s.CreateNew("t1", map[string]any{"source": "initial"})
	require.NoError(t, err)
	assert.Equal(t, "t1", doc.TaskID)

	loaded, err := s.Load("t1")
	require.NoError(t, err)
	assert.Equal(t, "initial", loaded.Meta["source"])
}

func TestCreateNewRefusesToOverwriteExistingDocument(t *testing.T) {
	s := NewStore(t.TempDir(), nil)
	require.NoError(t, mustCreate(t, s, "t1", map[string]any{"v": 1}))

	doc, err := s.CreateNew("t1", map[string]any{"v": 2})
	require.NoError(t, err)
	assert.EqualValues(t, 1, doc.Meta["v"])
}

func TestLoadUnknownTaskReturnsErrNotFound(t *testing.T) {
	s := NewStore(t.TempDir(), nil)
	_, err := s.Load("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNextStepIsMonotonicAndPersisted(t *testing.T) {
	s := NewStore(t.TempDir(), nil)
	require.NoError(t, mustCreate(t, s, "t1", nil))

	first, err := s.NextStep("t1")
	require.NoError(t, err)
	second, err := s.NextStep("t1")
	require.NoError(t, err)
	assert.Equal(t, first+1, second)
}

func TestUpdateMetaMergesFields(t *testing.T) {
	s := NewStore(t.TempDir(), nil)
	require.NoError(t, mustCreate(t, s, "t1", map[string]any{"a": 1}))

	doc, err := s.UpdateMeta("t1", map[string]any{"b": 2})
	require.NoError(t, err)
	assert.EqualValues(t, 1, doc.Meta["a"])
	assert.EqualValues(t, 2, doc.Meta["b"])
}

func TestGetResolvesDotSeparatedMetaPath(t *testing.T) {
	s := NewStore(t.TempDir(), nil)
	require.NoError(t, mustCreate(t, s, "t1", map[string]any{
		"profile": map[string]any{"name": "xhs-bot"},
	}))

	v, err := s.Get("t1", "profile.name", nil)
	require.NoError(t, err)
	assert.Equal(t, "xhs-bot", v)
}

func TestPurgeRemovesDocument(t *testing.T) {
	s := NewStore(t.TempDir(), nil)
	require.NoError(t, mustCreate(t, s, "t1", nil))
	require.NoError(t, s.Purge("t1"))

	_, err := s.Load("t1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func mustCreate(t *testing.T, s *Store, taskID string, meta map[string]any) error {
	t.Helper()
	_, err := s.CreateNew(taskID, meta)
	return err
}
