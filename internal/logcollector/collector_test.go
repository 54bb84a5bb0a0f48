package logcollector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddLogThenGetLogsReturnsChronologicalOrder(t *testing.T) {
	c := New(t.TempDir(), 0, nil)
	base := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

	require.NoError(t, c.AddLog(Entry{Timestamp: base, Level: LevelInfo, TaskID: "t1", BindType: TaskLogBindType, Message: "first"}))
	require.NoError(t, c.AddLog(Entry{Timestamp: base.Add(time.Second), Level: LevelInfo, TaskID: "t1", BindType: TaskLogBindType, Message: "second"}))

	entries, err := c.GetLogs("t1", TaskLogBindType, GetLogsFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, "second", entries[1].Message)
}

func TestAddLogTruncatesToMaxEntries(t *testing.T) {
	c := New(t.TempDir(), 3, nil)
	base := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, c.AddLog(Entry{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Level:     LevelInfo,
			TaskID:    "t1",
			BindType:  TaskLogBindType,
			Message:   "line",
		}))
	}

	entries, err := c.GetLogs("t1", TaskLogBindType, GetLogsFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestGetLogsFiltersByMinimumLevel(t *testing.T) {
	c := New(t.TempDir(), 0, nil)
	base := time.Now().UTC()

	require.NoError(t, c.AddLog(Entry{Timestamp: base, Level: LevelDebug, TaskID: "t1", BindType: TaskLogBindType, Message: "debug"}))
	require.NoError(t, c.AddLog(Entry{Timestamp: base.Add(time.Second), Level: LevelError, TaskID: "t1", BindType: TaskLogBindType, Message: "error"}))

	entries, err := c.GetLogs("t1", TaskLogBindType, GetLogsFilter{Level: LevelError})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "error", entries[0].Message)
}

func TestGetLogsFiltersBySince(t *testing.T) {
	c := New(t.TempDir(), 0, nil)
	base := time.Now().UTC()

	require.NoError(t, c.AddLog(Entry{Timestamp: base, Level: LevelInfo, TaskID: "t1", BindType: TaskLogBindType, Message: "old"}))
	require.NoError(t, c.AddLog(Entry{Timestamp: base.Add(time.Minute), Level: LevelInfo, TaskID: "t1", BindType: TaskLogBindType, Message: "new"}))

	since := base.Add(30 * time.Second)
	entries, err := c.GetLogs("t1", TaskLogBindType, GetLogsFilter{Since: &since})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].Message)
}

func TestRemoveTaskLogsClearsEntries(t *testing.T) {
	c := New(t.TempDir(), 0, nil)
	require.NoError(t, c.AddLog(Entry{Timestamp: time.Now().UTC(), Level: LevelInfo, TaskID: "t1", BindType: TaskLogBindType, Message: "x"}))
	require.NoError(t, c.RemoveTaskLogs("t1"))

	entries, err := c.GetLogs("t1", TaskLogBindType, GetLogsFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}
