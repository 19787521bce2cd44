package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("test message", slog.String("key", "value"))
		logger.Error("error message", slog.Int("code", 500))

		assert.Len(t, handler.GetRecords(), 2)
		assert.True(t, handler.ContainsMessage("test message"))
		assert.True(t, handler.ContainsAttr("key", "value"))
		assert.True(t, handler.ContainsAttr("code", int64(500)))
	})

	t.Run("filters by level and message", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")
		logger.Error("error msg")

		assert.Len(t, handler.GetRecordsByLevel(slog.LevelInfo), 1)
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)
		assert.Len(t, handler.GetRecordsByMessage("msg"), 4)
	})

	t.Run("derived loggers share records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With(slog.String("step", "impute")).WithGroup("table").Info("loaded", slog.Int("rows", 6))

		records := handler.GetRecords()
		require.Len(t, records, 1)
		assert.Equal(t, "impute", records[0].Attrs["step"])
		assert.Equal(t, int64(6), records[0].Attrs["table.rows"])
	})

	t.Run("clear", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("message 1")
		logger.Info("message 2")
		assert.Equal(t, 2, handler.Count())

		handler.Clear()
		assert.Equal(t, 0, handler.Count())
	})
}

func TestAssertHelpers(t *testing.T) {
	logger, handler := NewTestLogger(t)
	logger.Warn("Child count is below the number of recorded children", slog.Int("family_id", 205))

	AssertLogContains(t, handler, slog.LevelWarn, "Child count")
	AssertLogAttr(t, handler, "family_id", int64(205))
	AssertNoErrors(t, handler)
}

func TestSampleMaster(t *testing.T) {
	rows := strings.Split(strings.TrimSpace(SampleMaster), "\n")
	require.Len(t, rows, 6)
	for _, row := range rows {
		assert.Len(t, strings.Split(row, ","), 23)
	}

	path := WriteFile(t, filepath.Join(t.TempDir(), "raw", "master.csv"), SampleMaster)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, SampleMaster, string(data))
}
