package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, WARN, level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger("octree", dir)
	require.NoError(t, err)
	logger.SetLevels(ERROR, DEBUG)

	logger.Trace("не попадет в файл")
	logger.Debug("узлов: %d", 15)
	require.NoError(t, logger.Close())

	files, err := filepath.Glob(filepath.Join(dir, "octree_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.Contains(content, "[DEBUG] [octree] узлов: 15"), "в файле: %s", content)
	assert.False(t, strings.Contains(content, "не попадет"))
}

func TestManagerReusesLoggers(t *testing.T) {
	lm := &LoggerManager{loggers: make(map[string]*Logger)}
	a, err := lm.GetLogger("storage")
	require.NoError(t, err)
	b := lm.MustGetLogger("storage")
	assert.Same(t, a, b)

	require.NoError(t, lm.SetLogLevel("storage", ERROR, ERROR))
	assert.Error(t, lm.SetLogLevel("missing", ERROR, ERROR))
	assert.Equal(t, []string{"storage"}, lm.ListComponents())
	assert.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.ListComponents())
}

func TestHexDump(t *testing.T) {
	assert.Equal(t, "No data", HexDump(nil))
	assert.Contains(t, HexDump([]byte{0xAB, 0xCD}), "ab cd")
}
