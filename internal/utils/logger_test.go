package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewLogger(&LogCfg{
		LogLevel: "debug",
		LogDir:   tmpDir,
		LogFile:  "test.log",
	})

	assert.NoError(t, err)
	assert.NotNil(t, logger)

	err = logger.Close()
	assert.NoError(t, err)
}

func TestLogger_Info(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewLogger(&LogCfg{
		LogLevel: "info",
		LogDir:   tmpDir,
		LogFile:  "info.log",
	})
	require.NoError(t, err)
	defer logger.Close()

	testMsg := "test info message"
	logger.Info(testMsg)

	time.Sleep(10 * time.Millisecond)

	logFile := filepath.Join(tmpDir, "info.log")
	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), testMsg)
}

func TestLogger_InfoWithArgs(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewLogger(&LogCfg{
		LogLevel: "debug",
		LogDir:   tmpDir,
		LogFile:  "info_args.log",
	})
	require.NoError(t, err)
	defer logger.Close()

	logger.Info("synthesized %d bytes with %s", 1024, "turbo")

	time.Sleep(10 * time.Millisecond)

	content, err := os.ReadFile(filepath.Join(tmpDir, "info_args.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "synthesized 1024 bytes with turbo")
}

func TestLogger_DebugSuppressedAtInfoLevel(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewLogger(&LogCfg{
		LogLevel: "info",
		LogDir:   tmpDir,
		LogFile:  "quiet.log",
	})
	require.NoError(t, err)
	defer logger.Close()

	logger.Debug("should not appear")

	time.Sleep(10 * time.Millisecond)

	content, err := os.ReadFile(filepath.Join(tmpDir, "quiet.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(content), "should not appear")
}

func TestLogger_Tagged(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewLogger(&LogCfg{
		LogLevel: "info",
		LogDir:   tmpDir,
		LogFile:  "tag.log",
	})
	require.NoError(t, err)
	defer logger.Close()

	logger.InfoTag("Model", "loaded %s", "multilingual")

	time.Sleep(10 * time.Millisecond)

	content, err := os.ReadFile(filepath.Join(tmpDir, "tag.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "[Model] loaded multilingual")
}

func TestFormatLog(t *testing.T) {
	assert.Equal(t, "[Boot] started", FormatLog("Boot", "started"))
	assert.Equal(t, "[HTTP] already tagged", FormatLog("Boot", "[HTTP] already tagged"))
	assert.Equal(t, "untagged", FormatLog("", "untagged"))
}
