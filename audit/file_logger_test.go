package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLoggerWritesJSONL(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")

	logger, err := NewFileLogger(&Config{
		Enabled: true,
		Type:    FileAuditType,
		Options: map[string]interface{}{"file_path": logPath},
	})
	require.NoError(t, err)

	require.NoError(t, logger.Log("store_secret", true, map[string]interface{}{"service": "github"}))
	require.NoError(t, logger.Log("unlock", false, map[string]interface{}{"error": "authentication failed"}))
	require.NoError(t, logger.Close())

	f, err := os.Open(logPath)
	require.NoError(t, err)
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev), "Each line should be a JSON event")
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, events, 2)
	assert.Equal(t, "store_secret", events[0].Action)
	assert.True(t, events[0].Success)
	assert.Equal(t, "github", events[0].Service)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())

	assert.Equal(t, "unlock", events[1].Action)
	assert.False(t, events[1].Success)
	assert.Equal(t, "authentication failed", events[1].Error)
}

func TestNewLoggerDisabledReturnsNoOp(t *testing.T) {
	logger, err := NewLogger(nil)
	require.NoError(t, err)
	assert.IsType(t, &NoOpLogger{}, logger)

	logger, err = NewLogger(&Config{Enabled: false, Type: FileAuditType})
	require.NoError(t, err)
	assert.IsType(t, &NoOpLogger{}, logger)
}

func TestNewLoggerUnknownProvider(t *testing.T) {
	_, err := NewLogger(&Config{Enabled: true, Type: "syslog2"})
	assert.Error(t, err)
}
