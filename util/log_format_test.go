package util

import (
	"errors"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formatEntry(t *testing.T, formatter log.Formatter, level log.Level, message string, fields log.Fields) string {
	entry := log.NewEntry(log.StandardLogger()).WithFields(fields)
	entry.Time = time.Date(2024, 3, 7, 14, 5, 9, 0, time.UTC)
	entry.Level = level
	entry.Message = message
	output, err := formatter.Format(entry)
	require.NoError(t, err)
	return string(output)
}

func TestTagFormatterUsesTag(t *testing.T) {
	output := formatEntry(t, &TagFormatter{}, log.InfoLevel, "Alive", log.Fields{TagField: TagModemCheck})
	assert.Equal(t, "[07/03/2024, 14:05:09][MODEM_CHECK] Alive\n", output)
}

func TestTagFormatterFallsBackToLevel(t *testing.T) {
	output := formatEntry(t, &TagFormatter{}, log.WarnLevel, "Failed to read status", nil)
	assert.Equal(t, "[07/03/2024, 14:05:09][WARNING] Failed to read status\n", output)
}

func TestTagFormatterAppendsSortedFields(t *testing.T) {
	output := formatEntry(t, &TagFormatter{TimestampFormat: time.RFC3339}, log.ErrorLevel, "Cycle failed", log.Fields{
		"state":      "LoggingIn",
		log.ErrorKey: errors.New("authentication failed"),
	})
	assert.Equal(t, "[2024-03-07T14:05:09Z][ERROR] Cycle failed error=authentication failed state=LoggingIn\n", output)
}

func TestTagged(t *testing.T) {
	entry := Tagged(TagLogin)
	assert.Equal(t, TagLogin, entry.Data[TagField])
}
