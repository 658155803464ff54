package util

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

// TagField - Log field holding the operator-facing tag of a line (e.g. "MODEM_CHECK").
const TagField = "tag"

// Operator-facing tags.
const (
	TagInfo       = "INFO"
	TagModemCheck = "MODEM_CHECK"
	TagRestart    = "RESTART"
	TagLogin      = "Login"
	TagLogout     = "Logout"
)

// DefaultTagTimestampFormat - Day first, as the operators are used to.
const DefaultTagTimestampFormat = "02/01/2006, 15:04:05"

// TagFormatter - Formats entries as "[<timestamp>][<TAG>] <message>", followed by any other fields.
// Entries without a tag use the upper-cased level.
type TagFormatter struct {
	TimestampFormat string
}

// Tagged - Entry carrying the given tag.
func Tagged(tag string) *log.Entry {
	return log.WithField(TagField, tag)
}

// Format - Implements logrus.Formatter.
func (formatter *TagFormatter) Format(entry *log.Entry) ([]byte, error) {
	timestampFormat := formatter.TimestampFormat
	if timestampFormat == "" {
		timestampFormat = DefaultTagTimestampFormat
	}

	tag := strings.ToUpper(entry.Level.String())
	if rawTag, ok := entry.Data[TagField]; ok {
		tag = fmt.Sprint(rawTag)
	}

	var buffer bytes.Buffer
	fmt.Fprintf(&buffer, "[%s][%s] %s", entry.Time.Format(timestampFormat), tag, entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for key := range entry.Data {
		if key != TagField {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := entry.Data[key]
		if err, ok := value.(error); ok {
			value = err.Error()
		}
		fmt.Fprintf(&buffer, " %s=%v", key, value)
	}
	buffer.WriteByte('\n')

	return buffer.Bytes(), nil
}
