package logging

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// formatJSON renders one entry as a JSON line
func formatJSON(now time.Time, level Level, msg string, err error, fields Fields) ([]byte, error) {
	entry := make(map[string]interface{}, len(fields)+4)
	for k, v := range fields {
		entry[k] = v
	}
	entry["timestamp"] = now.UTC().Format(time.RFC3339)
	entry["level"] = LevelString(level)
	entry["message"] = msg
	if err != nil {
		entry["error"] = err.Error()
	}

	data, jsonErr := json.Marshal(entry)
	if jsonErr != nil {
		return nil, jsonErr
	}
	return append(data, '\n'), nil
}

// formatText renders one entry as a key=value line; fields are sorted by key
func formatText(now time.Time, level Level, msg string, err error, fields Fields, withTime bool) []byte {
	var b strings.Builder
	if withTime {
		b.WriteString(now.UTC().Format("2006-01-02T15:04:05.000Z"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "[%s] %s", LevelString(level), msg)

	if err != nil {
		fmt.Fprintf(&b, " error=%q", err.Error())
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}

	b.WriteByte('\n')
	return []byte(b.String())
}
