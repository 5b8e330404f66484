package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"adgen/internal/logging"
)

// Entry is one decoded JSON log line.
type Entry struct {
	Time      string
	Level     string
	Message   string
	Component string
	JobID     string
	Stage     string
	Fields    map[string]any
	Raw       string
}

// ParseEntry decodes a JSON log line. Lines that are not JSON objects come
// back as a message-only entry.
func ParseEntry(line string) Entry {
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return Entry{Message: line, Raw: line}
	}
	e := Entry{Raw: line, Fields: fields}
	e.Time = take(fields, "ts")
	e.Level = take(fields, "level")
	e.Message = take(fields, "msg")
	e.Component = take(fields, logging.FieldComponent)
	e.JobID = take(fields, logging.FieldJobID)
	e.Stage = take(fields, logging.FieldStage)
	return e
}

func take(fields map[string]any, key string) string {
	value, ok := fields[key]
	if !ok {
		return ""
	}
	delete(fields, key)
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// Filter selects entries. Empty fields match everything.
type Filter struct {
	JobID    string
	Stage    string
	MinLevel string
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Entry) bool {
	if f.JobID != "" && e.JobID != f.JobID {
		return false
	}
	if f.Stage != "" && e.Stage != f.Stage {
		return false
	}
	if f.MinLevel != "" {
		min, ok := levelRank[strings.ToLower(f.MinLevel)]
		if ok && levelRank[strings.ToLower(e.Level)] < min {
			return false
		}
	}
	return true
}

// Format renders e as a single human-readable line.
func (e Entry) Format() string {
	if e.Fields == nil && e.Time == "" {
		return e.Raw
	}
	var b strings.Builder
	if e.Time != "" {
		b.WriteString(e.Time)
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s ", strings.ToUpper(e.Level))
	if e.Component != "" {
		fmt.Fprintf(&b, "[%s] ", e.Component)
	}
	b.WriteString(e.Message)
	if e.JobID != "" {
		fmt.Fprintf(&b, " job=%s", e.JobID)
	}
	if e.Stage != "" {
		fmt.Fprintf(&b, " stage=%s", e.Stage)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	return b.String()
}
