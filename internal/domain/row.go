package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Row is one untyped record as returned by the relational backend, keyed by
// column name. Typed entities are decoded from rows at the repository
// boundary; consumers never see a Row.
type Row map[string]any

// String returns the column as a trimmed string, "" when absent or null.
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []byte:
		return strings.TrimSpace(string(v))
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Float returns the column as a number. ok is false when the value is
// absent, null or not numeric.
func (r Row) Float(col string) (float64, bool) {
	switch v := r[col].(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		s := r.String(col)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
}

// Bool interprets the column as a flag. Missing or unparseable values are
// false.
func (r Row) Bool(col string) bool {
	switch v := r[col].(type) {
	case nil:
		return false
	case bool:
		return v
	}
	if f, ok := r.Float(col); ok {
		return f != 0
	}
	switch strings.ToLower(r.String(col)) {
	case "yes", "y", "true", "t":
		return true
	}
	return false
}

// Date returns the column as a UTC calendar date.
func (r Row) Date(col string) (time.Time, bool) {
	if t, ok := r[col].(time.Time); ok {
		return CalendarDate(t), true
	}
	s := r.String(col)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return CalendarDate(t), true
		}
	}
	return time.Time{}, false
}

// CalendarDate truncates t to midnight UTC of its calendar date.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Columns returns the names of the columns whose name starts with prefix.
func (r Row) Columns(prefix string) []string {
	var cols []string
	for k := range r {
		if strings.HasPrefix(k, prefix) {
			cols = append(cols, k)
		}
	}
	return cols
}
