package backend

import (
	"encoding/json"
	"strconv"
	"time"
)

// isoLayouts are timestamp shapes seen across the backends. Coralogix emits
// nanosecond precision without a zone suffix, e.g. "2025-09-21T09:59:32.100026178".
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// EpochMillis normalizes a backend-reported timestamp to epoch milliseconds.
// Numbers are taken as epoch milliseconds; strings may be numeric or ISO-8601
// (zone suffix optional, assumed UTC when absent). Returns (0, false) when the
// value cannot be interpreted, and callers fall back to the current time.
func EpochMillis(v any) (int64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return int64(t), true
	case int64:
		return t, true
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, true
		}
		if f, err := t.Float64(); err == nil {
			return int64(f), true
		}
		return 0, false
	case string:
		if t == "" {
			return 0, false
		}
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n, true
		}
		for _, layout := range isoLayouts {
			if ts, err := time.ParseInLocation(layout, t, time.UTC); err == nil {
				return ts.UnixMilli(), true
			}
		}
	}
	return 0, false
}
