package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Documents are schemaless, so every reader below accepts the handful of
// shapes a value is known to take and falls back to the zero value.

func str(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

func num(data map[string]any, key string) float64 {
	f, _ := toFloat(data[key])
	return f
}

func integer(data map[string]any, key string) int {
	return int(num(data, key))
}

func strList(data map[string]any, key string) []string {
	switch v := data[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// toTime accepts time.Time, RFC3339 / YYYY-MM-DD strings and the
// {seconds, nanoseconds} object form a serialized store timestamp takes.
func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), !x.IsZero()
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return toTime(*x)
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	case map[string]any:
		sec, ok := toFloat(x["seconds"])
		if !ok {
			sec, ok = toFloat(x["_seconds"])
		}
		if !ok {
			return time.Time{}, false
		}
		nsec, _ := toFloat(x["nanoseconds"])
		if nsec == 0 {
			nsec, _ = toFloat(x["_nanoseconds"])
		}
		return time.Unix(int64(sec), int64(nsec)).UTC(), true
	}
	return time.Time{}, false
}

func timestamp(data map[string]any, key string) time.Time {
	t, _ := toTime(data[key])
	return t
}
