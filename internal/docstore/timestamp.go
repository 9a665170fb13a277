package docstore

import (
	"fmt"
	"time"
)

// timeLayout is fixed width and always UTC, so encoded timestamps sort
// lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// ParseTime decodes every timestamp shape found in stored documents: the
// canonical string, any RFC 3339 string, a {seconds, nanoseconds} map and a
// number of unix seconds.
func ParseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case string:
		if ts, err := time.Parse(timeLayout, t); err == nil {
			return ts, nil
		}
		ts, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", t, err)
		}
		return ts.UTC(), nil
	case map[string]any:
		secs, ok := toFloat(t["seconds"])
		if !ok {
			return time.Time{}, fmt.Errorf("timestamp map without seconds")
		}
		nanos, _ := toFloat(t["nanoseconds"])
		return time.Unix(int64(secs), int64(nanos)).UTC(), nil
	case nil:
		return time.Time{}, nil
	}
	if secs, ok := toFloat(v); ok {
		return time.Unix(int64(secs), 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
}
