package candle

import "time"

// SecondsNanos mirrors the {seconds, nanos}-shaped timestamp that some
// upstream trace envelopes carry instead of a native instant (the shape
// protobuf's well-known Timestamp type serializes to on the wire).
type SecondsNanos struct {
	Seconds int64
	Nanos   int32
}

var tsLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Normalize converts a heterogeneous raw timestamp value — native
// time.Time, int/int64/float64 epoch, ISO-ish string, or SecondsNanos (also
// as the map[string]any a {"seconds", "nanos"} JSON object decodes to) —
// into a UTC instant. The second return value is false when raw cannot be
// interpreted as a timestamp, in which case the caller must skip any gate
// that requires one.
func Normalize(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), true
	case int64:
		return epochToTime(float64(v)).UTC(), true
	case int:
		return epochToTime(float64(v)).UTC(), true
	case float64:
		return epochToTime(v).UTC(), true
	case SecondsNanos:
		return time.Unix(v.Seconds, int64(v.Nanos)).UTC(), true
	case map[string]any:
		secs, ok := v["seconds"].(float64)
		if !ok {
			return time.Time{}, false
		}
		nanos, _ := v["nanos"].(float64)
		return time.Unix(int64(secs), int64(nanos)).UTC(), true
	case string:
		return parseTimeString(v)
	default:
		return time.Time{}, false
	}
}

// epochToTime interprets an epoch value that may be expressed in seconds,
// milliseconds, microseconds, or nanoseconds depending on magnitude, matching the leeway
// the upstream producer's mixed emitters require.
func epochToTime(v float64) time.Time {
	switch {
	case v > 1e17: // nanoseconds
		return time.Unix(0, int64(v))
	case v > 1e14: // microseconds
		return time.Unix(0, int64(v*1e3))
	case v > 1e11: // milliseconds
		return time.Unix(0, int64(v*1e6))
	default: // seconds
		sec := int64(v)
		nsec := int64((v - float64(sec)) * 1e9)
		return time.Unix(sec, nsec)
	}
}

func parseTimeString(s string) (time.Time, bool) {
	for _, layout := range tsLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
