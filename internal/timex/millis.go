package timex

import "time"

// ToMillis converts t to Unix milliseconds. The zero time maps to 0.
func ToMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromMillis converts Unix milliseconds to a UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// SinceFromMillis turns an optional client watermark into a since bound.
// A missing or non-positive watermark means "never synced" and yields nil.
func SinceFromMillis(ms *int64) *time.Time {
	if ms == nil || *ms <= 0 {
		return nil
	}
	t := FromMillis(*ms)
	return &t
}

// Clock returns the current server time.
type Clock func() time.Time

// MillisClock is the default clock. Times are truncated to whole
// milliseconds so that stored timestamps compare exactly against the
// millisecond watermarks clients send back.
func MillisClock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
