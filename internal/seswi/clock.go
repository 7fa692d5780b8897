package seswi

import "time"

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// epochMillis converts t to JavaScript-style epoch milliseconds.
func epochMillis(t time.Time) int64 {
	return t.UnixMilli()
}
