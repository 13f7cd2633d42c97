package ports

import "time"

// Clock supplies the current time. A zero time means the clock is unavailable.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
