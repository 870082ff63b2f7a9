package clock

import "time"

//go:generate mockgen -package=mocks -destination=mocks/mock_clock.go github.com/KirkDiggler/mentorlink/internal/common/clock Clock

// Clock abstracts the current time so booking windows can be tested
type Clock interface {
	Now() time.Time
}

// UTCClock reads the system clock normalized to UTC
type UTCClock struct{}

// New returns the system clock
func New() *UTCClock {
	return &UTCClock{}
}

// Now returns the current time in UTC
func (c *UTCClock) Now() time.Time {
	return time.Now().UTC()
}
