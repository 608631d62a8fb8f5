package chrono

import (
	"time"
)

var eastern *time.Location

func init() {
	var err error
	eastern, err = time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
}

// Eastern returns a [*time.Location] for America/New_York, the timezone the mint reports in.
func Eastern() *time.Location {
	return eastern
}

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time, the timezone of the time will default to America/New_York.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

// NewStandardTime is the constructor of StandardTime.
func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (StandardTime) Now() time.Time {
	return time.Now().In(eastern)
}

// Fixed is a TimeAPI that always returns the same instant, used in tests.
type Fixed time.Time

func (f Fixed) Now() time.Time {
	return time.Time(f)
}
