package finance

import (
	"sync"
	"time"
)

var (
	marketLocOnce sync.Once
	marketLoc     *time.Location
)

// marketTime is the exchange calendar used to bucket trading days.
// Falls back to fixed EST when tzdata is not installed.
func marketTime() *time.Location {
	marketLocOnce.Do(func() {
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			loc = time.FixedZone("EST", -5*3600)
		}
		marketLoc = loc
	})
	return marketLoc
}

// tradingDay truncates a unix timestamp to midnight of its exchange-local date.
func tradingDay(ts int64) time.Time {
	t := time.Unix(ts, 0).In(marketTime())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, marketTime())
}
