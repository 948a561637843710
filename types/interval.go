package types

import "fmt"

// Interval is the spacing between recurring DCA buys.
type Interval string

const (
	Daily    Interval = "daily"
	Weekly   Interval = "weekly"
	Biweekly Interval = "biweekly"
	Monthly  Interval = "monthly"
)

var IntervalToDays = map[Interval]int{
	Daily:    1,
	Weekly:   7,
	Biweekly: 14,
	Monthly:  30,
}

// Intervals lists the supported DCA intervals, shortest first.
var Intervals = []Interval{Daily, Weekly, Biweekly, Monthly}

func ParseInterval(s string) (Interval, error) {
	i := Interval(s)
	if _, ok := IntervalToDays[i]; !ok {
		return "", fmt.Errorf("unknown interval %q", s)
	}
	return i, nil
}
