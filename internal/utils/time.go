package utils

import "time"

// LoadLocation resolves an IANA timezone name, falling back to UTC for an
// empty or unknown name. Callers never need to handle a resolution error.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LocalHour returns the hour [0,24) of the instant in the given location.
// All time-of-day bucketing must go through here so bucket boundaries and
// rendered timestamps can never disagree.
func LocalHour(t time.Time, loc *time.Location) int {
	return t.In(loc).Hour()
}

// LocalTimeString renders an instant for human-readable prompt output in
// the given location.
func LocalTimeString(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02 15:04")
}
