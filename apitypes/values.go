package apitypes

import (
	"fmt"
	"time"
)

// Date is a calendar date with a UTC offset.
type Date struct {
	Year   int        `json:"year"`
	Month  time.Month `json:"month"`
	Day    int        `json:"day"`
	Offset int        `json:"offset"`
}

func (d Date) String() string { return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day) }

// Time converts the date to midnight in its own offset.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.FixedZone("", d.Offset))
}

// TimeOfDay is a wall clock time with a UTC offset.
type TimeOfDay struct {
	Hour       int `json:"hour"`
	Minute     int `json:"minute"`
	Second     int `json:"second"`
	Nanosecond int `json:"nanosecond"`
	Offset     int `json:"offset"`
}

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second) }

// MapSlice converts every element of in with fn.
func MapSlice[T, U any](in []T, fn func(T) U) []U {
	if in == nil {
		return nil
	}
	out := make([]U, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}

// Time converts the time of day to that wall clock time on the zero date.
func (t TimeOfDay) Time() time.Time {
	return time.Date(0, 1, 1, t.Hour, t.Minute, t.Second, t.Nanosecond, time.FixedZone("", t.Offset))
}

// MustTime parses a threshold baked into generated code. It panics on a
// malformed value, which generation has already ruled out.
func MustTime(layout, value string) time.Time {
	t, err := time.Parse(layout, value)
	if err != nil {
		panic(fmt.Sprintf("apitypes: threshold %q: %v", value, err))
	}
	return t
}
