// Package features derives model inputs from a timestamp and a cabin id.
package features

import (
	"fmt"
	"time"
)

// Column names shared with the model artifacts.
const (
	CabinNo     = "Cabin_No"
	Hour        = "hour"
	DayOfWeek   = "dayofweek"
	Quarter     = "quarter"
	Month       = "month"
	DayOfYear   = "dayofyear"
	DayOfMonth  = "dayofmonth"
	WeekOfYear  = "weekofyear"
	IduStatus   = "Idu_Status"
	Temperature = "Temperature"
	FanSpeed    = "FanSpeed"
)

// Vector is a named numeric feature record. Values are never mutated in place;
// With returns a copy.
type Vector map[string]float64

// Extract returns the calendar features of t for cabin. dayofweek counts
// Monday as 0 and weekofyear is the ISO-8601 week number.
func Extract(t time.Time, cabin int) Vector {
	_, week := t.ISOWeek()
	return Vector{
		CabinNo:    float64(cabin),
		Hour:       float64(t.Hour()),
		DayOfWeek:  float64((int(t.Weekday()) + 6) % 7),
		Quarter:    float64((int(t.Month())-1)/3 + 1),
		Month:      float64(t.Month()),
		DayOfYear:  float64(t.YearDay()),
		DayOfMonth: float64(t.Day()),
		WeekOfYear: float64(int32(week)),
	}
}

// With returns a copy of v with name set to value.
func (v Vector) With(name string, value float64) Vector {
	out := make(Vector, len(v)+1)
	for k, x := range v {
		out[k] = x
	}
	out[name] = value
	return out
}

// Select returns the values of names in order.
func (v Vector) Select(names []string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		x, ok := v[name]
		if !ok {
			return nil, fmt.Errorf("feature %q not present", name)
		}
		out[i] = x
	}
	return out, nil
}
