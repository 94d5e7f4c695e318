// Package date provides a day-granularity Date type and a sorted,
// date-indexed History series used by the rebalance engine.
package date

import (
	"encoding/json"
	"fmt"
	"iter"
	"time"
)

const readDateFormat = "2006-1-2" // Permissive read date format (allows single-digit month/day).

// DateFormat is the format used to represent dates as strings in ISO-8601 format.
const DateFormat = "2006-01-02" // write date format

const Day = 24 * time.Hour

// Date represent a date with no lower than day granularity.
type Date struct {
	y int
	m time.Month
	d int
}

// New returns a normalized Date for the given year, month, and day.
func New(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// Today returns the current date.
func Today() Date { return New(time.Now().Date()) }

// time returns a time.Time that is a canonical representation of that day (at midnight UTC).
func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// Year returns current year.
func (d Date) Year() int { return d.y }

// Month returns the month of the date.
func (d Date) Month() time.Month { return d.time().Month() }

// Day returns current day of the month.
func (d Date) Day() int { return d.d }

// Weekday returns the day of the week for the date.
func (d Date) Weekday() time.Weekday { return d.time().Weekday() }

// IsZero returns true if the date is the zero value.
func (d Date) IsZero() bool { return d.y == 0 && d.m == 0 && d.d == 0 }

// Before reports whether the day d is before x.
func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }

// After reports whether the day d is after x.
func (d Date) After(x Date) bool { return d.time().After(x.time()) }

// Add returns a new Date with the given number of days added.
func (d Date) Add(i int) Date { return New(d.y, d.m, d.d+i) }

// Sub returns the number of whole days between d and x. It is positive when d
// is after x.
func (d Date) Sub(x Date) int { return int(d.time().Sub(x.time()) / Day) }

// Compare returns -1, 0 or 1 depending on whether d is before, equal to or
// after x. It is the comparison function for sorted date slices.
func (d Date) Compare(x Date) int {
	if d.Before(x) {
		return -1
	}
	if d.After(x) {
		return 1
	}
	return 0
}

// String format the date in its standard format.
func (d Date) String() string { return d.time().Format(DateFormat) }

// Format returns the date formatted according to the layout, see [time.Format].
func (d Date) Format(format string) string { return d.time().Format(format) }

// Parse parses a Date from a string. It is lenient and accepts formats like "2025-7-1".
func Parse(str string) (Date, error) {
	on, err := time.Parse(readDateFormat, str)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q want format %q: %w", str, readDateFormat, err)
	}
	return New(on.Date()), nil
}

// MustParse is like Parse but panics on error.
func MustParse(str string) Date {
	d, err := Parse(str)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// ParseLayout parses a Date from a string in an arbitrary [time.Format] layout.
func ParseLayout(layout, str string) (Date, error) {
	on, err := time.Parse(layout, str)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q want format %q: %w", str, layout, err)
	}
	return New(on.Date()), nil
}

// UnmarshalJSON implements the json specific way to unmarshall a date from a json string.
func (j *Date) UnmarshalJSON(bytes []byte) error {
	var str string
	if err := json.Unmarshal(bytes, &str); err != nil {
		return err
	}
	d, err := Parse(str)
	if err != nil {
		return err
	}
	*j = d
	return nil
}

func (j Date) MarshalJSON() ([]byte, error) {
	str := j.String()
	return json.Marshal(&str)
}

// check that a Date pointer is a valid json marshall/unmarshaller type.
var _ json.Marshaler = (*Date)(nil)
var _ json.Unmarshaler = (*Date)(nil)

// UnmarshalYAML reads a date from a yaml scalar string.
func (j *Date) UnmarshalYAML(unmarshal func(any) error) error {
	var str string
	if err := unmarshal(&str); err != nil {
		return err
	}
	d, err := Parse(str)
	if err != nil {
		return err
	}
	*j = d
	return nil
}

// MarshalYAML writes the date in its standard format.
func (j Date) MarshalYAML() (any, error) { return j.String(), nil }

// iterate returns an iterator over all unique, sorted dates from multiple series of dates.
func iterate(series ...[]Date) iter.Seq[Date] {
	return func(yield func(Date) bool) {
		indexes := make([]int, len(series))
		// find the reached mins
		times := make([]Date, 0, len(series))
		for {
			times = times[:0] //empty the slice again
			for i, index := range indexes {
				if index < len(series[i]) {
					on := series[i][index]
					times = append(times, on)
				}
			}
			if len(times) == 0 {
				// All timeseries have been consumed, exit.
				return
			}
			// there are some remaining values:
			var m Date
			if len(times) > 0 {
				m = times[0]
				for _, t := range times {
					if t.Before(m) {
						m = t
					}
				}
			}
			// now extract the ones that are equals to the min
			for i, index := range indexes {
				if index >= len(series[i]) {
					continue
				}
				if on := series[i][index]; on == m {
					// Updates and consume this value
					indexes[i]++
				}
			}
			if !yield(m) {
				return
			}
		}
	}
}

// Iterate returns an iterator over all unique, sorted dates from multiple History objects.
func Iterate[T any](histories ...*History[T]) iter.Seq[Date] {
	dates := make([][]Date, 0, len(histories))
	for _, h := range histories {
		dates = append(dates, h.days)
	}
	return iterate(dates...)
}

// Range represents a range of dates, boundaries included.
type Range struct{ From, To Date }

// Contains return true date is included in the range (boundaries included)
func (r Range) Contains(date Date) bool { return (!date.Before(r.From) && !date.After(r.To)) }
