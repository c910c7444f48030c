// Package calendar provides a timezone-naive civil date used for document
// expiration dates, kept separate from the instants notifications fire at.
package calendar

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// Layout is the wire format of a Date in JSON and BSON
const Layout = "2006-01-02"

// Date is a calendar day with no time of day and no location
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// TimeOfDay is a wall clock offset from local midnight
type TimeOfDay struct {
	Hour   int
	Minute int
}

// Midnight is the start of the day
var Midnight = TimeOfDay{}

// New returns the normalized date for the given components, so New(2024, 2, 30)
// is 2024-03-01.
func New(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime returns the civil date t falls on in t's own location
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the civil date of now in loc
func Today(now time.Time, loc *time.Location) Date {
	return FromTime(now.In(loc))
}

// Parse reads a YYYY-MM-DD date
func Parse(s string) (Date, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return FromTime(t), nil
}

// ParseTimeOfDay reads an HH:MM clock value
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// IsZero reports whether d is the zero Date
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// AddDays moves d by n calendar days. Month and year boundaries roll over the
// same way time.AddDate does, and no DST shift can land on a neighbouring day.
func (d Date) AddDays(n int) Date {
	return FromTime(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

// At converts d to the instant the given wall clock time occurs in loc
func (d Date) At(loc *time.Location, tod TimeOfDay) time.Time {
	return time.Date(d.Year, d.Month, d.Day, tod.Hour, tod.Minute, 0, 0, loc)
}

// Midnight is d at 00:00 in loc
func (d Date) Midnight(loc *time.Location) time.Time {
	return d.At(loc, Midnight)
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or
// after o.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return sign(d.Year - o.Year)
	case d.Month != o.Month:
		return sign(int(d.Month) - int(o.Month))
	default:
		return sign(d.Day - o.Day)
	}
}

// Before reports whether d is strictly earlier than o
func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }

// After reports whether d is strictly later than o
func (d Date) After(o Date) bool { return d.Compare(o) > 0 }

// Equal reports whether d and o are the same day
func (d Date) Equal(o Date) bool { return d.Compare(o) == 0 }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalJSON encodes d as "YYYY-MM-DD"
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes "YYYY-MM-DD"; an empty string leaves d zero
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalBSONValue stores d as a "YYYY-MM-DD" string
func (d Date) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bsontype.String, bsoncore.AppendString(nil, d.String()), nil
}

// UnmarshalBSONValue accepts the string form and also BSON datetimes written
// by older clients, which are read as the UTC civil date.
func (d *Date) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	v := bsoncore.Value{Type: t, Data: data}
	switch t {
	case bsontype.String:
		s, _ := v.StringValueOK()
		parsed, err := Parse(s)
		if err != nil {
			return err
		}
		*d = parsed
	case bsontype.DateTime:
		ms, _ := v.DateTimeOK()
		*d = FromTime(time.UnixMilli(ms).UTC())
	case bsontype.Null:
		*d = Date{}
	default:
		return fmt.Errorf("cannot decode %v into calendar.Date", t)
	}
	return nil
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
