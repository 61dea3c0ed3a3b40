package core

import (
	"encoding/json"
	"time"
)

const DateLayout = "2006-01-02"

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Day returns the calendar day of t (in t's location) as a UTC midnight.
// Every stored date uses this representation so a DATE column round-trips unchanged.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current server-local calendar day.
func Today() time.Time {
	return Day(NowFunc())
}

// TodayRange is the single-day range of Today.
func TodayRange() DateRange {
	today := Today()
	return DateRange{From: today, To: today}
}

// CurrentMonthRange spans the first to the last day of the current month.
func CurrentMonthRange() DateRange {
	today := Today()
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	return DateRange{From: first, To: first.AddDate(0, 1, -1)}
}

// ParseDay parses a "2006-01-02" or RFC3339 value into a calendar day.
func ParseDay(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// ParseDateRange builds a DateRange out of optional start/end values.
// Missing bounds stay zero (open-ended); when both are missing `fallback` is returned.
func ParseDateRange(start, end string, fallback func() DateRange) (DateRange, error) {
	start, end = CleanString(start), CleanString(end)
	if start == "" && end == "" {
		return fallback(), nil
	}

	var dr DateRange
	var err error
	if start != "" {
		if dr.From, err = ParseDay(start); err != nil {
			return DateRange{}, NewValidationError(errInvalidDate, FieldError{Field: "startDate", Error: errInvalidDate.Error()})
		}
	}
	if end != "" {
		if dr.To, err = ParseDay(end); err != nil {
			return DateRange{}, NewValidationError(errInvalidDate, FieldError{Field: "endDate", Error: errInvalidDate.Error()})
		}
	}
	if !dr.From.IsZero() && !dr.To.IsZero() && dr.To.Before(dr.From) {
		return DateRange{}, NewValidationError(errInvalidDateRange)
	}
	return dr, nil
}

// Contains reports whether day falls within the range (open bounds match everything).
func (dr DateRange) Contains(day time.Time) bool {
	day = Day(day)
	if !dr.From.IsZero() && day.Before(dr.From) {
		return false
	}
	if !dr.To.IsZero() && day.After(dr.To) {
		return false
	}
	return true
}

// Date is a calendar day that (un)marshals as "2006-01-02" (RFC3339 is accepted on input).
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date { return Date{Day(t)} }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errInvalidDate
	}
	if s = CleanString(s); s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := ParseDay(s)
	if err != nil {
		return errInvalidDate
	}
	d.Time = t
	return nil
}
