package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var null = []byte("null")

// stamp normalizes a creation time to the millisecond precision BSON dates carry.
func stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// CastError reports a value that could not be coerced to a schema type.
type CastError struct {
	Kind  string
	Value string
	Path  string
}

func (e *CastError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("Cast to %s failed for value %s", e.Kind, e.Value)
	}
	return fmt.Sprintf("Cast to %s failed for value %s at path \"%s\"", e.Kind, e.Value, e.Path)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"1/2/2006",
	"1/2/06",
	"01-02-06",
}

// Dates must fit four-digit years once in UTC, or they cannot be written back
// out as RFC 3339.
var (
	minDate = time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC)
	maxDate = time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC).Add(-time.Millisecond)
)

func inDateRange(t time.Time) bool {
	return !t.Before(minDate) && !t.After(maxDate)
}

// ParseDate accepts the date spellings clients and spreadsheets send.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if !inDateRange(t) {
				break
			}
			return t.UTC(), nil
		}
	}
	return time.Time{}, &CastError{Kind: "Date", Value: strconv.Quote(s)}
}

// Date is a calendar date or timestamp in a request body. It accepts ISO dates,
// RFC 3339 timestamps, epoch milliseconds and extended JSON {"$date": ...}.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, null) {
		return nil
	}
	var ms float64
	if err := json.Unmarshal(b, &ms); err == nil {
		if ms < float64(minDate.UnixMilli()) || ms > float64(maxDate.UnixMilli()) {
			return &CastError{Kind: "Date", Value: string(b)}
		}
		d.Time = time.UnixMilli(int64(ms)).UTC()
		return nil
	}
	var ext struct {
		Date json.RawMessage `json:"$date"`
	}
	if bytes.HasPrefix(bytes.TrimSpace(b), []byte("{")) {
		if err := json.Unmarshal(b, &ext); err != nil || ext.Date == nil || bytes.HasPrefix(bytes.TrimSpace(ext.Date), []byte("{")) {
			return &CastError{Kind: "Date", Value: string(b)}
		}
		return d.UnmarshalJSON(ext.Date)
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return &CastError{Kind: "Date", Value: string(b)}
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d *Date) value() time.Time {
	if d == nil {
		return time.Time{}
	}
	return stamp(d.Time)
}

// Amount is a number in a request body; numeric strings are coerced.
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, null) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*a = Amount(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			*a = Amount(f)
			return nil
		}
	}
	return &CastError{Kind: "Number", Value: string(b)}
}

func (a *Amount) value() float64 {
	if a == nil {
		return 0
	}
	return float64(*a)
}
