package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EraOffset is the difference between a Gregorian year and a Minguo
// (Republic of China) year: Gregorian = Minguo + EraOffset.
const EraOffset = 1911

// dateLayout is the rendering used in CSV files and aggregated JSON.
const dateLayout = "2006-01-02"

// Date is a calendar date without time of day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the Date for the given Gregorian components.
// It returns nil when the components do not name a real calendar day
// (e.g. February 30).
func NewDate(year int, month time.Month, day int) *Date {
	if year < 1 || month < time.January || month > time.December || day < 1 {
		return nil
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return nil
	}
	return &Date{Year: year, Month: month, Day: day}
}

// ParseEraDate converts a Minguo "Y/M/D" string (e.g. "113/05/07") into a
// Gregorian Date. Anything other than exactly three integer parts that
// form a valid day yields nil.
func ParseEraDate(s string) *Date {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return nil
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil
		}
		nums[i] = n
	}

	return NewDate(nums[0]+EraOffset, time.Month(nums[1]), nums[2])
}

// ParseDate parses a "YYYY-MM-DD" string as written by String.
func ParseDate(s string) (*Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return &Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// EraYear returns the Minguo year of the date.
func (d Date) EraYear() int {
	return d.Year - EraOffset
}

// Time returns the date at midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// MarshalJSON encodes the date as a quoted YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a quoted YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// CurrentEraYear returns the Minguo year for the given instant.
func CurrentEraYear(now time.Time) int {
	return now.Year() - EraOffset
}
