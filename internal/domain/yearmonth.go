package domain

import (
	"fmt"
	"time"
)

// YearMonth identifies one calendar month. It is the key every snapshot is
// stored under and the unit the aggregation pipeline iterates over.
type YearMonth struct {
	Year  int
	Month time.Month
}

// YearMonthOf returns the YearMonth containing t.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// Validate ensures the month is a real calendar month.
func (ym YearMonth) Validate() error {
	if ym.Month < time.January || ym.Month > time.December {
		return fmt.Errorf("month must be between 1 and 12, got %d", int(ym.Month))
	}
	return nil
}

// Next returns the following calendar month.
func (ym YearMonth) Next() YearMonth {
	if ym.Month == time.December {
		return YearMonth{Year: ym.Year + 1, Month: time.January}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

// Prev returns the preceding calendar month.
func (ym YearMonth) Prev() YearMonth {
	if ym.Month == time.January {
		return YearMonth{Year: ym.Year - 1, Month: time.December}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month - 1}
}

// Before reports whether ym is strictly earlier than other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// After reports whether ym is strictly later than other.
func (ym YearMonth) After(other YearMonth) bool {
	return other.Before(ym)
}

// StartTime returns the first instant of the month (UTC).
func (ym YearMonth) StartTime() time.Time {
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC)
}

// EndTime returns the last instant of the month (23:59:59 on the last day, UTC).
func (ym YearMonth) EndTime() time.Time {
	return ym.Next().StartTime().Add(-time.Second)
}

// Contains reports whether t falls inside the month.
func (ym YearMonth) Contains(t time.Time) bool {
	return t.Year() == ym.Year && t.Month() == ym.Month
}

// String formats the month as "2006-01".
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}
