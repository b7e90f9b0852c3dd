package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestYearMonth_NextWrapsYear(t *testing.T) {
	ym := YearMonth{Year: 2024, Month: time.December}

	next := ym.Next()

	assert.Equal(t, YearMonth{Year: 2025, Month: time.January}, next)
}

func TestYearMonth_PrevWrapsYear(t *testing.T) {
	ym := YearMonth{Year: 2025, Month: time.January}

	prev := ym.Prev()

	assert.Equal(t, YearMonth{Year: 2024, Month: time.December}, prev)
}

func TestYearMonth_Ordering(t *testing.T) {
	tests := []struct {
		name       string
		a, b       YearMonth
		wantBefore bool
		wantAfter  bool
	}{
		{
			name:       "earlier month same year",
			a:          YearMonth{Year: 2025, Month: time.March},
			b:          YearMonth{Year: 2025, Month: time.April},
			wantBefore: true,
		},
		{
			name:       "earlier year later month",
			a:          YearMonth{Year: 2024, Month: time.December},
			b:          YearMonth{Year: 2025, Month: time.January},
			wantBefore: true,
		},
		{
			name:      "later month",
			a:         YearMonth{Year: 2025, Month: time.May},
			b:         YearMonth{Year: 2025, Month: time.April},
			wantAfter: true,
		},
		{
			name: "equal months",
			a:    YearMonth{Year: 2025, Month: time.April},
			b:    YearMonth{Year: 2025, Month: time.April},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantBefore, tt.a.Before(tt.b))
			assert.Equal(t, tt.wantAfter, tt.a.After(tt.b))
		})
	}
}

func TestYearMonth_Bounds(t *testing.T) {
	ym := YearMonth{Year: 2025, Month: time.February}

	assert.Equal(t, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC), ym.StartTime())
	assert.Equal(t, time.Date(2025, time.February, 28, 23, 59, 59, 0, time.UTC), ym.EndTime())
}

func TestYearMonth_BoundsLeapYear(t *testing.T) {
	ym := YearMonth{Year: 2024, Month: time.February}

	assert.Equal(t, time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC), ym.EndTime())
}

func TestYearMonth_Contains(t *testing.T) {
	ym := YearMonth{Year: 2025, Month: time.June}

	assert.True(t, ym.Contains(time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)))
	assert.False(t, ym.Contains(time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)))
}

func TestYearMonth_Validate(t *testing.T) {
	assert.NoError(t, YearMonth{Year: 2025, Month: time.January}.Validate())
	assert.Error(t, YearMonth{Year: 2025, Month: time.Month(13)}.Validate())
	assert.Error(t, YearMonth{Year: 2025, Month: time.Month(0)}.Validate())
}
