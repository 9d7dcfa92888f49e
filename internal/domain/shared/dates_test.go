package shared

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	t.Run("parses DD-MM-YYYY", func(t *testing.T) {
		d, err := ParseDate("05-03-2024", time.UTC)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC), d)
	})

	t.Run("tolerates surrounding whitespace", func(t *testing.T) {
		d, err := ParseDate(" 31-12-2023 ", nil)
		require.NoError(t, err)
		assert.Equal(t, 2023, d.Year())
	})

	t.Run("rejects ISO dates", func(t *testing.T) {
		_, err := ParseDate("2024-03-05", time.UTC)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})

	t.Run("rejects impossible day", func(t *testing.T) {
		_, err := ParseDate("31-02-2024", time.UTC)
		assert.Error(t, err)
	})
}

func TestDayBoundaries(t *testing.T) {
	at := time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC), StartOfDay(at))
	assert.Equal(t, time.Date(2024, time.March, 5, 23, 59, 59, 999999999, time.UTC), EndOfDay(at))
	assert.Equal(t, "05-03-2024", FormatDate(at))
}

func TestPeriod(t *testing.T) {
	t.Run("validates month", func(t *testing.T) {
		_, err := NewPeriod(2024, 13)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})

	t.Run("add crosses year boundary", func(t *testing.T) {
		p := Period{Year: 2024, Month: 2}
		assert.Equal(t, Period{Year: 2023, Month: 3}, p.Add(-11))
		assert.Equal(t, Period{Year: 2025, Month: 1}, p.Add(11))
	})

	t.Run("ordering and containment", func(t *testing.T) {
		p := Period{Year: 2024, Month: 3}
		assert.True(t, Period{Year: 2023, Month: 12}.Before(p))
		assert.False(t, p.Before(p))
		assert.True(t, p.Contains(time.Date(2024, time.March, 31, 23, 0, 0, 0, time.UTC)))
		assert.Equal(t, "2024-03", p.String())
	})
}
