package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingFromRow(t *testing.T) {
	t.Run("maps PostgREST JSON row", func(t *testing.T) {
		b, err := BookingFromRow(map[string]any{
			"id":             "0b6f5c1e-7f57-4a53-9e43-3e1f7b6f5f10",
			"customer_phone": "whatsapp:+18095551234",
			"starts_at":      "2026-10-20T14:30:00+00:00",
		})
		require.NoError(t, err)
		assert.Equal(t, "0b6f5c1e-7f57-4a53-9e43-3e1f7b6f5f10", b.ID)
		require.NotNil(t, b.CustomerPhone)
		assert.Equal(t, "whatsapp:+18095551234", b.Phone())
		require.NotNil(t, b.StartsAt)
		assert.True(t, b.StartsAt.Equal(time.Date(2026, 10, 20, 14, 30, 0, 0, time.UTC)))
	})

	t.Run("absent and null columns stay nil", func(t *testing.T) {
		b, err := BookingFromRow(map[string]any{"id": "a", "customer_phone": nil})
		require.NoError(t, err)
		assert.Nil(t, b.CustomerPhone)
		assert.Nil(t, b.StartsAt)
		assert.Equal(t, "", b.Phone())
	})

	t.Run("numeric ids are formatted", func(t *testing.T) {
		b, err := BookingFromRow(map[string]any{"id": float64(42)})
		require.NoError(t, err)
		assert.Equal(t, "42", b.ID)
	})

	t.Run("wrong phone type names the column", func(t *testing.T) {
		_, err := BookingFromRow(map[string]any{"id": "a", "customer_phone": true})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "customer_phone")
	})

	t.Run("unparseable timestamp is an error", func(t *testing.T) {
		_, err := BookingFromRow(map[string]any{"id": "a", "starts_at": "tomorrow"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "starts_at")
	})
}

func TestBusinessHoursFromRow(t *testing.T) {
	t.Run("JSON numbers and booleans", func(t *testing.T) {
		h, err := BusinessHoursFromRow(map[string]any{
			"id":         "h1",
			"tenant_id":  "t1",
			"weekday":    float64(1),
			"open_time":  "09:00:00",
			"close_time": "18:00:00",
			"is_closed":  false,
		})
		require.NoError(t, err)
		require.NotNil(t, h.Weekday)
		assert.Equal(t, 1, *h.Weekday)
		assert.Equal(t, "Monday", h.DayName())
		assert.False(t, h.IsClosed)
		assert.Equal(t, "09:00:00", *h.OpenTime)
	})

	t.Run("SQLite integers", func(t *testing.T) {
		h, err := BusinessHoursFromRow(map[string]any{
			"id":        "h2",
			"weekday":   int64(0),
			"is_closed": int64(1),
		})
		require.NoError(t, err)
		assert.Equal(t, "Sunday", h.DayName())
		assert.True(t, h.IsClosed)
	})

	t.Run("unknown weekday", func(t *testing.T) {
		h, err := BusinessHoursFromRow(map[string]any{"id": "h3"})
		require.NoError(t, err)
		assert.Equal(t, "?", h.DayName())
	})

	t.Run("fractional weekday rejected", func(t *testing.T) {
		_, err := BusinessHoursFromRow(map[string]any{"id": "h4", "weekday": 1.5})
		require.Error(t, err)
	})
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, in := range []string{
		"2026-01-02T03:04:05Z",
		"2026-01-02T03:04:05+00:00",
		"2026-01-02T03:04:05",
		"2026-01-02 03:04:05+00:00",
		"2026-01-02 03:04:05",
	} {
		got, err := ParseTimestamp(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
	}
}
