package diagnostics

import (
	"bookingmaint/db"
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const tenant = "3870826e-9376-457b-9b53-7533c89e8cda"

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func render(t *testing.T, r Report) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := r.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func seedHours(store *db.MockStore) {
	store.Insert("business_hours",
		db.Row{"id": "h0", "tenant_id": tenant, "weekday": 0, "open_time": "09:00", "close_time": "13:00", "is_closed": true},
		db.Row{"id": "h1", "tenant_id": tenant, "weekday": 1, "open_time": "09:00", "close_time": "18:00", "is_closed": false},
		db.Row{"id": "h2", "tenant_id": tenant, "weekday": 2, "open_time": "10:00", "close_time": "19:00", "is_closed": false},
		db.Row{"id": "hx", "tenant_id": "someone-else", "weekday": 3, "open_time": "08:00", "close_time": "12:00", "is_closed": false},
	)
}

func TestDiagnoseHours(t *testing.T) {
	ctx := context.Background()

	t.Run("lists open days for the tenant", func(t *testing.T) {
		store := db.NewMockStore()
		seedHours(store)

		r := Diagnose(ctx, store, tenant, now, zap.NewNop().Sugar())
		require.NoError(t, r.Hours.Err)
		assert.False(t, r.Hours.Empty)
		require.Len(t, r.Hours.Rows, 2)

		out := render(t, r)
		assert.Contains(t, out, "OK: found 2 open days configured.")
		assert.Contains(t, out, "Day 1 (Monday): 09:00 - 18:00")
		assert.Contains(t, out, "Day 2 (Tuesday): 10:00 - 19:00")
		assert.NotContains(t, out, "Sunday")
		assert.NotContains(t, out, "Possible causes")
	})

	t.Run("filters by tenant and open flag", func(t *testing.T) {
		store := db.NewMockStore()
		Diagnose(ctx, store, tenant, now, nil)

		selects := store.GetSelects()
		require.Len(t, selects, 2)
		assert.Equal(t, "business_hours", selects[0].Table)
		assert.Equal(t, []db.Filter{db.Eq("tenant_id", tenant), db.Eq("is_closed", false)}, selects[0].Filters)
	})

	t.Run("no rows prints the hint block", func(t *testing.T) {
		store := db.NewMockStore()
		r := Diagnose(ctx, store, tenant, now, nil)
		require.NoError(t, r.Hours.Err)
		assert.True(t, r.Hours.Empty)
		assert.False(t, r.Healthy())

		out := render(t, r)
		assert.Contains(t, out, "Possible causes")
		for _, cause := range EmptyHoursCauses {
			assert.Contains(t, out, cause)
		}
	})

	t.Run("all days closed is also empty", func(t *testing.T) {
		store := db.NewMockStore()
		store.Insert("business_hours", db.Row{"id": "h0", "tenant_id": tenant, "weekday": 0, "is_closed": true})
		r := Diagnose(ctx, store, tenant, now, nil)
		assert.True(t, r.Hours.Empty)
	})

	t.Run("one undecodable row keeps the rest of the listing", func(t *testing.T) {
		store := db.NewMockStore()
		seedHours(store)
		store.Insert("business_hours", db.Row{"id": "hbad", "tenant_id": tenant, "weekday": "monday", "is_closed": false})

		r := Diagnose(ctx, store, tenant, now, nil)
		require.NoError(t, r.Hours.Err)
		require.Len(t, r.Hours.Rows, 2)
		require.Len(t, r.Hours.Invalid, 1)
		assert.Equal(t, "hbad", r.Hours.Invalid[0].ID)
		assert.True(t, r.Healthy())

		out := render(t, r)
		assert.Contains(t, out, "OK: found 2 open days configured.")
		assert.Contains(t, out, "Day 2 (Tuesday): 10:00 - 19:00")
		assert.Contains(t, out, "WARNING: 1 business_hours rows could not be read:")
		assert.Contains(t, out, "id hbad: column \"weekday\"")
	})

	t.Run("only undecodable rows is not healthy", func(t *testing.T) {
		store := db.NewMockStore()
		store.Insert("business_hours", db.Row{"id": "hbad", "tenant_id": tenant, "weekday": "monday", "is_closed": false})
		r := Diagnose(ctx, store, tenant, now, nil)
		assert.False(t, r.Hours.Empty)
		assert.False(t, r.Healthy())
		assert.NotContains(t, render(t, r), "OK: found")
	})

	t.Run("hours failure does not stop the bookings step", func(t *testing.T) {
		store := db.NewMockStore()
		store.FailSelect("business_hours", errors.New("permission denied for table business_hours"))
		store.Insert("bookings", db.Row{"id": "b1", "tenant_id": tenant, "starts_at": "2026-10-17T10:00:00Z"})

		r := Diagnose(ctx, store, tenant, now, nil)
		require.Error(t, r.Hours.Err)
		require.NoError(t, r.Bookings.Err)
		assert.Len(t, r.Bookings.Rows, 1)

		out := render(t, r)
		assert.Contains(t, out, "ERROR querying business_hours: permission denied")
		assert.Contains(t, out, "shows 1 upcoming bookings")
	})
}

func TestDiagnoseBookings(t *testing.T) {
	ctx := context.Background()

	t.Run("past bookings are excluded", func(t *testing.T) {
		store := db.NewMockStore()
		seedHours(store)
		store.Insert("bookings",
			db.Row{"id": "past", "tenant_id": tenant, "starts_at": "2026-10-15T10:00:00Z", "customer_phone": "1"},
			db.Row{"id": "soon", "tenant_id": tenant, "starts_at": "2026-10-16T12:00:00Z", "customer_phone": "18095551234"},
			db.Row{"id": "later", "tenant_id": tenant, "starts_at": "2026-10-20T09:30:00-04:00", "customer_phone": "2"},
			db.Row{"id": "other", "tenant_id": "someone-else", "starts_at": "2026-10-20T10:00:00Z"},
		)

		r := Diagnose(ctx, store, tenant, now, nil)
		require.NoError(t, r.Bookings.Err)
		require.Len(t, r.Bookings.Rows, 2)
		ids := []string{r.Bookings.Rows[0].ID, r.Bookings.Rows[1].ID}
		assert.ElementsMatch(t, []string{"soon", "later"}, ids)
		assert.True(t, r.Healthy())

		out := render(t, r)
		assert.Contains(t, out, "shows 2 upcoming bookings")
		assert.Contains(t, out, "Sample booking: {id=soon, starts_at=2026-10-16T12:00:00Z, customer_phone=18095551234}")
	})

	t.Run("requests id, start and phone with a gte on now", func(t *testing.T) {
		store := db.NewMockStore()
		Diagnose(ctx, store, tenant, now, nil)

		q := store.GetSelects()[1]
		assert.Equal(t, "bookings", q.Table)
		assert.Equal(t, []string{"id", "starts_at", "customer_phone"}, q.Columns)
		require.Len(t, q.Filters, 2)
		assert.Equal(t, db.Eq("tenant_id", tenant), q.Filters[0])
		assert.Equal(t, db.OpGte, q.Filters[1].Op)
		assert.Equal(t, now, q.Filters[1].Value)
	})

	t.Run("no upcoming bookings has no sample", func(t *testing.T) {
		store := db.NewMockStore()
		r := Diagnose(ctx, store, tenant, now, nil)
		out := render(t, r)
		assert.Contains(t, out, "shows 0 upcoming bookings")
		assert.NotContains(t, out, "Sample booking")
	})

	t.Run("bookings failure is reported", func(t *testing.T) {
		store := db.NewMockStore()
		seedHours(store)
		store.FailSelect("bookings", errors.New("timeout"))
		r := Diagnose(ctx, store, tenant, now, nil)
		require.NoError(t, r.Hours.Err)
		require.Error(t, r.Bookings.Err)
		assert.False(t, r.Healthy())
		assert.Contains(t, render(t, r), "ERROR querying bookings: timeout")
	})

	t.Run("undecodable booking still counts as blocking", func(t *testing.T) {
		store := db.NewMockStore()
		seedHours(store)
		store.Insert("bookings",
			db.Row{"id": "ok", "tenant_id": tenant, "starts_at": "2026-10-17T10:00:00Z", "customer_phone": "1"},
			db.Row{"id": "bad", "tenant_id": tenant, "starts_at": "2026-10-18T10:00:00Z", "customer_phone": 42.0},
		)
		r := Diagnose(ctx, store, tenant, now, nil)
		require.NoError(t, r.Bookings.Err)
		assert.Len(t, r.Bookings.Rows, 1)
		assert.Equal(t, 2, r.Bookings.Total())

		out := render(t, r)
		assert.Contains(t, out, "shows 2 upcoming bookings")
		assert.Contains(t, out, "WARNING: 1 bookings rows could not be read:")
	})

	t.Run("never writes", func(t *testing.T) {
		store := db.NewMockStore()
		seedHours(store)
		store.Insert("bookings", db.Row{"id": "b1", "tenant_id": tenant, "starts_at": "2026-10-17T10:00:00Z", "customer_phone": "whatsapp:+1"})
		Diagnose(ctx, store, tenant, now, nil)
		assert.Empty(t, store.GetUpdates())
	})
}

func TestDiagnoseAgainstSQLite(t *testing.T) {
	path := t.TempDir() + "/demo.db"
	gdb, err := db.BootstrapSQLite(path, tenant, true, now)
	require.NoError(t, err)

	r := Diagnose(context.Background(), db.NewSQLStore(gdb), tenant, now, nil)
	require.NoError(t, r.Hours.Err)
	require.NoError(t, r.Bookings.Err)
	assert.Len(t, r.Hours.Rows, 6)
	assert.Len(t, r.Bookings.Rows, 4)
	assert.True(t, r.Healthy())
}
