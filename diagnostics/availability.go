package diagnostics

import (
	"bookingmaint/db"
	"bookingmaint/model"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

// EmptyHoursCauses lists why a tenant can appear to have no open days.
var EmptyHoursCauses = []string{
	"A row-level security policy is blocking reads for this key (enable a read policy or use the service role key).",
	"No business hours are configured for this tenant in business_hours.",
	"Every day for this tenant has is_closed = true.",
}

// RowIssue is a returned row that could not be decoded.
type RowIssue struct {
	ID  string
	Err error
}

// HoursCheck is the outcome of the opening-hours query. Empty means the store
// returned no rows at all.
type HoursCheck struct {
	Rows    []model.BusinessHours
	Invalid []RowIssue
	Empty   bool
	Err     error
}

// BookingsCheck is the outcome of the upcoming-bookings query.
type BookingsCheck struct {
	Rows    []model.Booking
	Invalid []RowIssue
	Sample  db.Row
	Err     error
}

// Total counts every returned booking, decodable or not; each one blocks a slot.
func (c BookingsCheck) Total() int { return len(c.Rows) + len(c.Invalid) }

// Report is what Diagnose observed for one tenant.
type Report struct {
	TenantID string
	Now      time.Time
	Hours    HoursCheck
	Bookings BookingsCheck
}

// Healthy is true when both queries succeeded and at least one open day was read.
func (r Report) Healthy() bool {
	return r.Hours.Err == nil && len(r.Hours.Rows) > 0 && r.Bookings.Err == nil
}

// Diagnose reproduces the two reads the booking bot performs before offering
// slots. Each step runs even when the other fails. It never writes.
func Diagnose(ctx context.Context, store db.Store, tenantID string, now time.Time, log *zap.SugaredLogger) Report {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	r := Report{TenantID: tenantID, Now: now}
	r.Hours = checkHours(ctx, store, tenantID)
	if r.Hours.Err != nil {
		log.Errorw("business hours query failed", "tenant", tenantID, "error", r.Hours.Err)
	}
	for _, bad := range r.Hours.Invalid {
		log.Warnw("undecodable business hours row", "tenant", tenantID, "id", bad.ID, "error", bad.Err)
	}
	r.Bookings = checkBookings(ctx, store, tenantID, now)
	if r.Bookings.Err != nil {
		log.Errorw("bookings query failed", "tenant", tenantID, "error", r.Bookings.Err)
	}
	for _, bad := range r.Bookings.Invalid {
		log.Warnw("undecodable booking row", "tenant", tenantID, "id", bad.ID, "error", bad.Err)
	}
	log.Infow("availability diagnostic finished",
		"tenant", tenantID,
		"open_days", len(r.Hours.Rows),
		"upcoming_bookings", r.Bookings.Total(),
		"healthy", r.Healthy(),
	)
	return r
}

func checkHours(ctx context.Context, store db.Store, tenantID string) HoursCheck {
	rows, err := store.Select(ctx, db.Query{
		Table: model.BusinessHoursTable,
		Filters: []db.Filter{
			db.Eq("tenant_id", tenantID),
			db.Eq("is_closed", false),
		},
	})
	if err != nil {
		return HoursCheck{Err: err}
	}
	if len(rows) == 0 {
		return HoursCheck{Empty: true}
	}
	check := HoursCheck{Rows: make([]model.BusinessHours, 0, len(rows))}
	for _, row := range rows {
		h, err := model.BusinessHoursFromRow(row)
		if err != nil {
			check.Invalid = append(check.Invalid, RowIssue{ID: fmt.Sprint(row["id"]), Err: err})
			continue
		}
		check.Rows = append(check.Rows, h)
	}
	return check
}

func checkBookings(ctx context.Context, store db.Store, tenantID string, now time.Time) BookingsCheck {
	rows, err := store.Select(ctx, db.Query{
		Table:   model.BookingsTable,
		Columns: []string{"id", "starts_at", "customer_phone"},
		Filters: []db.Filter{
			db.Eq("tenant_id", tenantID),
			db.Gte("starts_at", now.UTC()),
		},
	})
	if err != nil {
		return BookingsCheck{Err: err}
	}
	check := BookingsCheck{Rows: make([]model.Booking, 0, len(rows))}
	for _, row := range rows {
		b, err := model.BookingFromRow(row)
		if err != nil {
			check.Invalid = append(check.Invalid, RowIssue{ID: fmt.Sprint(row["id"]), Err: err})
			continue
		}
		check.Rows = append(check.Rows, b)
	}
	if len(rows) > 0 {
		check.Sample = rows[0]
	}
	return check
}

// WriteTo renders the report for a terminal.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Checking visibility for tenant %s\n", r.TenantID)

	b.WriteString("\n--- 1. BUSINESS HOURS ---\n")
	switch {
	case r.Hours.Err != nil:
		fmt.Fprintf(&b, "ERROR querying business_hours: %v\n", r.Hours.Err)
	case r.Hours.Empty:
		b.WriteString("CRITICAL: the store returned no open business hours.\n")
		b.WriteString("   Possible causes:\n")
		for i, cause := range EmptyHoursCauses {
			fmt.Fprintf(&b, "      %d. %s\n", i+1, cause)
		}
	default:
		if len(r.Hours.Rows) > 0 {
			fmt.Fprintf(&b, "OK: found %d open days configured.\n", len(r.Hours.Rows))
		}
		for _, h := range r.Hours.Rows {
			fmt.Fprintf(&b, "   - Day %s (%s): %s - %s\n",
				weekdayNumber(h), h.DayName(), deref(h.OpenTime), deref(h.CloseTime))
		}
		writeInvalid(&b, "business_hours", r.Hours.Invalid)
	}

	b.WriteString("\n--- 2. UPCOMING BOOKINGS ---\n")
	if r.Bookings.Err != nil {
		fmt.Fprintf(&b, "ERROR querying bookings: %v\n", r.Bookings.Err)
	} else {
		fmt.Fprintf(&b, "The store shows %d upcoming bookings blocking slots (from %s).\n",
			r.Bookings.Total(), r.Now.UTC().Format(time.RFC3339))
		if r.Bookings.Sample != nil {
			fmt.Fprintf(&b, "   Sample booking: %s\n", formatSample(r.Bookings.Sample))
		}
		writeInvalid(&b, "bookings", r.Bookings.Invalid)
	}

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

func writeInvalid(b *strings.Builder, table string, issues []RowIssue) {
	if len(issues) == 0 {
		return
	}
	fmt.Fprintf(b, "WARNING: %d %s rows could not be read:\n", len(issues), table)
	for _, bad := range issues {
		fmt.Fprintf(b, "   - id %s: %v\n", bad.ID, bad.Err)
	}
}

func weekdayNumber(h model.BusinessHours) string {
	if h.Weekday == nil {
		return "?"
	}
	return fmt.Sprint(*h.Weekday)
}

func deref(s *string) string {
	if s == nil {
		return "?"
	}
	return *s
}

// formatSample prints the sample row with its columns in query order.
func formatSample(row db.Row) string {
	parts := make([]string, 0, len(row))
	for _, col := range []string{"id", "starts_at", "customer_phone"} {
		v, ok := row[col]
		if !ok {
			continue
		}
		if t, isTime := v.(time.Time); isTime {
			v = t.UTC().Format(time.RFC3339)
		}
		parts = append(parts, fmt.Sprintf("%s=%v", col, v))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
