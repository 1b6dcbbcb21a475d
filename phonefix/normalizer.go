// Package phonefix rewrites booking phone numbers to their digits-only form.
//
// The WhatsApp bot used to store sender ids verbatim ("whatsapp:+1809..."),
// and the admin dashboard accepted free-form input, so the bookings table
// holds a mix of prefixes, plus signs, spaces and punctuation. Downstream
// lookups compare phones as plain digit strings.
package phonefix

import (
	"bookingmaint/db"
	"bookingmaint/model"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

const phoneColumn = "customer_phone"

// Digits keeps the decimal digits of raw, in order. Any Unicode decimal digit
// counts (full-width, Arabic-Indic, ...) and is kept as written.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// RowError is a failure confined to one booking.
type RowError struct {
	ID  string
	Err error
}

func (e RowError) Error() string { return fmt.Sprintf("booking %s: %v", e.ID, e.Err) }

func (e RowError) Unwrap() error { return e.Err }

// Result summarises one pass over the bookings table.
type Result struct {
	Scanned   int
	Skipped   int // null or empty phone
	Clean     int // already digits only
	Corrected int
	Failed    []RowError
	DryRun    bool
}

// Err joins the per-row failures, or returns nil when every row went through.
func (r Result) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// Normalizer reads every booking's phone and writes back the digits-only
// form when it differs. There is no locking between the read and the write;
// a concurrent edit to the same row can be overwritten.
type Normalizer struct {
	Store  db.Store
	Logger *zap.SugaredLogger
	Out    io.Writer
	DryRun bool
}

// Run performs the pass. Only a failure to read the table is returned as an
// error; update failures are collected in Result.Failed and the pass carries on.
func (n *Normalizer) Run(ctx context.Context) (Result, error) {
	log := n.logger()
	res := Result{DryRun: n.DryRun}

	n.printf("Downloading bookings...\n")
	rows, err := n.Store.Select(ctx, db.Query{
		Table:   model.BookingsTable,
		Columns: []string{"id", phoneColumn},
	})
	if err != nil {
		return res, fmt.Errorf("fetch bookings: %w", err)
	}
	log.Debugw("fetched bookings", "count", len(rows))

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Scanned++

		booking, err := model.BookingFromRow(row)
		if err != nil {
			id := fmt.Sprint(row["id"])
			log.Warnw("skipping unreadable booking", "id", id, "error", err)
			res.Failed = append(res.Failed, RowError{ID: id, Err: err})
			continue
		}
		raw := booking.Phone()
		if raw == "" {
			res.Skipped++
			continue
		}
		cleaned := Digits(raw)
		if cleaned == raw {
			res.Clean++
			continue
		}

		n.printf("Fixing ID %s: %s -> %s\n", booking.ID, raw, cleaned)
		if n.DryRun {
			res.Corrected++
			continue
		}
		err = n.Store.Update(ctx, model.BookingsTable, booking.ID, map[string]any{phoneColumn: cleaned})
		if err != nil {
			log.Errorw("failed to update booking phone", "id", booking.ID, "error", err)
			n.printf("  failed: %v\n", err)
			res.Failed = append(res.Failed, RowError{ID: booking.ID, Err: err})
			continue
		}
		res.Corrected++
	}

	n.printSummary(res)
	log.Infow("phone normalisation finished",
		"scanned", res.Scanned,
		"corrected", res.Corrected,
		"clean", res.Clean,
		"skipped", res.Skipped,
		"failed", len(res.Failed),
		"dry_run", res.DryRun,
	)
	return res, nil
}

func (n *Normalizer) printSummary(res Result) {
	if res.DryRun {
		n.printf("Dry run finished. %d phone numbers would be corrected.\n", res.Corrected)
	} else {
		n.printf("Done. Corrected %d phone numbers.\n", res.Corrected)
	}
	if len(res.Failed) > 0 {
		n.printf("%d bookings could not be corrected:\n", len(res.Failed))
		for _, f := range res.Failed {
			n.printf("  - %v\n", f)
		}
	}
}

func (n *Normalizer) printf(format string, args ...any) {
	if n.Out == nil {
		return
	}
	fmt.Fprintf(n.Out, format, args...)
}

func (n *Normalizer) logger() *zap.SugaredLogger {
	if n.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return n.Logger
}
