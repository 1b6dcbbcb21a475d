package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order when a timestamp arrives as text.
// PostgREST emits RFC 3339 for timestamptz and drops the offset for plain
// timestamp columns; SQLite stores the gorm default layout.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
}

// BookingFromRow maps a raw store row onto a Booking. Absent columns stay nil.
func BookingFromRow(row map[string]any) (Booking, error) {
	var b Booking
	var err error
	if b.ID, err = stringColumn(row, "id"); err != nil {
		return b, err
	}
	if b.TenantID, err = stringColumn(row, "tenant_id"); err != nil {
		return b, err
	}
	if b.CustomerPhone, err = optionalString(row, "customer_phone"); err != nil {
		return b, err
	}
	if b.StartsAt, err = optionalTime(row, "starts_at"); err != nil {
		return b, err
	}
	return b, nil
}

// BusinessHoursFromRow maps a raw store row onto BusinessHours.
func BusinessHoursFromRow(row map[string]any) (BusinessHours, error) {
	var h BusinessHours
	var err error
	if h.ID, err = stringColumn(row, "id"); err != nil {
		return h, err
	}
	if h.TenantID, err = stringColumn(row, "tenant_id"); err != nil {
		return h, err
	}
	if h.Weekday, err = optionalInt(row, "weekday"); err != nil {
		return h, err
	}
	if h.OpenTime, err = optionalString(row, "open_time"); err != nil {
		return h, err
	}
	if h.CloseTime, err = optionalString(row, "close_time"); err != nil {
		return h, err
	}
	closed, err := optionalBool(row, "is_closed")
	if err != nil {
		return h, err
	}
	h.IsClosed = closed != nil && *closed
	return h, nil
}

// stringColumn reads an identifier-like column. Numeric ids are formatted so
// tables keyed by bigint still map.
func stringColumn(row map[string]any, col string) (string, error) {
	v, ok := row[col]
	if !ok || v == nil {
		return "", nil
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case float64:
		if t != math.Trunc(t) {
			return "", columnError(col, v)
		}
		return strconv.FormatInt(int64(t), 10), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case json.Number:
		return t.String(), nil
	}
	return "", columnError(col, v)
}

func optionalString(row map[string]any, col string) (*string, error) {
	v, ok := row[col]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case string:
		return &t, nil
	case []byte:
		s := string(t)
		return &s, nil
	}
	return nil, columnError(col, v)
}

func optionalTime(row map[string]any, col string) (*time.Time, error) {
	v, ok := row[col]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case time.Time:
		return &t, nil
	case *time.Time:
		return t, nil
	case string:
		ts, err := ParseTimestamp(t)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col, err)
		}
		return &ts, nil
	}
	return nil, columnError(col, v)
}

func optionalInt(row map[string]any, col string) (*int, error) {
	v, ok := row[col]
	if !ok || v == nil {
		return nil, nil
	}
	var n int
	switch t := v.(type) {
	case int:
		n = t
	case int32:
		n = int(t)
	case int64:
		n = int(t)
	case float64:
		if t != math.Trunc(t) {
			return nil, columnError(col, v)
		}
		n = int(t)
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return nil, columnError(col, v)
		}
		n = int(i)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil, columnError(col, v)
		}
		n = i
	default:
		return nil, columnError(col, v)
	}
	return &n, nil
}

func optionalBool(row map[string]any, col string) (*bool, error) {
	v, ok := row[col]
	if !ok || v == nil {
		return nil, nil
	}
	var b bool
	switch t := v.(type) {
	case bool:
		b = t
	case int64:
		b = t != 0
	case int:
		b = t != 0
	case float64:
		b = t != 0
	case string:
		parsed, err := strconv.ParseBool(t)
		if err != nil {
			return nil, columnError(col, v)
		}
		b = parsed
	default:
		return nil, columnError(col, v)
	}
	return &b, nil
}

// ParseTimestamp parses the textual timestamp forms the stores return.
// Values without an offset are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func columnError(col string, v any) error {
	return fmt.Errorf("column %q: cannot map %T value %v", col, v, v)
}
