package model

import (
	"time"
)

const (
	BookingsTable      = "bookings"
	BusinessHoursTable = "business_hours"
)

// A Booking is an appointment created by the booking bot or the admin dashboard.
//
// Only the columns the maintenance tools touch are modelled; the hosted table
// carries many more.
type Booking struct {
	ID            string     `gorm:"primaryKey;size:36"`
	TenantID      string     `gorm:"size:36;index"`
	CustomerPhone *string    `gorm:"size:64"`
	StartsAt      *time.Time `gorm:"index"`
}

func (Booking) TableName() string { return BookingsTable }

// Phone returns the stored phone or "" when the column is null.
func (b Booking) Phone() string {
	if b.CustomerPhone == nil {
		return ""
	}
	return *b.CustomerPhone
}

// BusinessHours is one weekday of a tenant's opening schedule.
// Weekday follows time.Weekday numbering, 0 is Sunday.
type BusinessHours struct {
	ID        string  `gorm:"primaryKey;size:36"`
	TenantID  string  `gorm:"size:36;index"`
	Weekday   *int    `gorm:"index"`
	OpenTime  *string `gorm:"size:8"`
	CloseTime *string `gorm:"size:8"`
	IsClosed  bool    `gorm:"not null;default:false"`
}

func (BusinessHours) TableName() string { return BusinessHoursTable }

// DayName returns the English weekday name, or "?" when unknown.
func (h BusinessHours) DayName() string {
	if h.Weekday == nil || *h.Weekday < 0 || *h.Weekday > 6 {
		return "?"
	}
	return time.Weekday(*h.Weekday).String()
}
