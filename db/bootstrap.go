package db

import (
	"bookingmaint/model"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DemoTenantID is the tenant the demo database is seeded for when none is given.
const DemoTenantID = "3870826e-9376-457b-9b53-7533c89e8cda"

// BootstrapSQLite creates the bookings and business_hours tables in a local
// SQLite file and, when seed is set, fills them with demo rows for tenantID.
func BootstrapSQLite(dbPath, tenantID string, seed bool, now time.Time) (*gorm.DB, error) {
	db, err := OpenSQL("sqlite://" + dbPath)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	if !seed {
		log.Println("bootstrap: database schema created but no seed data loaded")
		return db, nil
	}
	if tenantID == "" {
		tenantID = DemoTenantID
	}
	if err := SeedDemoData(db, tenantID, now); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	log.Printf("bootstrap: completed and loaded seed data into %s", dbPath)
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Booking{},
		&model.BusinessHours{},
	); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	return nil
}

// SeedDemoData inserts a week of opening hours (Sunday closed) and a handful of
// bookings, most with phones in the formats the WhatsApp bot used to store.
func SeedDemoData(db *gorm.DB, tenantID string, now time.Time) error {
	now = now.UTC().Truncate(time.Hour)
	return db.Transaction(func(tx *gorm.DB) error {
		for day := 0; day < 7; day++ {
			h := model.BusinessHours{
				ID:        uuid.NewString(),
				TenantID:  tenantID,
				Weekday:   intPtr(day),
				OpenTime:  stringPtr("09:00"),
				CloseTime: stringPtr("18:00"),
				IsClosed:  day == int(time.Sunday),
			}
			if err := tx.Create(&h).Error; err != nil {
				return fmt.Errorf("failed to insert business hours for weekday %d: %w", day, err)
			}
		}

		phones := []struct {
			phone  *string
			offset time.Duration
		}{
			{stringPtr("whatsapp:+18095551234"), 24 * time.Hour},
			{stringPtr("+1 (809) 555-9876"), 48 * time.Hour},
			{stringPtr("18295550000"), 72 * time.Hour},
			{stringPtr("whatsapp:+1 849 555 4321"), -48 * time.Hour},
			{nil, 96 * time.Hour},
		}
		for _, p := range phones {
			startsAt := now.Add(p.offset)
			b := model.Booking{
				ID:            uuid.NewString(),
				TenantID:      tenantID,
				CustomerPhone: p.phone,
				StartsAt:      &startsAt,
			}
			if err := tx.Create(&b).Error; err != nil {
				return fmt.Errorf("failed to insert booking: %w", err)
			}
		}
		return nil
	})
}

func stringPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
