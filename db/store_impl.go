package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLStore talks to the database directly, either the Supabase Postgres
// instance or a local SQLite file.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// OpenSQL opens dsn with the driver its scheme implies.
//
//	postgres://... | postgresql://... | host=... dbname=...   -> Postgres
//	sqlite://path  | file:...         | path ending in .db    -> SQLite
func OpenSQL(dsn string) (*gorm.DB, error) {
	dialector, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}
	newLogger := logger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)
	dbConn, err := gorm.Open(dialector, &gorm.Config{Logger: newLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}
	return dbConn, nil
}

func dialectorFor(dsn string) (gorm.Dialector, error) {
	d := strings.TrimSpace(dsn)
	switch {
	case d == "":
		return nil, fmt.Errorf("empty database DSN")
	case strings.HasPrefix(d, "postgres://"), strings.HasPrefix(d, "postgresql://"), strings.Contains(d, "host="):
		return postgres.Open(d), nil
	case strings.HasPrefix(d, "sqlite://"):
		return sqlite.Open(strings.TrimPrefix(d, "sqlite://")), nil
	case strings.HasPrefix(d, "file:"), d == ":memory:", strings.HasSuffix(d, ".db"), strings.HasSuffix(d, ".sqlite"):
		return sqlite.Open(d), nil
	}
	return nil, fmt.Errorf("unrecognised database DSN scheme in %q", redactDSN(d))
}

// redactDSN hides everything after the scheme so passwords never reach logs.
func redactDSN(dsn string) string {
	if i := strings.Index(dsn, "://"); i >= 0 {
		return dsn[:i+3] + "..."
	}
	return "..."
}

// Ping verifies the underlying database connection is healthy.
func (s *SQLStore) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sql store is not initialized")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func (s *SQLStore) Select(ctx context.Context, q Query) ([]Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	tx := s.db.WithContext(ctx).Table(q.Table)
	if len(q.Columns) > 0 {
		tx = tx.Select(q.Columns)
	}
	for _, f := range q.Filters {
		switch f.Op {
		case OpEq:
			tx = tx.Where(fmt.Sprintf("%s = ?", f.Column), f.Value)
		case OpGte:
			tx = tx.Where(fmt.Sprintf("%s >= ?", f.Column), f.Value)
		}
	}

	var results []map[string]interface{}
	if err := tx.Order("id").Find(&results).Error; err != nil {
		return nil, fmt.Errorf("select from %s: %w", q.Table, err)
	}
	rows := make([]Row, 0, len(results))
	for _, r := range results {
		rows = append(rows, Row(r))
	}
	return rows, nil
}

func (s *SQLStore) Update(ctx context.Context, table, id string, values map[string]any) error {
	if err := validUpdate(table, id, values); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Table(table).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("update %s %s: %w", table, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update %s %s: %w", table, id, ErrNotFound)
	}
	return nil
}
