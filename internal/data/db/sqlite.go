package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
)

type SQLiteService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewSQLiteService opens a SQLite database for local runs and tests.
// An empty path opens a shared in-memory store.
func NewSQLiteService(logg *logger.Logger, path string) (*SQLiteService, error) {
	if path == "" {
		path = "file::memory:?cache=shared"
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %q: %w", path, err)
	}
	// SQLite allows a single writer; serialize through one connection.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	serviceLog := logg.With("service", "SQLiteService")
	serviceLog.Info("Opened SQLite database", "path", path)
	return &SQLiteService{db: db, log: serviceLog}, nil
}

func (s *SQLiteService) DB() *gorm.DB { return s.db }

// Open picks the driver from DB_DRIVER (postgres|sqlite).
func Open(logg *logger.Logger, driver string, sqlitePath string) (*gorm.DB, error) {
	switch driver {
	case "sqlite":
		lite, err := NewSQLiteService(logg, sqlitePath)
		if err != nil {
			return nil, err
		}
		return lite.DB(), nil
	case "", "postgres":
		pg, err := NewPostgresService(logg, PostgresDSNFromEnv())
		if err != nil {
			return nil, err
		}
		return pg.DB(), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}
