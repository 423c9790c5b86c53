package db

import (
	"context"
	"database/sql"

	"github.com/estudorank/estudorank/internal/store"
)

// DBService interface defines what the application needs from the database
type DBService interface {
	Store() store.Store
	Ping(ctx context.Context) error
	Close() error
}

// DBOperations is the seam tests use to swap in sqlmock
type DBOperations interface {
	Open(driverName, dataSourceName string) (*sql.DB, error)
	RunMigrations(db *sql.DB, source string) error
}
