package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/estudorank/estudorank/internal/config"
	"github.com/estudorank/estudorank/internal/errors"
	"github.com/estudorank/estudorank/internal/store"
	"github.com/estudorank/estudorank/pkg/logger"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// DBServiceImpl implements the DBService interface
type DBServiceImpl struct {
	db    *sql.DB
	store *store.PostgresStore
}

// NewDBService opens the connection described by cfg, checks it and
// applies pending migrations when auto_migrate is on.
func NewDBService(ops DBOperations, cfg config.DatabaseConfig) (DBService, error) {
	db, err := ops.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "open connection", Err: err}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &errors.DatabaseError{Operation: "ping database", Err: err}
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	if cfg.AutoMigrate {
		if err := ops.RunMigrations(db, cfg.Migrations); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	logger.Info("Connected to database %s on %s:%d", cfg.DBName, cfg.Host, cfg.Port)
	return &DBServiceImpl{db: db, store: store.NewPostgresStore(db)}, nil
}

func (s *DBServiceImpl) Store() store.Store {
	return s.store
}

func (s *DBServiceImpl) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &errors.DatabaseError{Operation: "ping database", Err: err}
	}
	return nil
}

func (s *DBServiceImpl) Close() error {
	return s.db.Close()
}
