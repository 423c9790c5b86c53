package db

import (
	"database/sql"
	"fmt"

	"github.com/estudorank/estudorank/internal/errors"
	"github.com/estudorank/estudorank/pkg/logger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection accepts "up" or "down".
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Up, Down:
		return Direction(s), nil
	}
	return "", &errors.ValidationError{Field: "direction", Message: fmt.Sprintf("%q is not up or down", s)}
}

// PostgresOperations is the production DBOperations.
type PostgresOperations struct{}

func (PostgresOperations) Open(driverName, dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

func (PostgresOperations) RunMigrations(db *sql.DB, source string) error {
	return Migrate(db, source, Up)
}

// Migrate applies (up) or rolls back (down) every migration in source.
func Migrate(db *sql.DB, source string, direction Direction) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return &errors.DatabaseError{Operation: "could not create the postgres driver", Err: err}
	}

	m, err := migrate.NewWithDatabaseInstance(source, "postgres", driver)
	if err != nil {
		return &errors.DatabaseError{Operation: "could not create migrate instance", Err: err}
	}

	switch direction {
	case Up:
		err = m.Up()
	case Down:
		err = m.Down()
	default:
		return &errors.ValidationError{Field: "direction", Message: fmt.Sprintf("unknown direction %q", direction)}
	}
	if err != nil && err != migrate.ErrNoChange {
		return &errors.DatabaseError{Operation: "migrate " + string(direction), Err: err}
	}

	logger.Info("Database migrations (%s) completed successfully", direction)
	return nil
}
