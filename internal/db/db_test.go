package db

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/estudorank/estudorank/internal/config"
	apperrors "github.com/estudorank/estudorank/internal/errors"
	"github.com/estudorank/estudorank/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock implementation of DBOperations
type mockDBOperations struct {
	openFunc          func(driverName, dataSourceName string) (*sql.DB, error)
	runMigrationsFunc func(db *sql.DB, source string) error
	migrated          []string
}

func (m *mockDBOperations) Open(driverName, dataSourceName string) (*sql.DB, error) {
	return m.openFunc(driverName, dataSourceName)
}

func (m *mockDBOperations) RunMigrations(db *sql.DB, source string) error {
	m.migrated = append(m.migrated, source)
	return m.runMigrationsFunc(db, source)
}

func testConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:            "localhost",
		Port:            5432,
		User:            "testuser",
		Password:        "testpass",
		DBName:          "testdb",
		SSLMode:         "disable",
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 60,
		Migrations:      "file://migrations",
		AutoMigrate:     true,
	}
}

func TestNewDBService(t *testing.T) {
	// Create a mock database
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	var gotDriver, gotDSN string
	mockOps := &mockDBOperations{
		openFunc: func(driverName, dataSourceName string) (*sql.DB, error) {
			gotDriver, gotDSN = driverName, dataSourceName
			return mockDB, nil
		},
		runMigrationsFunc: func(db *sql.DB, source string) error {
			return nil
		},
	}

	// Set expectation for db.Ping()
	mock.ExpectPing()

	service, err := NewDBService(mockOps, testConfig())

	assert.NoError(t, err)
	assert.NotNil(t, service)
	assert.Equal(t, "postgres", gotDriver)
	assert.Equal(t, "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable", gotDSN)
	assert.Equal(t, []string{"file://migrations"}, mockOps.migrated)
	assert.IsType(t, &store.PostgresStore{}, service.Store())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewDBServiceSkipsMigrations(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	mockOps := &mockDBOperations{
		openFunc: func(string, string) (*sql.DB, error) { return mockDB, nil },
		runMigrationsFunc: func(*sql.DB, string) error {
			t.Fatal("migrations must not run")
			return nil
		},
	}
	mock.ExpectPing()

	cfg := testConfig()
	cfg.AutoMigrate = false
	_, err = NewDBService(mockOps, cfg)

	assert.NoError(t, err)
	assert.Empty(t, mockOps.migrated)
}

func TestNewDBServiceErrors(t *testing.T) {
	testCases := []struct {
		name      string
		setup     func(sqlmock.Sqlmock)
		openErr   error
		migrate   error
		operation string
		contains  string
	}{
		{
			name:      "Open failure",
			openErr:   fmt.Errorf("unknown driver"),
			operation: "open connection",
		},
		{
			name: "Ping failure",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectPing().WillReturnError(fmt.Errorf("connection refused"))
				m.ExpectClose()
			},
			operation: "ping database",
		},
		{
			name: "Migration failure",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectPing()
				m.ExpectClose()
			},
			migrate:  fmt.Errorf("dirty database version 1"),
			contains: "failed to run migrations",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
			require.NoError(t, err)
			defer mockDB.Close()
			if tc.setup != nil {
				tc.setup(mock)
			}

			mockOps := &mockDBOperations{
				openFunc: func(string, string) (*sql.DB, error) {
					if tc.openErr != nil {
						return nil, tc.openErr
					}
					return mockDB, nil
				},
				runMigrationsFunc: func(*sql.DB, string) error { return tc.migrate },
			}

			service, err := NewDBService(mockOps, testConfig())

			assert.Nil(t, service)
			require.Error(t, err)
			if tc.operation != "" {
				var dbErr *apperrors.DatabaseError
				if assert.ErrorAs(t, err, &dbErr) {
					assert.Equal(t, tc.operation, dbErr.Operation)
				}
			}
			if tc.contains != "" {
				assert.Contains(t, err.Error(), tc.contains)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPing(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	svc := &DBServiceImpl{db: mockDB, store: store.NewPostgresStore(mockDB)}

	mock.ExpectPing()
	assert.NoError(t, svc.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(fmt.Errorf("gone"))
	err = svc.Ping(context.Background())
	var dbErr *apperrors.DatabaseError
	assert.ErrorAs(t, err, &dbErr)

	mock.ExpectClose()
	assert.NoError(t, svc.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("up")
	assert.NoError(t, err)
	assert.Equal(t, Up, d)

	d, err = ParseDirection("down")
	assert.NoError(t, err)
	assert.Equal(t, Down, d)

	_, err = ParseDirection("sideways")
	var vErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &vErr)
}
