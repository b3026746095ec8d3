package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"roomreserve/internal/config"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

var ErrUnsupportedDriver = errors.New("unsupported database driver")

type DB struct {
	*sqlx.DB
	driver string
	logger *zerolog.Logger
}

// Open connects using the database section of the config.
func Open(cfg config.DatabaseConfig, logger *zerolog.Logger) (*DB, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		return NewDB(DriverSQLite, cfg.Path, logger)
	case DriverPostgres:
		db, err := NewDB(DriverPostgres, cfg.Postgres.DSN(), logger)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.MaxConnections > 0 {
			db.SetMaxOpenConns(cfg.Postgres.MaxConnections)
			db.SetMaxIdleConns(cfg.Postgres.MaxConnections)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, cfg.Driver)
	}
}

// NewDB opens the database and creates the schema. For sqlite3 dsn is a file path or ":memory:".
func NewDB(driver, dsn string, logger *zerolog.Logger) (*DB, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	source := dsn
	switch driver {
	case DriverSQLite:
		if dsn != ":memory:" {
			// Создаем директорию для БД, если её нет
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
			source = dsn + "?_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}

	conn, err := sqlx.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// Один писатель; для :memory: это еще и единственная копия базы
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(25)
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("driver", driver).Msg("database initialized")
	return &DB{DB: conn, driver: driver, logger: logger}, nil
}

func createTables(db *sqlx.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            capacity INTEGER NOT NULL,
            sort_order INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMP NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS settings (
            id TEXT PRIMARY KEY,
            business_start_time TEXT NOT NULL,
            business_end_time TEXT NOT NULL,
            booking_interval_minutes INTEGER NOT NULL,
            max_booking_days INTEGER NOT NULL,
            updated_at TIMESTAMP NOT NULL
        )`,
		// date / start_time / end_time хранятся строками YYYY-MM-DD и HH:MM
		`CREATE TABLE IF NOT EXISTS bookings (
            id TEXT PRIMARY KEY,
            room_id TEXT NOT NULL REFERENCES rooms(id),
            room_name TEXT NOT NULL,
            date TEXT NOT NULL,
            start_time TEXT NOT NULL,
            end_time TEXT NOT NULL,
            representative_name TEXT NOT NULL,
            phone_number TEXT NOT NULL,
            number_of_people INTEGER NOT NULL,
            purpose TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP NOT NULL
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_room_date ON bookings(room_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_date ON bookings(date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_contact ON bookings(representative_name, phone_number)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// Driver returns the name of the SQL driver in use.
func (db *DB) Driver() string {
	return db.driver
}

// Ping checks that storage answers.
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.DB.Close()
}
