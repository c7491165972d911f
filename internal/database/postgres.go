package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// ErrNotConfigured is returned when no connection string is available yet, which is the
// normal state of a fresh install before the setup wizard has run.
var ErrNotConfigured = errors.New("database url not configured")

// DBConfig holds database pool configuration
type DBConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ProbeTimeout    time.Duration
}

// GetConfig returns database configuration with defaults
func GetConfig() *DBConfig {
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", time.Minute*5)
	viper.SetDefault("database.probe_timeout", time.Second*10)

	return &DBConfig{
		MaxOpenConns:    viper.GetInt("database.max_open_conns"),
		MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
		ConnMaxLifetime: viper.GetDuration("database.conn_max_lifetime"),
		ProbeTimeout:    viper.GetDuration("database.probe_timeout"),
	}
}

// InitDB opens and verifies a connection pool for databaseURL.
func InitDB(ctx context.Context, databaseURL string, config *DBConfig) (*sql.DB, error) {
	if databaseURL == "" {
		return nil, ErrNotConfigured
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	log.Println("Database connection established")
	return db, nil
}

// PostgresProbe checks that a connection string reaches a live server.
type PostgresProbe struct {
	Timeout time.Duration
}

func NewPostgresProbe(timeout time.Duration) *PostgresProbe {
	return &PostgresProbe{Timeout: timeout}
}

// TestConnection opens a single-connection pool, runs SELECT 1 and closes it again.
func (p *PostgresProbe) TestConnection(ctx context.Context, databaseURL string) error {
	if databaseURL == "" {
		return ErrNotConfigured
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	return ping(ctx, db)
}

func ping(ctx context.Context, db *sql.DB) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	return nil
}
