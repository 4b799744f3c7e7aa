// Package db manages the primer run-ledger database.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

var conn *sql.DB

// Get returns the ledger connection, initializing the database and
// schema on first use.
func Get() (*sql.DB, error) {
	if conn != nil {
		return conn, nil
	}

	path, err := Path()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create .primer directory: %w", err)
	}

	conn, err = sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run ledger: %w", err)
	}

	if _, err := conn.Exec(SchemaSQL); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return conn, nil
}

// Close closes the ledger connection.
func Close() error {
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Path returns the location of the ledger database file.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".primer", "primer.db"), nil
}
