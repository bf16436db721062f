package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	conn *sql.DB
}

type Config struct {
	Path string
}

func NewDB(config Config) (*DB, error) {
	conn, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

func (db *DB) createTables() error {
	// AUTOINCREMENT keeps ids strictly increasing and never reused, even
	// when a later record is lost to a crash.
	query := `
	CREATE TABLE IF NOT EXISTS donations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		category TEXT NOT NULL,
		item_name TEXT NOT NULL,
		estimated_weight_lbs REAL,
		estimated_expiry TEXT,
		timestamp DATETIME NOT NULL,
		image_path TEXT NOT NULL,
		donor_id TEXT
	);

	CREATE TABLE IF NOT EXISTS shelters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		categories_needed TEXT NOT NULL DEFAULT '[]',
		last_contacted DATETIME,
		last_response DATETIME,
		status TEXT NOT NULL DEFAULT 'active',
		notes TEXT NOT NULL DEFAULT ''
	);
	`

	_, err := db.conn.Exec(query)
	return err
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}
