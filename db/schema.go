// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Open connects to the database and verifies the connection.
// dbType is "sqlite" or "postgres".
func Open(dbType, url string) (*sql.DB, error) {
	driver := dbType
	if dbType == "" {
		driver = "sqlite"
	}

	conn, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if driver == "sqlite" {
		// A single writer avoids SQLITE_BUSY and keeps :memory: databases shared.
		conn.SetMaxOpenConns(1)
		if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return conn, nil
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// The DDL sticks to types both SQLite and PostgreSQL accept.
const schema = `
-- Administrators
CREATE TABLE IF NOT EXISTS admin (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

-- Panchayats
CREATE TABLE IF NOT EXISTS panchayat (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    code TEXT NOT NULL UNIQUE,
    address TEXT NOT NULL,
    total_wards INTEGER NOT NULL CHECK (total_wards > 0),
    created_at TIMESTAMP NOT NULL
);

-- Wards
CREATE TABLE IF NOT EXISTS ward (
    id TEXT PRIMARY KEY,
    panchayat_id TEXT NOT NULL REFERENCES panchayat(id),
    ward_number INTEGER NOT NULL CHECK (ward_number > 0),
    name TEXT NOT NULL,
    booth_name TEXT,
    booth_latitude REAL,
    booth_longitude REAL,
    created_at TIMESTAMP NOT NULL,
    UNIQUE (panchayat_id, ward_number)
);

CREATE INDEX IF NOT EXISTS idx_ward_panchayat_id ON ward(panchayat_id);

-- Polling booths
CREATE TABLE IF NOT EXISTS booth (
    id TEXT PRIMARY KEY,
    ward_id TEXT NOT NULL REFERENCES ward(id),
    panchayat_id TEXT NOT NULL REFERENCES panchayat(id),
    name TEXT NOT NULL,
    code TEXT NOT NULL UNIQUE,
    district TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_booth_ward_id ON booth(ward_id);

-- Voters
CREATE TABLE IF NOT EXISTS voter (
    id TEXT PRIMARY KEY,
    booth_id TEXT NOT NULL REFERENCES booth(id),
    ward_id TEXT NOT NULL,
    panchayat_id TEXT NOT NULL,
    voter_id TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    age INTEGER NOT NULL CHECK (age >= 18),
    gender TEXT NOT NULL CHECK (gender IN ('male', 'female', 'other')),
    guardian_name TEXT NOT NULL,
    guardian_relation TEXT NOT NULL CHECK (guardian_relation IN ('father', 'mother', 'husband', 'other')),
    house_number TEXT NOT NULL,
    house_name TEXT NOT NULL,
    political_affiliation TEXT NOT NULL DEFAULT 'unknown'
        CHECK (political_affiliation IN ('unknown', 'supporter', 'neutral', 'opposition')),
    party TEXT NOT NULL DEFAULT '',
    serial_number INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'active'
        CHECK (status IN ('active', 'inactive', 'deceased', 'transferred')),
    has_voted BOOLEAN NOT NULL DEFAULT FALSE,
    photo_url TEXT,
    photo_content_type TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_voter_booth_id ON voter(booth_id);
`
