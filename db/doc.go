// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles connections and schema creation for the reference backend.

# Connections

Open picks the driver from the database type and pings it:

	conn, err := db.Open("sqlite", "file:rollcall.db")
	conn, err := db.Open("postgres", "postgres://...")

SQLite (modernc.org/sqlite, no cgo) is the default. SQLite connections are
capped at one open connection and run with foreign keys enabled.

# Schema Creation

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - admin: console administrators (bcrypt password hashes)
  - panchayat: unique code, declared ward count
  - ward: ward number unique within a panchayat, optional polling-booth hint
  - booth: unique code, owning ward and panchayat
  - voter: electoral-roll entries with status, has_voted and photo reference

# Relationships

	panchayat 1──* ward 1──* booth 1──* voter

Foreign keys do not cascade. Handlers refuse to delete a parent that
still has children.
*/
package db
