// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the rollcall backend.

# Handler Types

Each handler is a struct with database and config dependencies:

  - AuthHandler: administrator sign-in
  - PanchayatHandler: panchayat CRUD
  - WardHandler: ward CRUD, optionally filtered by panchayat
  - BoothHandler: polling booth CRUD, optionally filtered by ward
  - VoterHandler: voter CRUD, photos and status changes

Handlers are created via constructor functions that accept *sql.DB and Config:

	wardHandler := handlers.NewWardHandler(db, cfg)

# Hierarchy

Records form a tree: panchayat → ward → booth → voter. A child names its
parents by ID and the backend checks they exist and agree. Deleting a
record that still has children answers 409:

	Cannot delete ward: it still has 2 polling booths. Delete them first.

Codes are unique and ward numbers are unique within a panchayat.

# Voters

Voters are created and updated with multipart forms. The guardian and
address fields are JSON objects and the optional photo part is re-encoded
as a JPEG no larger than 600x600:

	POST /voters/create-voter
	PUT  /voters/update-voter/{id}

A JSON body on the update route changes only status and hasVoted.

# Authentication

POST /auth/login exchanges email and password for a bearer token. Every
other route except /health and /uploads/ requires it in the Authorization
header.
*/
package handlers
