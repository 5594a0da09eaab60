// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the rollcall command.

Rollcall administers an electoral roll: panchayats, their wards, the
polling booths of each ward and the voters registered at each booth. It
ships two servers and one maintenance command.

# Backend

The REST backend owns the data:

	JWT_SECRET=... rollcall backend -p 3001 -d file:rollcall.db

Settings (flag, then environment):

  - -p / PORT: listen port (default 3001)
  - -d / DATABASE_URL: database URL (default file:rollcall.db)
  - -t / DATABASE_TYPE: sqlite or postgres (default sqlite)
  - -uploads / UPLOAD_DIR: voter photo directory (default uploads)
  - -token-ttl / TOKEN_TTL: access token lifetime (default 24h)
  - -jwt-secret / JWT_SECRET: token signing secret (required)

# Console

The console is the operator's web interface. It keeps the signed-in
session in a file and talks to the backend over HTTP:

	rollcall console -backend http://localhost:3001

Settings:

  - -p / CONSOLE_PORT: listen port (default 5173)
  - -backend / BACKEND_URL: backend base URL (required)
  - -session / SESSION_FILE: session file (default under the user config dir)
  - -retries / QUERY_RETRIES: retries for failed reads (default 2)
  - -stale / QUERY_STALE_TIME: how long lists stay fresh (default 5m)
  - -cache / QUERY_CACHE_TIME: how long unused lists stay cached (default 10m)
  - -live-dashboard / LIVE_DASHBOARD: compute dashboard figures from the backend

# Accounts

Administrators are created from the command line:

	ADMIN_PASSWORD=... rollcall create-admin --name "Asha" --email asha@example.org

A .env file in the working directory is loaded before anything else.
*/
package main
