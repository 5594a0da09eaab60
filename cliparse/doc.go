// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

Each rollcall subcommand hands its raw arguments to a parser here:

	cfg, err := cliparse.ParseBackendFlags(args)
	cfg, err := cliparse.ParseConsoleFlags(args)

# Precedence

CLI flags take precedence over environment variables. LoadDotEnv reads a
.env file into the environment without overriding variables that are
already set, so .env has the lowest precedence.

# Backend

	-p            PORT           Server port (default 3001)
	-d            DATABASE_URL   Database URL (default file:rollcall.db)
	-t            DATABASE_TYPE  sqlite or postgres (default sqlite)
	-uploads      UPLOAD_DIR     Voter photo directory (default uploads)
	-token-ttl    TOKEN_TTL      Access token lifetime (default 24h)
	-jwt-secret   JWT_SECRET     Token signing secret (required)

# Console

	-p               CONSOLE_PORT      Console port (default 5173)
	-backend         BACKEND_URL       Backend base URL (required)
	-session         SESSION_FILE      Session file (default <config dir>/rollcall/session.json)
	-retries         QUERY_RETRIES     Retries for failed reads (default 2)
	-stale           QUERY_STALE_TIME  Freshness window (default 5m)
	-cache           QUERY_CACHE_TIME  Retention of unused lists (default 10m)
	-live-dashboard  LIVE_DASHBOARD    Compute dashboard from the backend (default false)
*/
package cliparse
