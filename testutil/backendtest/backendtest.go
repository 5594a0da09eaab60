// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package backendtest runs the reference backend on an httptest server so
// client-side packages can be tested against real HTTP round trips.
package backendtest

import (
	"database/sql"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/rollcall/cliparse"
	"github.com/danielhkuo/rollcall/middleware"
	"github.com/danielhkuo/rollcall/models"
	"github.com/danielhkuo/rollcall/router"
	"github.com/danielhkuo/rollcall/testutil"
)

// Backend is a running reference backend with one seeded administrator.
type Backend struct {
	*httptest.Server
	DB     *sql.DB
	Config cliparse.BackendConfig
	Admin  models.Admin
}

// New starts a backend on a fresh in-memory database. It is closed with t.
func New(t *testing.T) *Backend {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig(t)
	admin := testutil.CreateTestAdmin(t, db)

	srv := httptest.NewServer(middleware.CORS(router.NewRouter(db, cfg)))
	t.Cleanup(srv.Close)

	return &Backend{Server: srv, DB: db, Config: cfg, Admin: admin}
}

// Token issues a valid bearer token for the seeded administrator.
func (b *Backend) Token(t *testing.T) string {
	t.Helper()
	return testutil.AdminToken(t, b.Config, b.Admin)
}
