// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lib/pq"

	"github.com/danielhkuo/rollcall/middleware"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// isUniqueViolation reports a unique-constraint failure from either driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// exists runs a SELECT 1 query and reports whether it matched a row.
func exists(db *sql.DB, query string, args ...any) (bool, error) {
	var one int
	err := db.QueryRow(query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func count(db *sql.DB, query string, args ...any) (int, error) {
	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// dependantsMessage explains why a parent record cannot be deleted.
func dependantsMessage(entity string, n int, child, children string) string {
	if n == 1 {
		return fmt.Sprintf("Cannot delete %s: it still has 1 %s. Delete it first.", entity, child)
	}
	return fmt.Sprintf("Cannot delete %s: it still has %d %s. Delete them first.", entity, n, children)
}

// actingAdmin names the administrator whose token authorized r.
func actingAdmin(r *http.Request) string {
	if c, ok := middleware.AdminFromContext(r.Context()); ok {
		return c.AdminID
	}
	return ""
}

// dbError logs err and answers 500.
func dbError(w http.ResponseWriter, action string, err error) {
	slog.Error("database operation failed", "action", action, "error", err)
	middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
