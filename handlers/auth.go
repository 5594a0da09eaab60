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
	"time"

	"github.com/danielhkuo/rollcall/auth"
	"github.com/danielhkuo/rollcall/cliparse"
	"github.com/danielhkuo/rollcall/middleware"
	"github.com/danielhkuo/rollcall/models"
)

type AuthHandler struct {
	db  *sql.DB
	cfg cliparse.BackendConfig
}

func NewAuthHandler(db *sql.DB, cfg cliparse.BackendConfig) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	var admin models.Admin
	var hash string
	err := h.db.QueryRow(`
		SELECT id, name, email, password_hash FROM admin WHERE email = $1
	`, email).Scan(&admin.ID, &admin.Name, &admin.Email, &hash)

	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		dbError(w, "load admin", err)
		return
	}

	if err := auth.CheckPassword(hash, req.Password); err != nil {
		slog.Info("login rejected", "email", email)
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := auth.IssueToken(auth.Claims{AdminID: admin.ID, Email: admin.Email}, h.cfg.JWTSecret, h.cfg.TokenTTL)
	if err != nil {
		slog.Error("failed to issue token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	slog.Info("admin signed in", "admin_id", admin.ID)

	middleware.JSONResponse(w, http.StatusOK, models.LoginResponse{
		Success: true,
		Message: "Login successful",
		Data: models.LoginData{
			AccessToken: token,
			Admin:       admin,
		},
	})
}

// CreateAdmin stores a new administrator account.
func CreateAdmin(db *sql.DB, name, email, password string) (models.Admin, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" {
		return models.Admin{}, errors.New("name and email are required")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.Admin{}, err
	}

	admin := models.Admin{ID: auth.GenerateID(), Name: name, Email: email}
	_, err = db.Exec(`
		INSERT INTO admin (id, name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, admin.ID, admin.Name, admin.Email, hash, time.Now().UTC())
	if isUniqueViolation(err) {
		return models.Admin{}, fmt.Errorf("admin %s already exists", email)
	}
	if err != nil {
		return models.Admin{}, fmt.Errorf("failed to insert admin: %w", err)
	}

	return admin, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
