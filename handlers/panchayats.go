// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/rollcall/auth"
	"github.com/danielhkuo/rollcall/cliparse"
	"github.com/danielhkuo/rollcall/middleware"
	"github.com/danielhkuo/rollcall/models"
)

type PanchayatHandler struct {
	db  *sql.DB
	cfg cliparse.BackendConfig
}

func NewPanchayatHandler(db *sql.DB, cfg cliparse.BackendConfig) *PanchayatHandler {
	return &PanchayatHandler{db: db, cfg: cfg}
}

const panchayatColumns = `id, name, code, address, total_wards, created_at`

func scanPanchayat(s scanner) (models.Panchayat, error) {
	var p models.Panchayat
	err := s.Scan(&p.ID, &p.Name, &p.Code, &p.Address, &p.TotalWards, &p.CreatedAt)
	return p, err
}

func (h *PanchayatHandler) load(id string) (models.Panchayat, error) {
	return scanPanchayat(h.db.QueryRow(`SELECT `+panchayatColumns+` FROM panchayat WHERE id = $1`, id))
}

// validatePanchayat trims the input and returns the first problem found.
func validatePanchayat(in *models.PanchayatInput) string {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.TrimSpace(in.Code)
	in.Address = strings.TrimSpace(in.Address)

	if in.Name == "" || in.Code == "" || in.Address == "" {
		return "Name, code and address are required"
	}
	if in.TotalWards <= 0 {
		return "Total wards must be a positive number"
	}
	return ""
}

// GetAllPanchayats handles GET /panchayats/get-all-panchayats
func (h *PanchayatHandler) GetAllPanchayats(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`SELECT ` + panchayatColumns + ` FROM panchayat ORDER BY created_at, name`)
	if err != nil {
		dbError(w, "list panchayats", err)
		return
	}
	defer rows.Close()

	panchayats := []models.Panchayat{}
	for rows.Next() {
		p, err := scanPanchayat(rows)
		if err != nil {
			dbError(w, "scan panchayat", err)
			return
		}
		panchayats = append(panchayats, p)
	}
	if err := rows.Err(); err != nil {
		dbError(w, "list panchayats", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.PanchayatListResponse{
		Success: true,
		Data:    panchayats,
		Count:   len(panchayats),
	})
}

// GetPanchayat handles GET /panchayats/get-panchayat/{id}
func (h *PanchayatHandler) GetPanchayat(w http.ResponseWriter, r *http.Request) {
	p, err := h.load(r.PathValue("id"))
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Panchayat not found")
		return
	}
	if err != nil {
		dbError(w, "get panchayat", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.PanchayatResponse{Success: true, Data: p})
}

// CreatePanchayat handles POST /panchayats/create-panchayat
func (h *PanchayatHandler) CreatePanchayat(w http.ResponseWriter, r *http.Request) {
	var req models.PanchayatInput
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := validatePanchayat(&req); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	taken, err := exists(h.db, `SELECT 1 FROM panchayat WHERE code = $1`, req.Code)
	if err != nil {
		dbError(w, "check panchayat code", err)
		return
	}
	if taken {
		middleware.ErrorResponse(w, http.StatusConflict, "Panchayat code already exists")
		return
	}

	p := models.Panchayat{
		ID:         auth.GenerateID(),
		Name:       req.Name,
		Code:       req.Code,
		Address:    req.Address,
		TotalWards: req.TotalWards,
		CreatedAt:  time.Now().UTC(),
	}

	_, err = h.db.Exec(`
		INSERT INTO panchayat (id, name, code, address, total_wards, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.Name, p.Code, p.Address, p.TotalWards, p.CreatedAt)
	if isUniqueViolation(err) {
		middleware.ErrorResponse(w, http.StatusConflict, "Panchayat code already exists")
		return
	}
	if err != nil {
		dbError(w, "insert panchayat", err)
		return
	}

	slog.Info("panchayat created", "panchayat_id", p.ID, "code", p.Code, "admin_id", actingAdmin(r))

	middleware.JSONResponse(w, http.StatusCreated, models.PanchayatResponse{
		Success: true,
		Message: "Panchayat created successfully",
		Data:    p,
	})
}

// UpdatePanchayat handles PUT /panchayats/update-panchayat/{id}
func (h *PanchayatHandler) UpdatePanchayat(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req models.PanchayatInput
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := validatePanchayat(&req); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	p, err := h.load(id)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Panchayat not found")
		return
	}
	if err != nil {
		dbError(w, "get panchayat", err)
		return
	}

	taken, err := exists(h.db, `SELECT 1 FROM panchayat WHERE code = $1 AND id <> $2`, req.Code, id)
	if err != nil {
		dbError(w, "check panchayat code", err)
		return
	}
	if taken {
		middleware.ErrorResponse(w, http.StatusConflict, "Panchayat code already exists")
		return
	}

	p.Name, p.Code, p.Address, p.TotalWards = req.Name, req.Code, req.Address, req.TotalWards

	_, err = h.db.Exec(`
		UPDATE panchayat SET name = $1, code = $2, address = $3, total_wards = $4
		WHERE id = $5
	`, p.Name, p.Code, p.Address, p.TotalWards, id)
	if isUniqueViolation(err) {
		middleware.ErrorResponse(w, http.StatusConflict, "Panchayat code already exists")
		return
	}
	if err != nil {
		dbError(w, "update panchayat", err)
		return
	}

	slog.Info("panchayat updated", "panchayat_id", id, "admin_id", actingAdmin(r))

	middleware.JSONResponse(w, http.StatusOK, models.PanchayatResponse{
		Success: true,
		Message: "Panchayat updated successfully",
		Data:    p,
	})
}

// DeletePanchayat handles DELETE /panchayats/delete-panchayat/{id}
// A panchayat that still owns wards is not deleted.
func (h *PanchayatHandler) DeletePanchayat(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	found, err := exists(h.db, `SELECT 1 FROM panchayat WHERE id = $1`, id)
	if err != nil {
		dbError(w, "get panchayat", err)
		return
	}
	if !found {
		middleware.ErrorResponse(w, http.StatusNotFound, "Panchayat not found")
		return
	}

	wards, err := count(h.db, `SELECT COUNT(*) FROM ward WHERE panchayat_id = $1`, id)
	if err != nil {
		dbError(w, "count wards", err)
		return
	}
	if wards > 0 {
		middleware.ErrorResponse(w, http.StatusConflict, dependantsMessage("panchayat", wards, "ward", "wards"))
		return
	}

	if _, err := h.db.Exec(`DELETE FROM panchayat WHERE id = $1`, id); err != nil {
		dbError(w, "delete panchayat", err)
		return
	}

	slog.Info("panchayat deleted", "panchayat_id", id, "admin_id", actingAdmin(r))

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{
		Success: true,
		Message: "Panchayat deleted successfully",
	})
}
