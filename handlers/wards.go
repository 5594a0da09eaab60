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

type WardHandler struct {
	db  *sql.DB
	cfg cliparse.BackendConfig
}

func NewWardHandler(db *sql.DB, cfg cliparse.BackendConfig) *WardHandler {
	return &WardHandler{db: db, cfg: cfg}
}

const wardColumns = `id, ward_number, name, panchayat_id, booth_name, booth_latitude, booth_longitude, created_at`

func scanWard(s scanner) (models.Ward, error) {
	var (
		wd       models.Ward
		name     sql.NullString
		lat, lng sql.NullFloat64
	)
	err := s.Scan(&wd.ID, &wd.WardNumber, &wd.Name, &wd.Panchayat, &name, &lat, &lng, &wd.CreatedAt)
	if err != nil {
		return models.Ward{}, err
	}
	if name.Valid || lat.Valid || lng.Valid {
		wd.PollingBooth = &models.PollingBooth{
			Name:     name.String,
			Location: models.Location{Latitude: floatPtr(lat), Longitude: floatPtr(lng)},
		}
	}
	return wd, nil
}

func (h *WardHandler) load(id string) (models.Ward, error) {
	return scanWard(h.db.QueryRow(`SELECT `+wardColumns+` FROM ward WHERE id = $1`, id))
}

func (h *WardHandler) list(w http.ResponseWriter, query string, args ...any) ([]models.Ward, bool) {
	rows, err := h.db.Query(query, args...)
	if err != nil {
		dbError(w, "list wards", err)
		return nil, false
	}
	defer rows.Close()

	wards := []models.Ward{}
	for rows.Next() {
		wd, err := scanWard(rows)
		if err != nil {
			dbError(w, "scan ward", err)
			return nil, false
		}
		wards = append(wards, wd)
	}
	if err := rows.Err(); err != nil {
		dbError(w, "list wards", err)
		return nil, false
	}
	return wards, true
}

func boothHint(pb *models.PollingBooth) (sql.NullString, sql.NullFloat64, sql.NullFloat64) {
	if pb == nil {
		return sql.NullString{}, sql.NullFloat64{}, sql.NullFloat64{}
	}
	return nullString(strings.TrimSpace(pb.Name)), nullFloat(pb.Location.Latitude), nullFloat(pb.Location.Longitude)
}

func validateWard(in *models.WardInput) string {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return "Ward number and name are required"
	}
	if in.WardNumber <= 0 {
		return "Ward number must be a positive number"
	}
	return ""
}

func wardNumberTaken(number int) string {
	return fmt.Sprintf("Ward number %d already exists in this panchayat", number)
}

// GetAllWards handles GET /wards/get-all-wards
func (h *WardHandler) GetAllWards(w http.ResponseWriter, r *http.Request) {
	wards, ok := h.list(w, `SELECT `+wardColumns+` FROM ward ORDER BY panchayat_id, ward_number`)
	if !ok {
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.WardListResponse{Success: true, Wards: wards, Count: len(wards)})
}

// GetWard handles GET /wards/get-ward/{id}
func (h *WardHandler) GetWard(w http.ResponseWriter, r *http.Request) {
	wd, err := h.load(r.PathValue("id"))
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Ward not found")
		return
	}
	if err != nil {
		dbError(w, "get ward", err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.WardResponse{Success: true, Data: wd})
}

// GetWardsByPanchayat handles GET /wards/get-wards-by-panchayat/{id}
func (h *WardHandler) GetWardsByPanchayat(w http.ResponseWriter, r *http.Request) {
	panchayatID := r.PathValue("id")

	found, err := exists(h.db, `SELECT 1 FROM panchayat WHERE id = $1`, panchayatID)
	if err != nil {
		dbError(w, "get panchayat", err)
		return
	}
	if !found {
		middleware.ErrorResponse(w, http.StatusNotFound, "Panchayat not found")
		return
	}

	wards, ok := h.list(w, `SELECT `+wardColumns+` FROM ward WHERE panchayat_id = $1 ORDER BY ward_number`, panchayatID)
	if !ok {
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.WardListResponse{Success: true, Wards: wards, Count: len(wards)})
}

// GetBoothsByWard handles GET /wards/get-booths-by-ward/{id}
func (h *WardHandler) GetBoothsByWard(w http.ResponseWriter, r *http.Request) {
	wd, err := h.load(r.PathValue("id"))
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Ward not found")
		return
	}
	if err != nil {
		dbError(w, "get ward", err)
		return
	}

	booths, err := listBooths(h.db, `SELECT `+boothColumns+` FROM booth WHERE ward_id = $1 ORDER BY name`, wd.ID)
	if err != nil {
		dbError(w, "list booths", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.BoothListResponse{
		Success: true,
		Ward:    &wd,
		Booths:  booths,
		Count:   len(booths),
	})
}

// CreateWard handles POST /wards/create-ward
func (h *WardHandler) CreateWard(w http.ResponseWriter, r *http.Request) {
	var req models.WardInput
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := validateWard(&req); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	found, err := exists(h.db, `SELECT 1 FROM panchayat WHERE id = $1`, req.Panchayat)
	if err != nil {
		dbError(w, "get panchayat", err)
		return
	}
	if !found {
		middleware.ErrorResponse(w, http.StatusNotFound, "Panchayat not found")
		return
	}

	taken, err := exists(h.db, `SELECT 1 FROM ward WHERE panchayat_id = $1 AND ward_number = $2`, req.Panchayat, req.WardNumber)
	if err != nil {
		dbError(w, "check ward number", err)
		return
	}
	if taken {
		middleware.ErrorResponse(w, http.StatusConflict, wardNumberTaken(req.WardNumber))
		return
	}

	wd := models.Ward{
		ID:         auth.GenerateID(),
		WardNumber: req.WardNumber,
		Name:       req.Name,
		Panchayat:  req.Panchayat,
		CreatedAt:  time.Now().UTC(),
	}
	name, lat, lng := boothHint(req.PollingBooth)

	_, err = h.db.Exec(`
		INSERT INTO ward (id, panchayat_id, ward_number, name, booth_name, booth_latitude, booth_longitude, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, wd.ID, wd.Panchayat, wd.WardNumber, wd.Name, name, lat, lng, wd.CreatedAt)
	if isUniqueViolation(err) {
		middleware.ErrorResponse(w, http.StatusConflict, wardNumberTaken(req.WardNumber))
		return
	}
	if err != nil {
		dbError(w, "insert ward", err)
		return
	}

	// Read back so the optional hint is shaped exactly as stored
	wd, err = h.load(wd.ID)
	if err != nil {
		dbError(w, "get ward", err)
		return
	}

	slog.Info("ward created", "ward_id", wd.ID, "panchayat_id", wd.Panchayat, "ward_number", wd.WardNumber, "admin_id", actingAdmin(r))

	middleware.JSONResponse(w, http.StatusCreated, models.WardResponse{
		Success: true,
		Message: "Ward created successfully",
		Data:    wd,
	})
}

// UpdateWard handles PUT /wards/update-ward/{id}
// The owning panchayat is kept when the request omits it.
func (h *WardHandler) UpdateWard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req models.WardInput
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := validateWard(&req); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	current, err := h.load(id)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Ward not found")
		return
	}
	if err != nil {
		dbError(w, "get ward", err)
		return
	}

	if req.Panchayat == "" {
		req.Panchayat = current.Panchayat
	}
	if req.Panchayat != current.Panchayat {
		middleware.ErrorResponse(w, http.StatusBadRequest, "A ward cannot be moved to another panchayat")
		return
	}

	taken, err := exists(h.db, `
		SELECT 1 FROM ward WHERE panchayat_id = $1 AND ward_number = $2 AND id <> $3
	`, req.Panchayat, req.WardNumber, id)
	if err != nil {
		dbError(w, "check ward number", err)
		return
	}
	if taken {
		middleware.ErrorResponse(w, http.StatusConflict, wardNumberTaken(req.WardNumber))
		return
	}

	name, lat, lng := boothHint(req.PollingBooth)
	_, err = h.db.Exec(`
		UPDATE ward
		SET ward_number = $1, name = $2, booth_name = $3, booth_latitude = $4, booth_longitude = $5
		WHERE id = $6
	`, req.WardNumber, req.Name, name, lat, lng, id)
	if isUniqueViolation(err) {
		middleware.ErrorResponse(w, http.StatusConflict, wardNumberTaken(req.WardNumber))
		return
	}
	if err != nil {
		dbError(w, "update ward", err)
		return
	}

	wd, err := h.load(id)
	if err != nil {
		dbError(w, "get ward", err)
		return
	}

	slog.Info("ward updated", "ward_id", id, "admin_id", actingAdmin(r))

	middleware.JSONResponse(w, http.StatusOK, models.WardResponse{
		Success: true,
		Message: "Ward updated successfully",
		Data:    wd,
	})
}

// DeleteWard handles DELETE /wards/delete-ward/{id}
// A ward that still owns polling booths is not deleted.
func (h *WardHandler) DeleteWard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	found, err := exists(h.db, `SELECT 1 FROM ward WHERE id = $1`, id)
	if err != nil {
		dbError(w, "get ward", err)
		return
	}
	if !found {
		middleware.ErrorResponse(w, http.StatusNotFound, "Ward not found")
		return
	}

	booths, err := count(h.db, `SELECT COUNT(*) FROM booth WHERE ward_id = $1`, id)
	if err != nil {
		dbError(w, "count booths", err)
		return
	}
	if booths > 0 {
		middleware.ErrorResponse(w, http.StatusConflict, dependantsMessage("ward", booths, "polling booth", "polling booths"))
		return
	}

	if _, err := h.db.Exec(`DELETE FROM ward WHERE id = $1`, id); err != nil {
		dbError(w, "delete ward", err)
		return
	}

	slog.Info("ward deleted", "ward_id", id, "admin_id", actingAdmin(r))

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{
		Success: true,
		Message: "Ward deleted successfully",
	})
}
