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

type BoothHandler struct {
	db  *sql.DB
	cfg cliparse.BackendConfig
}

func NewBoothHandler(db *sql.DB, cfg cliparse.BackendConfig) *BoothHandler {
	return &BoothHandler{db: db, cfg: cfg}
}

const boothColumns = `id, name, code, district, description, ward_id, panchayat_id, created_at`

func scanBooth(s scanner) (models.Booth, error) {
	var b models.Booth
	err := s.Scan(&b.ID, &b.Name, &b.Code, &b.District, &b.Description, &b.Ward, &b.Panchayat, &b.CreatedAt)
	return b, err
}

func listBooths(db *sql.DB, query string, args ...any) ([]models.Booth, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	booths := []models.Booth{}
	for rows.Next() {
		b, err := scanBooth(rows)
		if err != nil {
			return nil, err
		}
		booths = append(booths, b)
	}
	return booths, rows.Err()
}

func (h *BoothHandler) loadDetail(id string) (models.BoothDetail, error) {
	var (
		d             models.BoothDetail
		ward          models.WardRef
		panchayat     models.PanchayatRef
		wardName      sql.NullString
		wardNumber    sql.NullInt64
		panchayatName sql.NullString
	)
	err := h.db.QueryRow(`
		SELECT b.id, b.name, b.code, b.district, b.description, b.created_at,
		       b.ward_id, w.name, w.ward_number, b.panchayat_id, p.name
		FROM booth b
		LEFT JOIN ward w ON w.id = b.ward_id
		LEFT JOIN panchayat p ON p.id = b.panchayat_id
		WHERE b.id = $1
	`, id).Scan(&d.ID, &d.Name, &d.Code, &d.District, &d.Description, &d.CreatedAt,
		&ward.ID, &wardName, &wardNumber, &panchayat.ID, &panchayatName)
	if err != nil {
		return models.BoothDetail{}, err
	}

	ward.Name, ward.WardNumber = wardName.String, int(wardNumber.Int64)
	panchayat.Name = panchayatName.String
	d.Ward, d.Panchayat = &ward, &panchayat
	return d, nil
}

func validateBooth(in *models.BoothInput) string {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.TrimSpace(in.Code)
	in.District = strings.TrimSpace(in.District)
	in.Description = strings.TrimSpace(in.Description)

	switch {
	case in.Name == "":
		return "Booth name is required"
	case in.Code == "":
		return "Booth code is required"
	case in.District == "":
		return "District is required"
	}
	return ""
}

// resolveWard fills in the panchayat from the ward and rejects mismatches.
func (h *BoothHandler) resolveWard(w http.ResponseWriter, in *models.BoothInput) bool {
	var panchayatID string
	err := h.db.QueryRow(`SELECT panchayat_id FROM ward WHERE id = $1`, in.Ward).Scan(&panchayatID)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Ward not found")
		return false
	}
	if err != nil {
		dbError(w, "get ward", err)
		return false
	}

	if in.Panchayat == "" {
		in.Panchayat = panchayatID
	}
	if in.Panchayat != panchayatID {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Ward does not belong to the given panchayat")
		return false
	}
	return true
}

// GetAllBooths handles GET /booths/get-all-booths
func (h *BoothHandler) GetAllBooths(w http.ResponseWriter, r *http.Request) {
	booths, err := listBooths(h.db, `SELECT `+boothColumns+` FROM booth ORDER BY name`)
	if err != nil {
		dbError(w, "list booths", err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.BoothListResponse{Success: true, Booths: booths, Count: len(booths)})
}

// GetBoothByID handles GET /booths/get-Booth-by-id/{id}
func (h *BoothHandler) GetBoothByID(w http.ResponseWriter, r *http.Request) {
	d, err := h.loadDetail(r.PathValue("id"))
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Booth not found")
		return
	}
	if err != nil {
		dbError(w, "get booth", err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.BoothResponse{Success: true, Booth: d})
}

// CreateBooth handles POST /booths/create-Booth
func (h *BoothHandler) CreateBooth(w http.ResponseWriter, r *http.Request) {
	var req models.BoothInput
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := validateBooth(&req); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}
	if req.Ward == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Ward is required")
		return
	}
	if !h.resolveWard(w, &req) {
		return
	}

	taken, err := exists(h.db, `SELECT 1 FROM booth WHERE code = $1`, req.Code)
	if err != nil {
		dbError(w, "check booth code", err)
		return
	}
	if taken {
		middleware.ErrorResponse(w, http.StatusConflict, "Booth code already exists")
		return
	}

	id := auth.GenerateID()
	_, err = h.db.Exec(`
		INSERT INTO booth (id, ward_id, panchayat_id, name, code, district, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, id, req.Ward, req.Panchayat, req.Name, req.Code, req.District, req.Description, time.Now().UTC())
	if isUniqueViolation(err) {
		middleware.ErrorResponse(w, http.StatusConflict, "Booth code already exists")
		return
	}
	if err != nil {
		dbError(w, "insert booth", err)
		return
	}

	d, err := h.loadDetail(id)
	if err != nil {
		dbError(w, "get booth", err)
		return
	}

	slog.Info("booth created", "booth_id", id, "ward_id", req.Ward, "admin_id", actingAdmin(r))

	middleware.JSONResponse(w, http.StatusCreated, models.BoothResponse{
		Success: true,
		Message: "Booth created successfully",
		Booth:   d,
	})
}

// UpdateBooth handles PUT /booths/update-Booth/{id}
func (h *BoothHandler) UpdateBooth(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req models.BoothInput
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := validateBooth(&req); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	var currentWard string
	err := h.db.QueryRow(`SELECT ward_id FROM booth WHERE id = $1`, id).Scan(&currentWard)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Booth not found")
		return
	}
	if err != nil {
		dbError(w, "get booth", err)
		return
	}

	if req.Ward == "" {
		req.Ward = currentWard
	}
	if !h.resolveWard(w, &req) {
		return
	}

	taken, err := exists(h.db, `SELECT 1 FROM booth WHERE code = $1 AND id <> $2`, req.Code, id)
	if err != nil {
		dbError(w, "check booth code", err)
		return
	}
	if taken {
		middleware.ErrorResponse(w, http.StatusConflict, "Booth code already exists")
		return
	}

	_, err = h.db.Exec(`
		UPDATE booth
		SET name = $1, code = $2, district = $3, description = $4, ward_id = $5, panchayat_id = $6
		WHERE id = $7
	`, req.Name, req.Code, req.District, req.Description, req.Ward, req.Panchayat, id)
	if isUniqueViolation(err) {
		middleware.ErrorResponse(w, http.StatusConflict, "Booth code already exists")
		return
	}
	if err != nil {
		dbError(w, "update booth", err)
		return
	}

	d, err := h.loadDetail(id)
	if err != nil {
		dbError(w, "get booth", err)
		return
	}

	slog.Info("booth updated", "booth_id", id, "admin_id", actingAdmin(r))

	middleware.JSONResponse(w, http.StatusOK, models.BoothResponse{
		Success: true,
		Message: "Booth updated successfully",
		Booth:   d,
	})
}

// DeleteBooth handles DELETE /booths/delete-Booth/{id}
// A booth that still has voters on its roll is not deleted.
func (h *BoothHandler) DeleteBooth(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	found, err := exists(h.db, `SELECT 1 FROM booth WHERE id = $1`, id)
	if err != nil {
		dbError(w, "get booth", err)
		return
	}
	if !found {
		middleware.ErrorResponse(w, http.StatusNotFound, "Booth not found")
		return
	}

	voters, err := count(h.db, `SELECT COUNT(*) FROM voter WHERE booth_id = $1`, id)
	if err != nil {
		dbError(w, "count voters", err)
		return
	}
	if voters > 0 {
		middleware.ErrorResponse(w, http.StatusConflict, dependantsMessage("booth", voters, "voter", "voters"))
		return
	}

	if _, err := h.db.Exec(`DELETE FROM booth WHERE id = $1`, id); err != nil {
		dbError(w, "delete booth", err)
		return
	}

	slog.Info("booth deleted", "booth_id", id, "admin_id", actingAdmin(r))

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{
		Success: true,
		Message: "Booth deleted successfully",
	})
}
