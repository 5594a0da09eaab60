// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/rollcall/auth"
	"github.com/danielhkuo/rollcall/cliparse"
	"github.com/danielhkuo/rollcall/middleware"
	"github.com/danielhkuo/rollcall/models"
)

const (
	// Photo plus text fields; the photo limit itself is checked by PhotoStore.
	maxVoterBody   = models.MaxPhotoBytes + 1<<20
	maxVoterMemory = 4 << 20
)

type VoterHandler struct {
	db     *sql.DB
	cfg    cliparse.BackendConfig
	photos *PhotoStore
}

func NewVoterHandler(db *sql.DB, cfg cliparse.BackendConfig, photos *PhotoStore) *VoterHandler {
	return &VoterHandler{db: db, cfg: cfg, photos: photos}
}

const voterColumns = `id, voter_id, name, age, gender, guardian_name, guardian_relation,
	house_number, house_name, political_affiliation, party, serial_number, status, has_voted,
	photo_url, photo_content_type, booth_id, ward_id, panchayat_id, created_at`

func scanVoter(s scanner) (models.Voter, error) {
	var (
		v                   models.Voter
		photoURL, photoType sql.NullString
	)
	err := s.Scan(&v.ID, &v.VoterID, &v.Name, &v.Age, &v.Gender, &v.Guardian.Name, &v.Guardian.Relation,
		&v.Address.HouseNumber, &v.Address.HouseName, &v.PoliticalAffiliation, &v.Party, &v.SerialNumber,
		&v.Status, &v.HasVoted, &photoURL, &photoType, &v.Booth, &v.Ward, &v.Panchayat, &v.CreatedAt)
	if err != nil {
		return models.Voter{}, err
	}
	if photoURL.Valid {
		v.Photo = &models.Photo{URL: photoURL.String, ContentType: photoType.String}
	}
	return v, nil
}

func (h *VoterHandler) load(id string) (models.Voter, error) {
	return scanVoter(h.db.QueryRow(`SELECT `+voterColumns+` FROM voter WHERE id = $1`, id))
}

func (h *VoterHandler) list(w http.ResponseWriter, query string, args ...any) ([]models.Voter, bool) {
	rows, err := h.db.Query(query, args...)
	if err != nil {
		dbError(w, "list voters", err)
		return nil, false
	}
	defer rows.Close()

	voters := []models.Voter{}
	for rows.Next() {
		v, err := scanVoter(rows)
		if err != nil {
			dbError(w, "scan voter", err)
			return nil, false
		}
		voters = append(voters, v)
	}
	if err := rows.Err(); err != nil {
		dbError(w, "list voters", err)
		return nil, false
	}
	return voters, true
}

// applyVoterForm copies the fields present in form onto v.
// guardian and address arrive as JSON strings.
func applyVoterForm(v *models.Voter, form *multipart.Form) string {
	get := func(key string) (string, bool) {
		vals, ok := form.Value[key]
		if !ok || len(vals) == 0 {
			return "", false
		}
		return strings.TrimSpace(vals[0]), true
	}

	if s, ok := get("voterId"); ok {
		v.VoterID = s
	}
	if s, ok := get("name"); ok {
		v.Name = s
	}
	if s, ok := get("age"); ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			return "Age must be a number"
		}
		v.Age = n
	}
	if s, ok := get("gender"); ok {
		v.Gender = s
	}
	if s, ok := get("guardian"); ok {
		if err := json.Unmarshal([]byte(s), &v.Guardian); err != nil {
			return "Invalid guardian details"
		}
	}
	if s, ok := get("address"); ok {
		if err := json.Unmarshal([]byte(s), &v.Address); err != nil {
			return "Invalid address details"
		}
	}
	if s, ok := get("politicalAffiliation"); ok && s != "" {
		v.PoliticalAffiliation = s
	}
	if s, ok := get("party"); ok {
		v.Party = s
	}
	if s, ok := get("serialNumber"); ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			return "Serial number must be a number"
		}
		v.SerialNumber = n
	}
	if s, ok := get("status"); ok && s != "" {
		v.Status = s
	}
	if s, ok := get("hasVoted"); ok && s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return "hasVoted must be true or false"
		}
		v.HasVoted = b
	}
	if s, ok := get("booth"); ok && s != "" {
		v.Booth = s
	}
	return ""
}

func validateVoter(v *models.Voter) string {
	v.Guardian.Name = strings.TrimSpace(v.Guardian.Name)
	v.Address.HouseNumber = strings.TrimSpace(v.Address.HouseNumber)
	v.Address.HouseName = strings.TrimSpace(v.Address.HouseName)

	switch {
	case v.VoterID == "":
		return "Voter ID is required"
	case v.Name == "":
		return "Name is required"
	case v.Age < 18:
		return "Age must be 18 or above"
	case !models.OneOf(v.Gender, models.Genders):
		return "Gender must be male, female or other"
	case v.Guardian.Name == "":
		return "Guardian name is required"
	case !models.OneOf(v.Guardian.Relation, models.Relations):
		return "Guardian relation must be father, mother, husband or other"
	case v.Address.HouseNumber == "":
		return "House number is required"
	case v.Address.HouseName == "":
		return "House name is required"
	case !models.OneOf(v.PoliticalAffiliation, models.Affiliations):
		return "Invalid political affiliation"
	case v.SerialNumber <= 0:
		return "Serial number is required"
	case !models.OneOf(v.Status, models.Statuses):
		return "Invalid status"
	case v.Booth == "":
		return "Booth is required"
	}
	return ""
}

// placeVoter copies the booth's ward and panchayat onto v.
func (h *VoterHandler) placeVoter(w http.ResponseWriter, v *models.Voter) bool {
	err := h.db.QueryRow(`SELECT ward_id, panchayat_id FROM booth WHERE id = $1`, v.Booth).Scan(&v.Ward, &v.Panchayat)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Booth not found")
		return false
	}
	if err != nil {
		dbError(w, "get booth", err)
		return false
	}
	return true
}

// storePhoto saves the optional photo part. It reports false after answering w.
func (h *VoterHandler) storePhoto(w http.ResponseWriter, r *http.Request) (*models.Photo, bool) {
	file, _, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, true
	}
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid photo upload")
		return nil, false
	}
	defer file.Close()

	photo, err := h.photos.Save(file)
	switch {
	case errors.Is(err, ErrPhotoTooLarge):
		middleware.ErrorResponse(w, http.StatusBadRequest, "Image size must be less than 2MB")
		return nil, false
	case errors.Is(err, ErrPhotoNotImage):
		middleware.ErrorResponse(w, http.StatusBadRequest, "Please select a valid image file")
		return nil, false
	case err != nil:
		slog.Error("failed to store photo", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to store photo")
		return nil, false
	}
	return &photo, true
}

func parseVoterMultipart(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxVoterBody)
	if err := r.ParseMultipartForm(maxVoterMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			middleware.ErrorResponse(w, http.StatusRequestEntityTooLarge, "Image size must be less than 2MB")
			return false
		}
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid multipart form")
		return false
	}
	return true
}

func photoColumns(p *models.Photo) (sql.NullString, sql.NullString) {
	if p == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return nullString(p.URL), nullString(p.ContentType)
}

// GetAllVoters handles GET /voters/get-all-voters
func (h *VoterHandler) GetAllVoters(w http.ResponseWriter, r *http.Request) {
	voters, ok := h.list(w, `SELECT `+voterColumns+` FROM voter ORDER BY booth_id, serial_number`)
	if !ok {
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.VoterListResponse{Success: true, Voters: voters, Count: len(voters)})
}

// GetVotersByBooth handles GET /voters/get-voters-by-booth/{id}
func (h *VoterHandler) GetVotersByBooth(w http.ResponseWriter, r *http.Request) {
	boothID := r.PathValue("id")

	found, err := exists(h.db, `SELECT 1 FROM booth WHERE id = $1`, boothID)
	if err != nil {
		dbError(w, "get booth", err)
		return
	}
	if !found {
		middleware.ErrorResponse(w, http.StatusNotFound, "Booth not found")
		return
	}

	voters, ok := h.list(w, `SELECT `+voterColumns+` FROM voter WHERE booth_id = $1 ORDER BY serial_number`, boothID)
	if !ok {
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.VoterListResponse{Success: true, Voters: voters, Count: len(voters)})
}

// GetVoterByID handles GET /voters/get-voter-by-id/{id}
func (h *VoterHandler) GetVoterByID(w http.ResponseWriter, r *http.Request) {
	v, err := h.load(r.PathValue("id"))
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Voter not found")
		return
	}
	if err != nil {
		dbError(w, "get voter", err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.VoterResponse{Success: true, Data: v})
}

// CreateVoter handles POST /voters/create-voter (multipart/form-data)
func (h *VoterHandler) CreateVoter(w http.ResponseWriter, r *http.Request) {
	if !parseVoterMultipart(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	v := models.Voter{
		PoliticalAffiliation: models.AffiliationUnknown,
		Status:               models.StatusActive,
	}
	if msg := applyVoterForm(&v, r.MultipartForm); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validateVoter(&v); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}
	if !h.placeVoter(w, &v) {
		return
	}

	taken, err := exists(h.db, `SELECT 1 FROM voter WHERE voter_id = $1`, v.VoterID)
	if err != nil {
		dbError(w, "check voter id", err)
		return
	}
	if taken {
		middleware.ErrorResponse(w, http.StatusConflict, "Voter ID already exists")
		return
	}

	photo, ok := h.storePhoto(w, r)
	if !ok {
		return
	}
	v.Photo = photo
	v.ID = auth.GenerateID()
	v.CreatedAt = time.Now().UTC()

	url, contentType := photoColumns(v.Photo)
	_, err = h.db.Exec(`
		INSERT INTO voter (id, booth_id, ward_id, panchayat_id, voter_id, name, age, gender,
			guardian_name, guardian_relation, house_number, house_name, political_affiliation,
			party, serial_number, status, has_voted, photo_url, photo_content_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`, v.ID, v.Booth, v.Ward, v.Panchayat, v.VoterID, v.Name, v.Age, v.Gender,
		v.Guardian.Name, v.Guardian.Relation, v.Address.HouseNumber, v.Address.HouseName, v.PoliticalAffiliation,
		v.Party, v.SerialNumber, v.Status, v.HasVoted, url, contentType, v.CreatedAt)
	if err != nil {
		if v.Photo != nil {
			h.photos.Remove(v.Photo.URL)
		}
		if isUniqueViolation(err) {
			middleware.ErrorResponse(w, http.StatusConflict, "Voter ID already exists")
			return
		}
		dbError(w, "insert voter", err)
		return
	}

	slog.Info("voter created", "voter_id", v.ID, "booth_id", v.Booth, "has_photo", v.Photo != nil, "admin_id", actingAdmin(r))

	middleware.JSONResponse(w, http.StatusCreated, models.VoterResponse{
		Success: true,
		Message: "Voter created successfully",
		Data:    v,
	})
}

// UpdateVoter handles PUT /voters/update-voter/{id}
// A multipart body replaces the submitted fields and optionally the photo.
// A JSON body changes only status and hasVoted.
func (h *VoterHandler) UpdateVoter(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		h.updateVoterForm(w, r, id)
		return
	}

	var patch models.VoterStatusPatch
	if err := middleware.ParseJSONBody(r, &patch); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if patch.Status == nil && patch.HasVoted == nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Nothing to update")
		return
	}
	if patch.Status != nil && !models.OneOf(*patch.Status, models.Statuses) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid status")
		return
	}

	v, err := h.load(id)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Voter not found")
		return
	}
	if err != nil {
		dbError(w, "get voter", err)
		return
	}

	if patch.Status != nil {
		v.Status = *patch.Status
	}
	if patch.HasVoted != nil {
		v.HasVoted = *patch.HasVoted
	}

	if _, err := h.db.Exec(`UPDATE voter SET status = $1, has_voted = $2 WHERE id = $3`, v.Status, v.HasVoted, id); err != nil {
		dbError(w, "update voter status", err)
		return
	}

	slog.Info("voter status updated", "voter_id", id, "status", v.Status, "has_voted", v.HasVoted, "admin_id", actingAdmin(r))

	middleware.JSONResponse(w, http.StatusOK, models.VoterResponse{
		Success: true,
		Message: "Voter updated successfully",
		Data:    v,
	})
}

func (h *VoterHandler) updateVoterForm(w http.ResponseWriter, r *http.Request, id string) {
	if !parseVoterMultipart(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	v, err := h.load(id)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Voter not found")
		return
	}
	if err != nil {
		dbError(w, "get voter", err)
		return
	}

	if msg := applyVoterForm(&v, r.MultipartForm); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validateVoter(&v); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}
	if !h.placeVoter(w, &v) {
		return
	}

	taken, err := exists(h.db, `SELECT 1 FROM voter WHERE voter_id = $1 AND id <> $2`, v.VoterID, id)
	if err != nil {
		dbError(w, "check voter id", err)
		return
	}
	if taken {
		middleware.ErrorResponse(w, http.StatusConflict, "Voter ID already exists")
		return
	}

	photo, ok := h.storePhoto(w, r)
	if !ok {
		return
	}
	previous := v.Photo
	if photo != nil {
		v.Photo = photo
	}

	url, contentType := photoColumns(v.Photo)
	_, err = h.db.Exec(`
		UPDATE voter
		SET booth_id = $1, ward_id = $2, panchayat_id = $3, voter_id = $4, name = $5, age = $6,
			gender = $7, guardian_name = $8, guardian_relation = $9, house_number = $10,
			house_name = $11, political_affiliation = $12, party = $13, serial_number = $14,
			status = $15, has_voted = $16, photo_url = $17, photo_content_type = $18
		WHERE id = $19
	`, v.Booth, v.Ward, v.Panchayat, v.VoterID, v.Name, v.Age,
		v.Gender, v.Guardian.Name, v.Guardian.Relation, v.Address.HouseNumber,
		v.Address.HouseName, v.PoliticalAffiliation, v.Party, v.SerialNumber,
		v.Status, v.HasVoted, url, contentType, id)
	if err != nil {
		if photo != nil {
			h.photos.Remove(photo.URL)
		}
		if isUniqueViolation(err) {
			middleware.ErrorResponse(w, http.StatusConflict, "Voter ID already exists")
			return
		}
		dbError(w, "update voter", err)
		return
	}

	if photo != nil && previous != nil {
		h.photos.Remove(previous.URL)
	}

	slog.Info("voter updated", "voter_id", id, "new_photo", photo != nil, "admin_id", actingAdmin(r))

	middleware.JSONResponse(w, http.StatusOK, models.VoterResponse{
		Success: true,
		Message: "Voter updated successfully",
		Data:    v,
	})
}

// DeleteVoter handles DELETE /voters/delete-voter/{id}
func (h *VoterHandler) DeleteVoter(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	v, err := h.load(id)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Voter not found")
		return
	}
	if err != nil {
		dbError(w, "get voter", err)
		return
	}

	if _, err := h.db.Exec(`DELETE FROM voter WHERE id = $1`, id); err != nil {
		dbError(w, "delete voter", err)
		return
	}
	if v.Photo != nil {
		h.photos.Remove(v.Photo.URL)
	}

	slog.Info("voter deleted", "voter_id", id, "admin_id", actingAdmin(r))

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{
		Success: true,
		Message: "Voter deleted successfully",
	})
}
