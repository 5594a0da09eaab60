// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielhkuo/rollcall/auth"
	"github.com/danielhkuo/rollcall/cliparse"
	"github.com/danielhkuo/rollcall/db"
	"github.com/danielhkuo/rollcall/models"
)

const (
	TestJWTSecret     = "test-jwt-secret"
	TestAdminEmail    = "admin@rollcall.test"
	TestAdminPassword = "correct horse battery staple"
)

var dbSeq atomic.Int64

// SetupTestDB creates a fresh in-memory SQLite database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Each test gets its own named in-memory database
	url := fmt.Sprintf("file:rollcall-test-%d?mode=memory&cache=shared", dbSeq.Add(1))
	conn, err := db.Open("sqlite", url)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard backend configuration for tests
func GetTestConfig(t *testing.T) cliparse.BackendConfig {
	t.Helper()
	return cliparse.BackendConfig{
		Port:         3318,
		DatabaseURL:  ":memory:",
		DatabaseType: "sqlite",
		JWTSecret:    TestJWTSecret,
		UploadDir:    t.TempDir(),
		TokenTTL:     time.Hour,
	}
}

// CreateTestAdmin stores an administrator with TestAdminEmail/TestAdminPassword
func CreateTestAdmin(t *testing.T, conn *sql.DB) models.Admin {
	t.Helper()

	hash, err := auth.HashPassword(TestAdminPassword)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	admin := models.Admin{ID: auth.GenerateID(), Name: "Test Admin", Email: TestAdminEmail}
	_, err = conn.Exec(`
		INSERT INTO admin (id, name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, admin.ID, admin.Name, admin.Email, hash, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test admin: %v", err)
	}

	return admin
}

// AdminToken issues a bearer token for admin signed with cfg's secret
func AdminToken(t *testing.T, cfg cliparse.BackendConfig, admin models.Admin) string {
	t.Helper()

	token, err := auth.IssueToken(auth.Claims{AdminID: admin.ID, Email: admin.Email}, cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	return token
}

// AuthHeader returns the Authorization header for a token
func AuthHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// CreateTestPanchayat inserts a panchayat and returns its ID
func CreateTestPanchayat(t *testing.T, conn *sql.DB, name, code string, totalWards int) string {
	t.Helper()

	id := auth.GenerateID()
	_, err := conn.Exec(`
		INSERT INTO panchayat (id, name, code, address, total_wards, created_at)
		VALUES ($1, $2, $3, 'Thrissur', $4, $5)
	`, id, name, code, totalWards, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test panchayat: %v", err)
	}

	return id
}

// CreateTestWard inserts a ward under a panchayat and returns its ID
func CreateTestWard(t *testing.T, conn *sql.DB, panchayatID string, number int, name string) string {
	t.Helper()

	id := auth.GenerateID()
	_, err := conn.Exec(`
		INSERT INTO ward (id, panchayat_id, ward_number, name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, panchayatID, number, name, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test ward: %v", err)
	}

	return id
}

// CreateTestBooth inserts a booth under a ward and returns its ID
func CreateTestBooth(t *testing.T, conn *sql.DB, wardID, name, code string) string {
	t.Helper()

	var panchayatID string
	if err := conn.QueryRow(`SELECT panchayat_id FROM ward WHERE id = $1`, wardID).Scan(&panchayatID); err != nil {
		t.Fatalf("Failed to look up ward: %v", err)
	}

	id := auth.GenerateID()
	_, err := conn.Exec(`
		INSERT INTO booth (id, ward_id, panchayat_id, name, code, district, description, created_at)
		VALUES ($1, $2, $3, $4, $5, 'Thrissur', '', $6)
	`, id, wardID, panchayatID, name, code, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test booth: %v", err)
	}

	return id
}

// TestVoter describes a voter row for CreateTestVoter
type TestVoter struct {
	VoterID     string
	Name        string
	HouseNumber string
	Status      string
	HasVoted    bool
	Serial      int
}

// CreateTestVoter inserts a voter into a booth and returns its ID
func CreateTestVoter(t *testing.T, conn *sql.DB, boothID string, v TestVoter) string {
	t.Helper()

	var wardID, panchayatID string
	err := conn.QueryRow(`SELECT ward_id, panchayat_id FROM booth WHERE id = $1`, boothID).Scan(&wardID, &panchayatID)
	if err != nil {
		t.Fatalf("Failed to look up booth: %v", err)
	}

	if v.Status == "" {
		v.Status = models.StatusActive
	}
	if v.Serial == 0 {
		v.Serial = 1
	}
	if v.HouseNumber == "" {
		v.HouseNumber = "1"
	}

	id := auth.GenerateID()
	_, err = conn.Exec(`
		INSERT INTO voter (id, booth_id, ward_id, panchayat_id, voter_id, name, age, gender,
			guardian_name, guardian_relation, house_number, house_name, political_affiliation,
			party, serial_number, status, has_voted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 30, 'female', 'Guardian', 'father', $7, 'Test House',
			'unknown', '', $8, $9, $10, $11)
	`, id, boothID, wardID, panchayatID, v.VoterID, v.Name, v.HouseNumber, v.Serial, v.Status, v.HasVoted, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test voter: %v", err)
	}

	return id
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body any, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
