// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/rollcall/models"
	"github.com/danielhkuo/rollcall/testutil"
)

// TestFullHierarchyWorkflow tests the complete end-to-end workflow:
// 1. Sign in
// 2. Create panchayat, ward and booth
// 3. Register a voter and mark them voted
// 4. Deletes are refused while children exist
// 5. Delete bottom-up
func TestFullHierarchyWorkflow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig(t)
	testutil.CreateTestAdmin(t, db)

	authHandler := NewAuthHandler(db, cfg)
	panchayatHandler := NewPanchayatHandler(db, cfg)
	wardHandler := NewWardHandler(db, cfg)
	boothHandler := NewBoothHandler(db, cfg)
	voterHandler := NewVoterHandler(db, cfg, NewPhotoStore(cfg.UploadDir))

	// Step 1: Sign in
	req := testutil.MakeRequest("POST", "/auth/login", models.LoginRequest{Email: testutil.TestAdminEmail, Password: testutil.TestAdminPassword}, nil)
	w := httptest.NewRecorder()
	authHandler.Login(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Step 1 - Login failed: %d - %s", w.Code, w.Body.String())
	}
	var login models.LoginResponse
	testutil.AssertJSON(t, w, &login)
	if login.Data.AccessToken == "" {
		t.Fatal("Step 1 - Missing access token")
	}

	// Step 2: Build the hierarchy
	w = httptest.NewRecorder()
	panchayatHandler.CreatePanchayat(w, testutil.MakeRequest("POST", "/panchayats/create-panchayat",
		models.PanchayatInput{Name: "Kodakara", Code: "KDK", TotalWards: 18, Address: "Thrissur"}, nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("Step 2 - Create panchayat failed: %d - %s", w.Code, w.Body.String())
	}
	var panchayat models.PanchayatResponse
	testutil.AssertJSON(t, w, &panchayat)
	pid := panchayat.Data.ID

	lat, lng := 10.37, 76.30
	w = httptest.NewRecorder()
	wardHandler.CreateWard(w, testutil.MakeRequest("POST", "/wards/create-ward", models.WardInput{
		WardNumber: 4,
		Name:       "Vasupuram",
		Panchayat:  pid,
		PollingBooth: &models.PollingBooth{
			Name:     "GLPS Vasupuram",
			Location: models.Location{Latitude: &lat, Longitude: &lng},
		},
	}, nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("Step 2 - Create ward failed: %d - %s", w.Code, w.Body.String())
	}
	var ward models.WardResponse
	testutil.AssertJSON(t, w, &ward)
	wid := ward.Data.ID

	w = httptest.NewRecorder()
	boothHandler.CreateBooth(w, testutil.MakeRequest("POST", "/booths/create-Booth",
		models.BoothInput{Name: "Govt LP School", Code: "B-01", District: "Thrissur", Ward: wid}, nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("Step 2 - Create booth failed: %d - %s", w.Code, w.Body.String())
	}
	var booth models.BoothResponse
	testutil.AssertJSON(t, w, &booth)
	bid := booth.Booth.ID
	if booth.Booth.Panchayat == nil || booth.Booth.Panchayat.ID != pid {
		t.Errorf("Step 2 - Expected booth to inherit panchayat %s, got %+v", pid, booth.Booth.Panchayat)
	}

	// Step 3: Register a voter and record the vote
	vid := testutil.CreateTestVoter(t, db, bid, testutil.TestVoter{VoterID: "KL001", Name: "Anitha"})

	voted := true
	req = testutil.MakeRequest("PUT", "/voters/update-voter/"+vid, models.VoterStatusPatch{HasVoted: &voted}, nil)
	req.SetPathValue("id", vid)
	w = httptest.NewRecorder()
	voterHandler.UpdateVoter(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Step 3 - Status update failed: %d - %s", w.Code, w.Body.String())
	}

	req = testutil.MakeRequest("GET", "/voters/get-voters-by-booth/"+bid, nil, nil)
	req.SetPathValue("id", bid)
	w = httptest.NewRecorder()
	voterHandler.GetVotersByBooth(w, req)
	var voters models.VoterListResponse
	testutil.AssertJSON(t, w, &voters)
	if len(voters.Voters) != 1 || !voters.Voters[0].HasVoted {
		t.Fatalf("Step 3 - Expected one voted voter, got %+v", voters.Voters)
	}

	// Step 4: Parents with children cannot be deleted
	refusals := []struct {
		name    string
		id      string
		handler http.HandlerFunc
		message string
	}{
		{"panchayat", pid, panchayatHandler.DeletePanchayat, "Cannot delete panchayat: it still has 1 ward. Delete it first."},
		{"ward", wid, wardHandler.DeleteWard, "Cannot delete ward: it still has 1 polling booth. Delete it first."},
		{"booth", bid, boothHandler.DeleteBooth, "Cannot delete booth: it still has 1 voter. Delete it first."},
	}
	for _, r := range refusals {
		req := testutil.MakeRequest("DELETE", "/", nil, nil)
		req.SetPathValue("id", r.id)
		w := httptest.NewRecorder()
		r.handler(w, req)

		testutil.AssertStatus(t, w, http.StatusConflict)
		var errResp models.ErrorResponse
		testutil.AssertJSON(t, w, &errResp)
		if errResp.Message != r.message {
			t.Errorf("Step 4 - %s: expected %q, got %q", r.name, r.message, errResp.Message)
		}
	}

	// Step 5: Delete bottom-up
	steps := []struct {
		name    string
		id      string
		handler http.HandlerFunc
	}{
		{"voter", vid, voterHandler.DeleteVoter},
		{"booth", bid, boothHandler.DeleteBooth},
		{"ward", wid, wardHandler.DeleteWard},
		{"panchayat", pid, panchayatHandler.DeletePanchayat},
	}
	for _, s := range steps {
		req := testutil.MakeRequest("DELETE", "/", nil, nil)
		req.SetPathValue("id", s.id)
		w := httptest.NewRecorder()
		s.handler(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("Step 5 - Delete %s failed: %d - %s", s.name, w.Code, w.Body.String())
		}
	}

	for _, table := range []string{"panchayat", "ward", "booth", "voter"} {
		var n int
		if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
			t.Fatalf("Failed to count %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("Expected %s table empty, got %d rows", table, n)
		}
	}
}
