// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package console

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/rollcall/apiclient"
	"github.com/danielhkuo/rollcall/dashboard"
	"github.com/danielhkuo/rollcall/models"
	"github.com/danielhkuo/rollcall/querycache"
	"github.com/danielhkuo/rollcall/session"
	"github.com/danielhkuo/rollcall/testutil"
	"github.com/danielhkuo/rollcall/testutil/backendtest"
)

type harness struct {
	backend *backendtest.Backend
	store   *session.MemoryStore
	server  *Server
	handler http.Handler
}

func newHarness(t *testing.T, signedIn bool, opts ...Option) *harness {
	t.Helper()
	return newHarnessWith(t, signedIn, dashboard.Placeholder{}, opts...)
}

func newHarnessWith(t *testing.T, signedIn bool, dash dashboard.Aggregator, opts ...Option) *harness {
	t.Helper()
	backend := backendtest.New(t)

	store := session.NewMemoryStore()
	if signedIn {
		if err := store.Set(session.Session{Token: backend.Token(t), Admin: backend.Admin}); err != nil {
			t.Fatal(err)
		}
	}

	client := apiclient.New(backend.URL, store)
	cache := querycache.New(querycache.Options{
		StaleTime:   time.Minute,
		CacheTime:   5 * time.Minute,
		ShouldRetry: apiclient.Retryable,
	})

	srv, err := New(backend.URL, client, cache, dash, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return &harness{backend: backend, store: store, server: srv, handler: srv.Handler()}
}

func (h *harness) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func (h *harness) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, to string) {
	t.Helper()
	if w.Code != http.StatusSeeOther {
		t.Fatalf("Expected status 303, got %d: %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != to {
		t.Errorf("Expected redirect to %q, got %q", to, loc)
	}
}

func assertContains(t *testing.T, w *httptest.ResponseRecorder, want ...string) {
	t.Helper()
	body := w.Body.String()
	for _, s := range want {
		if !strings.Contains(body, s) {
			t.Errorf("Expected page to contain %q", s)
		}
	}
}

func assertMissing(t *testing.T, w *httptest.ResponseRecorder, unwanted ...string) {
	t.Helper()
	body := w.Body.String()
	for _, s := range unwanted {
		if strings.Contains(body, s) {
			t.Errorf("Expected page not to contain %q", s)
		}
	}
}

func TestRedirects(t *testing.T) {
	t.Run("signed out", func(t *testing.T) {
		h := newHarness(t, false)
		for _, path := range []string{"/", "/no/such/page", "/dashboard", "/panchayat-report", "/booth-details/abc"} {
			assertRedirect(t, h.get(t, path), signInPath)
		}

		w := h.get(t, "/sign-in")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected sign-in page, got %d", w.Code)
		}
		assertContains(t, w, "Admin Login", `name="email"`)
	})

	t.Run("signed in", func(t *testing.T) {
		h := newHarness(t, true)
		assertRedirect(t, h.get(t, "/sign-in"), landingPath)
		assertRedirect(t, h.get(t, "/"), signInPath)
	})
}

func TestSignIn(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h := newHarness(t, false)
		w := h.post(t, "/sign-in", url.Values{"email": {testutil.TestAdminEmail}, "password": {testutil.TestAdminPassword}})
		assertRedirect(t, w, landingPath)

		sess, err := h.store.Get()
		if err != nil || sess.Token == "" {
			t.Fatalf("Expected a stored session, got %+v (%v)", sess, err)
		}
		if sess.Admin.Email != testutil.TestAdminEmail {
			t.Errorf("Expected admin %s, got %s", testutil.TestAdminEmail, sess.Admin.Email)
		}
	})

	t.Run("wrong password shows backend message", func(t *testing.T) {
		h := newHarness(t, false)
		w := h.post(t, "/sign-in", url.Values{"email": {testutil.TestAdminEmail}, "password": {"nope"}})
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("Expected status 401, got %d", w.Code)
		}
		assertContains(t, w, "Invalid email or password")
		if session.HasToken(h.store) {
			t.Error("Expected no session after a failed sign-in")
		}
	})

	t.Run("missing fields never reach the backend", func(t *testing.T) {
		h := newHarness(t, false)
		w := h.post(t, "/sign-in", url.Values{"email": {testutil.TestAdminEmail}})
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("Expected status 422, got %d", w.Code)
		}
		assertContains(t, w, "Please fill in all fields")
	})
}

func TestLogoutClearsSession(t *testing.T) {
	h := newHarness(t, true)
	assertRedirect(t, h.post(t, "/logout", nil), signInPath)
	if session.HasToken(h.store) {
		t.Error("Expected session cleared after logout")
	}
	assertRedirect(t, h.get(t, "/dashboard"), signInPath)
}

func TestStaleTokenGoesToSignIn(t *testing.T) {
	h := newHarness(t, false)
	if err := h.store.Set(session.Session{Token: "expired", Admin: h.backend.Admin}); err != nil {
		t.Fatal(err)
	}

	assertRedirect(t, h.get(t, "/panchayat-report"), signInPath)

	if _, err := h.store.Get(); !errors.Is(err, session.ErrNoSession) {
		t.Errorf("Expected session cleared, got %v", err)
	}
	assertRedirect(t, h.get(t, "/panchayat-report"), signInPath)
}

func TestDashboard(t *testing.T) {
	h := newHarness(t, true)
	w := h.get(t, "/dashboard")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	assertContains(t, w, "CPIM Admin", "Test Admin", "Panchayat Report", "125,678", "89,234", "36,444", "<svg")
	assertMissing(t, w, `http-equiv="refresh"`)
}

func TestDashboardLoadingState(t *testing.T) {
	h := newHarnessWith(t, true, dashboard.Placeholder{Delay: 50 * time.Millisecond}, WithLoadBudget(time.Millisecond))

	w := h.get(t, "/dashboard")
	assertContains(t, w, "Loading Dashboard...", `http-equiv="refresh"`)

	// The abandoned read still fills the cache.
	deadline := time.Now().Add(5 * time.Second)
	for !h.server.cache.Has(querycache.Key{Resource: querycache.Dashboard}) {
		if time.Now().After(deadline) {
			t.Fatal("Expected the dashboard snapshot to be cached")
		}
		time.Sleep(10 * time.Millisecond)
	}
	assertContains(t, h.get(t, "/dashboard"), "125,678")
}

func TestPanchayatSearch(t *testing.T) {
	h := newHarness(t, true)
	testutil.CreateTestPanchayat(t, h.backend.DB, "Kodakara", "KDK01", 18)
	testutil.CreateTestPanchayat(t, h.backend.DB, "Aloor", "ALR02", 12)

	w := h.get(t, "/panchayat-report")
	assertContains(t, w, "Kodakara", "Aloor")

	w = h.get(t, "/panchayat-report?q=kdk")
	assertContains(t, w, "Kodakara")
	assertMissing(t, w, "Aloor")

	w = h.get(t, "/panchayat-report?q=zzz")
	assertContains(t, w, `No panchayats match`)
}

func TestCreatePanchayat(t *testing.T) {
	h := newHarness(t, true)

	// Load the list first so the create has a cached entry to invalidate.
	assertContains(t, h.get(t, "/panchayat-report"), "No panchayats yet")

	w := h.post(t, "/panchayats", url.Values{
		"name":       {"Kodakara"},
		"code":       {"kdk01"},
		"totalWards": {"18"},
		"address":    {"Thrissur"},
	})
	assertRedirect(t, w, panchayatsPath)

	w = h.get(t, "/panchayat-report")
	assertContains(t, w, "Kodakara", "kdk01")
}

func TestCreatePanchayatValidation(t *testing.T) {
	h := newHarness(t, true)

	w := h.post(t, "/panchayats", url.Values{"name": {"Kodakara"}, "code": {"KDK01"}, "totalWards": {"-3"}, "address": {"Thrissur"}})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d", w.Code)
	}
	assertContains(t, w, "Add Panchayat", "Total Wards must be a positive number", `value="Kodakara"`)

	var n int
	if err := h.backend.DB.QueryRow(`SELECT COUNT(*) FROM panchayat`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("Expected no panchayat created, got %d", n)
	}
}

func TestEditPanchayatUpperCasesCode(t *testing.T) {
	h := newHarness(t, true)
	id := testutil.CreateTestPanchayat(t, h.backend.DB, "Kodakara", "KDK01", 18)

	w := h.get(t, "/panchayat-report?modal=edit&id="+id)
	assertContains(t, w, "Edit Panchayat", `value="KDK01"`)

	w = h.post(t, "/panchayats/"+id+"/edit", url.Values{
		"name":       {"Kodakara"},
		"code":       {"kdk09"},
		"totalWards": {"20"},
		"address":    {"Thrissur"},
	})
	assertRedirect(t, w, panchayatsPath)

	var code string
	if err := h.backend.DB.QueryRow(`SELECT code FROM panchayat WHERE id = $1`, id).Scan(&code); err != nil {
		t.Fatal(err)
	}
	if code != "KDK09" {
		t.Errorf("Expected code KDK09, got %s", code)
	}
}

func TestEditPanchayatUnchangedKeepsCode(t *testing.T) {
	h := newHarness(t, true)
	id := testutil.CreateTestPanchayat(t, h.backend.DB, "Kodakara", "kdk", 18)

	w := h.get(t, "/panchayat-report?modal=edit&id="+id)
	assertContains(t, w, `name="priorCode" value="kdk"`)

	w = h.post(t, "/panchayats/"+id+"/edit", url.Values{
		"name":       {"Kodakara"},
		"code":       {"kdk"},
		"priorCode":  {"kdk"},
		"totalWards": {"18"},
		"address":    {"Thrissur"},
	})
	assertRedirect(t, w, panchayatsPath)

	var code string
	if err := h.backend.DB.QueryRow(`SELECT code FROM panchayat WHERE id = $1`, id).Scan(&code); err != nil {
		t.Fatal(err)
	}
	if code != "kdk" {
		t.Errorf("Expected untouched code kdk, got %s", code)
	}
}

func TestWardDeleteRejection(t *testing.T) {
	h := newHarness(t, true)
	pid := testutil.CreateTestPanchayat(t, h.backend.DB, "Kodakara", "KDK01", 18)
	wid := testutil.CreateTestWard(t, h.backend.DB, pid, 3, "Chembuchira")
	testutil.CreateTestBooth(t, h.backend.DB, wid, "Govt LP School", "B-01")

	w := h.get(t, wardsPath(pid)+"?modal=delete&id="+wid)
	assertContains(t, w, "Delete Ward", "Ward 3 - Chembuchira", "delete them first")

	w = h.post(t, "/wards/"+wid+"/delete", url.Values{"panchayat": {pid}, "label": {"Ward 3 - Chembuchira"}})
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d: %s", w.Code, w.Body.String())
	}
	assertContains(t, w,
		"Cannot delete ward: it still has 1 polling booth. Delete it first.",
		"Delete Ward",
	)

	// The ward stays listed.
	w = h.get(t, wardsPath(pid))
	assertContains(t, w, "Chembuchira")
}

func TestCreateWardAndBooth(t *testing.T) {
	h := newHarness(t, true)
	pid := testutil.CreateTestPanchayat(t, h.backend.DB, "Kodakara", "KDK01", 18)

	assertContains(t, h.get(t, wardsPath(pid)), "No wards yet")
	w := h.post(t, "/panchayat/"+pid+"/wards", url.Values{
		"wardNumber": {"4"},
		"name":       {"Vasupuram"},
		"boothName":  {"GLPS Vasupuram"},
		"latitude":   {"10.37"},
		"longitude":  {"76.30"},
	})
	assertRedirect(t, w, wardsPath(pid))
	assertContains(t, h.get(t, wardsPath(pid)), "Ward 4", "Vasupuram", "GLPS Vasupuram")

	var wid string
	if err := h.backend.DB.QueryRow(`SELECT id FROM ward WHERE panchayat_id = $1`, pid).Scan(&wid); err != nil {
		t.Fatal(err)
	}

	assertContains(t, h.get(t, boothsPath(wid)), "No booths yet")
	w = h.post(t, "/ward/"+wid+"/booths", url.Values{
		"name":      {"Govt LP School"},
		"code":      {"B-01"},
		"district":  {"Thrissur"},
		"panchayat": {pid},
	})
	assertRedirect(t, w, boothsPath(wid))
	assertContains(t, h.get(t, boothsPath(wid)), "Govt LP School", "B-01")
}

func TestBoothValidationKeepsModalOpen(t *testing.T) {
	h := newHarness(t, true)
	pid := testutil.CreateTestPanchayat(t, h.backend.DB, "Kodakara", "KDK01", 18)
	wid := testutil.CreateTestWard(t, h.backend.DB, pid, 3, "Chembuchira")

	w := h.post(t, "/ward/"+wid+"/booths", url.Values{"name": {"Govt LP School"}, "panchayat": {pid}})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d", w.Code)
	}
	assertContains(t, w, "Add Booth", "Booth code is required", "District is required")
	assertMissing(t, w, "Booth name is required")
}

func seedVoters(t *testing.T, h *harness) (boothID string) {
	t.Helper()
	pid := testutil.CreateTestPanchayat(t, h.backend.DB, "Kodakara", "KDK01", 18)
	wid := testutil.CreateTestWard(t, h.backend.DB, pid, 3, "Chembuchira")
	boothID = testutil.CreateTestBooth(t, h.backend.DB, wid, "Govt LP School", "B-01")

	testutil.CreateTestVoter(t, h.backend.DB, boothID, testutil.TestVoter{VoterID: "KL001", Name: "Anitha", HouseNumber: "12", Serial: 1})
	testutil.CreateTestVoter(t, h.backend.DB, boothID, testutil.TestVoter{VoterID: "KL002", Name: "Biju", HouseNumber: "14", Serial: 2, HasVoted: true})
	testutil.CreateTestVoter(t, h.backend.DB, boothID, testutil.TestVoter{VoterID: "KL003", Name: "Chandran", HouseNumber: "20", Serial: 3, Status: models.StatusDeceased})
	return boothID
}

func TestVoterFilters(t *testing.T) {
	h := newHarness(t, true)
	bid := seedVoters(t, h)

	tests := []struct {
		query   string
		want    []string
		unwanted []string
	}{
		{"", []string{"Anitha", "Biju", "Chandran"}, nil},
		{"?q=kl002", []string{"Biju"}, []string{"Anitha", "Chandran"}},
		{"?voting=voted", []string{"Biju"}, []string{"Anitha", "Chandran"}},
		{"?voting=not-voted&status=active", []string{"Anitha"}, []string{"Biju", "Chandran"}},
		{"?status=deceased", []string{"Chandran"}, []string{"Anitha", "Biju"}},
		{"?q=14&voting=not-voted", []string{"No voters found", "Try adjusting your search or filters"}, []string{"Anitha", "Biju"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := h.get(t, votersPath(bid)+tt.query)
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			assertContains(t, w, tt.want...)
			assertMissing(t, w, tt.unwanted...)
		})
	}
}

func TestVoterStatusUpdate(t *testing.T) {
	h := newHarness(t, true)
	bid := seedVoters(t, h)

	var vid string
	if err := h.backend.DB.QueryRow(`SELECT id FROM voter WHERE voter_id = 'KL001'`).Scan(&vid); err != nil {
		t.Fatal(err)
	}

	// Prime the cache; the update must invalidate it.
	assertMissing(t, h.get(t, votersPath(bid)+"?voting=voted"), "Anitha")

	path := fmt.Sprintf("/booth-details/%s/voters/%s/status?voting=not-voted", bid, vid)
	w := h.post(t, path, url.Values{"field": {"hasVoted"}, "value": {"true"}})
	assertRedirect(t, w, votersPath(bid)+"?voting=not-voted")

	var voted bool
	if err := h.backend.DB.QueryRow(`SELECT has_voted FROM voter WHERE id = $1`, vid).Scan(&voted); err != nil {
		t.Fatal(err)
	}
	if !voted {
		t.Error("Expected voter marked as voted")
	}
	assertContains(t, h.get(t, votersPath(bid)+"?voting=voted"), "Anitha")

	w = h.post(t, fmt.Sprintf("/booth-details/%s/voters/%s/status", bid, vid), url.Values{"field": {"status"}, "value": {"transferred"}})
	assertRedirect(t, w, votersPath(bid))
	assertContains(t, h.get(t, votersPath(bid)+"?status=transferred"), "Anitha")

	w = h.post(t, fmt.Sprintf("/booth-details/%s/voters/%s/status", bid, vid), url.Values{"field": {"status"}, "value": {"retired"}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for an unknown status, got %d", w.Code)
	}
}

func TestVoterStatusUpdateWhileBusy(t *testing.T) {
	h := newHarness(t, true)
	bid := seedVoters(t, h)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- h.server.gate.Run(bid, func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	w := h.get(t, votersPath(bid))
	assertContains(t, w, "disabled")

	w = h.post(t, "/booth-details/"+bid+"/voters/any/status", url.Values{"field": {"hasVoted"}, "value": {"true"}})
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d", w.Code)
	}
	assertContains(t, w, "Another update is in progress")

	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	assertMissing(t, h.get(t, votersPath(bid)), " disabled")
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for x := 0; x < 32; x++ {
		img.Set(x, x, color.RGBA{B: 180, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func voterUpload(t *testing.T, fields map[string]string, photo []byte, contentType string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if photo != nil {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="photo"; filename="photo.png"`)
		hdr.Set("Content-Type", contentType)
		part, err := mw.CreatePart(hdr)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(photo)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, mw.FormDataContentType()
}

func TestCreateVoter(t *testing.T) {
	h := newHarness(t, true)
	pid := testutil.CreateTestPanchayat(t, h.backend.DB, "Kodakara", "KDK01", 18)
	wid := testutil.CreateTestWard(t, h.backend.DB, pid, 3, "Chembuchira")
	bid := testutil.CreateTestBooth(t, h.backend.DB, wid, "Govt LP School", "B-01")

	w := h.get(t, votersPath(bid)+"?modal=add")
	assertContains(t, w, "Add Voter", `enctype="multipart/form-data"`)

	fields := map[string]string{
		"voterId":              "KL100",
		"name":                 "Deepa",
		"age":                  "34",
		"gender":               "female",
		"guardianName":         "Suresh",
		"guardianRelation":     "husband",
		"houseNumber":          "7",
		"houseName":            "Thekkethil",
		"politicalAffiliation": "neutral",
		"serialNumber":         "100",
		"ward":                 wid,
		"panchayat":            pid,
	}

	t.Run("with photo", func(t *testing.T) {
		body, ct := voterUpload(t, fields, testPNG(t), "image/png")
		req := httptest.NewRequest(http.MethodPost, "/booth-details/"+bid+"/voters", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		h.handler.ServeHTTP(w, req)
		assertRedirect(t, w, votersPath(bid))

		page := h.get(t, votersPath(bid))
		assertContains(t, page, "Deepa", "KL100", `<img class="avatar" src="`+h.backend.URL)
	})

	t.Run("under age", func(t *testing.T) {
		f := map[string]string{}
		for k, v := range fields {
			f[k] = v
		}
		f["voterId"] = "KL101"
		f["age"] = "17"

		body, ct := voterUpload(t, f, nil, "")
		req := httptest.NewRequest(http.MethodPost, "/booth-details/"+bid+"/voters", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		h.handler.ServeHTTP(w, req)
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("Expected status 422, got %d", w.Code)
		}
		assertContains(t, w, "Age must be 18 or above", `value="KL101"`)
	})

	t.Run("oversized photo", func(t *testing.T) {
		f := map[string]string{}
		for k, v := range fields {
			f[k] = v
		}
		f["voterId"] = "KL102"

		big := append(testPNG(t), make([]byte, models.MaxPhotoBytes)...)
		body, ct := voterUpload(t, f, big, "image/png")
		req := httptest.NewRequest(http.MethodPost, "/booth-details/"+bid+"/voters", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		h.handler.ServeHTTP(w, req)
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("Expected status 422, got %d", w.Code)
		}
		assertContains(t, w, "Image size must be less than 2MB")
	})

	var n int
	if err := h.backend.DB.QueryRow(`SELECT COUNT(*) FROM voter WHERE booth_id = $1`, bid).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Expected exactly one voter created, got %d", n)
	}
}
