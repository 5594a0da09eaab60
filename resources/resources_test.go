// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package resources

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"strings"
	"testing"

	"github.com/danielhkuo/rollcall/apiclient"
	"github.com/danielhkuo/rollcall/models"
	"github.com/danielhkuo/rollcall/session"
	"github.com/danielhkuo/rollcall/testutil"
	"github.com/danielhkuo/rollcall/testutil/backendtest"
)

func newService(t *testing.T) (*Service, *backendtest.Backend) {
	t.Helper()
	backend := backendtest.New(t)

	store := session.NewMemoryStore()
	if err := store.Set(session.Session{Token: backend.Token(t), Admin: backend.Admin}); err != nil {
		t.Fatal(err)
	}
	return New(apiclient.New(backend.URL, store)), backend
}

func smallPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		img.Set(x, 10, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestHierarchyRoundTrip(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	p, err := svc.CreatePanchayat(ctx, models.PanchayatInput{Name: "Kodakara", Code: "KDK01", TotalWards: 18, Address: "Thrissur"})
	if err != nil {
		t.Fatalf("CreatePanchayat failed: %v", err)
	}

	all, err := svc.ListPanchayats(ctx)
	if err != nil || len(all) != 1 || all[0].ID != p.ID {
		t.Fatalf("Expected the new panchayat listed, got %+v (%v)", all, err)
	}

	w, err := svc.CreateWard(ctx, models.WardInput{WardNumber: 3, Name: "Chembuchira", Panchayat: p.ID})
	if err != nil {
		t.Fatalf("CreateWard failed: %v", err)
	}
	wards, err := svc.WardsByPanchayat(ctx, p.ID)
	if err != nil || len(wards) != 1 || wards[0].WardNumber != 3 {
		t.Fatalf("Expected ward 3 under panchayat, got %+v (%v)", wards, err)
	}

	b, err := svc.CreateBooth(ctx, models.BoothInput{Name: "GLPS Kodakara", Code: "B-001", District: "Thrissur", Ward: w.ID})
	if err != nil {
		t.Fatalf("CreateBooth failed: %v", err)
	}
	if b.Ward == nil || b.Ward.ID != w.ID {
		t.Errorf("Expected booth ward populated, got %+v", b.Ward)
	}

	byWard, err := svc.BoothsByWard(ctx, w.ID)
	if err != nil {
		t.Fatalf("BoothsByWard failed: %v", err)
	}
	if byWard.Ward == nil || byWard.Ward.Name != "Chembuchira" || len(byWard.Booths) != 1 {
		t.Errorf("Unexpected booths-by-ward answer %+v", byWard)
	}

	got, err := svc.GetBooth(ctx, b.ID)
	if err != nil || got.Panchayat == nil || got.Panchayat.ID != p.ID {
		t.Errorf("Expected booth with panchayat populated, got %+v (%v)", got, err)
	}
}

func TestVoterLifecycle(t *testing.T) {
	svc, backend := newService(t)
	ctx := context.Background()

	pid := testutil.CreateTestPanchayat(t, backend.DB, "Kodakara", "KDK01", 18)
	wid := testutil.CreateTestWard(t, backend.DB, pid, 1, "Ward One")
	bid := testutil.CreateTestBooth(t, backend.DB, wid, "GLPS", "B-001")

	in := models.VoterInput{
		VoterID:              "KL/08/123/456789",
		Name:                 "Lakshmi",
		Age:                  42,
		Gender:               models.GenderFemale,
		Guardian:             models.Guardian{Name: "Raghavan", Relation: models.RelationHusband},
		Address:              models.Address{HouseNumber: "12/4", HouseName: "Sreenilayam"},
		PoliticalAffiliation: models.AffiliationNeutral,
		SerialNumber:         7,
		Booth:                bid,
	}

	v, err := svc.CreateVoter(ctx, in, &PhotoUpload{Name: "face.png", ContentType: "image/png", Data: smallPNG(t)})
	if err != nil {
		t.Fatalf("CreateVoter failed: %v", err)
	}
	if v.Guardian != in.Guardian || v.Address != in.Address {
		t.Errorf("Nested fields did not survive multipart: %+v", v)
	}
	if v.Ward != wid || v.Panchayat != pid {
		t.Errorf("Expected parents derived from booth, got ward=%s panchayat=%s", v.Ward, v.Panchayat)
	}
	if v.Photo == nil || !strings.HasPrefix(v.Photo.URL, "/uploads/voters/") {
		t.Errorf("Expected stored photo, got %+v", v.Photo)
	}
	if v.Status != models.StatusActive || v.HasVoted {
		t.Errorf("Expected active and not voted, got %s %v", v.Status, v.HasVoted)
	}

	voted := true
	v, err = svc.UpdateVoterStatus(ctx, v.ID, models.VoterStatusPatch{HasVoted: &voted})
	if err != nil || !v.HasVoted {
		t.Fatalf("Expected hasVoted set, got %+v (%v)", v, err)
	}

	status := models.StatusTransferred
	v, err = svc.UpdateVoterStatus(ctx, v.ID, models.VoterStatusPatch{Status: &status})
	if err != nil || v.Status != models.StatusTransferred || !v.HasVoted {
		t.Fatalf("Expected status change to keep hasVoted, got %+v (%v)", v, err)
	}

	in.Name = "Lakshmi K"
	v, err = svc.UpdateVoter(ctx, v.ID, in, nil)
	if err != nil || v.Name != "Lakshmi K" || v.Photo == nil {
		t.Fatalf("Expected rename keeping photo, got %+v (%v)", v, err)
	}

	list, err := svc.VotersByBooth(ctx, bid)
	if err != nil || len(list) != 1 {
		t.Fatalf("Expected one voter in booth, got %d (%v)", len(list), err)
	}

	if err := svc.DeleteVoter(ctx, v.ID); err != nil {
		t.Fatalf("DeleteVoter failed: %v", err)
	}
	if _, err := svc.GetVoter(ctx, v.ID); apiclient.Message(err, "") != "Voter not found" {
		t.Errorf("Expected Voter not found after delete, got %v", err)
	}
}

func TestDeleteRejectionCarriesBackendMessage(t *testing.T) {
	svc, backend := newService(t)

	pid := testutil.CreateTestPanchayat(t, backend.DB, "Kodakara", "KDK01", 18)
	testutil.CreateTestWard(t, backend.DB, pid, 1, "Ward One")

	err := svc.DeletePanchayat(context.Background(), pid)

	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Fatalf("Expected 409, got %v", err)
	}
	want := "Cannot delete panchayat: it still has 1 ward. Delete it first."
	if apiErr.Message != want {
		t.Errorf("Expected %q, got %q", want, apiErr.Message)
	}
}

type recordingDoer struct {
	calls  []string
	fields map[string]string
}

func (r *recordingDoer) Do(ctx context.Context, method, path string, body, out any) error {
	r.calls = append(r.calls, method+" "+path)
	return nil
}

func (r *recordingDoer) DoMultipart(ctx context.Context, method, path string, fields map[string]string, file *apiclient.File, out any) error {
	r.calls = append(r.calls, method+" "+path)
	r.fields = fields
	return nil
}

func TestOneCallPerOperation(t *testing.T) {
	doer := &recordingDoer{}
	svc := New(doer)
	ctx := context.Background()

	svc.ListWards(ctx)
	svc.GetWard(ctx, "w 1")
	svc.UpdateBooth(ctx, "b1", models.BoothInput{})
	svc.DeleteBooth(ctx, "b1")
	svc.CreateVoter(ctx, models.VoterInput{Age: 30, SerialNumber: 4, Guardian: models.Guardian{Name: "Ravi", Relation: "father"}}, nil)

	want := []string{
		"GET /wards/get-all-wards",
		"GET /wards/get-ward/w%201",
		"PUT /booths/update-Booth/b1",
		"DELETE /booths/delete-Booth/b1",
		"POST /voters/create-voter",
	}
	if strings.Join(doer.calls, "\n") != strings.Join(want, "\n") {
		t.Errorf("Unexpected calls:\n%s", strings.Join(doer.calls, "\n"))
	}

	if doer.fields["guardian"] != `{"name":"Ravi","relation":"father"}` {
		t.Errorf("Expected guardian as JSON string, got %q", doer.fields["guardian"])
	}
	if doer.fields["age"] != "30" || doer.fields["serialNumber"] != "4" {
		t.Errorf("Expected numeric fields as text, got %+v", doer.fields)
	}
	if _, ok := doer.fields["ward"]; ok {
		t.Error("Empty ward must not be sent")
	}
}
