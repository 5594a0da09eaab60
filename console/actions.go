// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package console

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/rollcall/apiclient"
	"github.com/danielhkuo/rollcall/forms"
	"github.com/danielhkuo/rollcall/models"
	"github.com/danielhkuo/rollcall/querycache"
	"github.com/danielhkuo/rollcall/views"
)

// maxVoterBody bounds an add-voter submission: the photo plus the fields.
const maxVoterBody = models.MaxPhotoBytes + 1<<20

func field(r *http.Request, name string) string {
	return strings.TrimSpace(r.PostFormValue(name))
}

// statusFor picks the response code for a page re-rendered after a failed
// submission.
func statusFor(err error) int {
	var fe forms.FieldErrors
	if errors.As(err, &fe) {
		return http.StatusUnprocessableEntity
	}
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		return apiErr.Status
	}
	return http.StatusBadGateway
}

// settle answers a modal submission. Success goes back to the list, an
// authorization failure goes to sign-in, anything else renders the page
// again with the modal still open.
func settle(w http.ResponseWriter, r *http.Request, err error, next string, again func(status int)) {
	switch {
	case err == nil:
		seeOther(w, r, next)
	case errors.Is(err, apiclient.ErrUnauthorized):
		seeOther(w, r, signInPath)
	default:
		again(statusFor(err))
	}
}

// Sign-in

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	f := forms.LoginForm{Email: field(r, "email"), Password: r.PostFormValue("password")}
	if fe := f.Validate(); fe != nil {
		s.render(w, "signin", http.StatusUnprocessableEntity, page{
			Title: "Admin Login",
			Data:  signInData{Email: f.Email, Message: fe.Get(forms.FormError)},
		})
		return
	}

	if _, err := s.client.Login(r.Context(), f.Email, f.Password); err != nil {
		slog.Warn("sign-in failed", "email", f.Email, "error", err)
		s.render(w, "signin", http.StatusUnauthorized, page{
			Title: "Admin Login",
			Data:  signInData{Email: f.Email, Message: apiclient.Message(err, "Login failed. Please try again.")},
		})
		return
	}

	// Nothing cached under a previous operator survives a new sign-in.
	s.cache.Clear()
	seeOther(w, r, landingPath)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.client.Logout(); err != nil {
		slog.Error("failed to clear session", "error", err)
	}
	s.cache.Clear()
	seeOther(w, r, signInPath)
}

// Panchayats

func panchayatFormOf(r *http.Request) forms.PanchayatForm {
	return forms.PanchayatForm{
		Name:       field(r, "name"),
		Code:       field(r, "code"),
		TotalWards: field(r, "totalWards"),
		Address:    field(r, "address"),
	}
}

func deleteFormOf(r *http.Request) forms.DeleteForm {
	return forms.DeleteForm{ID: r.PathValue("id"), Label: field(r, "label")}
}

func (s *Server) createPanchayat(w http.ResponseWriter, r *http.Request) {
	m := forms.OpenModal(forms.Create, "Panchayat", panchayatFormOf(r))
	err := m.Submit(r.Context(), func(ctx context.Context, f forms.PanchayatForm) error {
		return s.cache.Mutate(ctx, querycache.CreatePanchayat, querycache.Scope{}, func(ctx context.Context) error {
			_, err := s.svc.CreatePanchayat(ctx, f.Payload())
			return err
		})
	})
	settle(w, r, err, panchayatsPath, func(status int) {
		s.renderPanchayats(w, r, status, func([]models.Panchayat) *modalView { return panchayatAdd(m) })
	})
}

func (s *Server) updatePanchayat(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m := forms.OpenModal(forms.Edit, "Panchayat", panchayatFormOf(r).ForEdit(id, field(r, "priorCode")))
	err := m.Submit(r.Context(), func(ctx context.Context, f forms.PanchayatForm) error {
		return s.cache.Mutate(ctx, querycache.UpdatePanchayat, querycache.Scope{ID: id}, func(ctx context.Context) error {
			_, err := s.svc.UpdatePanchayat(ctx, id, f.Payload())
			return err
		})
	})
	settle(w, r, err, panchayatsPath, func(status int) {
		s.renderPanchayats(w, r, status, func([]models.Panchayat) *modalView { return panchayatEdit(m) })
	})
}

func (s *Server) deletePanchayat(w http.ResponseWriter, r *http.Request) {
	m := forms.OpenModal(forms.Delete, "Panchayat", deleteFormOf(r))
	err := m.Submit(r.Context(), func(ctx context.Context, f forms.DeleteForm) error {
		return s.cache.Mutate(ctx, querycache.DeletePanchayat, querycache.Scope{ID: f.ID}, func(ctx context.Context) error {
			return s.svc.DeletePanchayat(ctx, f.ID)
		})
	})
	settle(w, r, err, panchayatsPath, func(status int) {
		s.renderPanchayats(w, r, status, func([]models.Panchayat) *modalView { return panchayatDelete(m) })
	})
}

// Wards

func wardFormOf(r *http.Request, panchayatID string) forms.WardForm {
	return forms.WardForm{
		WardNumber: field(r, "wardNumber"),
		Name:       field(r, "name"),
		Panchayat:  panchayatID,
		BoothName:  field(r, "boothName"),
		Latitude:   field(r, "latitude"),
		Longitude:  field(r, "longitude"),
	}
}

func (s *Server) createWard(w http.ResponseWriter, r *http.Request) {
	pid := r.PathValue("id")
	m := forms.OpenModal(forms.Create, "Ward", wardFormOf(r, pid))
	err := m.Submit(r.Context(), func(ctx context.Context, f forms.WardForm) error {
		return s.cache.Mutate(ctx, querycache.CreateWard, querycache.Scope{Panchayat: pid}, func(ctx context.Context) error {
			_, err := s.svc.CreateWard(ctx, f.Payload())
			return err
		})
	})
	settle(w, r, err, wardsPath(pid), func(status int) {
		s.renderWards(w, r, pid, status, func([]models.Ward) *modalView { return wardAdd(m) })
	})
}

func (s *Server) updateWard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	pid := field(r, "panchayat")
	f := wardFormOf(r, pid)
	f.ID = id

	m := forms.OpenModal(forms.Edit, "Ward", f)
	err := m.Submit(r.Context(), func(ctx context.Context, f forms.WardForm) error {
		return s.cache.Mutate(ctx, querycache.UpdateWard, querycache.Scope{ID: id, Panchayat: pid}, func(ctx context.Context) error {
			_, err := s.svc.UpdateWard(ctx, id, f.Payload())
			return err
		})
	})
	settle(w, r, err, wardsPath(pid), func(status int) {
		s.renderWards(w, r, pid, status, func([]models.Ward) *modalView { return wardEdit(m) })
	})
}

func (s *Server) deleteWard(w http.ResponseWriter, r *http.Request) {
	pid := field(r, "panchayat")
	m := forms.OpenModal(forms.Delete, "Ward", deleteFormOf(r))
	err := m.Submit(r.Context(), func(ctx context.Context, f forms.DeleteForm) error {
		return s.cache.Mutate(ctx, querycache.DeleteWard, querycache.Scope{ID: f.ID, Panchayat: pid}, func(ctx context.Context) error {
			return s.svc.DeleteWard(ctx, f.ID)
		})
	})
	settle(w, r, err, wardsPath(pid), func(status int) {
		s.renderWards(w, r, pid, status, func([]models.Ward) *modalView { return wardDelete(m, pid) })
	})
}

// Booths

func boothFormOf(r *http.Request, wardID, panchayatID string) forms.BoothForm {
	return forms.BoothForm{
		Name:        field(r, "name"),
		Code:        field(r, "code"),
		District:    field(r, "district"),
		Description: field(r, "description"),
		Ward:        wardID,
		Panchayat:   panchayatID,
	}
}

func (s *Server) createBooth(w http.ResponseWriter, r *http.Request) {
	wid := r.PathValue("wardId")
	pid := field(r, "panchayat")
	m := forms.OpenModal(forms.Create, "Booth", boothFormOf(r, wid, pid))
	err := m.Submit(r.Context(), func(ctx context.Context, f forms.BoothForm) error {
		return s.cache.Mutate(ctx, querycache.CreateBooth, querycache.Scope{Ward: wid, Panchayat: pid}, func(ctx context.Context) error {
			_, err := s.svc.CreateBooth(ctx, f.Payload())
			return err
		})
	})
	settle(w, r, err, boothsPath(wid), func(status int) {
		s.renderBooths(w, r, wid, status, func(models.Ward, []models.Booth) *modalView { return boothAdd(m) })
	})
}

func (s *Server) updateBooth(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	wid, pid := field(r, "ward"), field(r, "panchayat")
	m := forms.OpenModal(forms.Edit, "Booth", boothFormOf(r, wid, pid).ForEdit(id, field(r, "priorCode")))
	err := m.Submit(r.Context(), func(ctx context.Context, f forms.BoothForm) error {
		return s.cache.Mutate(ctx, querycache.UpdateBooth, querycache.Scope{ID: id, Ward: wid, Panchayat: pid}, func(ctx context.Context) error {
			_, err := s.svc.UpdateBooth(ctx, id, f.Payload())
			return err
		})
	})
	settle(w, r, err, boothsPath(wid), func(status int) {
		s.renderBooths(w, r, wid, status, func(models.Ward, []models.Booth) *modalView { return boothEdit(m) })
	})
}

func (s *Server) deleteBooth(w http.ResponseWriter, r *http.Request) {
	wid, pid := field(r, "ward"), field(r, "panchayat")
	m := forms.OpenModal(forms.Delete, "Booth", deleteFormOf(r))
	err := m.Submit(r.Context(), func(ctx context.Context, f forms.DeleteForm) error {
		return s.cache.Mutate(ctx, querycache.DeleteBooth, querycache.Scope{ID: f.ID, Ward: wid, Panchayat: pid}, func(ctx context.Context) error {
			return s.svc.DeleteBooth(ctx, f.ID)
		})
	})
	settle(w, r, err, boothsPath(wid), func(status int) {
		s.renderBooths(w, r, wid, status, func(models.Ward, []models.Booth) *modalView { return boothDelete(m, wid, pid) })
	})
}

// Voters

func voterFormOf(r *http.Request, boothID string) forms.VoterForm {
	return forms.VoterForm{
		VoterID:              field(r, "voterId"),
		Name:                 field(r, "name"),
		Age:                  field(r, "age"),
		Gender:               field(r, "gender"),
		GuardianName:         field(r, "guardianName"),
		GuardianRelation:     field(r, "guardianRelation"),
		HouseNumber:          field(r, "houseNumber"),
		HouseName:            field(r, "houseName"),
		PoliticalAffiliation: field(r, "politicalAffiliation"),
		Party:                field(r, "party"),
		SerialNumber:         field(r, "serialNumber"),
		Booth:                boothID,
		Ward:                 field(r, "ward"),
		Panchayat:            field(r, "panchayat"),
	}
}

// photoOf reads the optional photo part. One byte past the limit is kept
// so the form can tell an oversized file from one exactly at the limit.
func photoOf(r *http.Request) (*forms.Photo, error) {
	file, header, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, models.MaxPhotoBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &forms.Photo{Name: header.Filename, DeclaredType: header.Header.Get("Content-Type"), Data: data}, nil
}

func (s *Server) createVoter(w http.ResponseWriter, r *http.Request) {
	bid := r.PathValue("boothId")

	r.Body = http.MaxBytesReader(w, r.Body, maxVoterBody)
	if err := r.ParseMultipartForm(maxVoterBody); err != nil {
		slog.Warn("rejected voter submission", "booth_id", bid, "error", err)
		s.renderVoters(w, r, bid, http.StatusRequestEntityTooLarge, "Image size must be less than 2MB", noModal)
		return
	}

	f := voterFormOf(r, bid)
	photo, err := photoOf(r)
	if err != nil {
		s.renderVoters(w, r, bid, http.StatusBadRequest, "Please select a valid image file", noModal)
		return
	}
	f.Photo = photo

	m := forms.OpenModal(forms.Create, "Voter", f)
	err = m.Submit(r.Context(), func(ctx context.Context, f forms.VoterForm) error {
		scope := querycache.Scope{Booth: bid, Ward: f.Ward, Panchayat: f.Panchayat}
		return s.cache.Mutate(ctx, querycache.CreateVoter, scope, func(ctx context.Context) error {
			_, err := s.svc.CreateVoter(ctx, f.Payload(), f.Upload())
			return err
		})
	})
	settle(w, r, err, votersPath(bid), func(status int) {
		// The picked file is not sent back to the browser.
		m.Form.Photo = nil
		s.renderVoters(w, r, bid, status, "", func(models.BoothDetail) *modalView { return voterAdd(m) })
	})
}

func noModal(models.BoothDetail) *modalView { return nil }

// statusPatchOf turns the inline control's field/value pair into a patch.
func statusPatchOf(r *http.Request) (models.VoterStatusPatch, bool) {
	value := field(r, "value")
	switch field(r, "field") {
	case "status":
		if !models.OneOf(value, models.Statuses) {
			return models.VoterStatusPatch{}, false
		}
		return models.VoterStatusPatch{Status: &value}, true
	case "hasVoted":
		voted := value == "true"
		if !voted && value != "false" {
			return models.VoterStatusPatch{}, false
		}
		return models.VoterStatusPatch{HasVoted: &voted}, true
	}
	return models.VoterStatusPatch{}, false
}

func (s *Server) updateVoterStatus(w http.ResponseWriter, r *http.Request) {
	bid, vid := r.PathValue("boothId"), r.PathValue("voterId")

	patch, ok := statusPatchOf(r)
	if !ok {
		s.renderVoters(w, r, bid, http.StatusBadRequest, "Invalid status update", noModal)
		return
	}

	err := s.gate.Run(bid, func() error {
		return s.cache.Mutate(r.Context(), querycache.UpdateVoterStatus, querycache.Scope{ID: vid, Booth: bid}, func(ctx context.Context) error {
			_, err := s.svc.UpdateVoterStatus(ctx, vid, patch)
			return err
		})
	})

	switch {
	case err == nil:
		q := r.URL.Query()
		q.Del("modal")
		seeOther(w, r, withQuery(votersPath(bid), q))
	case errors.Is(err, apiclient.ErrUnauthorized):
		seeOther(w, r, signInPath)
	case errors.Is(err, views.ErrUpdateInFlight):
		s.renderVoters(w, r, bid, http.StatusConflict, "Another update is in progress. Please wait.", noModal)
	default:
		slog.Warn("voter status update failed", "voter_id", vid, "error", err)
		s.renderVoters(w, r, bid, statusFor(err), apiclient.Message(err, "Error updating voter status"), noModal)
	}
}
