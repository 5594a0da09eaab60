// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package console

import (
	"fmt"

	"github.com/danielhkuo/rollcall/forms"
	"github.com/danielhkuo/rollcall/models"
)

// modalView is an open dialog as the templates see it.
type modalView struct {
	Kind    string
	Title   string
	Action  string
	Cancel  string
	Form    any
	Errors  forms.FieldErrors
	Message string
	// Label names the record a delete dialog is about.
	Label string
	Note  string
	// Hidden carries parent IDs back with the submission.
	Hidden map[string]string
}

func viewOf[F forms.Form](m *forms.Modal[F], kind, title, action, cancel string) *modalView {
	return &modalView{
		Kind:    kind,
		Title:   title,
		Action:  action,
		Cancel:  cancel,
		Form:    m.Form,
		Errors:  m.Errors,
		Message: m.Message,
	}
}

func find[T any](items []T, id string, idOf func(T) string) (T, bool) {
	for _, it := range items {
		if idOf(it) == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Panchayats

const panchayatsPath = "/panchayat-report"

func panchayatAdd(m *forms.Modal[forms.PanchayatForm]) *modalView {
	return viewOf(m, "panchayat", "Add Panchayat", "/panchayats", panchayatsPath)
}

func panchayatEdit(m *forms.Modal[forms.PanchayatForm]) *modalView {
	v := viewOf(m, "panchayat", "Edit Panchayat", "/panchayats/"+m.Form.ID+"/edit", panchayatsPath)
	v.Hidden = map[string]string{"priorCode": m.Form.PriorCode}
	return v
}

func panchayatDelete(m *forms.Modal[forms.DeleteForm]) *modalView {
	v := viewOf(m, "delete", "Delete Panchayat", "/panchayats/"+m.Form.ID+"/delete", panchayatsPath)
	v.Label = m.Form.Label
	return v
}

func panchayatLabel(p models.Panchayat) string {
	return fmt.Sprintf("%s (%s)", p.Name, p.Code)
}

// Wards

func wardsPath(panchayatID string) string {
	return "/panchayat/" + panchayatID + "/manage"
}

func wardAdd(m *forms.Modal[forms.WardForm]) *modalView {
	return viewOf(m, "ward", "Add Ward", "/panchayat/"+m.Form.Panchayat+"/wards", wardsPath(m.Form.Panchayat))
}

func wardEdit(m *forms.Modal[forms.WardForm]) *modalView {
	v := viewOf(m, "ward", "Edit Ward", "/wards/"+m.Form.ID+"/edit", wardsPath(m.Form.Panchayat))
	v.Hidden = map[string]string{"panchayat": m.Form.Panchayat}
	return v
}

func wardDelete(m *forms.Modal[forms.DeleteForm], panchayatID string) *modalView {
	v := viewOf(m, "delete", "Delete Ward", "/wards/"+m.Form.ID+"/delete", wardsPath(panchayatID))
	v.Label = m.Form.Label
	v.Note = "If this ward has polling booths, you'll need to delete them first."
	v.Hidden = map[string]string{"panchayat": panchayatID}
	return v
}

func wardLabel(w models.Ward) string {
	return fmt.Sprintf("Ward %d - %s", w.WardNumber, w.Name)
}

// Booths

func boothsPath(wardID string) string {
	return "/ward/" + wardID + "/booths"
}

func boothAdd(m *forms.Modal[forms.BoothForm]) *modalView {
	return viewOf(m, "booth", "Add Booth", "/ward/"+m.Form.Ward+"/booths", boothsPath(m.Form.Ward))
}

func boothEdit(m *forms.Modal[forms.BoothForm]) *modalView {
	v := viewOf(m, "booth", "Edit Booth", "/booths/"+m.Form.ID+"/edit", boothsPath(m.Form.Ward))
	v.Hidden = map[string]string{"ward": m.Form.Ward, "panchayat": m.Form.Panchayat, "priorCode": m.Form.PriorCode}
	return v
}

func boothDelete(m *forms.Modal[forms.DeleteForm], wardID, panchayatID string) *modalView {
	v := viewOf(m, "delete", "Delete Booth", "/booths/"+m.Form.ID+"/delete", boothsPath(wardID))
	v.Label = m.Form.Label
	v.Note = "Voters registered at this booth must be removed first."
	v.Hidden = map[string]string{"ward": wardID, "panchayat": panchayatID}
	return v
}

func boothLabel(b models.Booth) string {
	return fmt.Sprintf("%s (%s)", b.Name, b.Code)
}

// Voters

func votersPath(boothID string) string {
	return "/booth-details/" + boothID
}

func voterAdd(m *forms.Modal[forms.VoterForm]) *modalView {
	v := viewOf(m, "voter", "Add Voter", "/booth-details/"+m.Form.Booth+"/voters", votersPath(m.Form.Booth))
	v.Hidden = map[string]string{"ward": m.Form.Ward, "panchayat": m.Form.Panchayat}
	return v
}
