// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package forms

import (
	"strconv"
	"strings"

	"github.com/danielhkuo/rollcall/models"
)

// FormError is the FieldErrors key for messages that belong to the whole form.
const FormError = "form"

// FieldError is one message shown next to a form field.
type FieldError struct {
	Field   string
	Message string
}

// FieldErrors lists the failed fields in the order the form shows them.
type FieldErrors []FieldError

func fieldError(field, message string) FieldErrors {
	return FieldErrors{{Field: field, Message: message}}
}

// Add appends the message for field.
func (fe *FieldErrors) Add(field, message string) {
	*fe = append(*fe, FieldError{Field: field, Message: message})
}

// Get returns the message for field, or "" when it passed.
func (fe FieldErrors) Get(field string) string {
	for _, e := range fe {
		if e.Field == field {
			return e.Message
		}
	}
	return ""
}

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, e := range fe {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return strings.Join(parts, "; ")
}

// Form is implemented by every modal form in this package.
type Form interface {
	Validate() FieldErrors
	isForm()
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func positive(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return n, err == nil && n > 0
}

// editedCode upper-cases a code the operator changed while editing.
// Creates and untouched codes go out as stored.
func editedCode(code, prior string, edit bool) string {
	code = strings.TrimSpace(code)
	if edit && code != prior {
		return strings.ToUpper(code)
	}
	return code
}

func done(fe FieldErrors) FieldErrors {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// LoginForm is the sign-in form.
type LoginForm struct {
	Email    string
	Password string
}

func (LoginForm) isForm() {}

func (f LoginForm) Validate() FieldErrors {
	if blank(f.Email) || f.Password == "" {
		return fieldError(FormError, "Please fill in all fields")
	}
	return nil
}

// PanchayatForm holds the panchayat modal's raw inputs.
type PanchayatForm struct {
	ID         string
	Name       string
	Code       string
	TotalWards string
	Address    string
	// PriorCode is the code the record had when the edit opened.
	PriorCode  string

	edit bool
}

func (PanchayatForm) isForm() {}

// PanchayatFormFrom prefills an edit form from p.
func PanchayatFormFrom(p models.Panchayat) PanchayatForm {
	return PanchayatForm{
		ID:         p.ID,
		Name:       p.Name,
		Code:       p.Code,
		TotalWards: strconv.Itoa(p.TotalWards),
		Address:    p.Address,
		PriorCode:  p.Code,
		edit:       true,
	}
}

// ForEdit marks a form filled from submitted values as an edit of id
// whose stored code was prior.
func (f PanchayatForm) ForEdit(id, prior string) PanchayatForm {
	f.ID = id
	f.PriorCode = prior
	f.edit = true
	return f
}

func (f PanchayatForm) Validate() FieldErrors {
	if blank(f.Name) || blank(f.Code) || blank(f.TotalWards) || blank(f.Address) {
		return fieldError(FormError, "All fields are required")
	}
	if _, ok := positive(f.TotalWards); !ok {
		return fieldError("totalWards", "Total Wards must be a positive number")
	}
	return nil
}

// Payload converts a validated form. An edit upper-cases the code only
// when it differs from the stored one.
func (f PanchayatForm) Payload() models.PanchayatInput {
	n, _ := positive(f.TotalWards)
	code := editedCode(f.Code, f.PriorCode, f.edit)
	return models.PanchayatInput{
		Name:       strings.TrimSpace(f.Name),
		Code:       code,
		TotalWards: n,
		Address:    strings.TrimSpace(f.Address),
	}
}

// WardForm holds the ward modal's raw inputs including the optional
// polling-booth hint.
type WardForm struct {
	ID         string
	WardNumber string
	Name       string
	Panchayat  string
	BoothName  string
	Latitude   string
	Longitude  string
}

func (WardForm) isForm() {}

func WardFormFrom(w models.Ward) WardForm {
	f := WardForm{
		ID:         w.ID,
		WardNumber: strconv.Itoa(w.WardNumber),
		Name:       w.Name,
		Panchayat:  w.Panchayat,
	}
	if pb := w.PollingBooth; pb != nil {
		f.BoothName = pb.Name
		f.Latitude = formatCoord(pb.Location.Latitude)
		f.Longitude = formatCoord(pb.Location.Longitude)
	}
	return f
}

func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseCoord(s string) (*float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	return &v, true
}

func (f WardForm) Validate() FieldErrors {
	if blank(f.WardNumber) || blank(f.Name) {
		return fieldError(FormError, "Ward Number and Name are required")
	}

	var fe FieldErrors
	if _, ok := positive(f.WardNumber); !ok {
		fe.Add("wardNumber", "Ward Number must be a positive number")
	}
	if _, ok := parseCoord(f.Latitude); !ok {
		fe.Add("latitude", "Latitude must be a number")
	}
	if _, ok := parseCoord(f.Longitude); !ok {
		fe.Add("longitude", "Longitude must be a number")
	}
	return done(fe)
}

func (f WardForm) Payload() models.WardInput {
	n, _ := positive(f.WardNumber)
	in := models.WardInput{
		WardNumber: n,
		Name:       strings.TrimSpace(f.Name),
		Panchayat:  f.Panchayat,
	}

	lat, _ := parseCoord(f.Latitude)
	lng, _ := parseCoord(f.Longitude)
	name := strings.TrimSpace(f.BoothName)
	if name != "" || lat != nil || lng != nil {
		in.PollingBooth = &models.PollingBooth{
			Name:     name,
			Location: models.Location{Latitude: lat, Longitude: lng},
		}
	}
	return in
}

// BoothForm holds the polling-booth modal's raw inputs.
type BoothForm struct {
	ID          string
	Name        string
	Code        string
	District    string
	Description string
	Ward        string
	Panchayat   string
	PriorCode   string

	edit bool
}

func (BoothForm) isForm() {}

func BoothFormFrom(b models.BoothDetail) BoothForm {
	f := BoothForm{
		ID:          b.ID,
		Name:        b.Name,
		Code:        b.Code,
		District:    b.District,
		Description: b.Description,
		PriorCode:   b.Code,
		edit:        true,
	}
	if b.Ward != nil {
		f.Ward = b.Ward.ID
	}
	if b.Panchayat != nil {
		f.Panchayat = b.Panchayat.ID
	}
	return f
}

// BoothFormFromListed prefills an edit form from a booth list row.
func BoothFormFromListed(b models.Booth) BoothForm {
	return BoothForm{
		ID:          b.ID,
		Name:        b.Name,
		Code:        b.Code,
		District:    b.District,
		Description: b.Description,
		Ward:        b.Ward,
		Panchayat:   b.Panchayat,
		PriorCode:   b.Code,
		edit:        true,
	}
}

// ForEdit marks a form filled from submitted values as an edit of id
// whose stored code was prior.
func (f BoothForm) ForEdit(id, prior string) BoothForm {
	f.ID = id
	f.PriorCode = prior
	f.edit = true
	return f
}

func (f BoothForm) Validate() FieldErrors {
	var fe FieldErrors
	if blank(f.Name) {
		fe.Add("name", "Booth name is required")
	}
	if blank(f.Code) {
		fe.Add("code", "Booth code is required")
	}
	if blank(f.District) {
		fe.Add("district", "District is required")
	}
	return done(fe)
}

// Payload converts a validated form. An edit upper-cases the code only
// when it differs from the stored one.
func (f BoothForm) Payload() models.BoothInput {
	code := editedCode(f.Code, f.PriorCode, f.edit)
	return models.BoothInput{
		Name:        strings.TrimSpace(f.Name),
		Code:        code,
		District:    strings.TrimSpace(f.District),
		Description: strings.TrimSpace(f.Description),
		Ward:        f.Ward,
		Panchayat:   f.Panchayat,
	}
}

// DeleteForm is the confirmation step of a delete modal.
type DeleteForm struct {
	ID    string
	Label string
}

func (DeleteForm) isForm() {}

func (f DeleteForm) Validate() FieldErrors {
	if blank(f.ID) {
		return fieldError(FormError, "Nothing selected to delete")
	}
	return nil
}
