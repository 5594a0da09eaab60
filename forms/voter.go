// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package forms

import (
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/danielhkuo/rollcall/models"
	"github.com/danielhkuo/rollcall/resources"
)

// Photo is a file picked in the voter modal.
type Photo struct {
	Name         string
	DeclaredType string
	Data         []byte
}

const (
	photoTooLarge = "Image size must be less than 2MB"
	photoNotImage = "Please select a valid image file"
)

// CheckPhoto returns the message for an unacceptable photo, or "".
// Size is checked first; the type must be an image both as declared by the
// browser and as sniffed from the content.
func CheckPhoto(p *Photo) string {
	if p == nil {
		return ""
	}
	if len(p.Data) > models.MaxPhotoBytes {
		return photoTooLarge
	}
	if !strings.HasPrefix(p.DeclaredType, "image/") {
		return photoNotImage
	}
	if !strings.HasPrefix(mimetype.Detect(p.Data).String(), "image/") {
		return photoNotImage
	}
	return ""
}

// VoterForm holds the add-voter modal's raw inputs.
type VoterForm struct {
	ID                   string
	VoterID              string
	Name                 string
	Age                  string
	Gender               string
	GuardianName         string
	GuardianRelation     string
	HouseNumber          string
	HouseName            string
	PoliticalAffiliation string
	Party                string
	SerialNumber         string
	Booth                string
	Ward                 string
	Panchayat            string
	Photo                *Photo
}

func (VoterForm) isForm() {}

// NewVoterForm is a blank create form for a booth with the modal's defaults.
func NewVoterForm(booth models.BoothDetail) VoterForm {
	f := VoterForm{
		Gender:               models.GenderMale,
		GuardianRelation:     models.RelationFather,
		PoliticalAffiliation: models.AffiliationUnknown,
		Booth:                booth.ID,
	}
	if booth.Ward != nil {
		f.Ward = booth.Ward.ID
	}
	if booth.Panchayat != nil {
		f.Panchayat = booth.Panchayat.ID
	}
	return f
}

// VoterFormFrom prefills an edit form from v. The photo is left unset so
// an unchanged edit keeps the stored one.
func VoterFormFrom(v models.Voter) VoterForm {
	return VoterForm{
		ID:                   v.ID,
		VoterID:              v.VoterID,
		Name:                 v.Name,
		Age:                  strconv.Itoa(v.Age),
		Gender:               v.Gender,
		GuardianName:         v.Guardian.Name,
		GuardianRelation:     v.Guardian.Relation,
		HouseNumber:          v.Address.HouseNumber,
		HouseName:            v.Address.HouseName,
		PoliticalAffiliation: v.PoliticalAffiliation,
		Party:                v.Party,
		SerialNumber:         strconv.Itoa(v.SerialNumber),
		Booth:                v.Booth,
		Ward:                 v.Ward,
		Panchayat:            v.Panchayat,
	}
}

func (f VoterForm) Validate() FieldErrors {
	var fe FieldErrors

	if blank(f.VoterID) {
		fe.Add("voterId", "Voter ID is required")
	}
	if blank(f.Name) {
		fe.Add("name", "Name is required")
	}
	if age, err := strconv.Atoi(strings.TrimSpace(f.Age)); err != nil || age < 18 {
		fe.Add("age", "Age must be 18 or above")
	}
	if !models.OneOf(f.Gender, models.Genders) {
		fe.Add("gender", "Gender must be male, female or other")
	}
	if blank(f.GuardianName) {
		fe.Add("guardianName", "Guardian name is required")
	}
	if !models.OneOf(f.GuardianRelation, models.Relations) {
		fe.Add("guardianRelation", "Guardian relation must be father, mother, husband or other")
	}
	if blank(f.HouseNumber) {
		fe.Add("houseNumber", "House number is required")
	}
	if blank(f.HouseName) {
		fe.Add("houseName", "House name is required")
	}
	if f.PoliticalAffiliation != "" && !models.OneOf(f.PoliticalAffiliation, models.Affiliations) {
		fe.Add("politicalAffiliation", "Invalid political affiliation")
	}
	if blank(f.SerialNumber) {
		fe.Add("serialNumber", "Serial number is required")
	} else if _, ok := positive(f.SerialNumber); !ok {
		fe.Add("serialNumber", "Serial number must be a positive number")
	}
	if msg := CheckPhoto(f.Photo); msg != "" {
		fe.Add("image", msg)
	}
	return done(fe)
}

func (f VoterForm) Payload() models.VoterInput {
	age, _ := strconv.Atoi(strings.TrimSpace(f.Age))
	serial, _ := positive(f.SerialNumber)
	return models.VoterInput{
		VoterID:              strings.TrimSpace(f.VoterID),
		Name:                 strings.TrimSpace(f.Name),
		Age:                  age,
		Gender:               f.Gender,
		Guardian:             models.Guardian{Name: strings.TrimSpace(f.GuardianName), Relation: f.GuardianRelation},
		Address:              models.Address{HouseNumber: strings.TrimSpace(f.HouseNumber), HouseName: strings.TrimSpace(f.HouseName)},
		PoliticalAffiliation: f.PoliticalAffiliation,
		Party:                strings.TrimSpace(f.Party),
		SerialNumber:         serial,
		Booth:                f.Booth,
		Ward:                 f.Ward,
		Panchayat:            f.Panchayat,
	}
}

// Upload is the photo part to send, or nil when none was picked.
func (f VoterForm) Upload() *resources.PhotoUpload {
	if f.Photo == nil {
		return nil
	}
	return &resources.PhotoUpload{Name: f.Photo.Name, ContentType: f.Photo.DeclaredType, Data: f.Photo.Data}
}
