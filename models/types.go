// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Gender values
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Guardian relation values
const (
	RelationFather  = "father"
	RelationMother  = "mother"
	RelationHusband = "husband"
	RelationOther   = "other"
)

// Political affiliation values
const (
	AffiliationUnknown    = "unknown"
	AffiliationSupporter  = "supporter"
	AffiliationNeutral    = "neutral"
	AffiliationOpposition = "opposition"
)

// Voter record status values
const (
	StatusActive      = "active"
	StatusInactive    = "inactive"
	StatusDeceased    = "deceased"
	StatusTransferred = "transferred"
)

var (
	Genders      = []string{GenderMale, GenderFemale, GenderOther}
	Relations    = []string{RelationFather, RelationMother, RelationHusband, RelationOther}
	Affiliations = []string{AffiliationUnknown, AffiliationSupporter, AffiliationNeutral, AffiliationOpposition}
	Statuses     = []string{StatusActive, StatusInactive, StatusDeceased, StatusTransferred}
)

// MaxPhotoBytes is the largest voter photo accepted (2 MiB).
const MaxPhotoBytes = 2 * 1024 * 1024

// OneOf reports whether v is in set.
func OneOf(v string, set []string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Domain types

type Admin struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Panchayat struct {
	ID         string    `json:"_id"`
	Name       string    `json:"name"`
	Code       string    `json:"code"`
	Address    string    `json:"address"`
	TotalWards int       `json:"totalWards"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Location struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type PollingBooth struct {
	Name     string   `json:"name,omitempty"`
	Location Location `json:"location"`
}

type Ward struct {
	ID           string        `json:"_id"`
	WardNumber   int           `json:"wardNumber"`
	Name         string        `json:"name"`
	Panchayat    string        `json:"panchayat"`
	PollingBooth *PollingBooth `json:"pollingBooth,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

type Booth struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	District    string    `json:"district"`
	Description string    `json:"description,omitempty"`
	Ward        string    `json:"ward"`
	Panchayat   string    `json:"panchayat"`
	CreatedAt   time.Time `json:"createdAt"`
}

// WardRef and PanchayatRef are the populated parents returned with a single booth.
type WardRef struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	WardNumber int    `json:"wardNumber"`
}

type PanchayatRef struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type BoothDetail struct {
	ID          string        `json:"_id"`
	Name        string        `json:"name"`
	Code        string        `json:"code"`
	District    string        `json:"district"`
	Description string        `json:"description,omitempty"`
	Ward        *WardRef      `json:"ward,omitempty"`
	Panchayat   *PanchayatRef `json:"panchayat,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

type Guardian struct {
	Name     string `json:"name"`
	Relation string `json:"relation"`
}

type Address struct {
	HouseNumber string `json:"houseNumber"`
	HouseName   string `json:"houseName"`
}

type Photo struct {
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
}

type Voter struct {
	ID                   string    `json:"_id"`
	VoterID              string    `json:"voterId"`
	Name                 string    `json:"name"`
	Age                  int       `json:"age"`
	Gender               string    `json:"gender"`
	Guardian             Guardian  `json:"guardian"`
	Address              Address   `json:"address"`
	PoliticalAffiliation string    `json:"politicalAffiliation"`
	Party                string    `json:"party,omitempty"`
	SerialNumber         int       `json:"serialNumber"`
	Status               string    `json:"status"`
	HasVoted             bool      `json:"hasVoted"`
	Photo                *Photo    `json:"photo,omitempty"`
	Booth                string    `json:"booth"`
	Ward                 string    `json:"ward"`
	Panchayat            string    `json:"panchayat"`
	CreatedAt            time.Time `json:"createdAt"`
}

// Request types

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PanchayatInput struct {
	Name       string `json:"name"`
	Code       string `json:"code"`
	TotalWards int    `json:"totalWards"`
	Address    string `json:"address"`
}

type WardInput struct {
	WardNumber   int           `json:"wardNumber"`
	Name         string        `json:"name"`
	Panchayat    string        `json:"panchayat"`
	PollingBooth *PollingBooth `json:"pollingBooth,omitempty"`
}

type BoothInput struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	District    string `json:"district"`
	Description string `json:"description,omitempty"`
	Ward        string `json:"ward"`
	Panchayat   string `json:"panchayat"`
}

// VoterInput is the non-file part of a multipart voter submission.
type VoterInput struct {
	VoterID              string
	Name                 string
	Age                  int
	Gender               string
	Guardian             Guardian
	Address              Address
	PoliticalAffiliation string
	Party                string
	SerialNumber         int
	Booth                string
	Ward                 string
	Panchayat            string
}

// VoterStatusPatch changes only the inline-editable fields of a voter.
type VoterStatusPatch struct {
	Status   *string `json:"status,omitempty"`
	HasVoted *bool   `json:"hasVoted,omitempty"`
}

// Response types

type LoginData struct {
	AccessToken string `json:"accessToken"`
	Admin       Admin  `json:"admin"`
}

type LoginResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	Data    LoginData `json:"data"`
}

type PanchayatListResponse struct {
	Success bool        `json:"success"`
	Data    []Panchayat `json:"data"`
	Count   int         `json:"count"`
}

type PanchayatResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	Data    Panchayat `json:"data"`
}

type WardListResponse struct {
	Success bool   `json:"success"`
	Wards   []Ward `json:"wards"`
	Count   int    `json:"count"`
}

type WardResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    Ward   `json:"data"`
}

type BoothListResponse struct {
	Success bool    `json:"success"`
	Ward    *Ward   `json:"ward,omitempty"`
	Booths  []Booth `json:"booths"`
	Count   int     `json:"count"`
}

type BoothResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Booth   BoothDetail `json:"booth"`
}

type VoterListResponse struct {
	Success bool    `json:"success"`
	Voters  []Voter `json:"voters"`
	Count   int     `json:"count"`
}

type VoterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    Voter  `json:"data"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
