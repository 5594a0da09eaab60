// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package resources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/danielhkuo/rollcall/apiclient"
	"github.com/danielhkuo/rollcall/models"
)

// Doer is the part of the API client the accessors need.
type Doer interface {
	Do(ctx context.Context, method, path string, body, out any) error
	DoMultipart(ctx context.Context, method, path string, fields map[string]string, file *apiclient.File, out any) error
}

// Service makes exactly one backend call per method.
type Service struct {
	api Doer
}

func New(api Doer) *Service {
	return &Service{api: api}
}

func esc(id string) string {
	return url.PathEscape(id)
}

// Panchayats

func (s *Service) ListPanchayats(ctx context.Context) ([]models.Panchayat, error) {
	var resp models.PanchayatListResponse
	if err := s.api.Do(ctx, http.MethodGet, "/panchayats/get-all-panchayats", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (s *Service) GetPanchayat(ctx context.Context, id string) (models.Panchayat, error) {
	var resp models.PanchayatResponse
	err := s.api.Do(ctx, http.MethodGet, "/panchayats/get-panchayat/"+esc(id), nil, &resp)
	return resp.Data, err
}

func (s *Service) CreatePanchayat(ctx context.Context, in models.PanchayatInput) (models.Panchayat, error) {
	var resp models.PanchayatResponse
	err := s.api.Do(ctx, http.MethodPost, "/panchayats/create-panchayat", in, &resp)
	return resp.Data, err
}

func (s *Service) UpdatePanchayat(ctx context.Context, id string, in models.PanchayatInput) (models.Panchayat, error) {
	var resp models.PanchayatResponse
	err := s.api.Do(ctx, http.MethodPut, "/panchayats/update-panchayat/"+esc(id), in, &resp)
	return resp.Data, err
}

func (s *Service) DeletePanchayat(ctx context.Context, id string) error {
	return s.api.Do(ctx, http.MethodDelete, "/panchayats/delete-panchayat/"+esc(id), nil, nil)
}

// Wards

func (s *Service) ListWards(ctx context.Context) ([]models.Ward, error) {
	var resp models.WardListResponse
	if err := s.api.Do(ctx, http.MethodGet, "/wards/get-all-wards", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Wards, nil
}

func (s *Service) WardsByPanchayat(ctx context.Context, panchayatID string) ([]models.Ward, error) {
	var resp models.WardListResponse
	if err := s.api.Do(ctx, http.MethodGet, "/wards/get-wards-by-panchayat/"+esc(panchayatID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Wards, nil
}

func (s *Service) GetWard(ctx context.Context, id string) (models.Ward, error) {
	var resp models.WardResponse
	err := s.api.Do(ctx, http.MethodGet, "/wards/get-ward/"+esc(id), nil, &resp)
	return resp.Data, err
}

func (s *Service) CreateWard(ctx context.Context, in models.WardInput) (models.Ward, error) {
	var resp models.WardResponse
	err := s.api.Do(ctx, http.MethodPost, "/wards/create-ward", in, &resp)
	return resp.Data, err
}

func (s *Service) UpdateWard(ctx context.Context, id string, in models.WardInput) (models.Ward, error) {
	var resp models.WardResponse
	err := s.api.Do(ctx, http.MethodPut, "/wards/update-ward/"+esc(id), in, &resp)
	return resp.Data, err
}

func (s *Service) DeleteWard(ctx context.Context, id string) error {
	return s.api.Do(ctx, http.MethodDelete, "/wards/delete-ward/"+esc(id), nil, nil)
}

// Booths

// BoothsOfWard is the get-booths-by-ward answer: the ward itself and its booths.
type BoothsOfWard struct {
	Ward   *models.Ward
	Booths []models.Booth
}

func (s *Service) ListBooths(ctx context.Context) ([]models.Booth, error) {
	var resp models.BoothListResponse
	if err := s.api.Do(ctx, http.MethodGet, "/booths/get-all-booths", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Booths, nil
}

func (s *Service) BoothsByWard(ctx context.Context, wardID string) (BoothsOfWard, error) {
	var resp models.BoothListResponse
	if err := s.api.Do(ctx, http.MethodGet, "/wards/get-booths-by-ward/"+esc(wardID), nil, &resp); err != nil {
		return BoothsOfWard{}, err
	}
	return BoothsOfWard{Ward: resp.Ward, Booths: resp.Booths}, nil
}

func (s *Service) GetBooth(ctx context.Context, id string) (models.BoothDetail, error) {
	var resp models.BoothResponse
	err := s.api.Do(ctx, http.MethodGet, "/booths/get-Booth-by-id/"+esc(id), nil, &resp)
	return resp.Booth, err
}

func (s *Service) CreateBooth(ctx context.Context, in models.BoothInput) (models.BoothDetail, error) {
	var resp models.BoothResponse
	err := s.api.Do(ctx, http.MethodPost, "/booths/create-Booth", in, &resp)
	return resp.Booth, err
}

func (s *Service) UpdateBooth(ctx context.Context, id string, in models.BoothInput) (models.BoothDetail, error) {
	var resp models.BoothResponse
	err := s.api.Do(ctx, http.MethodPut, "/booths/update-Booth/"+esc(id), in, &resp)
	return resp.Booth, err
}

func (s *Service) DeleteBooth(ctx context.Context, id string) error {
	return s.api.Do(ctx, http.MethodDelete, "/booths/delete-Booth/"+esc(id), nil, nil)
}

// Voters

// PhotoUpload is an optional voter photo attached to a create or update.
type PhotoUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

func (s *Service) ListVoters(ctx context.Context) ([]models.Voter, error) {
	var resp models.VoterListResponse
	if err := s.api.Do(ctx, http.MethodGet, "/voters/get-all-voters", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Voters, nil
}

func (s *Service) VotersByBooth(ctx context.Context, boothID string) ([]models.Voter, error) {
	var resp models.VoterListResponse
	if err := s.api.Do(ctx, http.MethodGet, "/voters/get-voters-by-booth/"+esc(boothID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Voters, nil
}

func (s *Service) GetVoter(ctx context.Context, id string) (models.Voter, error) {
	var resp models.VoterResponse
	err := s.api.Do(ctx, http.MethodGet, "/voters/get-voter-by-id/"+esc(id), nil, &resp)
	return resp.Data, err
}

func (s *Service) CreateVoter(ctx context.Context, in models.VoterInput, photo *PhotoUpload) (models.Voter, error) {
	fields, err := voterFields(in)
	if err != nil {
		return models.Voter{}, err
	}
	var resp models.VoterResponse
	err = s.api.DoMultipart(ctx, http.MethodPost, "/voters/create-voter", fields, photoPart(photo), &resp)
	return resp.Data, err
}

func (s *Service) UpdateVoter(ctx context.Context, id string, in models.VoterInput, photo *PhotoUpload) (models.Voter, error) {
	fields, err := voterFields(in)
	if err != nil {
		return models.Voter{}, err
	}
	var resp models.VoterResponse
	err = s.api.DoMultipart(ctx, http.MethodPut, "/voters/update-voter/"+esc(id), fields, photoPart(photo), &resp)
	return resp.Data, err
}

// UpdateVoterStatus changes status and/or hasVoted with a JSON body.
func (s *Service) UpdateVoterStatus(ctx context.Context, id string, patch models.VoterStatusPatch) (models.Voter, error) {
	var resp models.VoterResponse
	err := s.api.Do(ctx, http.MethodPut, "/voters/update-voter/"+esc(id), patch, &resp)
	return resp.Data, err
}

func (s *Service) DeleteVoter(ctx context.Context, id string) error {
	return s.api.Do(ctx, http.MethodDelete, "/voters/delete-voter/"+esc(id), nil, nil)
}

// voterFields flattens a voter into multipart fields. guardian and address
// travel as JSON strings.
func voterFields(in models.VoterInput) (map[string]string, error) {
	guardian, err := json.Marshal(in.Guardian)
	if err != nil {
		return nil, err
	}
	address, err := json.Marshal(in.Address)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{
		"voterId":              in.VoterID,
		"name":                 in.Name,
		"age":                  strconv.Itoa(in.Age),
		"gender":               in.Gender,
		"guardian":             string(guardian),
		"address":              string(address),
		"politicalAffiliation": in.PoliticalAffiliation,
		"party":                in.Party,
		"serialNumber":         strconv.Itoa(in.SerialNumber),
		"booth":                in.Booth,
	}
	if in.Ward != "" {
		fields["ward"] = in.Ward
	}
	if in.Panchayat != "" {
		fields["panchayat"] = in.Panchayat
	}
	return fields, nil
}

func photoPart(p *PhotoUpload) *apiclient.File {
	if p == nil {
		return nil
	}
	return &apiclient.File{Field: "photo", Name: p.Name, ContentType: p.ContentType, Data: p.Data}
}
