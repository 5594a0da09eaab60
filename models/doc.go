// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the wire types shared by the console and the
reference backend.

# Domain Types

  - Panchayat: name, code, address, declared ward count
  - Ward: ward number, name, owning panchayat, optional polling-booth hint
  - Booth: name, code, district, description, owning ward and panchayat
  - BoothDetail: a booth with its ward and panchayat populated
  - Voter: electoral-roll entry with guardian, address, status, hasVoted, photo
  - Admin: the signed-in administrator's profile

Identifiers travel as "_id" and field names are camelCase.

# Request Types

  - LoginRequest: email, password
  - PanchayatInput, WardInput, BoothInput: JSON create/update bodies
  - VoterInput: the non-file fields of a multipart voter submission
  - VoterStatusPatch: inline status / hasVoted change

# Response Envelopes

Envelopes mirror the backend's shapes, which differ per endpoint:

	GET  /panchayats/get-all-panchayats      → PanchayatListResponse {data, count}
	GET  /wards/get-wards-by-panchayat/{id}  → WardListResponse {wards, count}
	GET  /wards/get-booths-by-ward/{id}      → BoothListResponse {ward, booths, count}
	GET  /booths/get-Booth-by-id/{id}        → BoothResponse {booth}
	GET  /voters/get-voters-by-booth/{id}    → VoterListResponse {voters, count}

Errors are always ErrorResponse {error, message}.

# Enumerations

	Genders      = male | female | other
	Relations    = father | mother | husband | other
	Affiliations = unknown | supporter | neutral | opposition
	Statuses     = active | inactive | deceased | transferred

MaxPhotoBytes (2 MiB) bounds voter photos on both sides.
*/
package models
