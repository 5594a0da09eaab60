// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package querycache

// Cached resources. Collections take their parent's ID as Key.Parent
// (empty for get-all), single records take their own ID.
const (
	Panchayats = "panchayats"
	Panchayat  = "panchayat"
	Wards      = "wards"
	Ward       = "ward"
	Booths     = "booths"
	Booth      = "booth"
	Voters     = "voters"
	Voter      = "voter"
	Dashboard  = "dashboard"
)

type Mutation string

const (
	CreatePanchayat   Mutation = "create-panchayat"
	UpdatePanchayat   Mutation = "update-panchayat"
	DeletePanchayat   Mutation = "delete-panchayat"
	CreateWard        Mutation = "create-ward"
	UpdateWard        Mutation = "update-ward"
	DeleteWard        Mutation = "delete-ward"
	CreateBooth       Mutation = "create-booth"
	UpdateBooth       Mutation = "update-booth"
	DeleteBooth       Mutation = "delete-booth"
	CreateVoter       Mutation = "create-voter"
	UpdateVoter       Mutation = "update-voter"
	UpdateVoterStatus Mutation = "update-voter-status"
	DeleteVoter       Mutation = "delete-voter"
)

// Scope names the records a mutation touched. ID is the mutated record;
// the others are its parents. Unknown parents may be left empty.
type Scope struct {
	ID        string
	Panchayat string
	Ward      string
	Booth     string
}

// ParentOf selects which Scope field becomes a target's Key.Parent.
type ParentOf int

const (
	NoParent ParentOf = iota
	SelfID
	PanchayatID
	WardID
	BoothID
)

type Target struct {
	Resource string
	Parent   ParentOf
}

// InvalidationTable maps each mutation to the reads it makes stale.
type InvalidationTable map[Mutation][]Target

// Table is the declared invalidation map. Every Mutation must appear here.
var Table = InvalidationTable{
	CreatePanchayat: {
		{Panchayats, NoParent},
		{Dashboard, NoParent},
	},
	UpdatePanchayat: {
		{Panchayats, NoParent},
		{Panchayat, SelfID},
	},
	DeletePanchayat: {
		{Panchayats, NoParent},
		{Panchayat, SelfID},
		{Wards, SelfID},
		{Dashboard, NoParent},
	},
	CreateWard: {
		{Wards, PanchayatID},
		{Wards, NoParent},
		{Dashboard, NoParent},
	},
	UpdateWard: {
		{Wards, PanchayatID},
		{Wards, NoParent},
		{Ward, SelfID},
		{Booths, SelfID},
	},
	DeleteWard: {
		{Wards, PanchayatID},
		{Wards, NoParent},
		{Ward, SelfID},
		{Booths, SelfID},
		{Dashboard, NoParent},
	},
	CreateBooth: {
		{Booths, WardID},
		{Booths, NoParent},
		{Wards, PanchayatID},
	},
	UpdateBooth: {
		{Booths, WardID},
		{Booths, NoParent},
		{Booth, SelfID},
	},
	DeleteBooth: {
		{Booths, WardID},
		{Booths, NoParent},
		{Booth, SelfID},
		{Wards, PanchayatID},
		{Voters, SelfID},
	},
	CreateVoter: {
		{Voters, BoothID},
		{Voters, NoParent},
		{Dashboard, NoParent},
	},
	UpdateVoter: {
		{Voters, BoothID},
		{Voters, NoParent},
		{Voter, SelfID},
		{Dashboard, NoParent},
	},
	UpdateVoterStatus: {
		{Voters, BoothID},
		{Voters, NoParent},
		{Voter, SelfID},
		{Dashboard, NoParent},
	},
	DeleteVoter: {
		{Voters, BoothID},
		{Voters, NoParent},
		{Voter, SelfID},
		{Dashboard, NoParent},
	},
}

// KeysFor resolves m's targets against scope. A target whose parent is
// unknown in scope widens to AnyParent.
func (t InvalidationTable) KeysFor(m Mutation, scope Scope) []Key {
	targets := t[m]
	keys := make([]Key, 0, len(targets))
	for _, target := range targets {
		key := Key{Resource: target.Resource}
		if target.Parent != NoParent {
			key.Parent = scope.field(target.Parent)
			if key.Parent == "" {
				key.Parent = AnyParent
			}
		}
		keys = append(keys, key)
	}
	return keys
}

// Mutations lists every mutation the table declares.
func (t InvalidationTable) Mutations() []Mutation {
	out := make([]Mutation, 0, len(t))
	for m := range t {
		out = append(out, m)
	}
	return out
}

func (s Scope) field(p ParentOf) string {
	switch p {
	case SelfID:
		return s.ID
	case PanchayatID:
		return s.Panchayat
	case WardID:
		return s.Ward
	case BoothID:
		return s.Booth
	}
	return ""
}
