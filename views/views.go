// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package views

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/danielhkuo/rollcall/models"
)

// MatchText reports whether any field contains query, ignoring case.
// The query is used as typed, spaces included. An empty query matches
// everything.
func MatchText(query string, fields ...string) bool {
	q := strings.ToLower(query)
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func FilterPanchayats(items []models.Panchayat, query string) []models.Panchayat {
	return filter(items, func(p models.Panchayat) bool {
		return MatchText(query, p.Name, p.Code, p.Address)
	})
}

func FilterWards(items []models.Ward, query string) []models.Ward {
	return filter(items, func(w models.Ward) bool {
		return MatchText(query, w.Name, strconv.Itoa(w.WardNumber))
	})
}

func FilterBooths(items []models.Booth, query string) []models.Booth {
	return filter(items, func(b models.Booth) bool {
		return MatchText(query, b.Name, b.Code, b.District)
	})
}

// Filter selections for the voter table.
const (
	All      = "all"
	Voted    = "voted"
	NotVoted = "not-voted"
)

// VoterFilter is the voter table's search box plus its two dropdowns.
type VoterFilter struct {
	Query  string
	Status string // All or a voter status
	Voting string // All, Voted or NotVoted
}

func (f VoterFilter) statusMatch(v models.Voter) bool {
	return f.Status == "" || f.Status == All || v.Status == f.Status
}

func (f VoterFilter) votingMatch(v models.Voter) bool {
	switch f.Voting {
	case Voted:
		return v.HasVoted
	case NotVoted:
		return !v.HasVoted
	}
	return true
}

// FilterVoters keeps voters matching the text query, the status filter and
// the voting filter.
func FilterVoters(items []models.Voter, f VoterFilter) []models.Voter {
	return filter(items, func(v models.Voter) bool {
		return MatchText(f.Query, v.Name, v.VoterID, v.Address.HouseNumber) &&
			f.statusMatch(v) &&
			f.votingMatch(v)
	})
}

// Status is a list view's load state.
type Status int

const (
	Pending Status = iota
	Failed
	Ready
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Failed:
		return "failed"
	case Ready:
		return "ready"
	}
	return "unknown"
}

// List is what a list view renders: the fetched collection, the subset
// passing the current search, and how to get back on failure.
type List[T any] struct {
	Status   Status
	All      []T
	Items    []T
	Query    string
	Error    string
	BackLink string
}

// Loaded builds a ready list by applying filterFn to items.
func Loaded[T any](items []T, query string, filterFn func([]T, string) []T) List[T] {
	return List[T]{
		Status: Ready,
		All:    items,
		Items:  filterFn(items, query),
		Query:  query,
	}
}

// Broken builds a failed list showing message with a back action.
func Broken[T any](message, back string) List[T] {
	return List[T]{Status: Failed, Error: message, BackLink: back}
}

// Empty reports whether the fetch returned nothing, as opposed to the
// search hiding everything.
func (l List[T]) Empty() bool {
	return l.Status == Ready && len(l.All) == 0
}

// NoMatches reports whether the search hides every fetched item.
func (l List[T]) NoMatches() bool {
	return l.Status == Ready && len(l.All) > 0 && len(l.Items) == 0
}

var ErrUpdateInFlight = errors.New("an update is already in progress")

// Gate serializes status updates within one view. While an update is in
// flight every status control of that view is disabled.
type Gate struct {
	mu       sync.Mutex
	inFlight map[string]bool
}

func NewGate() *Gate {
	return &Gate{inFlight: make(map[string]bool)}
}

// Busy reports whether view has an update in flight.
func (g *Gate) Busy(view string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight[view]
}

// Run executes fn unless view already has an update in flight.
func (g *Gate) Run(view string, fn func() error) error {
	g.mu.Lock()
	if g.inFlight[view] {
		g.mu.Unlock()
		return ErrUpdateInFlight
	}
	g.inFlight[view] = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.inFlight, view)
		g.mu.Unlock()
	}()
	return fn()
}
