// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/rollcall/models"
)

// Group is one ward range on the turnout chart.
type Group struct {
	Label   string
	Voted   int
	Pending int
}

// Snapshot is everything the dashboard page shows.
type Snapshot struct {
	TotalWards   int
	TotalVoters  int
	TotalVoted   int
	PendingVotes int
	Groups       []Group
	// Live is false for the placeholder figures.
	Live bool
}

// TurnoutPercent is voted over voters with one decimal, e.g. "71.0".
func (s Snapshot) TurnoutPercent() string {
	if s.TotalVoters == 0 {
		return "0.0"
	}
	return strconv.FormatFloat(float64(s.TotalVoted)/float64(s.TotalVoters)*100, 'f', 1, 64)
}

// Formatted figures for the stat cards.
func (s Snapshot) WardsText() string   { return humanize.Comma(int64(s.TotalWards)) }
func (s Snapshot) VotersText() string  { return humanize.Comma(int64(s.TotalVoters)) }
func (s Snapshot) VotedText() string   { return humanize.Comma(int64(s.TotalVoted)) }
func (s Snapshot) PendingText() string { return humanize.Comma(int64(s.PendingVotes)) }

// Aggregator produces dashboard snapshots.
type Aggregator interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Placeholder serves fixed figures after a short simulated load.
type Placeholder struct {
	Delay time.Duration
}

func NewPlaceholder() Placeholder {
	return Placeholder{Delay: 1500 * time.Millisecond}
}

func (p Placeholder) Snapshot(ctx context.Context) (Snapshot, error) {
	if p.Delay > 0 {
		t := time.NewTimer(p.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		case <-t.C:
		}
	}

	return Snapshot{
		TotalWards:   245,
		TotalVoters:  125678,
		TotalVoted:   89234,
		PendingVotes: 36444,
		Groups: []Group{
			{"Ward 1-50", 4523, 1234},
			{"Ward 51-100", 17890, 3456},
			{"Ward 101-150", 23456, 5678},
			{"Ward 151-200", 19876, 4321},
			{"Ward 201-245", 12489, 2755},
		},
	}, nil
}

// Source is the read side Live aggregates over.
type Source interface {
	ListWards(ctx context.Context) ([]models.Ward, error)
	ListVoters(ctx context.Context) ([]models.Voter, error)
}

// GroupSize is the width of a ward range on the chart.
const GroupSize = 50

// Live computes the snapshot from every ward and voter.
type Live struct {
	src Source
}

func NewLive(src Source) *Live {
	return &Live{src: src}
}

func (l *Live) Snapshot(ctx context.Context) (Snapshot, error) {
	start := time.Now()

	wards, err := l.src.ListWards(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list wards: %w", err)
	}
	voters, err := l.src.ListVoters(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list voters: %w", err)
	}

	s := Aggregate(wards, voters)
	slog.Debug("dashboard aggregated", "wards", s.TotalWards, "voters", s.TotalVoters, "duration_ms", time.Since(start).Milliseconds())
	return s, nil
}

// Aggregate totals voters and groups them by their ward's number in ranges
// of GroupSize. Voters whose ward is unknown count in the totals only.
func Aggregate(wards []models.Ward, voters []models.Voter) Snapshot {
	s := Snapshot{TotalWards: len(wards), TotalVoters: len(voters), Live: true}

	number := make(map[string]int, len(wards))
	highest := 0
	for _, w := range wards {
		number[w.ID] = w.WardNumber
		highest = max(highest, w.WardNumber)
	}

	type tally struct{ voted, pending int }
	buckets := map[int]*tally{}
	for _, w := range wards {
		b := (w.WardNumber - 1) / GroupSize
		if buckets[b] == nil {
			buckets[b] = &tally{}
		}
	}

	for _, v := range voters {
		if v.HasVoted {
			s.TotalVoted++
		} else {
			s.PendingVotes++
		}
		n, ok := number[v.Ward]
		if !ok {
			continue
		}
		t := buckets[(n-1)/GroupSize]
		if v.HasVoted {
			t.voted++
		} else {
			t.pending++
		}
	}

	keys := make([]int, 0, len(buckets))
	for b := range buckets {
		keys = append(keys, b)
	}
	sort.Ints(keys)

	for _, b := range keys {
		lo := b*GroupSize + 1
		hi := min(lo+GroupSize-1, highest)
		s.Groups = append(s.Groups, Group{
			Label:   fmt.Sprintf("Ward %d-%d", lo, hi),
			Voted:   buckets[b].voted,
			Pending: buckets[b].pending,
		})
	}
	return s
}
