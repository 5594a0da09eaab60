// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package views

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danielhkuo/rollcall/models"
)

func TestMatchText(t *testing.T) {
	testCases := []struct {
		query  string
		fields []string
		want   bool
	}{
		{"", []string{"Kodakara"}, true},
		{"   ", []string{"Kodakara"}, false},
		{"kara ", []string{"Kodakara"}, false},
		{"kara ", []string{"Kodakara East"}, true},
		{" east", []string{"Kodakara East"}, true},
		{"koda", []string{"Kodakara"}, true},
		{"KARA", []string{"Kodakara"}, true},
		{"dak", []string{"x", "Kodakara"}, true},
		{"thrissur", []string{"Kodakara", "KDK"}, false},
		{"kdk", []string{}, false},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%q", tc.query), func(t *testing.T) {
			if got := MatchText(tc.query, tc.fields...); got != tc.want {
				t.Errorf("MatchText(%q, %v) = %v, want %v", tc.query, tc.fields, got, tc.want)
			}
		})
	}
}

func TestFilters_FieldCoverage(t *testing.T) {
	panchayats := []models.Panchayat{
		{ID: "1", Name: "Kodakara", Code: "KDK", Address: "Thrissur"},
		{ID: "2", Name: "Aloor", Code: "ALR", Address: "Irinjalakuda"},
	}
	if got := FilterPanchayats(panchayats, "irinj"); len(got) != 1 || got[0].ID != "2" {
		t.Errorf("Expected address match, got %+v", got)
	}
	if got := FilterPanchayats(panchayats, "kdk"); len(got) != 1 || got[0].ID != "1" {
		t.Errorf("Expected code match, got %+v", got)
	}

	wards := []models.Ward{{ID: "a", WardNumber: 12, Name: "Chembuchira"}, {ID: "b", WardNumber: 3, Name: "Mattathur"}}
	if got := FilterWards(wards, "12"); len(got) != 1 || got[0].ID != "a" {
		t.Errorf("Expected ward number match, got %+v", got)
	}

	booths := []models.Booth{{ID: "x", Name: "GLPS", Code: "B-001", District: "Thrissur"}, {ID: "y", Name: "AUPS", Code: "B-002", District: "Ernakulam"}}
	if got := FilterBooths(booths, "ERNA"); len(got) != 1 || got[0].ID != "y" {
		t.Errorf("Expected district match, got %+v", got)
	}
}

const alphabet = "abcdefghijklmnopqrstuvwxyz"

func randomWord(r *rand.Rand, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[r.Intn(len(alphabet))])
	}
	return b.String()
}

// Inserting a marker into exactly K of N names must make exactly K match,
// whatever its case and position.
func TestFilterPanchayats_KOfN(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	const marker = "zqx"

	for trial := 0; trial < 200; trial++ {
		n := 1 + r.Intn(30)
		k := r.Intn(n + 1)

		items := make([]models.Panchayat, n)
		for i := range items {
			name := strings.ReplaceAll(randomWord(r, 4+r.Intn(8)), "z", "a")
			if i < k {
				pos := r.Intn(len(name) + 1)
				m := marker
				if r.Intn(2) == 0 {
					m = strings.ToUpper(m)
				}
				name = name[:pos] + m + name[pos:]
			}
			items[i] = models.Panchayat{ID: fmt.Sprint(i), Name: name, Code: "C", Address: "A"}
		}
		r.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })

		query := marker
		if r.Intn(2) == 0 {
			query = "ZqX"
		}
		if got := FilterPanchayats(items, query); len(got) != k {
			t.Fatalf("trial %d: expected %d of %d, got %d", trial, k, n, len(got))
		}
	}
}

func TestFilterVoters_Intersection(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	names := []string{"Lakshmi", "Ravi", "Anil", "Latha", "Rajan"}

	var voters []models.Voter
	for i := 0; i < 60; i++ {
		voters = append(voters, models.Voter{
			ID:       fmt.Sprint(i),
			VoterID:  fmt.Sprintf("KL/%03d", i),
			Name:     names[r.Intn(len(names))],
			Status:   models.Statuses[r.Intn(len(models.Statuses))],
			HasVoted: r.Intn(2) == 0,
			Address:  models.Address{HouseNumber: fmt.Sprintf("%d/4", r.Intn(20))},
		})
	}

	ids := func(vs []models.Voter) map[string]bool {
		out := map[string]bool{}
		for _, v := range vs {
			out[v.ID] = true
		}
		return out
	}

	for _, q := range []string{"", "la", "RA", "kl/01", "3/4"} {
		for _, status := range append([]string{All}, models.Statuses...) {
			for _, voting := range []string{All, Voted, NotVoted} {
				got := ids(FilterVoters(voters, VoterFilter{Query: q, Status: status, Voting: voting}))

				text := ids(FilterVoters(voters, VoterFilter{Query: q, Status: All, Voting: All}))
				st := ids(FilterVoters(voters, VoterFilter{Status: status, Voting: All}))
				vt := ids(FilterVoters(voters, VoterFilter{Status: All, Voting: voting}))

				want := map[string]bool{}
				for id := range text {
					if st[id] && vt[id] {
						want[id] = true
					}
				}
				if diff := cmp.Diff(want, got); diff != "" {
					t.Errorf("q=%q status=%s voting=%s (-want +got):\n%s", q, status, voting, diff)
				}
			}
		}
	}
}

func TestList(t *testing.T) {
	items := []models.Booth{{Name: "GLPS"}, {Name: "AUPS"}}

	l := Loaded(items, "glps", FilterBooths)
	if l.Status != Ready || len(l.Items) != 1 || len(l.All) != 2 || l.Query != "glps" {
		t.Errorf("Unexpected list %+v", l)
	}
	if l.Empty() || l.NoMatches() {
		t.Error("Expected matches")
	}

	if !Loaded(items, "none", FilterBooths).NoMatches() {
		t.Error("Expected no matches")
	}
	if !Loaded([]models.Booth{}, "", FilterBooths).Empty() {
		t.Error("Expected empty")
	}

	b := Broken[models.Booth]("Failed to load booths", "/panchayat-report")
	if b.Status != Failed || b.Error != "Failed to load booths" || b.BackLink != "/panchayat-report" {
		t.Errorf("Unexpected broken list %+v", b)
	}
	if b.Status.String() != "failed" {
		t.Errorf("Unexpected status string %q", b.Status)
	}
}

func TestGate(t *testing.T) {
	g := NewGate()

	entered := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		g.Run("booth-1", func() error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	if !g.Busy("booth-1") {
		t.Error("Expected view busy while update in flight")
	}
	if g.Busy("booth-2") {
		t.Error("Other views must not be affected")
	}
	if err := g.Run("booth-1", func() error { return nil }); !errors.Is(err, ErrUpdateInFlight) {
		t.Errorf("Expected ErrUpdateInFlight, got %v", err)
	}

	close(release)
	wg.Wait()

	if g.Busy("booth-1") {
		t.Error("Expected gate released")
	}
	boom := errors.New("boom")
	if err := g.Run("booth-1", func() error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Expected fn error returned, got %v", err)
	}
	if g.Busy("booth-1") {
		t.Error("Expected gate released after failure")
	}
}
