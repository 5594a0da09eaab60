// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package console

import (
	"context"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/rollcall/dashboard"
	"github.com/danielhkuo/rollcall/forms"
	"github.com/danielhkuo/rollcall/models"
	"github.com/danielhkuo/rollcall/querycache"
	"github.com/danielhkuo/rollcall/resources"
	"github.com/danielhkuo/rollcall/views"
)

type signInData struct {
	Email   string
	Message string
}

func (s *Server) signInPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "signin", http.StatusOK, page{Title: "Admin Login", Data: signInData{}})
}

type dashboardData struct {
	Status   views.Status
	Error    string
	Snapshot dashboard.Snapshot
	Bars     dashboard.Bars
	Arcs     []dashboard.Arc
}

func (s *Server) dashboardPage(w http.ResponseWriter, r *http.Request) {
	snap, status, err := load(s, r, querycache.Key{Resource: querycache.Dashboard}, s.dash.Snapshot)
	if unauthorized(w, r, err) {
		return
	}

	data := dashboardData{Status: status}
	switch status {
	case views.Ready:
		data.Snapshot = snap
		data.Bars = dashboard.BarChart(snap.Groups, 640, 320)
		data.Arcs = dashboard.Doughnut(snap.TotalVoted, snap.PendingVotes, 120, 120, 110, 70)
	case views.Failed:
		data.Error = "Failed to load dashboard"
	}

	s.render(w, "dashboard", http.StatusOK, page{
		Title:   "Dashboard",
		Active:  "dashboard",
		Refresh: status == views.Pending,
		Data:    data,
	})
}

// Panchayat report

type panchayatsData struct {
	List views.List[models.Panchayat]
}

func (s *Server) panchayatsPage(w http.ResponseWriter, r *http.Request) {
	s.renderPanchayats(w, r, http.StatusOK, func(items []models.Panchayat) *modalView {
		q := r.URL.Query()
		id := q.Get("id")
		switch q.Get("modal") {
		case "add":
			return panchayatAdd(forms.OpenModal(forms.Create, "Panchayat", forms.PanchayatForm{}))
		case "edit":
			if p, ok := find(items, id, func(p models.Panchayat) string { return p.ID }); ok {
				return panchayatEdit(forms.OpenModal(forms.Edit, "Panchayat", forms.PanchayatFormFrom(p)))
			}
		case "delete":
			if p, ok := find(items, id, func(p models.Panchayat) string { return p.ID }); ok {
				return panchayatDelete(forms.OpenModal(forms.Delete, "Panchayat", forms.DeleteForm{ID: p.ID, Label: panchayatLabel(p)}))
			}
		}
		return nil
	})
}

func (s *Server) renderPanchayats(w http.ResponseWriter, r *http.Request, status int, modal func([]models.Panchayat) *modalView) {
	items, st, err := load(s, r, querycache.Key{Resource: querycache.Panchayats}, s.svc.ListPanchayats)
	if unauthorized(w, r, err) {
		return
	}

	list := listOf(items, st, err, r.URL.Query().Get("q"), "Failed to load panchayats", "/dashboard", views.FilterPanchayats)
	s.render(w, "panchayats", status, page{
		Title:   "Panchayat Report",
		Active:  "panchayats",
		Refresh: st == views.Pending,
		Modal:   modal(items),
		Data:    panchayatsData{List: list},
	})
}

// Panchayat management: wards of one panchayat

type wardsData struct {
	Panchayat models.Panchayat
	List      views.List[models.Ward]
}

func (s *Server) wardsPage(w http.ResponseWriter, r *http.Request) {
	pid := r.PathValue("id")
	s.renderWards(w, r, pid, http.StatusOK, func(items []models.Ward) *modalView {
		q := r.URL.Query()
		id := q.Get("id")
		switch q.Get("modal") {
		case "add":
			return wardAdd(forms.OpenModal(forms.Create, "Ward", forms.WardForm{Panchayat: pid}))
		case "edit":
			if wd, ok := find(items, id, func(w models.Ward) string { return w.ID }); ok {
				return wardEdit(forms.OpenModal(forms.Edit, "Ward", forms.WardFormFrom(wd)))
			}
		case "delete":
			if wd, ok := find(items, id, func(w models.Ward) string { return w.ID }); ok {
				return wardDelete(forms.OpenModal(forms.Delete, "Ward", forms.DeleteForm{ID: wd.ID, Label: wardLabel(wd)}), pid)
			}
		}
		return nil
	})
}

func (s *Server) renderWards(w http.ResponseWriter, r *http.Request, pid string, status int, modal func([]models.Ward) *modalView) {
	var (
		panchayat models.Panchayat
		wards     []models.Ward
		pst, wst  views.Status
		perr, werr error
	)

	// The panchayat header and its wards are independent reads.
	g, _ := errgroup.WithContext(r.Context())
	g.Go(func() error {
		panchayat, pst, perr = load(s, r, querycache.Key{Resource: querycache.Panchayat, Parent: pid},
			func(ctx context.Context) (models.Panchayat, error) { return s.svc.GetPanchayat(ctx, pid) })
		return nil
	})
	g.Go(func() error {
		wards, wst, werr = load(s, r, querycache.Key{Resource: querycache.Wards, Parent: pid},
			func(ctx context.Context) ([]models.Ward, error) { return s.svc.WardsByPanchayat(ctx, pid) })
		return nil
	})
	g.Wait()

	if unauthorized(w, r, perr) || unauthorized(w, r, werr) {
		return
	}

	st, err := worst(pst, perr, wst, werr)
	list := listOf(wards, st, err, r.URL.Query().Get("q"), "Failed to load wards", panchayatsPath, views.FilterWards)
	s.render(w, "wards", status, page{
		Title:   panchayat.Name,
		Active:  "panchayats",
		Refresh: st == views.Pending,
		Modal:   modal(wards),
		Data:    wardsData{Panchayat: panchayat, List: list},
	})
}

// worst combines two loads: any failure wins, then any pending.
func worst(a views.Status, aerr error, b views.Status, berr error) (views.Status, error) {
	switch {
	case a == views.Failed:
		return a, aerr
	case b == views.Failed:
		return b, berr
	case a == views.Pending || b == views.Pending:
		return views.Pending, nil
	}
	return views.Ready, nil
}

// Booth management: booths of one ward

type boothsData struct {
	WardID string
	Ward   models.Ward
	List   views.List[models.Booth]
}

func (s *Server) boothsPage(w http.ResponseWriter, r *http.Request) {
	wid := r.PathValue("wardId")
	s.renderBooths(w, r, wid, http.StatusOK, func(ward models.Ward, items []models.Booth) *modalView {
		q := r.URL.Query()
		id := q.Get("id")
		switch q.Get("modal") {
		case "add":
			return boothAdd(forms.OpenModal(forms.Create, "Booth", forms.BoothForm{Ward: wid, Panchayat: ward.Panchayat}))
		case "edit":
			if b, ok := find(items, id, func(b models.Booth) string { return b.ID }); ok {
				return boothEdit(forms.OpenModal(forms.Edit, "Booth", forms.BoothFormFromListed(b)))
			}
		case "delete":
			if b, ok := find(items, id, func(b models.Booth) string { return b.ID }); ok {
				return boothDelete(forms.OpenModal(forms.Delete, "Booth", forms.DeleteForm{ID: b.ID, Label: boothLabel(b)}), wid, ward.Panchayat)
			}
		}
		return nil
	})
}

func (s *Server) fetchBoothsOfWard(r *http.Request, wid string) (resources.BoothsOfWard, views.Status, error) {
	return load(s, r, querycache.Key{Resource: querycache.Booths, Parent: wid},
		func(ctx context.Context) (resources.BoothsOfWard, error) { return s.svc.BoothsByWard(ctx, wid) })
}

func (s *Server) renderBooths(w http.ResponseWriter, r *http.Request, wid string, status int, modal func(models.Ward, []models.Booth) *modalView) {
	res, st, err := s.fetchBoothsOfWard(r, wid)
	if unauthorized(w, r, err) {
		return
	}

	var ward models.Ward
	if res.Ward != nil {
		ward = *res.Ward
	}
	back := panchayatsPath
	if ward.Panchayat != "" {
		back = wardsPath(ward.Panchayat)
	}

	list := listOf(res.Booths, st, err, r.URL.Query().Get("q"), "Failed to load booths", back, views.FilterBooths)
	s.render(w, "booths", status, page{
		Title:   "Booth Management",
		Active:  "panchayats",
		Refresh: st == views.Pending,
		Modal:   modal(ward, res.Booths),
		Data:    boothsData{WardID: wid, Ward: ward, List: list},
	})
}

// Booth details: voters of one booth

type votersData struct {
	BoothID string
	Booth   models.BoothDetail
	List    views.List[models.Voter]
	Filter  views.VoterFilter
	// Busy disables every status control while an update is in flight.
	Busy bool
	// Filters carries the current filters through a status update.
	Filters string
}

func voterFilterOf(r *http.Request) views.VoterFilter {
	q := r.URL.Query()
	f := views.VoterFilter{Query: q.Get("q"), Status: q.Get("status"), Voting: q.Get("voting")}
	if f.Status == "" {
		f.Status = views.All
	}
	if f.Voting == "" {
		f.Voting = views.All
	}
	return f
}

// filterQuery is the query string that reproduces f, with its leading "?".
func filterQuery(f views.VoterFilter) string {
	q := url.Values{"q": {f.Query}}
	if f.Status != views.All {
		q.Set("status", f.Status)
	}
	if f.Voting != views.All {
		q.Set("voting", f.Voting)
	}
	return withQuery("", q)
}

func (s *Server) votersPage(w http.ResponseWriter, r *http.Request) {
	bid := r.PathValue("boothId")
	s.renderVoters(w, r, bid, http.StatusOK, "", func(booth models.BoothDetail) *modalView {
		if r.URL.Query().Get("modal") == "add" {
			return voterAdd(forms.OpenModal(forms.Create, "Voter", forms.NewVoterForm(booth)))
		}
		return nil
	})
}

func (s *Server) renderVoters(w http.ResponseWriter, r *http.Request, bid string, status int, notice string, modal func(models.BoothDetail) *modalView) {
	var (
		booth      models.BoothDetail
		voters     []models.Voter
		bst, vst   views.Status
		berr, verr error
	)

	g, _ := errgroup.WithContext(r.Context())
	g.Go(func() error {
		booth, bst, berr = load(s, r, querycache.Key{Resource: querycache.Booth, Parent: bid},
			func(ctx context.Context) (models.BoothDetail, error) { return s.svc.GetBooth(ctx, bid) })
		return nil
	})
	g.Go(func() error {
		voters, vst, verr = load(s, r, querycache.Key{Resource: querycache.Voters, Parent: bid},
			func(ctx context.Context) ([]models.Voter, error) { return s.svc.VotersByBooth(ctx, bid) })
		return nil
	})
	g.Wait()

	if unauthorized(w, r, berr) || unauthorized(w, r, verr) {
		return
	}

	back := panchayatsPath
	if booth.Ward != nil {
		back = boothsPath(booth.Ward.ID)
	}

	filter := voterFilterOf(r)
	st, err := worst(bst, berr, vst, verr)

	var list views.List[models.Voter]
	switch st {
	case views.Ready:
		list = views.List[models.Voter]{Status: views.Ready, All: voters, Items: views.FilterVoters(voters, filter), Query: filter.Query}
	default:
		list = listOf(voters, st, err, filter.Query, "Failed to load voters", back, nil)
	}

	s.render(w, "voters", status, page{
		Title:   "Booth Details",
		Active:  "panchayats",
		Refresh: st == views.Pending,
		Notice:  notice,
		Modal:   modal(booth),
		Data:    votersData{BoothID: bid, Booth: booth, List: list, Filter: filter, Busy: s.gate.Busy(bid), Filters: filterQuery(filter)},
	})
}
