// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package console

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/rollcall/apiclient"
	"github.com/danielhkuo/rollcall/dashboard"
	"github.com/danielhkuo/rollcall/middleware"
	"github.com/danielhkuo/rollcall/models"
	"github.com/danielhkuo/rollcall/querycache"
	"github.com/danielhkuo/rollcall/resources"
	"github.com/danielhkuo/rollcall/session"
	"github.com/danielhkuo/rollcall/views"
)

//go:embed templates/*.html static/*
var assets embed.FS

const (
	signInPath  = "/sign-in"
	landingPath = "/dashboard"
)

// Server is the administrative console.
type Server struct {
	backendURL string
	client     *apiclient.Client
	store      session.Store
	svc        *resources.Service
	cache      *querycache.Cache
	dash       dashboard.Aggregator
	gate       *views.Gate

	// loadBudget bounds how long a page waits for data before rendering
	// its loading state. The read keeps running and fills the cache.
	loadBudget time.Duration

	pages map[string]*template.Template
}

type Option func(*Server)

// WithLoadBudget overrides how long a page waits before showing its
// loading state.
func WithLoadBudget(d time.Duration) Option {
	return func(s *Server) { s.loadBudget = d }
}

// New builds a console talking to the backend through client.
func New(backendURL string, client *apiclient.Client, cache *querycache.Cache, dash dashboard.Aggregator, opts ...Option) (*Server, error) {
	s := &Server{
		backendURL: strings.TrimRight(backendURL, "/"),
		client:     client,
		store:      client.Session(),
		svc:        resources.New(client),
		cache:      cache,
		dash:       dash,
		gate:       views.NewGate(),
		loadBudget: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	pages, err := parsePages(s.funcs())
	if err != nil {
		return nil, err
	}
	s.pages = pages

	// Cached data belongs to the operator who fetched it.
	client.OnUnauthorized(cache.Clear)
	return s, nil
}

// Handler returns the console's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	guard := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireSession(s.store, signInPath, h))
	}
	public := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.PublicOnly(s.store, landingPath, h))
	}

	static, _ := fs.Sub(assets, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))

	mux.HandleFunc("GET /sign-in", public(s.signInPage))
	mux.HandleFunc("POST /sign-in", public(s.signIn))
	mux.HandleFunc("POST /logout", middleware.WithLogging(s.logout))

	mux.HandleFunc("GET /dashboard", guard(s.dashboardPage))

	mux.HandleFunc("GET /panchayat-report", guard(s.panchayatsPage))
	mux.HandleFunc("POST /panchayats", guard(s.createPanchayat))
	mux.HandleFunc("POST /panchayats/{id}/edit", guard(s.updatePanchayat))
	mux.HandleFunc("POST /panchayats/{id}/delete", guard(s.deletePanchayat))

	mux.HandleFunc("GET /panchayat/{id}/manage", guard(s.wardsPage))
	mux.HandleFunc("POST /panchayat/{id}/wards", guard(s.createWard))
	mux.HandleFunc("POST /wards/{id}/edit", guard(s.updateWard))
	mux.HandleFunc("POST /wards/{id}/delete", guard(s.deleteWard))

	mux.HandleFunc("GET /ward/{wardId}/booths", guard(s.boothsPage))
	mux.HandleFunc("POST /ward/{wardId}/booths", guard(s.createBooth))
	mux.HandleFunc("POST /booths/{id}/edit", guard(s.updateBooth))
	mux.HandleFunc("POST /booths/{id}/delete", guard(s.deleteBooth))

	mux.HandleFunc("GET /booth-details/{boothId}", guard(s.votersPage))
	mux.HandleFunc("POST /booth-details/{boothId}/voters", guard(s.createVoter))
	mux.HandleFunc("POST /booth-details/{boothId}/voters/{voterId}/status", guard(s.updateVoterStatus))

	// The root and every unknown path go to sign-in.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, signInPath, http.StatusSeeOther)
	})

	return mux
}

func parsePages(funcs template.FuncMap) (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template)

	signIn, err := template.New("signin.html").Funcs(funcs).ParseFS(assets, "templates/signin.html")
	if err != nil {
		return nil, fmt.Errorf("parse sign-in template: %w", err)
	}
	pages["signin"] = signIn

	for _, name := range []string{"dashboard", "panchayats", "wards", "booths", "voters"} {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(assets,
			"templates/layout.html", "templates/modals.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

func (s *Server) funcs() template.FuncMap {
	return template.FuncMap{
		"comma": func(n int) string { return humanize.Comma(int64(n)) },
		"photo": func(p *models.Photo) string {
			if p == nil || p.URL == "" {
				return ""
			}
			if strings.HasPrefix(p.URL, "http://") || strings.HasPrefix(p.URL, "https://") {
				return p.URL
			}
			return s.backendURL + p.URL
		},
		"initial": func(name string) string {
			for _, r := range name {
				return strings.ToUpper(string(r))
			}
			return "?"
		},
		"label": func(v string) string {
			if v == "" {
				return ""
			}
			return strings.ToUpper(v[:1]) + strings.ReplaceAll(v[1:], "-", " ")
		},
		"statuses":     func() []string { return models.Statuses },
		"genders":      func() []string { return models.Genders },
		"relations":    func() []string { return models.Relations },
		"affiliations": func() []string { return models.Affiliations },
		"fmtf":         func(f float64) string { return fmt.Sprintf("%.2f", f) },
	}
}

// page is the data every layout-based template receives.
type page struct {
	Title  string
	Active string
	Admin  models.Admin
	// Refresh makes the browser reload while data is still loading.
	Refresh bool
	Notice  string
	Modal   *modalView
	Data    any
}

func (s *Server) render(w http.ResponseWriter, name string, status int, p page) {
	t, ok := s.pages[name]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}

	if sess, err := s.store.Get(); err == nil {
		p.Admin = sess.Admin
	}

	root := "layout.html"
	if name == "signin" {
		root = "signin.html"
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, root, p); err != nil {
		slog.Error("failed to render page", "page", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// unauthorized sends the browser to sign-in when err is an authorization
// failure. The client has already cleared the session.
func unauthorized(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, apiclient.ErrUnauthorized) {
		return false
	}
	http.Redirect(w, r, signInPath, http.StatusSeeOther)
	return true
}

// load fetches through the cache within the page's load budget. When the
// budget runs out first it reports views.Pending and the read carries on.
func load[T any](s *Server, r *http.Request, key querycache.Key, fn func(context.Context) (T, error)) (T, views.Status, error) {
	ctx, cancel := context.WithTimeout(r.Context(), s.loadBudget)
	defer cancel()

	v, err := querycache.Fetch(ctx, s.cache, key, fn)
	switch {
	case err == nil:
		return v, views.Ready, nil
	case errors.Is(err, context.DeadlineExceeded) && r.Context().Err() == nil:
		return v, views.Pending, nil
	default:
		return v, views.Failed, err
	}
}

// listOf turns a load result into a list model.
func listOf[T any](items []T, status views.Status, err error, query, failText, back string, filterFn func([]T, string) []T) views.List[T] {
	switch status {
	case views.Pending:
		return views.List[T]{Status: views.Pending, BackLink: back}
	case views.Failed:
		return views.Broken[T](apiclient.Message(err, failText), back)
	}
	return views.Loaded(items, query, filterFn)
}

func seeOther(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func withQuery(path string, q url.Values) string {
	for k, vs := range q {
		if len(vs) == 0 || vs[0] == "" {
			q.Del(k)
		}
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
