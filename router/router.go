// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/rollcall/cliparse"
	"github.com/danielhkuo/rollcall/handlers"
	"github.com/danielhkuo/rollcall/middleware"
)

// NewRouter wires the reference backend's REST surface.
func NewRouter(db *sql.DB, cfg cliparse.BackendConfig) *http.ServeMux {
	mux := http.NewServeMux()

	photos := handlers.NewPhotoStore(cfg.UploadDir)

	authHandler := handlers.NewAuthHandler(db, cfg)
	panchayatHandler := handlers.NewPanchayatHandler(db, cfg)
	wardHandler := handlers.NewWardHandler(db, cfg)
	boothHandler := handlers.NewBoothHandler(db, cfg)
	voterHandler := handlers.NewVoterHandler(db, cfg, photos)

	// admin wraps a handler with logging and bearer-token checks
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireAdmin(cfg.JWTSecret, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Authentication (public)
	mux.HandleFunc("POST /auth/login", middleware.WithLogging(authHandler.Login))

	// Photos are referenced by URL from voter records
	mux.HandleFunc("GET /uploads/voters/{file}", middleware.WithLogging(photos.ServePhoto))

	// Panchayats
	mux.HandleFunc("GET /panchayats/get-all-panchayats", admin(panchayatHandler.GetAllPanchayats))
	mux.HandleFunc("GET /panchayats/get-panchayat/{id}", admin(panchayatHandler.GetPanchayat))
	mux.HandleFunc("POST /panchayats/create-panchayat", admin(panchayatHandler.CreatePanchayat))
	mux.HandleFunc("PUT /panchayats/update-panchayat/{id}", admin(panchayatHandler.UpdatePanchayat))
	mux.HandleFunc("DELETE /panchayats/delete-panchayat/{id}", admin(panchayatHandler.DeletePanchayat))

	// Wards
	mux.HandleFunc("GET /wards/get-all-wards", admin(wardHandler.GetAllWards))
	mux.HandleFunc("GET /wards/get-ward/{id}", admin(wardHandler.GetWard))
	mux.HandleFunc("GET /wards/get-wards-by-panchayat/{id}", admin(wardHandler.GetWardsByPanchayat))
	mux.HandleFunc("GET /wards/get-booths-by-ward/{id}", admin(wardHandler.GetBoothsByWard))
	mux.HandleFunc("POST /wards/create-ward", admin(wardHandler.CreateWard))
	mux.HandleFunc("PUT /wards/update-ward/{id}", admin(wardHandler.UpdateWard))
	mux.HandleFunc("DELETE /wards/delete-ward/{id}", admin(wardHandler.DeleteWard))

	// Polling booths
	mux.HandleFunc("GET /booths/get-all-booths", admin(boothHandler.GetAllBooths))
	mux.HandleFunc("GET /booths/get-Booth-by-id/{id}", admin(boothHandler.GetBoothByID))
	mux.HandleFunc("POST /booths/create-Booth", admin(boothHandler.CreateBooth))
	mux.HandleFunc("PUT /booths/update-Booth/{id}", admin(boothHandler.UpdateBooth))
	mux.HandleFunc("DELETE /booths/delete-Booth/{id}", admin(boothHandler.DeleteBooth))

	// Voters
	mux.HandleFunc("GET /voters/get-all-voters", admin(voterHandler.GetAllVoters))
	mux.HandleFunc("GET /voters/get-voters-by-booth/{id}", admin(voterHandler.GetVotersByBooth))
	mux.HandleFunc("GET /voters/get-voter-by-id/{id}", admin(voterHandler.GetVoterByID))
	mux.HandleFunc("POST /voters/create-voter", admin(voterHandler.CreateVoter))
	mux.HandleFunc("PUT /voters/update-voter/{id}", admin(voterHandler.UpdateVoter))
	mux.HandleFunc("DELETE /voters/delete-voter/{id}", admin(voterHandler.DeleteVoter))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("rollcall API v1"))
	})

	return mux
}
