// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions shared by
the console and the reference backend.

# Request Logging

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (duration_ms).

# Backend Authorization

RequireAdmin checks the Authorization: Bearer header against the JWT
secret and answers 401 otherwise:

	mux.HandleFunc("GET /wards/get-all-wards",
		middleware.WithLogging(middleware.RequireAdmin(cfg.JWTSecret, h.GetAllWards)))

Handlers read the verified administrator with AdminFromContext.

# Console Guards

RequireSession and PublicOnly gate console views on the presence of a
stored credential. The token is not validated here; a stale token is only
noticed when the backend answers 401.

	mux.HandleFunc("GET /dashboard", middleware.RequireSession(store, "/sign-in", c.Dashboard))
	mux.HandleFunc("GET /sign-in", middleware.PublicOnly(store, "/dashboard", c.SignInPage))

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

	var req models.PanchayatInput
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# CORS

	server := http.Server{Handler: middleware.CORS(mux)}
*/
package middleware
