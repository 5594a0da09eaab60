// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package apiclient is the console's single HTTP client for the backend.

	client := apiclient.New(cfg.BackendURL, store)
	client.OnUnauthorized(func() { slog.Info("forcing sign-in") })

Every request carries Authorization: Bearer <token> when the session store
holds one. A 401 clears the store, runs the OnUnauthorized hooks and
returns an error matching ErrUnauthorized. Other non-2xx answers come back
as *APIError carrying the backend's message; failures to reach the backend
come back as *TransportError.

Login is the exception: its 401 is an authentication failure and is
returned as a plain *APIError.

The client never retries. Retryable tells a caching layer which read
failures it may repeat.
*/
package apiclient
