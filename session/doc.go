// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package session holds the console operator's credential.

The Store interface is injected into the API client and the route guards
instead of reading ambient state:

	store := session.NewFileStore(cfg.SessionFile)
	client := apiclient.New(cfg.BackendURL, store)

Get returns ErrNoSession when no token is held. Only a successful login
calls Set. Clear runs on logout and on any authorization failure.

FileStore keeps {"token", "user"} in a 0600 JSON file and replaces it
atomically. MemoryStore is for tests. Both are safe for concurrent use.
*/
package session
