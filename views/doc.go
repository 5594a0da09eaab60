// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package views holds the state behind the console's list pages: search
// filtering, pending/failed/ready list models and the per-view gate that
// disables voter status controls while an update is in flight.
package views
