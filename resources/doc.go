// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package resources exposes one typed accessor per backend operation on
// panchayats, wards, polling booths and voters. Each call goes through the
// API client exactly once; caching and retries live in querycache.
package resources
