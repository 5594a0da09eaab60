// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the reference backend.

	mux := router.NewRouter(db, cfg)

# Endpoints

Public:

	GET  /health
	POST /auth/login
	GET  /uploads/voters/{file}

Everything else requires Authorization: Bearer <token>:

	/panchayats/{get-all-panchayats, get-panchayat/{id}, create-panchayat,
	             update-panchayat/{id}, delete-panchayat/{id}}
	/wards/{get-all-wards, get-ward/{id}, get-wards-by-panchayat/{id},
	        get-booths-by-ward/{id}, create-ward, update-ward/{id}, delete-ward/{id}}
	/booths/{get-all-booths, get-Booth-by-id/{id}, create-Booth,
	         update-Booth/{id}, delete-Booth/{id}}
	/voters/{get-all-voters, get-voters-by-booth/{id}, get-voter-by-id/{id},
	         create-voter, update-voter/{id}, delete-voter/{id}}

The mixed-case booth paths match the paths existing clients already call.
*/
package router
