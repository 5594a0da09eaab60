// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides credential and token utilities for the reference backend.

# Passwords

Administrator passwords are stored as bcrypt hashes:

	hash, err := auth.HashPassword(password)
	err := auth.CheckPassword(hash, candidate) // ErrInvalidCredentials on mismatch

# Access Tokens

Access tokens are HS256 JWTs carrying the admin ID (sub) and email:

	token, err := auth.IssueToken(auth.Claims{AdminID: id, Email: email}, secret, ttl)
	claims, err := auth.ValidateToken(token, secret)

ValidateToken rejects bad signatures, other signing methods, expired
tokens, and tokens without a subject. Every failure wraps ErrInvalidToken.

# ID Generation

Record identifiers are random UUIDs:

	id := auth.GenerateID()
*/
package auth
