// Package domain errors.go contains sentinel errors
package domain

import "errors"

// Sentinel domain-level errors reused by higher layers.
var (
	// ErrInvalidToken indicates a token that is not 12 lowercase hex characters.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNotFound indicates the token never existed or was fully reclaimed.
	ErrNotFound = errors.New("file not found")
	// ErrExpired indicates the file outlived its TTL without being downloaded.
	ErrExpired = errors.New("file expired")
	// ErrConsumed indicates the one-time download already happened.
	ErrConsumed = errors.New("file already downloaded")
	// ErrConflict indicates a token collision on creation.
	ErrConflict = errors.New("token already exists")
	// ErrTokenExhausted indicates repeated collisions exhausted the
	// regeneration budget.
	ErrTokenExhausted = errors.New("token generation exhausted")
	// ErrTooLarge indicates the ciphertext exceeds the configured maximum.
	ErrTooLarge = errors.New("file too large")
	// ErrInconsistent indicates the metadata row said the file was live but
	// its blob pair is missing. This is a corruption signal, not a soft 404.
	ErrInconsistent = errors.New("metadata and blob storage out of sync")
)
