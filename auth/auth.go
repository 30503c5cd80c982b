// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// UserIDHeader carries the id of the user making a request
const UserIDHeader = "X-User-ID"

var (
	ErrInvalidID   = errors.New("invalid id format")
	ErrMissingUser = errors.New("missing user id")
)

// GenerateID creates a random (version 4) UUID string
func GenerateID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return id.String(), nil
}

// NormalizeID parses id as a UUID and returns its canonical lowercase form.
// Any id that will be used to build SQL identifiers must pass through here.
func NormalizeID(id string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return parsed.String(), nil
}

// EnsureID returns id normalized, or a freshly generated id when id is empty
func EnsureID(id string) (string, error) {
	if id == "" {
		return GenerateID()
	}
	return NormalizeID(id)
}

// UserIDFromRequest returns the caller's user id from the X-User-ID header
func UserIDFromRequest(r *http.Request) (string, error) {
	raw := r.Header.Get(UserIDHeader)
	if raw == "" {
		return "", ErrMissingUser
	}
	return NormalizeID(raw)
}
