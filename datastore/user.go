// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ben-mizel/commonspace/auth"
	"github.com/ben-mizel/commonspace/models"
)

// CreateUser inserts a user, generating an id when UserID is empty, and
// returns the id used. A duplicate email yields ErrConflict.
func (s *Store) CreateUser(ctx context.Context, user models.User) (string, error) {
	return createUser(ctx, s.db, user)
}

// CreateUserFromEmail inserts a user known only by email and returns its new
// id. It does not check for an existing user first.
func (s *Store) CreateUserFromEmail(ctx context.Context, email string) (string, error) {
	return createUser(ctx, s.db, models.User{Email: email})
}

// UserIDByEmail looks up a user by email. found is false when no user has it.
func (s *Store) UserIDByEmail(ctx context.Context, email string) (id string, found bool, err error) {
	return userIDByEmail(ctx, s.db, email)
}

func createUser(ctx context.Context, q Querier, user models.User) (string, error) {
	userID, err := auth.EnsureID(user.UserID)
	if err != nil {
		return "", err
	}

	query := `INSERT INTO public.users (user_id, email, name)
	          VALUES ($1, $2, $3)`
	values := []interface{}{userID, strings.TrimSpace(user.Email), nullString(user.Name)}

	if _, err := q.ExecContext(ctx, query, values...); err != nil {
		logQueryError(query, values, err)
		if isUniqueViolation(err) {
			return "", fmt.Errorf("user %s: %w", user.Email, ErrConflict)
		}
		return "", fmt.Errorf("failed to insert user: %w", err)
	}

	return userID, nil
}

func userIDByEmail(ctx context.Context, q Querier, email string) (string, bool, error) {
	query := `SELECT user_id FROM public.users WHERE email = $1`

	var id string
	err := q.QueryRowContext(ctx, query, strings.TrimSpace(email)).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		logQueryError(query, []interface{}{email}, err)
		return "", false, fmt.Errorf("failed to query user: %w", err)
	}
	return id, true, nil
}
