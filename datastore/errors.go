// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package datastore

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/ben-mizel/commonspace/models"
)

// Postgres error codes the stores react to
const (
	foreignKeyViolation pq.ErrorCode = "23503"
	uniqueViolation     pq.ErrorCode = "23505"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("already exists")
	ErrInvalidMap       = errors.New("invalid study map")
	ErrInvalidDataPoint = errors.New("invalid data point")
	ErrUnknownSurveyor  = errors.New("unknown surveyor")
	ErrDuplicateField   = errors.New("duplicate field")
)

// UnrecognizedFieldError reports a field outside the closed FieldKind set, or
// a field a study did not declare.
type UnrecognizedFieldError struct {
	Field models.FieldKind
}

func (e *UnrecognizedFieldError) Error() string {
	return fmt.Sprintf("unrecognized field for activity study: %q", string(e.Field))
}

// DeletionError reports a delete that removed nothing
type DeletionError struct {
	Entity string
	ID     string
}

func (e *DeletionError) Error() string {
	return fmt.Sprintf("unable to delete %s: %s", e.Entity, e.ID)
}

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

func isForeignKeyViolation(err error) bool {
	return hasCode(err, foreignKeyViolation)
}

func isUniqueViolation(err error) bool {
	return hasCode(err, uniqueViolation)
}

// logQueryError logs a failed statement together with its arguments
func logQueryError(query string, values []interface{}, err error) {
	slog.Error("sql statement failed", "query", query, "values", values, "error", err)
}
