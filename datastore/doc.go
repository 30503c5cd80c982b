// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package datastore stores users, studies, surveys and data points in PostgreSQL.

# Store

	store := datastore.New(pool)

Every method takes the request context. Operations with more than one
statement run in a single transaction via db.WithTx.

# Study Tables

Each study records its data points in its own table:

	data_collection."study_<32 hex digits of the study id>"

The study's fields decide the table's columns (see ColumnDefinition). Study
ids must be UUIDs; they are validated before any SQL is built. CreateStudy
inserts the study, creates its table and stores the map's locations
together. DeleteStudy drops the table and the study together.

# Surveyor Access

GiveUserStudyAccess grants access by email. An email with no user creates
one and retries the grant once. CheckUserIsSurveyor gates data point writes.

# Errors

  - *UnrecognizedFieldError: a field outside the known kinds, or one the
    study did not declare
  - *DeletionError: a delete that removed nothing
  - ErrNotFound, ErrConflict: missing references and duplicates
  - ErrInvalidMap, ErrInvalidDataPoint, ErrDuplicateField,
    ErrUnknownSurveyor: malformed input

Failed queries are logged with their values before the error is returned.
*/
package datastore
