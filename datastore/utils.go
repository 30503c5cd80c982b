// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package datastore

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/ben-mizel/commonspace/auth"
	"github.com/ben-mizel/commonspace/models"
)

const dataSchema = "data_collection"

// StudyTableName returns the qualified, quoted name of a study's data table.
// The id must be a UUID; the name embeds its 32 hex digits, so distinct
// studies never share a table.
func StudyTableName(studyID string) (string, error) {
	id, err := auth.NormalizeID(studyID)
	if err != nil {
		return "", err
	}
	return dataSchema + "." + pq.QuoteIdentifier("study_"+strings.ReplaceAll(id, "-", "")), nil
}

// FieldsArrayLiteral encodes fields as a Postgres array literal, e.g.
// {"gender","location"}.
func FieldsArrayLiteral(fields []models.FieldKind) (string, error) {
	strs := make(pq.StringArray, 0, len(fields))
	for _, f := range fields {
		strs = append(strs, string(f))
	}
	v, err := strs.Value()
	if err != nil {
		return "", fmt.Errorf("failed to encode fields: %w", err)
	}
	return v.(string), nil
}

// ColumnDefinition maps a field to its column in a study's data table
func ColumnDefinition(field models.FieldKind) (string, error) {
	switch field {
	case models.FieldGender:
		return "gender data_collection.gender", nil
	case models.FieldAge:
		return "age varchar(64)", nil
	case models.FieldMode:
		return "mode data_collection.mode", nil
	case models.FieldPosture:
		return "posture data_collection.posture", nil
	case models.FieldActivities:
		return "activities data_collection.activities[]", nil
	case models.FieldGroups:
		return "groups data_collection.groups", nil
	case models.FieldObject:
		return "object data_collection.object", nil
	case models.FieldLocation:
		return "location geometry NOT NULL", nil
	case models.FieldNote:
		return "note text", nil
	default:
		return "", &UnrecognizedFieldError{Field: field}
	}
}

// CreateStudyTableSQL builds the CREATE TABLE statement for a study's data
// table. Every field must be recognized and appear at most once.
func CreateStudyTableSQL(tableName string, fields []models.FieldKind) (string, error) {
	columns := []string{
		"survey_id UUID REFERENCES data_collection.survey(survey_id) ON DELETE CASCADE NOT NULL",
		"data_point_id UUID PRIMARY KEY NOT NULL",
		"creation_date timestamptz",
		"last_updated timestamptz",
	}

	seen := make(map[models.FieldKind]bool, len(fields))
	for _, f := range fields {
		if seen[f] {
			return "", fmt.Errorf("%w: %q", ErrDuplicateField, string(f))
		}
		seen[f] = true

		def, err := ColumnDefinition(f)
		if err != nil {
			return "", err
		}
		columns = append(columns, def)
	}

	return "CREATE TABLE " + tableName + " (\n    " + strings.Join(columns, ",\n    ") + "\n)", nil
}
