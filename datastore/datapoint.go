// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package datastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/ben-mizel/commonspace/auth"
	"github.com/ben-mizel/commonspace/models"
)

// SaveDataPoint inserts or replaces one row of a study's data table. Values
// may only use fields the study declared. The survey must belong to the study.
func (s *Store) SaveDataPoint(ctx context.Context, studyID string, point models.DataPoint) (models.DataPoint, error) {
	tableName, err := StudyTableName(studyID)
	if err != nil {
		return models.DataPoint{}, err
	}
	studyID, _ = auth.NormalizeID(studyID)
	if point.SurveyID, err = auth.NormalizeID(point.SurveyID); err != nil {
		return models.DataPoint{}, err
	}
	if point.DataPointID, err = auth.EnsureID(point.DataPointID); err != nil {
		return models.DataPoint{}, err
	}

	fields, err := s.studyFieldsForSurvey(ctx, studyID, point.SurveyID)
	if err != nil {
		return models.DataPoint{}, err
	}

	now := time.Now().UTC()
	if point.CreationDate == nil {
		point.CreationDate = &now
	}
	point.LastUpdated = &now

	query, values, err := upsertDataPointSQL(tableName, fields, point)
	if err != nil {
		return models.DataPoint{}, err
	}

	var created, updated time.Time
	err = s.db.QueryRowContext(ctx, query, values...).Scan(&created, &updated)
	if err == sql.ErrNoRows {
		// The id is taken by a point of another survey
		return models.DataPoint{}, fmt.Errorf("data point %s in survey %s: %w", point.DataPointID, point.SurveyID, ErrNotFound)
	}
	if err != nil {
		logQueryError(query, values, err)
		return models.DataPoint{}, fmt.Errorf("failed to save data point: %w", err)
	}
	point.CreationDate = &created
	point.LastUpdated = &updated

	return point, nil
}

// DeleteDataPoint removes one row of a study's data table. The point must
// belong to surveyID.
func (s *Store) DeleteDataPoint(ctx context.Context, studyID, surveyID, dataPointID string) error {
	tableName, err := StudyTableName(studyID)
	if err != nil {
		return err
	}
	if surveyID, err = auth.NormalizeID(surveyID); err != nil {
		return err
	}
	if dataPointID, err = auth.NormalizeID(dataPointID); err != nil {
		return err
	}

	query := `DELETE FROM ` + tableName + ` WHERE data_point_id = $1 AND survey_id = $2`
	res, err := s.db.ExecContext(ctx, query, dataPointID, surveyID)
	if err != nil {
		logQueryError(query, []interface{}{dataPointID, surveyID}, err)
		return fmt.Errorf("failed to delete data point: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete data point: %w", err)
	}
	if n == 0 {
		return &DeletionError{Entity: "data point", ID: dataPointID}
	}
	return nil
}

func (s *Store) studyFieldsForSurvey(ctx context.Context, studyID, surveyID string) ([]models.FieldKind, error) {
	query := `SELECT stu.fields
	          FROM data_collection.study AS stu
	          JOIN data_collection.survey AS svy ON svy.study_id = stu.study_id
	          WHERE stu.study_id = $1 AND svy.survey_id = $2`

	var fields pq.StringArray
	err := s.db.QueryRowContext(ctx, query, studyID, surveyID).Scan(&fields)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("survey %s in study %s: %w", surveyID, studyID, ErrNotFound)
	}
	if err != nil {
		logQueryError(query, []interface{}{studyID, surveyID}, err)
		return nil, fmt.Errorf("failed to query study fields: %w", err)
	}
	return toFieldKinds(fields), nil
}

// upsertDataPointSQL builds the INSERT ... ON CONFLICT statement for point.
// Columns follow the study's field order. A conflicting row of another survey
// is left alone and the statement returns no row.
func upsertDataPointSQL(tableName string, fields []models.FieldKind, point models.DataPoint) (string, []interface{}, error) {
	declared := make(map[models.FieldKind]bool, len(fields))
	for _, f := range fields {
		declared[f] = true
	}
	for f := range point.Values {
		if !declared[f] {
			return "", nil, &UnrecognizedFieldError{Field: f}
		}
	}

	columns := []string{"survey_id", "data_point_id", "creation_date", "last_updated"}
	placeholders := []string{"$1", "$2", "$3", "$4"}
	values := []interface{}{point.SurveyID, point.DataPointID, point.CreationDate, point.LastUpdated}
	updates := []string{"last_updated = EXCLUDED.last_updated"}

	for _, f := range fields {
		raw, ok := point.Values[f]
		if !ok {
			if f == models.FieldLocation {
				return "", nil, fmt.Errorf("%w: location is required", ErrInvalidDataPoint)
			}
			continue
		}

		value, err := columnValue(f, raw)
		if err != nil {
			return "", nil, err
		}
		values = append(values, value)

		n := "$" + strconv.Itoa(len(values))
		switch f {
		case models.FieldLocation:
			n = "ST_SetSRID(ST_GeomFromGeoJSON(" + n + "), 4326)"
		case models.FieldActivities:
			n = n + "::data_collection.activities[]"
		}

		col := pq.QuoteIdentifier(string(f))
		columns = append(columns, col)
		placeholders = append(placeholders, n)
		updates = append(updates, col+" = EXCLUDED."+col)
	}

	query := "INSERT INTO " + tableName + " AS existing (" + strings.Join(columns, ", ") + ")\n" +
		"VALUES (" + strings.Join(placeholders, ", ") + ")\n" +
		"ON CONFLICT (data_point_id) DO UPDATE SET " + strings.Join(updates, ", ") + "\n" +
		"WHERE existing.survey_id = EXCLUDED.survey_id\n" +
		"RETURNING creation_date, last_updated"
	return query, values, nil
}

// columnValue converts a decoded JSON value to a driver value for field's column
func columnValue(field models.FieldKind, raw interface{}) (interface{}, error) {
	if raw == nil {
		if field == models.FieldLocation {
			return nil, fmt.Errorf("%w: location is required", ErrInvalidDataPoint)
		}
		return nil, nil
	}

	switch field {
	case models.FieldLocation:
		geometry, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: location: %v", ErrInvalidDataPoint, err)
		}
		return string(geometry), nil
	case models.FieldActivities:
		items, ok := raw.([]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: activities must be a list", ErrInvalidDataPoint)
		}
		activities := make([]string, 0, len(items))
		for _, item := range items {
			a, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: activities must be strings", ErrInvalidDataPoint)
			}
			activities = append(activities, a)
		}
		return pq.Array(activities), nil
	case models.FieldAge:
		switch v := raw.(type) {
		case string:
			return v, nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		}
		return nil, fmt.Errorf("%w: age must be a string or number", ErrInvalidDataPoint)
	default:
		v, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a string", ErrInvalidDataPoint, field)
		}
		return v, nil
	}
}
