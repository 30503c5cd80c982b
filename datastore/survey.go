// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/ben-mizel/commonspace/auth"
	"github.com/ben-mizel/commonspace/db"
	"github.com/ben-mizel/commonspace/models"
)

const surveyColumns = `s.survey_id, s.study_id, s.start_date, s.end_date, s.location_id, s.user_id,
	                   s.title, u.email, s.representation, s.microclimate, s.temperature_c, s.method, s.notes`

// SurveysForStudy lists a study's surveys with the email of each surveyor
func (s *Store) SurveysForStudy(ctx context.Context, studyID string) ([]models.Survey, error) {
	query := `SELECT ` + surveyColumns + `
	          FROM data_collection.survey AS s
	          JOIN public.users AS u ON s.user_id = u.user_id
	          WHERE s.study_id = $1
	          ORDER BY s.start_date NULLS LAST, s.survey_id`

	studyID, err := auth.NormalizeID(studyID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, studyID)
	if err != nil {
		logQueryError(query, []interface{}{studyID}, err)
		return nil, fmt.Errorf("failed to query surveys: %w", err)
	}
	defer rows.Close()

	surveys := []models.Survey{}
	for rows.Next() {
		sv, err := scanSurvey(rows)
		if err != nil {
			return nil, err
		}
		surveys = append(surveys, sv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read surveys: %w", err)
	}

	return surveys, nil
}

// CreateSurvey inserts a survey and returns it with its resolved ids. A
// missing SurveyID is generated; a missing UserID is looked up from Email.
func (s *Store) CreateSurvey(ctx context.Context, survey models.Survey) (models.Survey, error) {
	var err error
	if survey.SurveyID, err = auth.EnsureID(survey.SurveyID); err != nil {
		return models.Survey{}, err
	}
	if survey.StudyID, err = auth.NormalizeID(survey.StudyID); err != nil {
		return models.Survey{}, err
	}
	if survey.LocationID != "" {
		if survey.LocationID, err = auth.NormalizeID(survey.LocationID); err != nil {
			return models.Survey{}, err
		}
	}

	if survey.UserID != "" {
		if survey.UserID, err = auth.NormalizeID(survey.UserID); err != nil {
			return models.Survey{}, err
		}
	} else {
		id, found, err := userIDByEmail(ctx, s.db, survey.Email)
		if err != nil {
			return models.Survey{}, err
		}
		if !found {
			return models.Survey{}, fmt.Errorf("%w: %q", ErrUnknownSurveyor, survey.Email)
		}
		survey.UserID = id
	}

	query := `INSERT INTO data_collection.survey
	              (survey_id, study_id, user_id, location_id, title, start_date, end_date,
	               representation, microclimate, temperature_c, method, notes)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	values := []interface{}{
		survey.SurveyID, survey.StudyID, survey.UserID, nullString(survey.LocationID),
		nullString(survey.Title), survey.StartDate, survey.EndDate,
		nullString(survey.Representation), nullString(survey.Microclimate), survey.TemperatureC,
		nullString(survey.Method), nullString(survey.Notes),
	}

	if _, err := s.db.ExecContext(ctx, query, values...); err != nil {
		logQueryError(query, values, err)
		if isUniqueViolation(err) {
			return models.Survey{}, fmt.Errorf("survey %s: %w", survey.SurveyID, ErrConflict)
		}
		if isForeignKeyViolation(err) {
			return models.Survey{}, fmt.Errorf("survey %s references a missing study, user or location: %w",
				survey.SurveyID, ErrNotFound)
		}
		return models.Survey{}, fmt.Errorf("failed to insert survey: %w", err)
	}

	slog.Info("survey created", "survey_id", survey.SurveyID, "study_id", survey.StudyID)
	return survey, nil
}

// UpdateSurvey applies updates to a survey in order and stores the result.
// Either every update is stored or none is.
func (s *Store) UpdateSurvey(ctx context.Context, surveyID string, updates []models.SurveyUpdate) (models.Survey, error) {
	selectQuery := `SELECT ` + surveyColumns + `
	                FROM data_collection.survey AS s
	                LEFT JOIN public.users AS u ON s.user_id = u.user_id
	                WHERE s.survey_id = $1
	                FOR UPDATE OF s`
	updateQuery := `UPDATE data_collection.survey
	                SET title = $2, start_date = $3, end_date = $4, location_id = $5, notes = $6
	                WHERE survey_id = $1`

	surveyID, err := auth.NormalizeID(surveyID)
	if err != nil {
		return models.Survey{}, err
	}

	var updated models.Survey
	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		current, err := scanSurvey(tx.QueryRowContext(ctx, selectQuery, surveyID))
		if err == sql.ErrNoRows {
			return fmt.Errorf("survey %s: %w", surveyID, ErrNotFound)
		}
		if err != nil {
			logQueryError(selectQuery, []interface{}{surveyID}, err)
			return err
		}

		updated, err = models.ApplySurveyUpdates(current, updates)
		if err != nil {
			return err
		}
		if updated.LocationID != "" {
			if updated.LocationID, err = auth.NormalizeID(updated.LocationID); err != nil {
				return err
			}
		}

		values := []interface{}{surveyID, nullString(updated.Title), updated.StartDate, updated.EndDate,
			nullString(updated.LocationID), nullString(updated.Notes)}
		if _, err := tx.ExecContext(ctx, updateQuery, values...); err != nil {
			logQueryError(updateQuery, values, err)
			if isForeignKeyViolation(err) {
				return fmt.Errorf("location %s: %w", updated.LocationID, ErrNotFound)
			}
			return fmt.Errorf("failed to update survey: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Survey{}, err
	}

	slog.Info("survey updated", "survey_id", surveyID, "updates", len(updates))
	return updated, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanSurvey reads one row selected with surveyColumns
func scanSurvey(row rowScanner) (models.Survey, error) {
	var (
		sv                                          models.Survey
		startDate, endDate                          sql.NullTime
		locationID, userID, title, email            sql.NullString
		representation, microclimate, method, notes sql.NullString
		temperature                                 sql.NullFloat64
	)
	err := row.Scan(&sv.SurveyID, &sv.StudyID, &startDate, &endDate, &locationID, &userID,
		&title, &email, &representation, &microclimate, &temperature, &method, &notes)
	if err == sql.ErrNoRows {
		return models.Survey{}, err
	}
	if err != nil {
		return models.Survey{}, fmt.Errorf("failed to scan survey: %w", err)
	}

	sv.StartDate = timePtr(startDate)
	sv.EndDate = timePtr(endDate)
	sv.LocationID = locationID.String
	sv.UserID = userID.String
	sv.Title = title.String
	sv.Email = email.String
	sv.Representation = representation.String
	sv.Microclimate = microclimate.String
	sv.Method = method.String
	sv.Notes = notes.String
	if temperature.Valid {
		t := temperature.Float64
		sv.TemperatureC = &t
	}
	return sv, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
