// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ben-mizel/commonspace/auth"
	"github.com/ben-mizel/commonspace/datastore"
	"github.com/ben-mizel/commonspace/middleware"
	"github.com/ben-mizel/commonspace/models"
)

// UserStore is the part of the datastore UserHandler needs
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (string, error)
}

// StudyStore is the part of the datastore StudyHandler needs
type StudyStore interface {
	CreateStudy(ctx context.Context, study models.Study) (datastore.StudyCreateResult, error)
	StudiesForAdmin(ctx context.Context, ownerID string) ([]models.AdminStudy, error)
	StudiesForSurveyor(ctx context.Context, userID string) ([]models.AssignedStudy, error)
	DeleteStudy(ctx context.Context, studyID string) error
	GiveUserStudyAccess(ctx context.Context, email, studyID string) (datastore.AccessGrant, error)
}

// SurveyStore is the part of the datastore SurveyHandler needs
type SurveyStore interface {
	SurveysForStudy(ctx context.Context, studyID string) ([]models.Survey, error)
	CreateSurvey(ctx context.Context, survey models.Survey) (models.Survey, error)
	UpdateSurvey(ctx context.Context, surveyID string, updates []models.SurveyUpdate) (models.Survey, error)
}

// DataPointStore is the part of the datastore DataPointHandler needs
type DataPointStore interface {
	CheckUserIsSurveyor(ctx context.Context, userID, surveyID string) (bool, error)
	SaveDataPoint(ctx context.Context, studyID string, point models.DataPoint) (models.DataPoint, error)
	DeleteDataPoint(ctx context.Context, studyID, surveyID, dataPointID string) error
}

// Store is everything the API serves from. *datastore.Store implements it.
type Store interface {
	UserStore
	StudyStore
	SurveyStore
	DataPointStore
	Ping(ctx context.Context) error
}

var _ Store = (*datastore.Store)(nil)

// statusForError maps a store failure to the HTTP status reported to the client
func statusForError(err error) int {
	var unrecognizedField *datastore.UnrecognizedFieldError
	var unrecognizedUpdate *models.UnrecognizedUpdateError
	var invalidUpdate *models.InvalidUpdateError
	var deletion *datastore.DeletionError

	switch {
	case errors.As(err, &unrecognizedField),
		errors.As(err, &unrecognizedUpdate),
		errors.As(err, &invalidUpdate),
		errors.Is(err, auth.ErrInvalidID),
		errors.Is(err, datastore.ErrInvalidMap),
		errors.Is(err, datastore.ErrInvalidDataPoint),
		errors.Is(err, datastore.ErrDuplicateField),
		errors.Is(err, datastore.ErrUnknownSurveyor):
		return http.StatusBadRequest
	case errors.As(err, &deletion), errors.Is(err, datastore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, datastore.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// storeError logs a store failure and writes the matching error response.
// Server errors hide the cause behind fallback.
func storeError(w http.ResponseWriter, err error, fallback string) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		slog.Error(fallback, "error", err)
		middleware.ErrorResponse(w, status, fallback)
		return
	}
	slog.Warn(fallback, "error", err, "status", status)
	middleware.ErrorResponse(w, status, err.Error())
}
