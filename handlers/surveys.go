// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/ben-mizel/commonspace/middleware"
	"github.com/ben-mizel/commonspace/models"
)

type SurveyHandler struct {
	store SurveyStore
}

func NewSurveyHandler(store SurveyStore) *SurveyHandler {
	return &SurveyHandler{store: store}
}

// ListSurveys handles GET /studies/{studyId}/surveys
func (h *SurveyHandler) ListSurveys(w http.ResponseWriter, r *http.Request) {
	studyID := r.PathValue("studyId")
	if studyID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "study ID is required")
		return
	}

	surveys, err := h.store.SurveysForStudy(r.Context(), studyID)
	if err != nil {
		storeError(w, err, "Failed to list surveys")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, surveys)
}

// CreateSurvey handles POST /surveys
func (h *SurveyHandler) CreateSurvey(w http.ResponseWriter, r *http.Request) {
	var survey models.Survey
	if err := middleware.ParseJSONBody(r, &survey); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if survey.StudyID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "studyId is required")
		return
	}
	if survey.UserID == "" && survey.Email == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "userId or email is required")
		return
	}

	created, err := h.store.CreateSurvey(r.Context(), survey)
	if err != nil {
		storeError(w, err, "Failed to create survey")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, created)
}

// UpdateSurvey handles PATCH /surveys/{surveyId}
func (h *SurveyHandler) UpdateSurvey(w http.ResponseWriter, r *http.Request) {
	surveyID := r.PathValue("surveyId")
	if surveyID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "survey ID is required")
		return
	}

	var req models.UpdateSurveyRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Updates) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "at least one update is required")
		return
	}

	survey, err := h.store.UpdateSurvey(r.Context(), surveyID, req.Updates)
	if err != nil {
		storeError(w, err, "Failed to update survey")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, survey)
}
