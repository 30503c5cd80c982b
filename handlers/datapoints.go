// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/ben-mizel/commonspace/auth"
	"github.com/ben-mizel/commonspace/middleware"
	"github.com/ben-mizel/commonspace/models"
)

type DataPointHandler struct {
	store DataPointStore
}

func NewDataPointHandler(store DataPointStore) *DataPointHandler {
	return &DataPointHandler{store: store}
}

// requireSurveyor writes an error response and returns false unless the
// caller is the surveyor assigned to surveyID
func (h *DataPointHandler) requireSurveyor(w http.ResponseWriter, r *http.Request, surveyID string) bool {
	userID, err := auth.UserIDFromRequest(r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "missing or invalid "+auth.UserIDHeader+" header")
		return false
	}

	ok, err := h.store.CheckUserIsSurveyor(r.Context(), userID, surveyID)
	if err != nil {
		slog.Error("failed to check surveyor", "error", err, "survey_id", surveyID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to check surveyor")
		return false
	}
	if !ok {
		slog.Warn("surveyor check failed", "user_id", userID, "survey_id", surveyID)
		middleware.ErrorResponse(w, http.StatusForbidden, "user is not the surveyor for this survey")
		return false
	}
	return true
}

// SaveDataPoint handles PUT /studies/{studyId}/surveys/{surveyId}/datapoints/{dataPointId}
func (h *DataPointHandler) SaveDataPoint(w http.ResponseWriter, r *http.Request) {
	studyID := r.PathValue("studyId")
	surveyID := r.PathValue("surveyId")
	dataPointID := r.PathValue("dataPointId")
	if studyID == "" || surveyID == "" || dataPointID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "study, survey and data point IDs are required")
		return
	}

	if !h.requireSurveyor(w, r, surveyID) {
		return
	}

	var point models.DataPoint
	if err := middleware.ParseJSONBody(r, &point); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	// The path is authoritative
	point.DataPointID = dataPointID
	point.SurveyID = surveyID

	saved, err := h.store.SaveDataPoint(r.Context(), studyID, point)
	if err != nil {
		storeError(w, err, "Failed to save data point")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, saved)
}

// DeleteDataPoint handles DELETE /studies/{studyId}/surveys/{surveyId}/datapoints/{dataPointId}
func (h *DataPointHandler) DeleteDataPoint(w http.ResponseWriter, r *http.Request) {
	studyID := r.PathValue("studyId")
	surveyID := r.PathValue("surveyId")
	dataPointID := r.PathValue("dataPointId")
	if studyID == "" || surveyID == "" || dataPointID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "study, survey and data point IDs are required")
		return
	}

	if !h.requireSurveyor(w, r, surveyID) {
		return
	}

	if err := h.store.DeleteDataPoint(r.Context(), studyID, surveyID, dataPointID); err != nil {
		storeError(w, err, "Failed to delete data point")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
