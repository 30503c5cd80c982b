// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/ben-mizel/commonspace/auth"
	"github.com/ben-mizel/commonspace/middleware"
	"github.com/ben-mizel/commonspace/models"
)

type StudyHandler struct {
	store StudyStore
}

func NewStudyHandler(store StudyStore) *StudyHandler {
	return &StudyHandler{store: store}
}

// CreateStudy handles POST /studies
func (h *StudyHandler) CreateStudy(w http.ResponseWriter, r *http.Request) {
	var study models.Study
	if err := middleware.ParseJSONBody(r, &study); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	studyID, err := auth.EnsureID(study.StudyID)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	study.StudyID = studyID

	// The owner defaults to the caller
	if study.UserID == "" {
		userID, err := auth.UserIDFromRequest(r)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "userId is required")
			return
		}
		study.UserID = userID
	}

	result, err := h.store.CreateStudy(r.Context(), study)
	if err != nil {
		storeError(w, err, "Failed to create study")
		return
	}

	slog.Info("study provisioned", "study_id", study.StudyID, "table", result.TableName)

	middleware.JSONResponse(w, http.StatusCreated, study)
}

// ListAdminStudies handles GET /users/{userId}/studies
func (h *StudyHandler) ListAdminStudies(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if userID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "user ID is required")
		return
	}

	studies, err := h.store.StudiesForAdmin(r.Context(), userID)
	if err != nil {
		storeError(w, err, "Failed to list studies")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, studies)
}

// ListAssignedStudies handles GET /users/{userId}/assignments
func (h *StudyHandler) ListAssignedStudies(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if userID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "user ID is required")
		return
	}

	studies, err := h.store.StudiesForSurveyor(r.Context(), userID)
	if err != nil {
		storeError(w, err, "Failed to list assigned studies")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, studies)
}

// DeleteStudy handles DELETE /studies/{studyId}
func (h *StudyHandler) DeleteStudy(w http.ResponseWriter, r *http.Request) {
	studyID := r.PathValue("studyId")
	if studyID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "study ID is required")
		return
	}

	if err := h.store.DeleteStudy(r.Context(), studyID); err != nil {
		storeError(w, err, "Failed to delete study")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddSurveyor handles POST /studies/surveyors
func (h *StudyHandler) AddSurveyor(w http.ResponseWriter, r *http.Request) {
	var req models.GrantAccessRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.UserEmail = strings.TrimSpace(req.UserEmail)
	if req.UserEmail == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "userEmail is required")
		return
	}
	if req.StudyID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "studyId is required")
		return
	}

	grant, err := h.store.GiveUserStudyAccess(r.Context(), req.UserEmail, req.StudyID)
	if err != nil {
		storeError(w, err, "Failed to grant study access")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.GrantAccessResponse{
		UserEmail: grant.UserEmail,
		StudyID:   grant.StudyID,
		NewUserID: grant.NewUserID,
	})
}
