// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"log/slog"
	"net/http"

	"github.com/ben-mizel/commonspace/handlers"
	"github.com/ben-mizel/commonspace/middleware"
)

func NewRouter(store handlers.Store) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	userHandler := handlers.NewUserHandler(store)
	studyHandler := handlers.NewStudyHandler(store)
	surveyHandler := handlers.NewSurveyHandler(store)
	dataPointHandler := handlers.NewDataPointHandler(store)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			slog.Error("health check failed", "error", err)
			middleware.ErrorResponse(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Users
	mux.HandleFunc("POST /users", middleware.WithLogging(userHandler.CreateUser))
	mux.HandleFunc("GET /users/{userId}/studies", middleware.WithLogging(studyHandler.ListAdminStudies))
	mux.HandleFunc("GET /users/{userId}/assignments", middleware.WithLogging(studyHandler.ListAssignedStudies))

	// Studies
	mux.HandleFunc("POST /studies", middleware.WithLogging(studyHandler.CreateStudy))
	mux.HandleFunc("DELETE /studies/{studyId}", middleware.WithLogging(studyHandler.DeleteStudy))
	mux.HandleFunc("POST /studies/surveyors", middleware.WithLogging(studyHandler.AddSurveyor))

	// Surveys
	mux.HandleFunc("GET /studies/{studyId}/surveys", middleware.WithLogging(surveyHandler.ListSurveys))
	mux.HandleFunc("POST /surveys", middleware.WithLogging(surveyHandler.CreateSurvey))
	mux.HandleFunc("PATCH /surveys/{surveyId}", middleware.WithLogging(surveyHandler.UpdateSurvey))

	// Data points (surveyor only)
	mux.HandleFunc("PUT /studies/{studyId}/surveys/{surveyId}/datapoints/{dataPointId}",
		middleware.WithLogging(dataPointHandler.SaveDataPoint))
	mux.HandleFunc("DELETE /studies/{studyId}/surveys/{surveyId}/datapoints/{dataPointId}",
		middleware.WithLogging(dataPointHandler.DeleteDataPoint))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("commonspace API v1"))
	})

	return mux
}
