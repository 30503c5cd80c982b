// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Commonspace API.

# Handler Types

Each handler is a struct holding the slice of the datastore it needs:

  - UserHandler: user creation
  - StudyHandler: study lifecycle, listings and surveyor access
  - SurveyHandler: survey scheduling and edits
  - DataPointHandler: recording observations into a study's data table

Handlers are created via constructor functions that accept a store:

	store := datastore.New(pool)
	studyHandler := handlers.NewStudyHandler(store)

*datastore.Store satisfies every store interface; tests use in-memory fakes.

# Studies

	POST   /studies                    → CreateStudy (creates the study's data table)
	GET    /users/{userId}/studies     → ListAdminStudies (with surveyor emails)
	GET    /users/{userId}/assignments → ListAssignedStudies (with assigned surveys)
	DELETE /studies/{studyId}          → DeleteStudy (drops the data table)
	POST   /studies/surveyors          → AddSurveyor (creates the user if needed)

Missing ids are generated. Create handlers echo the request body with the
resolved ids.

# Surveys

	GET   /studies/{studyId}/surveys → ListSurveys
	POST  /surveys                   → CreateSurvey (surveyor by userId or email)
	PATCH /surveys/{surveyId}        → UpdateSurvey

Surveys are edited with an ordered list of updates, see models.SurveyUpdate.

# Data Points

	PUT    /studies/{studyId}/surveys/{surveyId}/datapoints/{dataPointId} → SaveDataPoint
	DELETE /studies/{studyId}/surveys/{surveyId}/datapoints/{dataPointId} → DeleteDataPoint

Data point operations require the X-User-ID header to name the surveyor
assigned to the survey.

# Errors

Store errors map to status codes: unrecognized fields, invalid ids and
malformed input give 400, deletes of missing rows and missing references
give 404, duplicates give 409, and anything else gives 500 with the cause
only in the log.
*/
package handlers
