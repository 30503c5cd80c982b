// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Commonspace API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(datastore.New(pool))

# Endpoints

Health (pings the database):

	GET /health

Users:

	POST /users                      - Create user
	GET  /users/{userId}/studies     - Studies the user owns
	GET  /users/{userId}/assignments - Studies and surveys assigned to the user

Studies:

	POST   /studies            - Create study and its data table
	DELETE /studies/{studyId}  - Delete study and drop its data table
	POST   /studies/surveyors  - Grant a user surveyor access by email

Surveys:

	GET   /studies/{studyId}/surveys - List a study's surveys
	POST  /surveys                   - Schedule survey
	PATCH /surveys/{surveyId}        - Apply survey updates

Data points (requires X-User-ID of the assigned surveyor):

	PUT    /studies/{studyId}/surveys/{surveyId}/datapoints/{dataPointId}
	DELETE /studies/{studyId}/surveys/{surveyId}/datapoints/{dataPointId}

Every route except /health and / is wrapped with middleware.WithLogging.
*/
package router
