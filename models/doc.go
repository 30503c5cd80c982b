// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Domain Types

  - User: user_id, email, name
  - Study: study metadata, its GeoJSON map, and the fields it records
  - Location: a named map feature surveys are conducted at
  - Survey: one scheduled observation session within a study
  - DataPoint: one observation stored in a study's data table

# Listing Types

  - AdminStudy: a study with the emails of its surveyors
  - AssignedStudy: a study with the surveys assigned to one surveyor
  - AssignedSurvey: survey summary with its location geometry

# Request and Response Types

  - GrantAccessRequest / GrantAccessResponse: userEmail, studyId
  - UpdateSurveyRequest: ordered list of SurveyUpdate
  - ErrorResponse: error, message

# Field Kinds

A study's fields decide the columns of its data table:

	gender, age, mode, posture, activities, groups, object, location, note

AllFieldKinds lists every kind in this order.

# Survey Updates

Clients edit surveys by sending explicit updates rather than whole records:

	s, err := models.ApplySurveyUpdates(survey, []models.SurveyUpdate{
		{Kind: models.UpdateStartTime, Value: "2024-05-01T13:00:00Z"},
	})

Setting the start time also sets the end time one hour later and titles
the survey "1 pm". Moving the start date moves the end date to the same day.
Unknown kinds fail with *UnrecognizedUpdateError.
*/
package models
