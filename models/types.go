package models

import (
	"encoding/json"
	"time"
)

// Study scale constants
type StudyScale string

const (
	ScaleDistrict     StudyScale = "district"
	ScaleCity         StudyScale = "city"
	ScaleCityCentre   StudyScale = "cityCentre"
	ScaleNeighborhood StudyScale = "neighborhood"
	ScaleBlockScale   StudyScale = "blockScale"
	ScaleSingleSite   StudyScale = "singleSite"
)

// Study type constants
type StudyType string

const (
	StudyStationary StudyType = "stationary"
	StudyMovement   StudyType = "movement"
)

// FieldKind is an observable attribute recorded per data point. Each kind
// becomes one column of the study's data table.
type FieldKind string

const (
	FieldGender     FieldKind = "gender"
	FieldAge        FieldKind = "age"
	FieldMode       FieldKind = "mode"
	FieldPosture    FieldKind = "posture"
	FieldActivities FieldKind = "activities"
	FieldGroups     FieldKind = "groups"
	FieldObject     FieldKind = "object"
	FieldLocation   FieldKind = "location"
	FieldNote       FieldKind = "note"
)

// AllFieldKinds returns every FieldKind in declaration order.
func AllFieldKinds() []FieldKind {
	return []FieldKind{
		FieldGender,
		FieldAge,
		FieldMode,
		FieldPosture,
		FieldActivities,
		FieldGroups,
		FieldObject,
		FieldLocation,
		FieldNote,
	}
}

// Domain types

type User struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
}

type Study struct {
	StudyID         string          `json:"studyId"`
	Title           string          `json:"title,omitempty"`
	Project         string          `json:"project,omitempty"`
	ProjectPhase    string          `json:"projectPhase,omitempty"`
	StartDate       *time.Time      `json:"startDate,omitempty"`
	EndDate         *time.Time      `json:"endDate,omitempty"`
	Scale           StudyScale      `json:"scale,omitempty"`
	Areas           json.RawMessage `json:"areas,omitempty"`
	UserID          string          `json:"userId"`
	Type            StudyType       `json:"type"`
	Map             json.RawMessage `json:"map,omitempty"` // GeoJSON FeatureCollection
	ProtocolVersion string          `json:"protocolVersion"`
	Fields          []FieldKind     `json:"fields"`
	Notes           string          `json:"notes,omitempty"`
}

type Location struct {
	LocationID string          `json:"locationId"`
	StudyID    string          `json:"studyId"`
	Name       string          `json:"name,omitempty"`
	Geometry   json.RawMessage `json:"geometry"`
}

type Survey struct {
	SurveyID       string     `json:"surveyId"`
	StudyID        string     `json:"studyId"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	LocationID     string     `json:"locationId,omitempty"`
	UserID         string     `json:"userId,omitempty"`
	Title          string     `json:"title,omitempty"`
	Email          string     `json:"email,omitempty"`
	Representation string     `json:"representation,omitempty"`
	Microclimate   string     `json:"microclimate,omitempty"`
	TemperatureC   *float64   `json:"temperatureC,omitempty"`
	Method         string     `json:"method,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

// DataPoint is one row of a study's data table. Values is keyed by the
// study's declared fields; location values are GeoJSON geometries.
type DataPoint struct {
	DataPointID  string                    `json:"dataPointId"`
	SurveyID     string                    `json:"surveyId"`
	CreationDate *time.Time                `json:"creationDate,omitempty"`
	LastUpdated  *time.Time                `json:"lastUpdated,omitempty"`
	Values       map[FieldKind]interface{} `json:"values"`
}

// Listing types

// AdminStudy is a study as seen by its owner, with the emails of every
// surveyor granted access.
type AdminStudy struct {
	StudyID         string          `json:"studyId"`
	Title           string          `json:"title"`
	ProtocolVersion string          `json:"protocolVersion"`
	Map             json.RawMessage `json:"map,omitempty"`
	Type            StudyType       `json:"type"`
	Fields          []FieldKind     `json:"fields"`
	Surveyors       []string        `json:"surveyors"`
}

type AssignedSurvey struct {
	SurveyID       string          `json:"surveyId"`
	StudyTitle     string          `json:"studyTitle"`
	Title          string          `json:"title,omitempty"`
	StartDate      *time.Time      `json:"startDate,omitempty"`
	EndDate        *time.Time      `json:"endDate,omitempty"`
	LocationID     string          `json:"locationId"`
	SurveyLocation json.RawMessage `json:"surveyLocation,omitempty"`
}

// AssignedStudy groups the surveys a surveyor is assigned to under their study.
type AssignedStudy struct {
	StudyID         string           `json:"studyId"`
	Title           string           `json:"title"`
	ProtocolVersion string           `json:"protocolVersion"`
	Type            StudyType        `json:"type"`
	Fields          []FieldKind      `json:"fields"`
	Map             json.RawMessage  `json:"map,omitempty"`
	Surveys         []AssignedSurvey `json:"surveys"`
}

// Request types

type GrantAccessRequest struct {
	UserEmail string `json:"userEmail"`
	StudyID   string `json:"studyId"`
}

type UpdateSurveyRequest struct {
	Updates []SurveyUpdate `json:"updates"`
}

// Response types

type GrantAccessResponse struct {
	UserEmail string `json:"userEmail"`
	StudyID   string `json:"studyId"`
	NewUserID string `json:"newUserId,omitempty"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
