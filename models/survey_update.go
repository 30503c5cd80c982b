package models

import (
	"fmt"
	"time"
)

// Survey update kinds
type SurveyUpdateKind string

const (
	UpdateTitle      SurveyUpdateKind = "title"
	UpdateStartDate  SurveyUpdateKind = "start_date"
	UpdateStartTime  SurveyUpdateKind = "start_time"
	UpdateEndDate    SurveyUpdateKind = "end_date"
	UpdateLocationID SurveyUpdateKind = "location_id"
	UpdateNotes      SurveyUpdateKind = "notes"
)

// defaultSurveyLength is how long a survey runs when only its start time is set.
const defaultSurveyLength = time.Hour

// SurveyUpdate is a single field edit sent by a client. Time-valued updates
// carry an RFC 3339 timestamp in Value.
type SurveyUpdate struct {
	Kind  SurveyUpdateKind `json:"kind"`
	Value string           `json:"value"`
}

type UnrecognizedUpdateError struct {
	Kind SurveyUpdateKind
}

func (e *UnrecognizedUpdateError) Error() string {
	return fmt.Sprintf("unrecognized survey update: %q", string(e.Kind))
}

// InvalidUpdateError is returned when a time-valued update does not parse.
type InvalidUpdateError struct {
	Kind  SurveyUpdateKind
	Value string
	Err   error
}

func (e *InvalidUpdateError) Error() string {
	return fmt.Sprintf("invalid %s value %q: %v", e.Kind, e.Value, e.Err)
}

func (e *InvalidUpdateError) Unwrap() error { return e.Err }

// ApplySurveyUpdate returns a copy of s with u applied. s is not modified.
//
// Moving the start date keeps the end time of day but moves it to the new
// day. Setting the start time schedules a one hour survey and titles it by
// its start hour ("1 pm").
func ApplySurveyUpdate(s Survey, u SurveyUpdate) (Survey, error) {
	switch u.Kind {
	case UpdateTitle:
		s.Title = u.Value
	case UpdateLocationID:
		s.LocationID = u.Value
	case UpdateNotes:
		s.Notes = u.Value
	case UpdateStartDate:
		start, err := parseUpdateTime(u)
		if err != nil {
			return s, err
		}
		s.StartDate = &start
		if s.EndDate != nil {
			end := s.EndDate.In(start.Location())
			moved := time.Date(start.Year(), start.Month(), start.Day(),
				end.Hour(), end.Minute(), end.Second(), end.Nanosecond(), start.Location())
			s.EndDate = &moved
		}
	case UpdateStartTime:
		start, err := parseUpdateTime(u)
		if err != nil {
			return s, err
		}
		end := start.Add(defaultSurveyLength)
		s.StartDate = &start
		s.EndDate = &end
		s.Title = start.Format("3 pm")
	case UpdateEndDate:
		end, err := parseUpdateTime(u)
		if err != nil {
			return s, err
		}
		s.EndDate = &end
	default:
		return s, &UnrecognizedUpdateError{Kind: u.Kind}
	}
	return s, nil
}

// ApplySurveyUpdates applies updates in order and stops at the first error.
func ApplySurveyUpdates(s Survey, updates []SurveyUpdate) (Survey, error) {
	var err error
	for _, u := range updates {
		s, err = ApplySurveyUpdate(s, u)
		if err != nil {
			return s, err
		}
	}
	return s, nil
}

func parseUpdateTime(u SurveyUpdate) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, u.Value)
	if err != nil {
		return time.Time{}, &InvalidUpdateError{Kind: u.Kind, Value: u.Value, Err: err}
	}
	return t, nil
}
