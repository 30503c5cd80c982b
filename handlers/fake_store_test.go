// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/ben-mizel/commonspace/auth"
	"github.com/ben-mizel/commonspace/datastore"
	"github.com/ben-mizel/commonspace/models"
)

// fakeStore is an in-memory Store. Setting err makes every call fail with it.
type fakeStore struct {
	mu sync.Mutex

	err        error
	users      map[string]models.User // by email
	studies    map[string]models.Study
	surveyors  map[string][]string // study id -> emails
	surveys    map[string]models.Survey
	dataPoints map[string]models.DataPoint
}

var _ Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      map[string]models.User{},
		studies:    map[string]models.Study{},
		surveyors:  map[string][]string{},
		surveys:    map[string]models.Survey{},
		dataPoints: map[string]models.DataPoint{},
	}
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.err }

func (f *fakeStore) CreateUser(ctx context.Context, user models.User) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if _, ok := f.users[user.Email]; ok {
		return "", fmt.Errorf("user %s: %w", user.Email, datastore.ErrConflict)
	}
	id, err := auth.EnsureID(user.UserID)
	if err != nil {
		return "", err
	}
	user.UserID = id
	f.users[user.Email] = user
	return id, nil
}

func (f *fakeStore) CreateStudy(ctx context.Context, study models.Study) (datastore.StudyCreateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return datastore.StudyCreateResult{}, f.err
	}
	table, err := datastore.StudyTableName(study.StudyID)
	if err != nil {
		return datastore.StudyCreateResult{}, err
	}
	if _, err := datastore.CreateStudyTableSQL(table, study.Fields); err != nil {
		return datastore.StudyCreateResult{}, err
	}
	f.studies[study.StudyID] = study
	return datastore.StudyCreateResult{TableName: table}, nil
}

func (f *fakeStore) StudiesForAdmin(ctx context.Context, ownerID string) ([]models.AdminStudy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []models.AdminStudy{}
	for _, s := range f.studies {
		if s.UserID != ownerID {
			continue
		}
		emails := append([]string{}, f.surveyors[s.StudyID]...)
		out = append(out, models.AdminStudy{
			StudyID: s.StudyID, Title: s.Title, Type: s.Type, Fields: s.Fields, Surveyors: emails,
		})
	}
	return out, nil
}

func (f *fakeStore) StudiesForSurveyor(ctx context.Context, userID string) ([]models.AssignedStudy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []models.AssignedStudy{}
	for _, sv := range f.surveys {
		if sv.UserID != userID {
			continue
		}
		st := f.studies[sv.StudyID]
		out = append(out, models.AssignedStudy{
			StudyID: st.StudyID,
			Title:   st.Title,
			Surveys: []models.AssignedSurvey{{SurveyID: sv.SurveyID, StudyTitle: st.Title}},
		})
	}
	return out, nil
}

func (f *fakeStore) DeleteStudy(ctx context.Context, studyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.studies[studyID]; !ok {
		return &datastore.DeletionError{Entity: "study", ID: studyID}
	}
	delete(f.studies, studyID)
	return nil
}

func (f *fakeStore) GiveUserStudyAccess(ctx context.Context, email, studyID string) (datastore.AccessGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return datastore.AccessGrant{}, f.err
	}
	if _, ok := f.studies[studyID]; !ok {
		return datastore.AccessGrant{}, fmt.Errorf("study %s: %w", studyID, datastore.ErrNotFound)
	}
	grant := datastore.AccessGrant{UserEmail: email, StudyID: studyID}
	if _, ok := f.users[email]; !ok {
		id, _ := auth.GenerateID()
		f.users[email] = models.User{UserID: id, Email: email}
		grant.NewUserID = id
	}
	f.surveyors[studyID] = append(f.surveyors[studyID], email)
	return grant, nil
}

func (f *fakeStore) CheckUserIsSurveyor(ctx context.Context, userID, surveyID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	sv, ok := f.surveys[surveyID]
	return ok && sv.UserID == userID, nil
}

func (f *fakeStore) SurveysForStudy(ctx context.Context, studyID string) ([]models.Survey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []models.Survey{}
	for _, sv := range f.surveys {
		if sv.StudyID == studyID {
			out = append(out, sv)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateSurvey(ctx context.Context, survey models.Survey) (models.Survey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.Survey{}, f.err
	}
	var err error
	if survey.SurveyID, err = auth.EnsureID(survey.SurveyID); err != nil {
		return models.Survey{}, err
	}
	if survey.UserID == "" {
		u, ok := f.users[survey.Email]
		if !ok {
			return models.Survey{}, fmt.Errorf("%w: %q", datastore.ErrUnknownSurveyor, survey.Email)
		}
		survey.UserID = u.UserID
	}
	f.surveys[survey.SurveyID] = survey
	return survey, nil
}

func (f *fakeStore) UpdateSurvey(ctx context.Context, surveyID string, updates []models.SurveyUpdate) (models.Survey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.Survey{}, f.err
	}
	sv, ok := f.surveys[surveyID]
	if !ok {
		return models.Survey{}, fmt.Errorf("survey %s: %w", surveyID, datastore.ErrNotFound)
	}
	sv, err := models.ApplySurveyUpdates(sv, updates)
	if err != nil {
		return models.Survey{}, err
	}
	f.surveys[surveyID] = sv
	return sv, nil
}

func (f *fakeStore) SaveDataPoint(ctx context.Context, studyID string, point models.DataPoint) (models.DataPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.DataPoint{}, f.err
	}
	st, ok := f.studies[studyID]
	if !ok {
		return models.DataPoint{}, fmt.Errorf("study %s: %w", studyID, datastore.ErrNotFound)
	}
	declared := map[models.FieldKind]bool{}
	for _, field := range st.Fields {
		declared[field] = true
	}
	for field := range point.Values {
		if !declared[field] {
			return models.DataPoint{}, &datastore.UnrecognizedFieldError{Field: field}
		}
	}
	if existing, ok := f.dataPoints[point.DataPointID]; ok {
		if existing.SurveyID != point.SurveyID {
			return models.DataPoint{}, fmt.Errorf("data point %s: %w", point.DataPointID, datastore.ErrNotFound)
		}
		point.CreationDate = existing.CreationDate
	}
	f.dataPoints[point.DataPointID] = point
	return point, nil
}

func (f *fakeStore) DeleteDataPoint(ctx context.Context, studyID, surveyID, dataPointID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if p, ok := f.dataPoints[dataPointID]; !ok || p.SurveyID != surveyID {
		return &datastore.DeletionError{Entity: "data point", ID: dataPointID}
	}
	delete(f.dataPoints, dataPointID)
	return nil
}

// serve routes req through a mux with one pattern so path values are set
func serve(pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}
