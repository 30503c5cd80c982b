// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package datastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ben-mizel/commonspace/models"
	"github.com/ben-mizel/commonspace/testutil"
)

func setupStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	pool := testutil.SetupTestDB(t)
	return New(pool), pool
}

func testStudy(ownerID string, fields ...models.FieldKind) (models.Study, string) {
	locationID := uuid.NewString()
	studyMap := fmt.Sprintf(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"locationId":%q,"name":"Plaza"},
		 "geometry":{"type":"Polygon","coordinates":[[[0,0],[0,1],[1,1],[1,0],[0,0]]]}}]}`, locationID)
	return models.Study{
		StudyID:         uuid.NewString(),
		Title:           "Main Street",
		UserID:          ownerID,
		Type:            models.StudyStationary,
		Scale:           models.ScaleNeighborhood,
		ProtocolVersion: "1.0",
		Fields:          fields,
		Map:             json.RawMessage(studyMap),
	}, locationID
}

func tableNameOnly(t *testing.T, studyID string) string {
	t.Helper()
	name, err := StudyTableName(studyID)
	require.NoError(t, err)
	// data_collection."study_<hex>" -> study_<hex>
	return strings.Trim(strings.TrimPrefix(name, "data_collection."), `"`)
}

func TestStudyLifecycle(t *testing.T) {
	store, pool := setupStore(t)
	ctx := context.Background()

	ownerID := testutil.CreateTestUser(t, pool, "owner@example.com")
	surveyorID := testutil.CreateTestUser(t, pool, "surveyor@example.com")

	// Create study with gender and location fields
	study, locationID := testStudy(ownerID, models.FieldGender, models.FieldLocation)
	result, err := store.CreateStudy(ctx, study)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Locations)

	table := tableNameOnly(t, study.StudyID)
	assert.ElementsMatch(t,
		[]string{"survey_id", "data_point_id", "creation_date", "last_updated", "gender", "location"},
		testutil.TableColumns(t, pool, table))

	// Create survey under the study
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	survey, err := store.CreateSurvey(ctx, models.Survey{
		StudyID:    study.StudyID,
		UserID:     surveyorID,
		LocationID: locationID,
		Title:      "9 am",
		StartDate:  &start,
	})
	require.NoError(t, err)
	require.NotEmpty(t, survey.SurveyID)

	surveys, err := store.SurveysForStudy(ctx, study.StudyID)
	require.NoError(t, err)
	require.Len(t, surveys, 1)
	assert.Equal(t, survey.SurveyID, surveys[0].SurveyID)
	assert.Equal(t, "surveyor@example.com", surveys[0].Email)

	// The surveyor sees it grouped under the study, with its location
	assigned, err := store.StudiesForSurveyor(ctx, surveyorID)
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, study.StudyID, assigned[0].StudyID)
	require.Len(t, assigned[0].Surveys, 1)
	assert.Equal(t, locationID, assigned[0].Surveys[0].LocationID)
	assert.NotEmpty(t, assigned[0].Surveys[0].SurveyLocation)

	// Delete the study
	require.NoError(t, store.DeleteStudy(ctx, study.StudyID))

	assert.Empty(t, testutil.TableColumns(t, pool, table))
	studies, err := store.StudiesForAdmin(ctx, ownerID)
	require.NoError(t, err)
	assert.Empty(t, studies)
	assert.Equal(t, 0, testutil.CountRows(t, pool, `SELECT count(*) FROM data_collection.survey`))
}

func TestCreateStudy_RollsBackOnTableFailure(t *testing.T) {
	store, pool := setupStore(t)
	ctx := context.Background()
	ownerID := testutil.CreateTestUser(t, pool, "owner@example.com")

	study, _ := testStudy(ownerID, models.FieldNote)
	_, err := store.CreateStudy(ctx, study)
	require.NoError(t, err)

	// A second study whose table already exists: the metadata row must not survive.
	other, _ := testStudy(ownerID, models.FieldNote)
	_, err = pool.Exec(`CREATE TABLE ` + mustTableName(t, other.StudyID) + ` (id int)`)
	require.NoError(t, err)

	_, err = store.CreateStudy(ctx, other)
	require.Error(t, err)
	assert.Equal(t, 0, testutil.CountRows(t, pool,
		`SELECT count(*) FROM data_collection.study WHERE study_id = $1`, other.StudyID))
	assert.Equal(t, 0, testutil.CountRows(t, pool,
		`SELECT count(*) FROM data_collection.location WHERE study_id = $1`, other.StudyID))
	assert.Equal(t, 1, testutil.CountRows(t, pool, `SELECT count(*) FROM data_collection.study`))
}

func TestCreateStudy_LocationIDTakenByAnotherStudy(t *testing.T) {
	store, pool := setupStore(t)
	ctx := context.Background()
	ownerID := testutil.CreateTestUser(t, pool, "owner@example.com")

	first, _ := testStudy(ownerID, models.FieldNote)
	_, err := store.CreateStudy(ctx, first)
	require.NoError(t, err)

	// Same map, so the same locationId, under a fresh study id.
	second := first
	second.StudyID = uuid.NewString()
	_, err = store.CreateStudy(ctx, second)
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 0, testutil.CountRows(t, pool,
		`SELECT count(*) FROM data_collection.study WHERE study_id = $1`, second.StudyID))
}

func mustTableName(t *testing.T, studyID string) string {
	t.Helper()
	name, err := StudyTableName(studyID)
	require.NoError(t, err)
	return name
}

func TestCreateStudy_UnrecognizedField(t *testing.T) {
	store, pool := setupStore(t)
	ownerID := testutil.CreateTestUser(t, pool, "owner@example.com")

	study, _ := testStudy(ownerID, models.FieldGender, "objects")
	_, err := store.CreateStudy(context.Background(), study)

	var unrecognized *UnrecognizedFieldError
	require.True(t, errors.As(err, &unrecognized))
	assert.Equal(t, 0, testutil.CountRows(t, pool, `SELECT count(*) FROM data_collection.study`))
}

func TestStudiesForAdmin_SurveyorLists(t *testing.T) {
	store, pool := setupStore(t)
	ctx := context.Background()
	ownerID := testutil.CreateTestUser(t, pool, "owner@example.com")
	testutil.CreateTestUser(t, pool, "b@example.com")
	testutil.CreateTestUser(t, pool, "a@example.com")

	withSurveyors, _ := testStudy(ownerID, models.FieldLocation)
	without, _ := testStudy(ownerID, models.FieldLocation)
	for _, s := range []models.Study{withSurveyors, without} {
		_, err := store.CreateStudy(ctx, s)
		require.NoError(t, err)
	}
	for _, email := range []string{"b@example.com", "a@example.com"} {
		_, err := store.GiveUserStudyAccess(ctx, email, withSurveyors.StudyID)
		require.NoError(t, err)
	}

	studies, err := store.StudiesForAdmin(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, studies, 2)

	byID := map[string]models.AdminStudy{}
	for _, s := range studies {
		byID[s.StudyID] = s
	}
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, byID[withSurveyors.StudyID].Surveyors)
	require.Contains(t, byID, without.StudyID)
	assert.NotNil(t, byID[without.StudyID].Surveyors)
	assert.Empty(t, byID[without.StudyID].Surveyors)
	assert.Equal(t, []models.FieldKind{models.FieldLocation}, byID[without.StudyID].Fields)
}

func TestGiveUserStudyAccess(t *testing.T) {
	store, pool := setupStore(t)
	ctx := context.Background()
	ownerID := testutil.CreateTestUser(t, pool, "owner@example.com")
	existingID := testutil.CreateTestUser(t, pool, "known@example.com")

	study, _ := testStudy(ownerID, models.FieldNote)
	_, err := store.CreateStudy(ctx, study)
	require.NoError(t, err)

	countUsers := func() int {
		return testutil.CountRows(t, pool, `SELECT count(*) FROM public.users`)
	}

	t.Run("existing user", func(t *testing.T) {
		before := countUsers()
		grant, err := store.GiveUserStudyAccess(ctx, "known@example.com", study.StudyID)
		require.NoError(t, err)
		assert.Empty(t, grant.NewUserID)
		assert.Equal(t, before, countUsers())
		assert.Equal(t, 1, testutil.CountRows(t, pool,
			`SELECT count(*) FROM data_collection.surveyors WHERE user_id = $1 AND study_id = $2`,
			existingID, study.StudyID))
	})

	t.Run("new user", func(t *testing.T) {
		before := countUsers()
		grant, err := store.GiveUserStudyAccess(ctx, "new@example.com", study.StudyID)
		require.NoError(t, err)
		require.NotEmpty(t, grant.NewUserID)
		assert.Equal(t, before+1, countUsers())

		id, found, err := store.UserIDByEmail(ctx, "new@example.com")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, grant.NewUserID, id)
	})

	t.Run("padded email matches existing user", func(t *testing.T) {
		before := countUsers()
		grant, err := store.GiveUserStudyAccess(ctx, "  known@example.com ", study.StudyID)
		require.NoError(t, err)
		assert.Empty(t, grant.NewUserID)
		assert.Equal(t, "known@example.com", grant.UserEmail)
		assert.Equal(t, before, countUsers())
	})

	t.Run("padded email creates trimmed user", func(t *testing.T) {
		grant, err := store.GiveUserStudyAccess(ctx, " padded@example.com\t", study.StudyID)
		require.NoError(t, err)
		require.NotEmpty(t, grant.NewUserID)

		id, found, err := store.UserIDByEmail(ctx, "padded@example.com")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, grant.NewUserID, id)
		assert.Equal(t, 1, testutil.CountRows(t, pool,
			`SELECT count(*) FROM data_collection.surveyors WHERE user_id = $1 AND study_id = $2`,
			id, study.StudyID))
	})

	t.Run("granting twice is a no-op", func(t *testing.T) {
		_, err := store.GiveUserStudyAccess(ctx, "known@example.com", study.StudyID)
		require.NoError(t, err)
		assert.Equal(t, 1, testutil.CountRows(t, pool,
			`SELECT count(*) FROM data_collection.surveyors WHERE user_id = $1`, existingID))
	})

	t.Run("unknown study creates no user", func(t *testing.T) {
		before := countUsers()
		_, err := store.GiveUserStudyAccess(ctx, "ghost@example.com", uuid.NewString())
		require.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, before, countUsers())
	})

	t.Run("unknown study with existing user", func(t *testing.T) {
		_, err := store.GiveUserStudyAccess(ctx, "known@example.com", uuid.NewString())
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDeleteStudy_Nonexistent(t *testing.T) {
	store, _ := setupStore(t)

	missing := uuid.NewString()
	err := store.DeleteStudy(context.Background(), missing)

	var deletion *DeletionError
	require.True(t, errors.As(err, &deletion))
	assert.Equal(t, "study", deletion.Entity)
	assert.Equal(t, missing, deletion.ID)
}

func TestCheckUserIsSurveyor(t *testing.T) {
	store, pool := setupStore(t)
	ctx := context.Background()
	ownerID := testutil.CreateTestUser(t, pool, "owner@example.com")
	surveyorID := testutil.CreateTestUser(t, pool, "surveyor@example.com")
	otherID := testutil.CreateTestUser(t, pool, "other@example.com")

	study, _ := testStudy(ownerID, models.FieldNote)
	_, err := store.CreateStudy(ctx, study)
	require.NoError(t, err)
	survey, err := store.CreateSurvey(ctx, models.Survey{StudyID: study.StudyID, Email: "surveyor@example.com"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		userID   string
		surveyID string
		want     bool
	}{
		{"assigned surveyor", surveyorID, survey.SurveyID, true},
		{"other user", otherID, survey.SurveyID, false},
		{"nonexistent survey", surveyorID, uuid.NewString(), false},
		{"malformed survey id", surveyorID, "not-a-survey", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.CheckUserIsSurveyor(ctx, tt.userID, tt.surveyID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateSurvey_UnknownSurveyor(t *testing.T) {
	store, pool := setupStore(t)
	ctx := context.Background()
	ownerID := testutil.CreateTestUser(t, pool, "owner@example.com")

	study, _ := testStudy(ownerID, models.FieldNote)
	_, err := store.CreateStudy(ctx, study)
	require.NoError(t, err)

	_, err = store.CreateSurvey(ctx, models.Survey{StudyID: study.StudyID, Email: "nobody@example.com"})
	assert.True(t, errors.Is(err, ErrUnknownSurveyor))
}

func TestUpdateSurvey(t *testing.T) {
	store, pool := setupStore(t)
	ctx := context.Background()
	ownerID := testutil.CreateTestUser(t, pool, "owner@example.com")
	surveyorID := testutil.CreateTestUser(t, pool, "surveyor@example.com")

	study, _ := testStudy(ownerID, models.FieldNote)
	_, err := store.CreateStudy(ctx, study)
	require.NoError(t, err)
	survey, err := store.CreateSurvey(ctx, models.Survey{StudyID: study.StudyID, UserID: surveyorID})
	require.NoError(t, err)

	updated, err := store.UpdateSurvey(ctx, survey.SurveyID, []models.SurveyUpdate{
		{Kind: models.UpdateStartTime, Value: "2024-05-01T13:00:00Z"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1 pm", updated.Title)

	surveys, err := store.SurveysForStudy(ctx, study.StudyID)
	require.NoError(t, err)
	require.Len(t, surveys, 1)
	assert.Equal(t, "1 pm", surveys[0].Title)
	require.NotNil(t, surveys[0].EndDate)
	assert.True(t, surveys[0].EndDate.Equal(time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)))

	// A bad update leaves the survey untouched
	_, err = store.UpdateSurvey(ctx, survey.SurveyID, []models.SurveyUpdate{
		{Kind: models.UpdateTitle, Value: "changed"},
		{Kind: "weather", Value: "rain"},
	})
	var unrecognized *models.UnrecognizedUpdateError
	require.True(t, errors.As(err, &unrecognized))
	surveys, _ = store.SurveysForStudy(ctx, study.StudyID)
	assert.Equal(t, "1 pm", surveys[0].Title)

	_, err = store.UpdateSurvey(ctx, uuid.NewString(), nil)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDataPoints(t *testing.T) {
	store, pool := setupStore(t)
	ctx := context.Background()
	ownerID := testutil.CreateTestUser(t, pool, "owner@example.com")
	surveyorID := testutil.CreateTestUser(t, pool, "surveyor@example.com")

	study, _ := testStudy(ownerID, models.FieldGender, models.FieldActivities, models.FieldLocation)
	_, err := store.CreateStudy(ctx, study)
	require.NoError(t, err)
	survey, err := store.CreateSurvey(ctx, models.Survey{StudyID: study.StudyID, UserID: surveyorID})
	require.NoError(t, err)

	point := models.DataPoint{
		SurveyID: survey.SurveyID,
		Values: map[models.FieldKind]interface{}{
			models.FieldGender:     "female",
			models.FieldActivities: []interface{}{"conversing", "consuming"},
			models.FieldLocation:   map[string]interface{}{"type": "Point", "coordinates": []interface{}{0.5, 0.5}},
		},
	}
	saved, err := store.SaveDataPoint(ctx, study.StudyID, point)
	require.NoError(t, err)
	require.NotEmpty(t, saved.DataPointID)

	table := mustTableName(t, study.StudyID)
	assert.Equal(t, 1, testutil.CountRows(t, pool, `SELECT count(*) FROM `+table))

	// Saving again with the same id replaces the row and keeps its creation date
	saved.Values[models.FieldGender] = "male"
	firstCreated := *saved.CreationDate
	saved.CreationDate = nil
	resaved, err := store.SaveDataPoint(ctx, study.StudyID, saved)
	require.NoError(t, err)
	assert.Equal(t, 1, testutil.CountRows(t, pool, `SELECT count(*) FROM `+table+` WHERE gender = 'male'`))
	require.NotNil(t, resaved.CreationDate)
	assert.True(t, firstCreated.Equal(*resaved.CreationDate), "creation date moved: %v -> %v", firstCreated, *resaved.CreationDate)
	assert.False(t, resaved.LastUpdated.Before(*resaved.CreationDate))
	saved = resaved

	// Undeclared field
	saved.Values[models.FieldPosture] = "sitting"
	_, err = store.SaveDataPoint(ctx, study.StudyID, saved)
	var unrecognized *UnrecognizedFieldError
	require.True(t, errors.As(err, &unrecognized))

	delete(saved.Values, models.FieldPosture)
	require.NoError(t, store.DeleteDataPoint(ctx, study.StudyID, survey.SurveyID, saved.DataPointID))
	err = store.DeleteDataPoint(ctx, study.StudyID, survey.SurveyID, saved.DataPointID)
	var deletion *DeletionError
	assert.True(t, errors.As(err, &deletion))
}

func TestDataPoints_OtherSurveyCannotTouchPoint(t *testing.T) {
	store, pool := setupStore(t)
	ctx := context.Background()
	ownerID := testutil.CreateTestUser(t, pool, "owner@example.com")
	firstID := testutil.CreateTestUser(t, pool, "first@example.com")
	secondID := testutil.CreateTestUser(t, pool, "second@example.com")

	study, _ := testStudy(ownerID, models.FieldGender, models.FieldLocation)
	_, err := store.CreateStudy(ctx, study)
	require.NoError(t, err)
	first, err := store.CreateSurvey(ctx, models.Survey{StudyID: study.StudyID, UserID: firstID})
	require.NoError(t, err)
	second, err := store.CreateSurvey(ctx, models.Survey{StudyID: study.StudyID, UserID: secondID})
	require.NoError(t, err)

	location := map[string]interface{}{"type": "Point", "coordinates": []interface{}{0.5, 0.5}}
	saved, err := store.SaveDataPoint(ctx, study.StudyID, models.DataPoint{
		SurveyID: first.SurveyID,
		Values:   map[models.FieldKind]interface{}{models.FieldGender: "female", models.FieldLocation: location},
	})
	require.NoError(t, err)

	table := mustTableName(t, study.StudyID)
	owned := `SELECT count(*) FROM ` + table + ` WHERE data_point_id = $1 AND survey_id = $2 AND gender = 'female'`

	// Same point id under the second survey
	_, err = store.SaveDataPoint(ctx, study.StudyID, models.DataPoint{
		DataPointID: saved.DataPointID,
		SurveyID:    second.SurveyID,
		Values:      map[models.FieldKind]interface{}{models.FieldGender: "male", models.FieldLocation: location},
	})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, testutil.CountRows(t, pool, owned, saved.DataPointID, first.SurveyID))

	err = store.DeleteDataPoint(ctx, study.StudyID, second.SurveyID, saved.DataPointID)
	var deletion *DeletionError
	require.True(t, errors.As(err, &deletion))
	assert.Equal(t, 1, testutil.CountRows(t, pool, owned, saved.DataPointID, first.SurveyID))
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	_, err := store.CreateUser(ctx, models.User{Email: "dup@example.com", Name: "One"})
	require.NoError(t, err)

	_, err = store.CreateUserFromEmail(ctx, "dup@example.com")
	assert.True(t, errors.Is(err, ErrConflict))
}
