// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package datastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ben-mizel/commonspace/auth"
	"github.com/ben-mizel/commonspace/db"
	"github.com/ben-mizel/commonspace/models"
)

// StudyCreateResult describes what CreateStudy provisioned
type StudyCreateResult struct {
	TableName string
	Locations int
}

// AccessGrant is the outcome of GiveUserStudyAccess. NewUserID is set only
// when the email belonged to no user and one was created.
type AccessGrant struct {
	UserEmail string
	StudyID   string
	NewUserID string
}

// CreateStudy inserts the study metadata, creates the study's data table and
// stores the locations found in its map, all in one transaction.
func (s *Store) CreateStudy(ctx context.Context, study models.Study) (StudyCreateResult, error) {
	tableName, err := StudyTableName(study.StudyID)
	if err != nil {
		return StudyCreateResult{}, err
	}
	studyID, _ := auth.NormalizeID(study.StudyID)
	ownerID, err := auth.NormalizeID(study.UserID)
	if err != nil {
		return StudyCreateResult{}, err
	}

	createTable, err := CreateStudyTableSQL(tableName, study.Fields)
	if err != nil {
		return StudyCreateResult{}, err
	}
	fields, err := FieldsArrayLiteral(study.Fields)
	if err != nil {
		return StudyCreateResult{}, err
	}
	locations, err := locationsFromMap(studyID, study.Map)
	if err != nil {
		return StudyCreateResult{}, err
	}

	studyMap := nullJSON(study.Map)
	if studyMap == nil {
		studyMap = "{}"
	}

	insertStudy := `INSERT INTO data_collection.study
	                    (study_id, title, project, project_phase, start_date, end_date, scale, areas,
	                     user_id, study_type, map, protocol_version, fields, tablename, notes)
	                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	studyValues := []interface{}{
		studyID, nullString(study.Title), nullString(study.Project), nullString(study.ProjectPhase),
		study.StartDate, study.EndDate, nullString(string(study.Scale)), nullJSON(study.Areas),
		ownerID, string(study.Type), studyMap, study.ProtocolVersion, fields, tableName,
		nullString(study.Notes),
	}

	insertLocation := `INSERT INTO data_collection.location (location_id, study_id, name, geometry)
	                   VALUES ($1, $2, $3, ST_SetSRID(ST_GeomFromGeoJSON($4), 4326))`

	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertStudy, studyValues...); err != nil {
			logQueryError(insertStudy, studyValues, err)
			if isUniqueViolation(err) {
				return fmt.Errorf("study %s: %w", studyID, ErrConflict)
			}
			return fmt.Errorf("failed to insert study: %w", err)
		}

		if _, err := tx.ExecContext(ctx, createTable); err != nil {
			logQueryError(createTable, nil, err)
			return fmt.Errorf("failed to create study table: %w", err)
		}

		for _, loc := range locations {
			values := []interface{}{loc.LocationID, studyID, nullString(loc.Name), string(loc.Geometry)}
			if _, err := tx.ExecContext(ctx, insertLocation, values...); err != nil {
				logQueryError(insertLocation, values, err)
				if isUniqueViolation(err) {
					return fmt.Errorf("location %s: %w", loc.LocationID, ErrConflict)
				}
				return fmt.Errorf("failed to insert location: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return StudyCreateResult{}, err
	}

	slog.Info("study created", "study_id", studyID, "table", tableName, "locations", len(locations))
	return StudyCreateResult{TableName: tableName, Locations: len(locations)}, nil
}

// StudiesForAdmin lists the studies owned by ownerID. Each study carries the
// emails of its surveyors; a study without surveyors has an empty list.
func (s *Store) StudiesForAdmin(ctx context.Context, ownerID string) ([]models.AdminStudy, error) {
	query := `WITH study_and_surveyors (study_id, emails) AS (
	              SELECT s.study_id, array_agg(u.email ORDER BY u.email)
	              FROM data_collection.surveyors AS s
	              JOIN public.users AS u ON u.user_id = s.user_id
	              GROUP BY s.study_id
	          )
	          SELECT stu.study_id, stu.title, stu.protocol_version, stu.map,
	                 stu.study_type, stu.fields, sas.emails
	          FROM data_collection.study AS stu
	          LEFT JOIN study_and_surveyors AS sas ON stu.study_id = sas.study_id
	          WHERE stu.user_id = $1
	          ORDER BY stu.created_at, stu.study_id`

	ownerID, err := auth.NormalizeID(ownerID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		logQueryError(query, []interface{}{ownerID}, err)
		return nil, fmt.Errorf("failed to query studies: %w", err)
	}
	defer rows.Close()

	studies := []models.AdminStudy{}
	for rows.Next() {
		var (
			st     models.AdminStudy
			title  sql.NullString
			studyT string
			fields pq.StringArray
			emails pq.StringArray
			rawMap []byte
		)
		if err := rows.Scan(&st.StudyID, &title, &st.ProtocolVersion, &rawMap, &studyT, &fields, &emails); err != nil {
			return nil, fmt.Errorf("failed to scan study: %w", err)
		}
		st.Title = title.String
		st.Type = models.StudyType(studyT)
		st.Map = json.RawMessage(rawMap)
		st.Fields = toFieldKinds(fields)
		st.Surveyors = []string{}
		if len(emails) > 0 {
			st.Surveyors = []string(emails)
		}
		studies = append(studies, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read studies: %w", err)
	}

	return studies, nil
}

// StudiesForSurveyor lists the surveys assigned to userID grouped under their
// study, in the order the studies were first seen.
func (s *Store) StudiesForSurveyor(ctx context.Context, userID string) ([]models.AssignedStudy, error) {
	query := `SELECT stu.study_id, stu.title, stu.protocol_version, stu.study_type, stu.fields, stu.map,
	                 svy.survey_id, svy.title, svy.start_date, svy.end_date, svy.location_id,
	                 ST_AsGeoJSON(loc.geometry)::json
	          FROM data_collection.survey AS svy
	          JOIN data_collection.study AS stu ON svy.study_id = stu.study_id
	          LEFT JOIN data_collection.location AS loc ON svy.location_id = loc.location_id
	          WHERE svy.user_id = $1
	          ORDER BY svy.start_date NULLS LAST, svy.survey_id`

	userID, err := auth.NormalizeID(userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		logQueryError(query, []interface{}{userID}, err)
		return nil, fmt.Errorf("failed to query assigned surveys: %w", err)
	}
	defer rows.Close()

	studies := []models.AssignedStudy{}
	index := map[string]int{}
	for rows.Next() {
		var (
			studyID, protocolVersion, studyType string
			studyTitle, surveyTitle, locationID sql.NullString
			fields                              pq.StringArray
			rawMap, geometry                    []byte
			startDate, endDate                  sql.NullTime
			sv                                  models.AssignedSurvey
		)
		if err := rows.Scan(&studyID, &studyTitle, &protocolVersion, &studyType, &fields, &rawMap,
			&sv.SurveyID, &surveyTitle, &startDate, &endDate, &locationID, &geometry); err != nil {
			return nil, fmt.Errorf("failed to scan assigned survey: %w", err)
		}
		sv.StudyTitle = studyTitle.String
		sv.Title = surveyTitle.String
		sv.StartDate = timePtr(startDate)
		sv.EndDate = timePtr(endDate)
		sv.LocationID = locationID.String
		if len(geometry) > 0 {
			sv.SurveyLocation = json.RawMessage(geometry)
		}

		i, ok := index[studyID]
		if !ok {
			i = len(studies)
			index[studyID] = i
			studies = append(studies, models.AssignedStudy{
				StudyID:         studyID,
				Title:           studyTitle.String,
				ProtocolVersion: protocolVersion,
				Type:            models.StudyType(studyType),
				Fields:          toFieldKinds(fields),
				Map:             json.RawMessage(rawMap),
				Surveys:         []models.AssignedSurvey{},
			})
		}
		studies[i].Surveys = append(studies[i].Surveys, sv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read assigned surveys: %w", err)
	}

	return studies, nil
}

// DeleteStudy drops the study's data table and deletes its metadata row in
// one transaction. A study that does not exist yields *DeletionError and
// nothing is changed.
func (s *Store) DeleteStudy(ctx context.Context, studyID string) error {
	tableName, err := StudyTableName(studyID)
	if err != nil {
		return err
	}
	studyID, _ = auth.NormalizeID(studyID)

	dropTable := `DROP TABLE IF EXISTS ` + tableName
	deleteStudy := `DELETE FROM data_collection.study WHERE study_id = $1`

	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, dropTable); err != nil {
			logQueryError(dropTable, nil, err)
			return fmt.Errorf("failed to drop study table: %w", err)
		}

		res, err := tx.ExecContext(ctx, deleteStudy, studyID)
		if err != nil {
			logQueryError(deleteStudy, []interface{}{studyID}, err)
			return fmt.Errorf("failed to delete study: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to delete study: %w", err)
		}
		if n == 0 {
			return &DeletionError{Entity: "study", ID: studyID}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("study deleted", "study_id", studyID, "table", tableName)
	return nil
}

// GiveUserStudyAccess grants the user with the given email surveyor access to
// a study. If no user has the email, one is created and the grant retried
// once. Granting twice is a no-op. An unknown study yields ErrNotFound and
// no user is kept.
func (s *Store) GiveUserStudyAccess(ctx context.Context, email, studyID string) (AccessGrant, error) {
	// An unknown email resolves to the nil UUID, which fails the users
	// foreign key and sends us down the create-and-retry path.
	query := `INSERT INTO data_collection.surveyors (user_id, study_id)
	          SELECT coalesce((SELECT pu.user_id FROM public.users pu WHERE pu.email = $1), $3::uuid), $2::uuid
	          ON CONFLICT DO NOTHING`

	studyID, err := auth.NormalizeID(studyID)
	if err != nil {
		return AccessGrant{}, err
	}
	email = strings.TrimSpace(email)
	values := []interface{}{email, studyID, uuid.Nil.String()}
	grant := AccessGrant{UserEmail: email, StudyID: studyID}

	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SAVEPOINT grant_access`); err != nil {
			return fmt.Errorf("failed to create savepoint: %w", err)
		}

		_, err := tx.ExecContext(ctx, query, values...)
		if err == nil {
			return nil
		}
		if !isForeignKeyViolation(err) {
			logQueryError(query, values, err)
			return fmt.Errorf("failed to grant study access: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT grant_access`); err != nil {
			return fmt.Errorf("failed to roll back to savepoint: %w", err)
		}

		// The user may have been created since the first attempt
		_, found, err := userIDByEmail(ctx, tx, email)
		if err != nil {
			return err
		}
		var newUserID string
		if !found {
			if newUserID, err = createUser(ctx, tx, models.User{Email: email}); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, query, values...); err != nil {
			logQueryError(query, values, err)
			if isForeignKeyViolation(err) {
				return fmt.Errorf("study %s: %w", studyID, ErrNotFound)
			}
			return fmt.Errorf("failed to grant study access: %w", err)
		}
		grant.NewUserID = newUserID
		return nil
	})
	if err != nil {
		return AccessGrant{}, err
	}

	slog.Info("study access granted", "study_id", studyID, "email", email, "new_user", grant.NewUserID != "")
	return grant, nil
}

// CheckUserIsSurveyor reports whether userID is the surveyor assigned to
// surveyID. Malformed ids are reported as not assigned.
func (s *Store) CheckUserIsSurveyor(ctx context.Context, userID, surveyID string) (bool, error) {
	query := `SELECT count(*)
	          FROM data_collection.survey
	          WHERE user_id = $1 AND survey_id = $2`

	userID, err := auth.NormalizeID(userID)
	if err != nil {
		return false, nil
	}
	surveyID, err = auth.NormalizeID(surveyID)
	if err != nil {
		return false, nil
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, userID, surveyID).Scan(&n); err != nil {
		logQueryError(query, []interface{}{userID, surveyID}, err)
		return false, fmt.Errorf("failed to check surveyor: %w", err)
	}
	return n == 1, nil
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Properties map[string]interface{} `json:"properties"`
	Geometry   json.RawMessage        `json:"geometry"`
}

// locationsFromMap extracts a Location from each map feature carrying a
// locationId property. Features without one are map decoration.
func locationsFromMap(studyID string, raw json.RawMessage) ([]models.Location, error) {
	if nullJSON(raw) == nil {
		return nil, nil
	}

	var fc featureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMap, err)
	}

	var locations []models.Location
	for i, f := range fc.Features {
		rawID, ok := f.Properties["locationId"].(string)
		if !ok || rawID == "" {
			continue
		}
		id, err := auth.NormalizeID(rawID)
		if err != nil {
			return nil, fmt.Errorf("%w: feature %d: %v", ErrInvalidMap, i, err)
		}
		if nullJSON(f.Geometry) == nil {
			return nil, fmt.Errorf("%w: feature %d has no geometry", ErrInvalidMap, i)
		}
		name, _ := f.Properties["name"].(string)
		locations = append(locations, models.Location{
			LocationID: id,
			StudyID:    studyID,
			Name:       name,
			Geometry:   f.Geometry,
		})
	}
	return locations, nil
}

func toFieldKinds(fields pq.StringArray) []models.FieldKind {
	kinds := make([]models.FieldKind, 0, len(fields))
	for _, f := range fields {
		kinds = append(kinds, models.FieldKind(f))
	}
	return kinds
}
