package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"eldersafe/internal/types"
)

// AssessmentRepository provides data access for the assessment_history table.
// Rows are advisory records of past assessments — the engine never reads them
// back to produce a new assessment, so writes here are fire-and-forget from
// the caller's perspective.
type AssessmentRepository struct {
	db DBTX
}

// NewAssessmentRepository creates a new AssessmentRepository backed by the
// given database connection (pool or transaction).
func NewAssessmentRepository(db DBTX) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

const assessmentColumns = `a.id, a.city, a.latitude, a.longitude,
	a.age_group, a.activity, a.overall_score, a.overall_level,
	a.payload, a.created_at`

// Insert stores one assessment record. A missing ID is generated; CreatedAt
// must be set by the caller (from the engine clock, not the DB clock, so
// history and logs agree).
func (r *AssessmentRepository) Insert(ctx context.Context, rec *types.AssessmentRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	query := `
		INSERT INTO assessment_history (
			id, city, latitude, longitude,
			age_group, activity, overall_score, overall_level,
			payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		rec.ID,
		rec.City,
		rec.Latitude,
		rec.Longitude,
		string(rec.AgeGroup),
		string(rec.Activity),
		rec.OverallScore,
		string(rec.OverallLevel),
		rec.Payload,
		rec.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(
			types.ErrCodeInternalDB,
			"failed to insert assessment record",
			err,
		)
	}

	return nil
}

// Record compresses the full SafetyIndex into the payload column and inserts
// the row. This is the entry point handlers use; Insert exists for callers
// that already hold an encoded payload (the data poller).
func (r *AssessmentRepository) Record(ctx context.Context, rec *types.AssessmentRecord, index types.SafetyIndex) error {
	payload, err := EncodeIndexPayload(index)
	if err != nil {
		return err
	}
	rec.Payload = payload
	return r.Insert(ctx, rec)
}

// GetByID retrieves a single assessment record.
func (r *AssessmentRepository) GetByID(ctx context.Context, id string) (*types.AssessmentRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM assessment_history a WHERE a.id = $1`, assessmentColumns)

	rec, err := scanAssessment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(
				types.ErrCodeNotFoundAssessment,
				fmt.Sprintf("assessment %s not found", id),
				err,
			)
		}
		return nil, types.NewAppError(
			types.ErrCodeInternalDB,
			"failed to query assessment record",
			err,
		)
	}

	return rec, nil
}

// ListRecent returns the newest records for a city, newest first.
func (r *AssessmentRepository) ListRecent(ctx context.Context, city string, limit int) ([]*types.AssessmentRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s FROM assessment_history a
		WHERE a.city = $1
		ORDER BY a.created_at DESC
		LIMIT $2`, assessmentColumns)

	rows, err := r.db.Query(ctx, query, city, limit)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalDB,
			"failed to list assessment records",
			err,
		)
	}
	defer rows.Close()

	var records []*types.AssessmentRecord
	for rows.Next() {
		rec, err := scanAssessmentFromRows(rows)
		if err != nil {
			return nil, types.NewAppError(
				types.ErrCodeInternalDB,
				"failed to scan assessment record",
				err,
			)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalDB,
			"failed to iterate assessment records",
			err,
		)
	}

	return records, nil
}

// scanAssessment scans a single row in assessmentColumns order.
func scanAssessment(row pgx.Row) (*types.AssessmentRecord, error) {
	var rec types.AssessmentRecord
	var ageGroup, activity, level string

	err := row.Scan(
		&rec.ID,
		&rec.City,
		&rec.Latitude,
		&rec.Longitude,
		&ageGroup,
		&activity,
		&rec.OverallScore,
		&level,
		&rec.Payload,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.AgeGroup = types.AgeGroup(ageGroup)
	rec.Activity = types.ActivityIntent(activity)
	rec.OverallLevel = types.RiskLevel(level)
	return &rec, nil
}

// DeleteBefore removes history rows created before the cutoff, returning the
// number of deleted rows. Used by the retention maintenance task.
func (r *AssessmentRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM assessment_history WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, types.NewAppError(
			types.ErrCodeInternalDB,
			"failed to prune assessment history",
			err,
		)
	}
	return tag.RowsAffected(), nil
}

// scanAssessmentFromRows scans one row from a result set, same column order.
func scanAssessmentFromRows(rows pgx.Rows) (*types.AssessmentRecord, error) {
	var rec types.AssessmentRecord
	var ageGroup, activity, level string

	err := rows.Scan(
		&rec.ID,
		&rec.City,
		&rec.Latitude,
		&rec.Longitude,
		&ageGroup,
		&activity,
		&rec.OverallScore,
		&level,
		&rec.Payload,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.AgeGroup = types.AgeGroup(ageGroup)
	rec.Activity = types.ActivityIntent(activity)
	rec.OverallLevel = types.RiskLevel(level)
	return &rec, nil
}
