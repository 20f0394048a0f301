package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"eldersafe/internal/types"
)

// SnapshotRepository caches the latest collected environment snapshot per
// city. The cache is advisory: the API serves live collections and only the
// poller writes here, so readers tolerate stale or missing rows.
type SnapshotRepository struct {
	db DBTX
}

// NewSnapshotRepository creates a new SnapshotRepository backed by the given
// database connection (pool or transaction).
func NewSnapshotRepository(db DBTX) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Upsert stores the latest snapshot for a city, replacing any previous one.
func (r *SnapshotRepository) Upsert(ctx context.Context, city string, lat, lon float64, snap types.EnvironmentSnapshot, updatedAt time.Time) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to serialize environment snapshot",
			err,
		)
	}

	query := `
		INSERT INTO snapshot_cache (city, latitude, longitude, snapshot, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (city) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			snapshot = EXCLUDED.snapshot,
			updated_at = EXCLUDED.updated_at`

	_, err = r.db.Exec(ctx, query, city, lat, lon, raw, updatedAt)
	if err != nil {
		return types.NewAppError(
			types.ErrCodeInternalDB,
			"failed to upsert snapshot cache",
			err,
		)
	}

	return nil
}

// GetLatest returns the cached snapshot for a city and when it was written.
func (r *SnapshotRepository) GetLatest(ctx context.Context, city string) (*types.EnvironmentSnapshot, time.Time, error) {
	query := `SELECT snapshot, updated_at FROM snapshot_cache WHERE city = $1`

	var raw []byte
	var updatedAt time.Time

	err := r.db.QueryRow(ctx, query, city).Scan(&raw, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, time.Time{}, types.NewAppError(
				types.ErrCodeNotFoundSnapshot,
				fmt.Sprintf("no cached snapshot for city %s", city),
				err,
			)
		}
		return nil, time.Time{}, types.NewAppError(
			types.ErrCodeInternalDB,
			"failed to query snapshot cache",
			err,
		)
	}

	var snap types.EnvironmentSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, time.Time{}, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to deserialize cached snapshot",
			err,
		)
	}

	return &snap, updatedAt, nil
}

// DeleteBefore removes cached snapshots not refreshed since the cutoff,
// returning the number of deleted rows. Used by the retention maintenance
// task; a healthy poller keeps its targets' rows fresh, so anything older
// belongs to a city no longer monitored.
func (r *SnapshotRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM snapshot_cache WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, types.NewAppError(
			types.ErrCodeInternalDB,
			"failed to prune snapshot cache",
			err,
		)
	}
	return tag.RowsAffected(), nil
}
