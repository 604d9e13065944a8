package storage

import (
	"context"
	"fmt"

	"github.com/claude/fitfusion/internal/models"
)

// ListMuscleOverrides returns every override ordered by exercise name.
func (db *DB) ListMuscleOverrides(ctx context.Context) ([]models.MuscleOverride, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT exercise, muscle_group FROM muscle_overrides ORDER BY exercise_key ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying muscle overrides: %w", err)
	}
	defer rows.Close()

	var result []models.MuscleOverride
	for rows.Next() {
		var o models.MuscleOverride
		var group string
		if err := rows.Scan(&o.Exercise, &group); err != nil {
			return nil, fmt.Errorf("scanning muscle override: %w", err)
		}
		o.Group = models.MuscleGroup(group)
		result = append(result, o)
	}
	return result, rows.Err()
}

// UpsertMuscleOverride stores or replaces the override for an exercise,
// keyed case-insensitively.
func (db *DB) UpsertMuscleOverride(ctx context.Context, o models.MuscleOverride) error {
	if !o.Group.Valid() {
		return fmt.Errorf("%w: unknown muscle group %q", models.ErrMalformedInput, o.Group)
	}
	key := models.ExerciseKey(o.Exercise)
	if key == "" {
		return fmt.Errorf("%w: override has no exercise name", models.ErrMalformedInput)
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO muscle_overrides (exercise_key, exercise, muscle_group, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (exercise_key) DO UPDATE SET
		 exercise = EXCLUDED.exercise, muscle_group = EXCLUDED.muscle_group, updated_at = now()`,
		key, o.Exercise, string(o.Group))
	if err != nil {
		return fmt.Errorf("upserting muscle override: %w", err)
	}
	return nil
}

// DeleteMuscleOverride removes an override. Returns false when none existed.
func (db *DB) DeleteMuscleOverride(ctx context.Context, exercise string) (bool, error) {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM muscle_overrides WHERE exercise_key = $1`, models.ExerciseKey(exercise))
	if err != nil {
		return false, fmt.Errorf("deleting muscle override: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
