package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/fitfusion/internal/models"
)

const trainingSetColumns = 14

// InsertTrainingSets batch-inserts set rows. Rows already present for the
// same session and set index are skipped. Returns the count inserted.
func (db *DB) InsertTrainingSets(ctx context.Context, rows []models.TrainingSetRow) (int64, error) {
	var total int64
	for _, c := range chunks(len(rows), maxBatchRows) {
		batch := rows[c[0]:c[1]]
		args := make([]any, 0, len(batch)*trainingSetColumns)
		for _, r := range batch {
			args = append(args, r.SessionID, r.SessionTitle, r.SessionStart, r.SessionDuration,
				r.Source, r.SetIndex, r.Exercise, r.Equipment, r.IsWarmup,
				r.Reps, r.WeightKg, r.RPE, r.ToFailure, r.RestSec)
		}
		query := `INSERT INTO training_sets (session_id, session_title, session_start, session_duration,
			source, set_index, exercise, equipment, is_warmup, reps, weight_kg, rpe, to_failure, rest_sec) VALUES ` +
			valuesClause(len(batch), trainingSetColumns) + ` ON CONFLICT DO NOTHING`

		tag, err := db.Pool.Exec(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("inserting training sets: %w", err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}

// QueryTrainingSessions rebuilds the sessions that started in [start, end),
// oldest first. Warmup sets are dropped.
func (db *DB) QueryTrainingSessions(ctx context.Context, start, end time.Time) ([]models.TrainingSession, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT session_id, session_title, session_start, session_duration, source,
		 set_index, exercise, equipment, is_warmup, reps, weight_kg, rpe, to_failure, rest_sec
		 FROM training_sets
		 WHERE session_start >= $1 AND session_start < $2
		 ORDER BY session_start ASC, session_id ASC, set_index ASC`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("querying training sets: %w", err)
	}
	defer rows.Close()

	var result []models.TrainingSetRow
	for rows.Next() {
		var r models.TrainingSetRow
		if err := rows.Scan(&r.SessionID, &r.SessionTitle, &r.SessionStart, &r.SessionDuration, &r.Source,
			&r.SetIndex, &r.Exercise, &r.Equipment, &r.IsWarmup, &r.Reps, &r.WeightKg, &r.RPE,
			&r.ToFailure, &r.RestSec); err != nil {
			return nil, fmt.Errorf("scanning training set: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return models.SessionsFromRows(result), nil
}

// DeleteTrainingSession removes every set stored for a session so a
// re-import reflects the latest export.
func (db *DB) DeleteTrainingSession(ctx context.Context, sessionID string) error {
	if _, err := db.Pool.Exec(ctx, `DELETE FROM training_sets WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("deleting training session %s: %w", sessionID, err)
	}
	return nil
}
