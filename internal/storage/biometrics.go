package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/fitfusion/internal/models"
	"github.com/jackc/pgx/v5"
)

const (
	sampleColumns = 4
	windowColumns = 11
)

// InsertSamples batch-inserts biometric samples. Returns the number actually
// inserted (duplicates on time, kind and source are skipped).
func (db *DB) InsertSamples(ctx context.Context, samples []models.BiometricSample) (int64, error) {
	var total int64
	for _, c := range chunks(len(samples), maxBatchRows) {
		batch := samples[c[0]:c[1]]
		args := make([]any, 0, len(batch)*sampleColumns)
		for _, s := range batch {
			args = append(args, s.Time, string(s.Kind), s.Value, s.Source)
		}
		query := `INSERT INTO biometric_samples (time, kind, value, source) VALUES ` +
			valuesClause(len(batch), sampleColumns) + ` ON CONFLICT DO NOTHING`

		tag, err := db.Pool.Exec(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("inserting biometric samples: %w", err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}

// QuerySamples returns samples in [start, end) ordered by time. With no kinds
// every kind is returned.
func (db *DB) QuerySamples(ctx context.Context, start, end time.Time, kinds ...models.SampleKind) ([]models.BiometricSample, error) {
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, string(k))
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT time, kind, value, source
		 FROM biometric_samples
		 WHERE time >= $1 AND time < $2 AND (cardinality($3::text[]) = 0 OR kind = ANY($3))
		 ORDER BY time ASC`,
		start, end, names)
	if err != nil {
		return nil, fmt.Errorf("querying biometric samples: %w", err)
	}
	defer rows.Close()

	var result []models.BiometricSample
	for rows.Next() {
		var s models.BiometricSample
		var kind string
		if err := rows.Scan(&s.Time, &kind, &s.Value, &s.Source); err != nil {
			return nil, fmt.Errorf("scanning biometric sample: %w", err)
		}
		s.Kind = models.SampleKind(kind)
		result = append(result, s)
	}
	return result, rows.Err()
}

// InsertWindows upserts workout windows by id. Returns the number written.
func (db *DB) InsertWindows(ctx context.Context, windows []models.WorkoutWindow) (int64, error) {
	var total int64
	for _, c := range chunks(len(windows), maxBatchRows) {
		batch := windows[c[0]:c[1]]
		args := make([]any, 0, len(batch)*windowColumns)
		for _, w := range batch {
			args = append(args, w.ID, w.Type, w.Start, w.End, w.DurationSec,
				w.Calories, w.DistanceMeters, w.AvgHeartRate, w.MaxHeartRate, w.MinHeartRate, "")
		}
		query := `INSERT INTO workout_windows (id, type, start_time, end_time, duration_sec,
			calories, distance_meters, avg_heart_rate, max_heart_rate, min_heart_rate, source) VALUES ` +
			valuesClause(len(batch), windowColumns) +
			` ON CONFLICT (id) DO UPDATE SET
			end_time = EXCLUDED.end_time,
			duration_sec = EXCLUDED.duration_sec,
			calories = EXCLUDED.calories,
			distance_meters = EXCLUDED.distance_meters,
			avg_heart_rate = EXCLUDED.avg_heart_rate,
			max_heart_rate = EXCLUDED.max_heart_rate,
			min_heart_rate = EXCLUDED.min_heart_rate`

		tag, err := db.Pool.Exec(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("inserting workout windows: %w", err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}

// QueryWindows returns windows starting in [start, end), oldest first.
func (db *DB) QueryWindows(ctx context.Context, start, end time.Time) ([]models.WorkoutWindow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, type, start_time, end_time, duration_sec,
		 calories, distance_meters, avg_heart_rate, max_heart_rate, min_heart_rate
		 FROM workout_windows
		 WHERE start_time >= $1 AND start_time < $2
		 ORDER BY start_time ASC`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("querying workout windows: %w", err)
	}
	defer rows.Close()

	return scanWindows(rows)
}

func scanWindows(rows pgx.Rows) ([]models.WorkoutWindow, error) {
	var result []models.WorkoutWindow
	for rows.Next() {
		var w models.WorkoutWindow
		if err := rows.Scan(&w.ID, &w.Type, &w.Start, &w.End, &w.DurationSec,
			&w.Calories, &w.DistanceMeters, &w.AvgHeartRate, &w.MaxHeartRate, &w.MinHeartRate); err != nil {
			return nil, fmt.Errorf("scanning workout window: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

// Stream loads the biometric input for [start, end). Heart-rate samples are
// fetched with an hour of slack on each side so windows at the range edges
// still see their readings.
func (db *DB) Stream(ctx context.Context, start, end time.Time) (models.BiometricStream, error) {
	windows, err := db.QueryWindows(ctx, start, end)
	if err != nil {
		return models.BiometricStream{}, err
	}
	samples, err := db.QuerySamples(ctx, start.Add(-time.Hour), end.Add(time.Hour), models.KindHeartRate)
	if err != nil {
		return models.BiometricStream{}, err
	}
	return models.BiometricStream{Samples: samples, Windows: windows}, nil
}

// DailySteps is the step total for one calendar day (UTC).
type DailySteps struct {
	Date  time.Time `json:"date"`
	Steps float64   `json:"steps"`
}

// QueryDailySteps sums step samples per UTC day in [start, end).
func (db *DB) QueryDailySteps(ctx context.Context, start, end time.Time) ([]DailySteps, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT date_trunc('day', time AT TIME ZONE 'UTC') AS day, SUM(value)
		 FROM biometric_samples
		 WHERE kind = $1 AND time >= $2 AND time < $3
		 GROUP BY day
		 ORDER BY day ASC`,
		string(models.KindSteps), start, end)
	if err != nil {
		return nil, fmt.Errorf("querying daily steps: %w", err)
	}
	defer rows.Close()

	var result []DailySteps
	for rows.Next() {
		var d DailySteps
		if err := rows.Scan(&d.Date, &d.Steps); err != nil {
			return nil, fmt.Errorf("scanning daily steps: %w", err)
		}
		d.Date = time.Date(d.Date.Year(), d.Date.Month(), d.Date.Day(), 0, 0, 0, 0, time.UTC)
		result = append(result, d)
	}
	return result, rows.Err()
}
