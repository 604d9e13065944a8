package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ImportLog represents a single import operation's outcome.
type ImportLog struct {
	ID              int64            `json:"id"`
	CreatedAt       time.Time        `json:"created_at"`
	Source          string           `json:"source"`
	Status          string           `json:"status"`
	SamplesReceived int              `json:"samples_received"`
	SamplesInserted int64            `json:"samples_inserted"`
	WindowsReceived int              `json:"windows_received"`
	WindowsInserted int              `json:"windows_inserted"`
	SetsInserted    int64            `json:"sets_inserted"`
	DurationMs      *int             `json:"duration_ms"`
	ErrorMessage    *string          `json:"error_message"`
	Metadata        *json.RawMessage `json:"metadata"`
}

// InsertImportLog creates a new import log entry and returns its ID.
func (db *DB) InsertImportLog(ctx context.Context, log ImportLog) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO import_logs (source, status, samples_received, samples_inserted,
		 windows_received, windows_inserted, sets_inserted, duration_ms, error_message, metadata)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 RETURNING id`,
		log.Source, log.Status, log.SamplesReceived, log.SamplesInserted,
		log.WindowsReceived, log.WindowsInserted, log.SetsInserted,
		log.DurationMs, log.ErrorMessage, log.Metadata,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting import log: %w", err)
	}
	return id, nil
}

// UpdateImportLog moves an entry from "running" to its final status.
func (db *DB) UpdateImportLog(ctx context.Context, id int64, log ImportLog) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE import_logs SET
		 status = $2, samples_received = $3, samples_inserted = $4,
		 windows_received = $5, windows_inserted = $6, sets_inserted = $7,
		 duration_ms = $8, error_message = $9, metadata = $10
		 WHERE id = $1`,
		id, log.Status, log.SamplesReceived, log.SamplesInserted,
		log.WindowsReceived, log.WindowsInserted, log.SetsInserted,
		log.DurationMs, log.ErrorMessage, log.Metadata,
	)
	if err != nil {
		return fmt.Errorf("updating import log %d: %w", id, err)
	}
	return nil
}

// QueryImportLogs returns the most recent import logs.
func (db *DB) QueryImportLogs(ctx context.Context, limit int) ([]ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, created_at, source, status, samples_received, samples_inserted,
		 windows_received, windows_inserted, sets_inserted, duration_ms, error_message, metadata
		 FROM import_logs
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("querying import logs: %w", err)
	}
	defer rows.Close()

	var result []ImportLog
	for rows.Next() {
		var l ImportLog
		if err := rows.Scan(&l.ID, &l.CreatedAt, &l.Source, &l.Status,
			&l.SamplesReceived, &l.SamplesInserted, &l.WindowsReceived, &l.WindowsInserted,
			&l.SetsInserted, &l.DurationMs, &l.ErrorMessage, &l.Metadata); err != nil {
			return nil, fmt.Errorf("scanning import log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
