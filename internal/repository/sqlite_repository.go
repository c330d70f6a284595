package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const resultsSchema = `
	CREATE TABLE IF NOT EXISTS classifications (
		id TEXT PRIMARY KEY,
		location TEXT NOT NULL,
		camera_model TEXT,
		created_at TEXT NOT NULL,
		processing_time_sec REAL,
		verdict TEXT NOT NULL,
		score REAL,
		resolved_index INTEGER,
		degraded INTEGER NOT NULL DEFAULT 0,
		result TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_classifications_location
		ON classifications (location, created_at);
`

// createdAtLayout is fixed width so stored timestamps sort as text
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteResultRepository persists classification results in SQLite
type SQLiteResultRepository struct {
	db *sql.DB
}

// NewSQLiteResultRepository opens (creating when needed) the results
// database at path. ":memory:" gives a private in-memory store.
func NewSQLiteResultRepository(path string) (*SQLiteResultRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// An in-memory database lives and dies with its connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(resultsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteResultRepository{db: db}, nil
}

// SaveResult stores a result. Records without an id get a new uuid and
// records without a timestamp are stamped with the current time.
func (r *SQLiteResultRepository) SaveResult(ctx context.Context, record *ResultRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO classifications
		(id, location, camera_model, created_at, processing_time_sec, verdict, score, resolved_index, degraded, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Location,
		record.CameraModel,
		record.Timestamp.UTC().Format(createdAtLayout),
		record.ProcessingTimeSec,
		record.Result.Verdict.String(),
		record.Result.Score,
		record.Result.ResolvedIndex,
		record.Result.Degraded,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// GetResult retrieves a stored result by id
func (r *SQLiteResultRepository) GetResult(ctx context.Context, id string) (*ResultRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, location, camera_model, created_at, processing_time_sec, result
		FROM classifications WHERE id = ?`, id)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrResultNotFound, id)
	}
	return record, err
}

// GetHistory retrieves the results recorded for a location, oldest first
func (r *SQLiteResultRepository) GetHistory(ctx context.Context, location string) ([]*ResultRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, location, camera_model, created_at, processing_time_sec, result
		FROM classifications WHERE location = ?
		ORDER BY created_at, rowid`, location)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []*ResultRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Close closes the database
func (r *SQLiteResultRepository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*ResultRecord, error) {
	var (
		record      ResultRecord
		cameraModel sql.NullString
		createdAt   string
		payload     string
	)
	if err := s.Scan(&record.ID, &record.Location, &cameraModel, &createdAt, &record.ProcessingTimeSec, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan result: %w", err)
	}
	record.CameraModel = cameraModel.String

	ts, err := time.Parse(createdAtLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", createdAt, err)
	}
	record.Timestamp = ts

	if err := json.Unmarshal([]byte(payload), &record.Result); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", record.ID, err)
	}
	return &record, nil
}
