package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hotelops/faceattend/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed attendance logging.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// Append writes one attendance log row.
func (r *AttendanceRepository) Append(ctx context.Context, rec *database.AttendanceRecord) (string, error) {
	logID := uuid.New().String()

	var metadata []byte
	if rec.Metadata != nil {
		var err error
		metadata, err = json.Marshal(rec.Metadata)
		if err != nil {
			return "", fmt.Errorf("marshal log metadata: %w", err)
		}
	}

	query := `
		INSERT INTO attendance_logs (
			log_id, user_id, matched_face_id, recognition_confidence,
			event_type, location, device_id, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query,
		logID, rec.UserID, rec.MatchedFaceID, rec.Confidence,
		rec.EventType, rec.Location, rec.DeviceID, metadata,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert attendance log: %w", err)
	}

	rec.LogID = logID
	return logID, nil
}

// Get retrieves a log row by ID, nil if not found.
func (r *AttendanceRepository) Get(ctx context.Context, logID string) (*database.AttendanceRecord, error) {
	query := `
		SELECT log_id, user_id, matched_face_id, recognition_confidence,
		       event_type, location, device_id, metadata, created_at
		FROM attendance_logs
		WHERE log_id = $1
	`

	var rec database.AttendanceRecord
	var metadata []byte
	err := r.pool.QueryRow(ctx, query, logID).Scan(
		&rec.LogID, &rec.UserID, &rec.MatchedFaceID, &rec.Confidence,
		&rec.EventType, &rec.Location, &rec.DeviceID, &metadata, &rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query attendance log: %w", err)
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal log metadata: %w", err)
		}
	}
	return &rec, nil
}
