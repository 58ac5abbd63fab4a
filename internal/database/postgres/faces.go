package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hotelops/faceattend/internal/database"
	"github.com/pgvector/pgvector-go"
)

// FaceRepository provides PostgreSQL-backed face storage with an optional
// in-memory index over active faces. PostgreSQL is always the source of
// truth; the index is a read-side accelerator kept in sync on writes.
type FaceRepository struct {
	pool  *Pool
	index *database.ActiveFaceIndex // nil when disabled
}

// NewFaceRepository creates a new PostgreSQL face repository.
func NewFaceRepository(pool *Pool) *FaceRepository {
	return &FaceRepository{pool: pool}
}

// AttachIndex enables the in-memory index. Subsequent inserts and
// deactivations keep it current.
func (r *FaceRepository) AttachIndex(index *database.ActiveFaceIndex) {
	r.index = index
}

const faceColumns = `
	face_id, seq, user_id, embedding,
	quality_score, sharpness_score, brightness_score,
	bbox_x1, bbox_y1, bbox_x2, bbox_y2,
	is_liveness_verified, liveness_score,
	enrollment_device, enrollment_location, notes,
	is_active, created_at, updated_at
`

// Insert persists a new face record. The record's FaceID, Seq and
// timestamps are filled in from the database.
func (r *FaceRepository) Insert(ctx context.Context, rec *database.FaceRecord) (string, error) {
	faceID := uuid.New().String()

	query := `
		INSERT INTO employee_faces (
			face_id, user_id, embedding,
			quality_score, sharpness_score, brightness_score,
			bbox_x1, bbox_y1, bbox_x2, bbox_y2,
			is_liveness_verified, liveness_score,
			enrollment_device, enrollment_location, notes,
			is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, TRUE)
		RETURNING seq, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		faceID, rec.UserID, pgvector.NewVector(rec.Embedding),
		rec.QualityScore, rec.SharpnessScore, rec.BrightnessScore,
		rec.BBox[0], rec.BBox[1], rec.BBox[2], rec.BBox[3],
		rec.IsLivenessVerified, rec.LivenessScore,
		rec.EnrollmentDevice, rec.EnrollmentLocation, rec.Notes,
	).Scan(&rec.Seq, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("insert face: %w", err)
	}

	rec.FaceID = faceID
	rec.IsActive = true

	if r.index != nil {
		r.index.Add(database.IndexEntry{
			Seq:       rec.Seq,
			FaceID:    faceID,
			UserID:    rec.UserID,
			Embedding: rec.Embedding,
		})
	}

	return faceID, nil
}

// Nearest returns the closest active face by cosine distance, nil when no
// active face exists. Ties resolve to the lowest insertion sequence.
func (r *FaceRepository) Nearest(ctx context.Context, embedding []float32) (*database.Match, error) {
	if r.index != nil {
		return r.index.Nearest(embedding), nil
	}

	query := `
		SELECT face_id, user_id, 1 - (embedding <=> $1::vector) AS similarity
		FROM employee_faces
		WHERE is_active
		ORDER BY embedding <=> $1::vector, seq
		LIMIT 1
	`

	var m database.Match
	err := r.pool.QueryRow(ctx, query, pgvector.NewVector(embedding)).
		Scan(&m.FaceID, &m.UserID, &m.Similarity)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query nearest face: %w", err)
	}
	return &m, nil
}

// Deactivate soft-deletes a face. Returns true iff a row changed.
func (r *FaceRepository) Deactivate(ctx context.Context, faceID string) (bool, error) {
	query := `
		UPDATE employee_faces
		SET is_active = FALSE, updated_at = NOW()
		WHERE face_id = $1 AND is_active
		RETURNING seq
	`

	var seq int64
	err := r.pool.QueryRow(ctx, query, faceID).Scan(&seq)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("deactivate face: %w", err)
	}

	if r.index != nil {
		r.index.Remove(seq)
	}
	return true, nil
}

// ListByUser returns all faces enrolled for a user in insertion order.
func (r *FaceRepository) ListByUser(ctx context.Context, userID int64) ([]database.FaceRecord, error) {
	query := "SELECT " + faceColumns + " FROM employee_faces WHERE user_id = $1 ORDER BY seq"

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query faces by user: %w", err)
	}
	defer rows.Close()

	return scanFaces(rows)
}

// CountActive returns the number of active faces.
func (r *FaceRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM employee_faces WHERE is_active").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active faces: %w", err)
	}
	return count, nil
}

// ActiveEntries returns all active faces as index entries, for building the
// in-memory index on startup or via the rebuild command.
func (r *FaceRepository) ActiveEntries(ctx context.Context) ([]database.IndexEntry, error) {
	query := `
		SELECT seq, face_id, user_id, embedding
		FROM employee_faces
		WHERE is_active
		ORDER BY seq
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query active faces: %w", err)
	}
	defer rows.Close()

	var entries []database.IndexEntry
	for rows.Next() {
		var e database.IndexEntry
		var vec pgvector.Vector
		if err := rows.Scan(&e.Seq, &e.FaceID, &e.UserID, &vec); err != nil {
			return nil, fmt.Errorf("scan active face: %w", err)
		}
		e.Embedding = vec.Slice()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active faces: %w", err)
	}
	return entries, nil
}

// Stats returns the active face count and the highest sequence number,
// used to validate persisted index snapshots.
func (r *FaceRepository) Stats(ctx context.Context) (count, maxSeq int64, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(MAX(seq), 0)
		FROM employee_faces
		WHERE is_active
	`).Scan(&count, &maxSeq)
	if err != nil {
		return 0, 0, fmt.Errorf("query face stats: %w", err)
	}
	return count, maxSeq, nil
}

func scanFaces(rows *sql.Rows) ([]database.FaceRecord, error) {
	var faces []database.FaceRecord
	for rows.Next() {
		var rec database.FaceRecord
		var vec pgvector.Vector
		err := rows.Scan(
			&rec.FaceID, &rec.Seq, &rec.UserID, &vec,
			&rec.QualityScore, &rec.SharpnessScore, &rec.BrightnessScore,
			&rec.BBox[0], &rec.BBox[1], &rec.BBox[2], &rec.BBox[3],
			&rec.IsLivenessVerified, &rec.LivenessScore,
			&rec.EnrollmentDevice, &rec.EnrollmentLocation, &rec.Notes,
			&rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		rec.Embedding = vec.Slice()
		faces = append(faces, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faces: %w", err)
	}
	return faces, nil
}
