package database

import "context"

// FaceStore owns FaceRecord persistence and similarity lookup.
type FaceStore interface {
	// Insert persists a new face record, assigning FaceID, Seq and
	// timestamps on the record. Returns the generated face ID.
	Insert(ctx context.Context, rec *FaceRecord) (string, error)

	// Nearest returns the single closest active face by cosine distance,
	// or nil if no active face exists. Ties are broken by insertion order
	// (earliest wins), so results are deterministic for a given dataset.
	Nearest(ctx context.Context, embedding []float32) (*Match, error)

	// Deactivate soft-deletes a face. Returns true iff a row was updated.
	Deactivate(ctx context.Context, faceID string) (bool, error)

	// ListByUser returns all faces enrolled for a user, active or not,
	// in insertion order.
	ListByUser(ctx context.Context, userID int64) ([]FaceRecord, error)

	// CountActive returns the number of active faces.
	CountActive(ctx context.Context) (int, error)
}

// AttendanceStore owns the append-only recognition audit log.
type AttendanceStore interface {
	// Append writes one attendance log row, assigning LogID and
	// CreatedAt on the record. Returns the generated log ID.
	Append(ctx context.Context, rec *AttendanceRecord) (string, error)

	// Get retrieves a log row by ID, nil if not found.
	Get(ctx context.Context, logID string) (*AttendanceRecord, error)
}
