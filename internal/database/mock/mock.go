// Package mock provides in-memory implementations of the storage
// interfaces for tests. Error fields inject failures per operation.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hotelops/faceattend/internal/database"
)

// FaceStore is an in-memory database.FaceStore. Nearest uses exact cosine
// distance with the same active-only filter and insertion-order tie-break
// as the PostgreSQL implementation.
type FaceStore struct {
	mu      sync.Mutex
	faces   []*database.FaceRecord
	nextSeq int64

	InsertErr     error
	NearestErr    error
	DeactivateErr error
	ListErr       error
	CountErr      error
}

// NewFaceStore creates an empty mock face store.
func NewFaceStore() *FaceStore {
	return &FaceStore{}
}

func (s *FaceStore) Insert(ctx context.Context, rec *database.FaceRecord) (string, error) {
	if s.InsertErr != nil {
		return "", s.InsertErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	rec.Seq = s.nextSeq
	rec.FaceID = fmt.Sprintf("face-%d", s.nextSeq)
	rec.IsActive = true
	rec.CreatedAt = time.Now().UTC()
	rec.UpdatedAt = rec.CreatedAt

	stored := *rec
	stored.Embedding = append([]float32(nil), rec.Embedding...)
	s.faces = append(s.faces, &stored)
	return rec.FaceID, nil
}

func (s *FaceStore) Nearest(ctx context.Context, embedding []float32) (*database.Match, error) {
	if s.NearestErr != nil {
		return nil, s.NearestErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var best *database.FaceRecord
	bestDist := 3.0
	for _, f := range s.faces {
		if !f.IsActive {
			continue
		}
		dist := database.CosineDistance(embedding, f.Embedding)
		// Faces are stored in insertion order, so strict less-than keeps
		// the earliest face on ties.
		if dist < bestDist {
			bestDist = dist
			best = f
		}
	}
	if best == nil {
		return nil, nil
	}
	return &database.Match{
		FaceID:     best.FaceID,
		UserID:     best.UserID,
		Similarity: 1 - bestDist,
	}, nil
}

func (s *FaceStore) Deactivate(ctx context.Context, faceID string) (bool, error) {
	if s.DeactivateErr != nil {
		return false, s.DeactivateErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.faces {
		if f.FaceID == faceID && f.IsActive {
			f.IsActive = false
			f.UpdatedAt = time.Now().UTC()
			return true, nil
		}
	}
	return false, nil
}

func (s *FaceStore) ListByUser(ctx context.Context, userID int64) ([]database.FaceRecord, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []database.FaceRecord
	for _, f := range s.faces {
		if f.UserID == userID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *FaceStore) CountActive(ctx context.Context) (int, error) {
	if s.CountErr != nil {
		return 0, s.CountErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, f := range s.faces {
		if f.IsActive {
			count++
		}
	}
	return count, nil
}

// AttendanceStore is an in-memory database.AttendanceStore.
type AttendanceStore struct {
	mu   sync.Mutex
	logs []*database.AttendanceRecord

	AppendErr error
	GetErr    error
}

// NewAttendanceStore creates an empty mock attendance store.
func NewAttendanceStore() *AttendanceStore {
	return &AttendanceStore{}
}

func (s *AttendanceStore) Append(ctx context.Context, rec *database.AttendanceRecord) (string, error) {
	if s.AppendErr != nil {
		return "", s.AppendErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec.LogID = fmt.Sprintf("log-%d", len(s.logs)+1)
	rec.CreatedAt = time.Now().UTC()

	stored := *rec
	s.logs = append(s.logs, &stored)
	return rec.LogID, nil
}

func (s *AttendanceStore) Get(ctx context.Context, logID string) (*database.AttendanceRecord, error) {
	if s.GetErr != nil {
		return nil, s.GetErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.logs {
		if l.LogID == logID {
			out := *l
			return &out, nil
		}
	}
	return nil, nil
}

// Logs returns a snapshot of all appended records, for assertions.
func (s *AttendanceStore) Logs() []database.AttendanceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]database.AttendanceRecord, len(s.logs))
	for i, l := range s.logs {
		out[i] = *l
	}
	return out
}
