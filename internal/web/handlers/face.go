package handlers

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hotelops/faceattend/internal/database"
	"github.com/hotelops/faceattend/internal/pipeline"
	"github.com/hotelops/faceattend/internal/quality"
)

// FaceHandler serves the enrollment and recognition endpoints. All
// dependencies are injected at construction.
type FaceHandler struct {
	enroller   *pipeline.Enroller
	recognizer *pipeline.Recognizer
	faces      database.FaceStore
}

// NewFaceHandler creates a face handler.
func NewFaceHandler(enroller *pipeline.Enroller, recognizer *pipeline.Recognizer, faces database.FaceStore) *FaceHandler {
	return &FaceHandler{
		enroller:   enroller,
		recognizer: recognizer,
		faces:      faces,
	}
}

type enrollRequest struct {
	UserID          int64  `json:"user_id"`
	ImageData       string `json:"image_data"` // base64, optional data URI prefix
	RequireLiveness *bool  `json:"require_liveness,omitempty"`
	DeviceID        string `json:"device_id,omitempty"`
	Location        string `json:"location,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

type enrollResponse struct {
	Success            bool            `json:"success"`
	FaceID             string          `json:"face_id,omitempty"`
	UserID             int64           `json:"user_id,omitempty"`
	Quality            *quality.Scores `json:"quality,omitempty"`
	IsLivenessVerified bool            `json:"is_liveness_verified,omitempty"`
	LivenessScore      float64         `json:"liveness_score,omitempty"`
	Reason             string          `json:"reason,omitempty"`
	Message            string          `json:"message,omitempty"`
	FaceCount          int             `json:"face_count,omitempty"`
}

type recognizeRequest struct {
	ImageData string `json:"image_data"`
	EventType string `json:"event_type,omitempty"` // CHECK_IN (default) or CHECK_OUT
	Location  string `json:"location,omitempty"`
	DeviceID  string `json:"device_id,omitempty"`
}

type recognizeResponse struct {
	Success    bool    `json:"success"`
	UserID     int64   `json:"user_id,omitempty"`
	FaceID     string  `json:"face_id,omitempty"`
	EventType  string  `json:"event_type,omitempty"`
	Confidence float64 `json:"confidence"`
	LogID      string  `json:"log_id,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Message    string  `json:"message,omitempty"`
}

type faceSummary struct {
	FaceID             string    `json:"face_id"`
	UserID             int64     `json:"user_id"`
	QualityScore       float64   `json:"quality_score"`
	IsLivenessVerified bool      `json:"is_liveness_verified"`
	EnrollmentDevice   string    `json:"enrollment_device,omitempty"`
	EnrollmentLocation string    `json:"enrollment_location,omitempty"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}

// decodeImage strips an optional data URI prefix and decodes base64.
func decodeImage(data string) ([]byte, bool) {
	if idx := strings.Index(data, ";base64,"); idx != -1 {
		data = data[idx+len(";base64,"):]
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	return raw, true
}

// Enroll handles POST /api/v1/face/enroll.
func (h *FaceHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.UserID <= 0 {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	imageData, ok := decodeImage(req.ImageData)
	if !ok {
		respondJSON(w, http.StatusBadRequest, enrollResponse{
			Success: false,
			Reason:  string(pipeline.ReasonInvalidImage),
			Message: "image_data is not valid base64",
		})
		return
	}

	requireLiveness := true
	if req.RequireLiveness != nil {
		requireLiveness = *req.RequireLiveness
	}

	res, err := h.enroller.Enroll(r.Context(), pipeline.EnrollRequest{
		UserID:          req.UserID,
		ImageData:       imageData,
		RequireLiveness: requireLiveness,
		Device:          req.DeviceID,
		Location:        req.Location,
		Notes:           req.Notes,
	})
	if err != nil {
		slog.Error("enrollment failed", "error", err, "user_id", req.UserID)
		respondError(w, http.StatusInternalServerError, "enrollment failed")
		return
	}

	if rej := res.Rejection; rej != nil {
		status := http.StatusOK
		if rej.Reason == pipeline.ReasonInvalidImage {
			status = http.StatusBadRequest
		}
		respondJSON(w, status, enrollResponse{
			Success:   false,
			Reason:    string(rej.Reason),
			Message:   rej.Message,
			FaceCount: rej.FaceCount,
			Quality:   rej.Quality,
		})
		return
	}

	respondJSON(w, http.StatusCreated, enrollResponse{
		Success:            true,
		FaceID:             res.FaceID,
		UserID:             res.UserID,
		Quality:            &res.Quality,
		IsLivenessVerified: res.IsLivenessVerified,
		LivenessScore:      res.LivenessScore,
	})
}

// Recognize handles POST /api/v1/face/recognize.
func (h *FaceHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	var req recognizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	switch req.EventType {
	case "", database.EventCheckIn, database.EventCheckOut:
	default:
		respondError(w, http.StatusBadRequest, "event_type must be CHECK_IN or CHECK_OUT")
		return
	}

	imageData, ok := decodeImage(req.ImageData)
	if !ok {
		respondJSON(w, http.StatusBadRequest, recognizeResponse{
			Success: false,
			Reason:  string(pipeline.ReasonInvalidImage),
			Message: "image_data is not valid base64",
		})
		return
	}

	res, err := h.recognizer.Recognize(r.Context(), pipeline.RecognizeRequest{
		ImageData: imageData,
		EventType: req.EventType,
		Location:  req.Location,
		DeviceID:  req.DeviceID,
	})
	if err != nil {
		slog.Error("recognition failed", "error", err)
		respondError(w, http.StatusInternalServerError, "recognition failed")
		return
	}

	if rej := res.Rejection; rej != nil {
		status := http.StatusOK
		if rej.Reason == pipeline.ReasonInvalidImage {
			status = http.StatusBadRequest
		}
		respondJSON(w, status, recognizeResponse{
			Success:    false,
			Confidence: res.Confidence,
			LogID:      res.LogID,
			Reason:     string(rej.Reason),
			Message:    rej.Message,
		})
		return
	}

	respondJSON(w, http.StatusOK, recognizeResponse{
		Success:    true,
		UserID:     res.UserID,
		FaceID:     res.FaceID,
		EventType:  res.EventType,
		Confidence: res.Confidence,
		LogID:      res.LogID,
	})
}

// ListFaces handles GET /api/v1/face/users/{userID}/faces.
func (h *FaceHandler) ListFaces(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	faces, err := h.faces.ListByUser(r.Context(), userID)
	if err != nil {
		slog.Error("list faces failed", "error", err, "user_id", userID)
		respondError(w, http.StatusInternalServerError, "failed to list faces")
		return
	}

	out := make([]faceSummary, 0, len(faces))
	for _, f := range faces {
		out = append(out, faceSummary{
			FaceID:             f.FaceID,
			UserID:             f.UserID,
			QualityScore:       f.QualityScore,
			IsLivenessVerified: f.IsLivenessVerified,
			EnrollmentDevice:   f.EnrollmentDevice,
			EnrollmentLocation: f.EnrollmentLocation,
			IsActive:           f.IsActive,
			CreatedAt:          f.CreatedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"faces":   out,
	})
}

// DeactivateFace handles DELETE /api/v1/face/faces/{faceID}.
func (h *FaceHandler) DeactivateFace(w http.ResponseWriter, r *http.Request) {
	faceID := chi.URLParam(r, "faceID")
	if faceID == "" {
		respondError(w, http.StatusBadRequest, "invalid face ID")
		return
	}

	ok, err := h.faces.Deactivate(r.Context(), faceID)
	if err != nil {
		slog.Error("deactivate face failed", "error", err, "face_id", faceID)
		respondError(w, http.StatusInternalServerError, "failed to deactivate face")
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "face not found or already inactive")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"face_id": faceID,
	})
}
