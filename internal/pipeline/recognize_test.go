package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/hotelops/faceattend/internal/database"
	"github.com/hotelops/faceattend/internal/database/mock"
	"github.com/hotelops/faceattend/internal/detector"
	"github.com/hotelops/faceattend/internal/events"
)

type recognizerFixture struct {
	faces     *mock.FaceStore
	logs      *mock.AttendanceStore
	publisher *events.MemoryPublisher
}

func newTestRecognizer(t *testing.T, det *fakeDetector, threshold float64) (*Recognizer, *recognizerFixture) {
	t.Helper()
	f := &recognizerFixture{
		faces:     mock.NewFaceStore(),
		logs:      mock.NewAttendanceStore(),
		publisher: events.NewMemoryPublisher(),
	}
	return NewRecognizer(det, f.faces, f.logs, f.publisher, threshold, Timeouts{}), f
}

func (f *recognizerFixture) enroll(t *testing.T, userID int64, embedding []float32) string {
	t.Helper()
	rec := &database.FaceRecord{UserID: userID, Embedding: embedding}
	faceID, err := f.faces.Insert(context.Background(), rec)
	if err != nil {
		t.Fatalf("insert face: %v", err)
	}
	return faceID
}

func (f *recognizerFixture) assertOneLog(t *testing.T) database.AttendanceRecord {
	t.Helper()
	logs := f.logs.Logs()
	if len(logs) != 1 {
		t.Fatalf("expected exactly one attendance log row, got %d", len(logs))
	}
	return logs[0]
}

func TestRecognizeSuccess(t *testing.T) {
	emb := unitEmbedding(0)
	r, f := newTestRecognizer(t, singleFace(emb), 0.7)
	faceID := f.enroll(t, 42, emb)

	res, err := r.Recognize(context.Background(), RecognizeRequest{
		ImageData: testImage(t),
		EventType: database.EventCheckIn,
		Location:  "lobby",
	})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if !res.Recognized() {
		t.Fatalf("expected recognition, got rejection %+v", res.Rejection)
	}
	if res.UserID != 42 || res.FaceID != faceID {
		t.Errorf("matched %d/%s, want 42/%s", res.UserID, res.FaceID, faceID)
	}
	if res.Confidence < 0.999 {
		t.Errorf("self-match confidence %v, want ~1.0", res.Confidence)
	}
	if res.LogID == "" {
		t.Error("log ID not returned")
	}

	log := f.assertOneLog(t)
	if log.EventType != database.EventCheckIn {
		t.Errorf("log event type %s, want CHECK_IN", log.EventType)
	}
	if log.UserID == nil || *log.UserID != 42 {
		t.Errorf("log user %v, want 42", log.UserID)
	}

	published := f.publisher.Events()
	if len(published) != 1 {
		t.Fatalf("expected one published event, got %d", len(published))
	}
	if published[0].UserID != 42 || published[0].LogID != res.LogID {
		t.Errorf("unexpected event %+v", published[0])
	}
}

func TestRecognizeThresholdIsInclusive(t *testing.T) {
	// A self-match on a unit basis vector is exactly 1.0, so threshold 1.0
	// must still pass.
	emb := unitEmbedding(0)
	r, f := newTestRecognizer(t, singleFace(emb), 1.0)
	f.enroll(t, 7, emb)

	res, err := r.Recognize(context.Background(), RecognizeRequest{ImageData: testImage(t)})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if !res.Recognized() {
		t.Fatalf("similarity equal to threshold must match, got %+v", res.Rejection)
	}
}

func TestRecognizeBelowThreshold(t *testing.T) {
	r, f := newTestRecognizer(t, singleFace(unitEmbedding(0)), 0.7)
	f.enroll(t, 7, unitEmbedding(1)) // orthogonal, similarity 0

	res, err := r.Recognize(context.Background(), RecognizeRequest{ImageData: testImage(t)})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if res.Recognized() {
		t.Fatal("expected rejection for similarity below threshold")
	}
	if res.Rejection.Reason != ReasonNoMatch {
		t.Errorf("reason %s, want %s", res.Rejection.Reason, ReasonNoMatch)
	}

	log := f.assertOneLog(t)
	if log.EventType != database.EventRecognitionFailed {
		t.Errorf("log event type %s, want RECOGNITION_FAILED", log.EventType)
	}
	if log.Metadata["reason"] != string(ReasonNoMatch) {
		t.Errorf("log reason %v, want %s", log.Metadata["reason"], ReasonNoMatch)
	}
	if len(f.publisher.Events()) != 0 {
		t.Error("rejected attempt must not publish an event")
	}
}

func TestRecognizeEmptyStore(t *testing.T) {
	r, f := newTestRecognizer(t, singleFace(unitEmbedding(0)), 0.7)

	res, err := r.Recognize(context.Background(), RecognizeRequest{ImageData: testImage(t)})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if res.Recognized() || res.Rejection.Reason != ReasonNoMatch {
		t.Fatalf("expected no_match rejection, got %+v", res)
	}
	if res.Confidence != 0 {
		t.Errorf("confidence %v with no candidates, want 0", res.Confidence)
	}
	f.assertOneLog(t)
}

func TestRecognizeNoFaceDetected(t *testing.T) {
	r, f := newTestRecognizer(t, &fakeDetector{}, 0.7)

	res, err := r.Recognize(context.Background(), RecognizeRequest{ImageData: testImage(t)})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if res.Recognized() || res.Rejection.Reason != ReasonNoFaceDetected {
		t.Fatalf("expected no_face_detected rejection, got %+v", res)
	}

	log := f.assertOneLog(t)
	if log.Metadata["reason"] != string(ReasonNoFaceDetected) {
		t.Errorf("log reason %v, want %s", log.Metadata["reason"], ReasonNoFaceDetected)
	}
	if log.UserID != nil {
		t.Error("failed attempt must log no user")
	}
}

func TestRecognizeMultipleFaces(t *testing.T) {
	det := &fakeDetector{detections: []detector.Detection{
		{BBox: [4]int{0, 0, 32, 32}, Embedding: unitEmbedding(0), Score: 0.9},
		{BBox: [4]int{32, 0, 64, 32}, Embedding: unitEmbedding(1), Score: 0.8},
	}}
	r, f := newTestRecognizer(t, det, 0.7)

	res, err := r.Recognize(context.Background(), RecognizeRequest{ImageData: testImage(t)})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if res.Recognized() || res.Rejection.Reason != ReasonMultipleFaces {
		t.Fatalf("expected multiple_faces rejection, got %+v", res)
	}

	log := f.assertOneLog(t)
	if log.Metadata["count"] != 2 {
		t.Errorf("log count %v, want 2", log.Metadata["count"])
	}
}

func TestRecognizeInvalidImage(t *testing.T) {
	r, f := newTestRecognizer(t, singleFace(unitEmbedding(0)), 0.7)

	res, err := r.Recognize(context.Background(), RecognizeRequest{ImageData: []byte("garbage")})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if res.Recognized() || res.Rejection.Reason != ReasonInvalidImage {
		t.Fatalf("expected invalid_image rejection, got %+v", res)
	}
	f.assertOneLog(t)
}

func TestRecognizeDetectorErrorPropagates(t *testing.T) {
	r, f := newTestRecognizer(t, &fakeDetector{err: errors.New("model server down")}, 0.7)

	if _, err := r.Recognize(context.Background(), RecognizeRequest{ImageData: testImage(t)}); err == nil {
		t.Fatal("expected infrastructure error from detector")
	}

	// The failed attempt is still audited, best-effort.
	log := f.assertOneLog(t)
	if log.Metadata["reason"] != "infrastructure_error" {
		t.Errorf("log reason %v, want infrastructure_error", log.Metadata["reason"])
	}
}

func TestRecognizeStoreErrorPropagates(t *testing.T) {
	r, f := newTestRecognizer(t, singleFace(unitEmbedding(0)), 0.7)
	f.faces.NearestErr = errors.New("connection refused")

	if _, err := r.Recognize(context.Background(), RecognizeRequest{ImageData: testImage(t)}); err == nil {
		t.Fatal("expected infrastructure error from store")
	}
	f.assertOneLog(t)
}

func TestRecognizeLogErrorOnSuccessPath(t *testing.T) {
	emb := unitEmbedding(0)
	r, f := newTestRecognizer(t, singleFace(emb), 0.7)
	f.enroll(t, 42, emb)
	f.logs.AppendErr = errors.New("disk full")

	if _, err := r.Recognize(context.Background(), RecognizeRequest{ImageData: testImage(t)}); err == nil {
		t.Fatal("expected error when the attendance log cannot be written")
	}
	if len(f.publisher.Events()) != 0 {
		t.Error("no event may be published without a committed log row")
	}
}

func TestRecognizePublishFailureDoesNotFailRequest(t *testing.T) {
	emb := unitEmbedding(0)
	r, f := newTestRecognizer(t, singleFace(emb), 0.7)
	f.enroll(t, 42, emb)
	f.publisher.PublishErr = errors.New("broker down")

	res, err := r.Recognize(context.Background(), RecognizeRequest{ImageData: testImage(t)})
	if err != nil {
		t.Fatalf("publish failure must not fail the request: %v", err)
	}
	if !res.Recognized() {
		t.Fatalf("expected recognition, got %+v", res.Rejection)
	}
	f.assertOneLog(t)
}

func TestRecognizeDeactivatedFaceNeverMatches(t *testing.T) {
	emb := unitEmbedding(0)
	r, f := newTestRecognizer(t, singleFace(emb), 0.7)
	faceID := f.enroll(t, 42, emb)

	if ok, err := f.faces.Deactivate(context.Background(), faceID); err != nil || !ok {
		t.Fatalf("Deactivate: ok=%v err=%v", ok, err)
	}

	res, err := r.Recognize(context.Background(), RecognizeRequest{ImageData: testImage(t)})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if res.Recognized() {
		t.Fatal("deactivated face must never match")
	}
}

func TestRecognizeDefaultsToCheckIn(t *testing.T) {
	emb := unitEmbedding(0)
	r, f := newTestRecognizer(t, singleFace(emb), 0.7)
	f.enroll(t, 42, emb)

	res, err := r.Recognize(context.Background(), RecognizeRequest{ImageData: testImage(t)})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if res.EventType != database.EventCheckIn {
		t.Errorf("event type %s, want CHECK_IN", res.EventType)
	}
}

func TestRecognizeNearestIsIdempotent(t *testing.T) {
	emb := unitEmbedding(0)
	r, f := newTestRecognizer(t, singleFace(emb), 0.7)
	f.enroll(t, 42, emb)
	f.enroll(t, 43, emb) // identical embedding, later insertion

	first, err := r.Recognize(context.Background(), RecognizeRequest{ImageData: testImage(t)})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	second, err := r.Recognize(context.Background(), RecognizeRequest{ImageData: testImage(t)})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if first.FaceID != second.FaceID || first.Confidence != second.Confidence {
		t.Errorf("nearest lookup not stable: %s/%v vs %s/%v",
			first.FaceID, first.Confidence, second.FaceID, second.Confidence)
	}
	if first.UserID != 42 {
		t.Errorf("tie resolved to user %d, want earliest enrolled 42", first.UserID)
	}
}
