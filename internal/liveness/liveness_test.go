package liveness

import (
	"context"
	"image"
	"testing"
)

func TestStubAlwaysLive(t *testing.T) {
	d := NewStub()
	got, err := d.Detect(context.Background(), image.NewGray(image.Rect(0, 0, 8, 8)))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !got.IsLive {
		t.Error("stub should always report live")
	}
	if got.Score != 0.9 {
		t.Errorf("expected score 0.9, got %v", got.Score)
	}
}

func TestStubHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewStub().Detect(ctx, image.NewGray(image.Rect(0, 0, 8, 8))); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
