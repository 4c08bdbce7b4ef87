package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/openhusky/huskyd/internal/husky"
	"github.com/openhusky/huskyd/internal/models"
)

func TestDispatchTakePhoto(t *testing.T) {
	device := husky.NewMockDevice()
	d := New(device)

	task := &models.Task{ID: "t1", Handler: models.HandlerTakePhoto}
	result, err := d.Dispatch(context.Background(), models.HandlerTakePhoto, task)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if result.Handler != models.HandlerTakePhoto {
		t.Errorf("Unexpected handler in result: %s", result.Handler)
	}
	if device.Photos() != 1 {
		t.Errorf("Expected 1 photo, got %d", device.Photos())
	}
}

func TestDispatchWrapsDeviceFailure(t *testing.T) {
	device := husky.NewMockDevice()
	device.FailPhoto(errors.New("shutter jammed"))
	d := New(device)

	_, err := d.Dispatch(context.Background(), models.HandlerTakePhoto, &models.Task{ID: "t1"})
	if !errors.Is(err, ErrHandlerExecution) {
		t.Fatalf("Expected ErrHandlerExecution, got %v", err)
	}
	if device.Photos() != 0 {
		t.Errorf("Expected 0 photos, got %d", device.Photos())
	}
}

func TestDispatchUnsupportedHandler(t *testing.T) {
	d := New(husky.NewMockDevice())

	_, err := d.Dispatch(context.Background(), models.Handler("send_email"), &models.Task{ID: "t1"})
	if !errors.Is(err, ErrUnsupportedHandler) {
		t.Fatalf("Expected ErrUnsupportedHandler, got %v", err)
	}
}
