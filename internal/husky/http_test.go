package husky

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestDevice(t *testing.T, handler http.Handler) *HTTPDevice {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPDevice(srv.URL, 2*time.Second)
}

func TestRecognition(t *testing.T) {
	d := newTestDevice(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/recognition" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"algorithm": "ObjectRecognition",
			"objects": []map[string]interface{}{
				{"label": "tiger", "conf": 0.97, "x": 12, "y": 40, "w": 120, "h": 88},
				{"label": "kEyboArd", "conf": 0.55},
			},
		})
	}))

	snap, err := d.Recognition(context.Background())
	if err != nil {
		t.Fatalf("Recognition failed: %v", err)
	}
	labels := snap.Labels()
	if len(labels) != 2 || labels[0] != "tiger" || labels[1] != "kEyboArd" {
		t.Errorf("Unexpected labels: %v", labels)
	}
	if snap.CapturedAt.IsZero() {
		t.Error("CapturedAt not defaulted")
	}
}

func TestRecognitionUnavailable(t *testing.T) {
	d := newTestDevice(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "sensor busy", http.StatusServiceUnavailable)
	}))

	_, err := d.Recognition(context.Background())
	if !errors.Is(err, ErrRecognitionUnavailable) {
		t.Fatalf("Expected ErrRecognitionUnavailable, got %v", err)
	}
}

func TestTakePhoto(t *testing.T) {
	d := newTestDevice(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/photo" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"saved": true, "image_ref": "internal:42"})
	}))

	result, err := d.TakePhoto(context.Background())
	if err != nil {
		t.Fatalf("TakePhoto failed: %v", err)
	}
	if !result.Saved || result.ImageRef != "internal:42" {
		t.Errorf("Unexpected capture result: %+v", result)
	}
}

func TestSwitchAlgorithm(t *testing.T) {
	var gotName string
	d := newTestDevice(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/api/algorithm" {
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			gotName = body["algorithm"]
			if gotName == "NoSuchAlgorithm" {
				http.NotFound(w, r)
				return
			}
			w.Write([]byte(`{}`))
			return
		}
		http.NotFound(w, r)
	}))

	if err := d.SwitchAlgorithm(context.Background(), "FaceRecognition"); err != nil {
		t.Fatalf("SwitchAlgorithm failed: %v", err)
	}
	if gotName != "FaceRecognition" {
		t.Errorf("Device received algorithm %q", gotName)
	}

	err := d.SwitchAlgorithm(context.Background(), "NoSuchAlgorithm")
	if !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("Expected ErrUnknownAlgorithm, got %v", err)
	}
}

func TestNotFoundStaysEndpointSpecific(t *testing.T) {
	// A device answering 404 everywhere (e.g. stale firmware paths) must
	// not surface "unknown algorithm" from unrelated endpoints.
	d := newTestDevice(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	ctx := context.Background()

	_, err := d.Recognition(ctx)
	if !errors.Is(err, ErrRecognitionUnavailable) {
		t.Errorf("Recognition: expected ErrRecognitionUnavailable, got %v", err)
	}
	if errors.Is(err, ErrUnknownAlgorithm) {
		t.Error("Recognition 404 mapped to ErrUnknownAlgorithm")
	}

	_, err = d.TakePhoto(ctx)
	if err == nil || errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("TakePhoto: expected a plain device error, got %v", err)
	}

	if err := d.SwitchAlgorithm(ctx, "NoSuchAlgorithm"); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("SwitchAlgorithm: expected ErrUnknownAlgorithm, got %v", err)
	}
}

func TestDeviceTimeout(t *testing.T) {
	d := newTestDevice(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := d.Recognition(ctx); err == nil {
		t.Fatal("Expected timeout error")
	}
}
