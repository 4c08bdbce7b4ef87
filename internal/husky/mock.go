package husky

import (
	"context"
	"sync"
	"time"

	"github.com/openhusky/huskyd/internal/models"
)

// MockDevice is an in-memory Device for tests and demo mode. The snapshot
// and error results can be swapped at any time; all methods are safe for
// concurrent use.
type MockDevice struct {
	mu sync.Mutex

	snapshot  models.Recognition
	snapErr   error
	photoErr  error
	current   string
	available []string

	PhotoCount int
	PollCount  int
}

// NewMockDevice creates a mock with a plausible algorithm set.
func NewMockDevice() *MockDevice {
	return &MockDevice{
		current: "ObjectRecognition",
		available: []string{
			"FaceRecognition",
			"ObjectTracking",
			"ObjectRecognition",
			"LineTracking",
			"ColorRecognition",
			"TagRecognition",
			"ObjectClassification",
		},
	}
}

// SetSnapshot replaces the snapshot returned by Recognition.
func (m *MockDevice) SetSnapshot(snap models.Recognition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = snap
	m.snapErr = nil
}

// SetLabels is a shorthand for SetSnapshot with bare labels.
func (m *MockDevice) SetLabels(labels ...string) {
	snap := models.Recognition{Algorithm: "ObjectRecognition", CapturedAt: time.Now().UTC()}
	for _, l := range labels {
		snap.Objects = append(snap.Objects, models.DetectedObject{Label: l, Confidence: 0.92})
	}
	m.SetSnapshot(snap)
}

// FailRecognition makes Recognition return err until the next SetSnapshot.
func (m *MockDevice) FailRecognition(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapErr = err
}

// FailPhoto makes TakePhoto return err.
func (m *MockDevice) FailPhoto(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photoErr = err
}

func (m *MockDevice) Recognition(ctx context.Context) (models.Recognition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PollCount++
	if m.snapErr != nil {
		return models.Recognition{}, m.snapErr
	}
	return m.snapshot, nil
}

func (m *MockDevice) TakePhoto(ctx context.Context) (models.CaptureResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.photoErr != nil {
		return models.CaptureResult{}, m.photoErr
	}
	m.PhotoCount++
	return models.CaptureResult{Saved: true, ImageRef: "internal:latest", CapturedAt: time.Now().UTC()}, nil
}

func (m *MockDevice) Algorithms(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.available...), nil
}

func (m *MockDevice) CurrentAlgorithm(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, nil
}

func (m *MockDevice) SwitchAlgorithm(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.available {
		if a == name {
			m.current = name
			return nil
		}
	}
	return ErrUnknownAlgorithm
}

// Photos returns how many captures succeeded.
func (m *MockDevice) Photos() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PhotoCount
}
