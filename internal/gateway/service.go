// Package gateway exposes the HuskyLens2 and the task scheduler as MCP
// tools over HTTP.
package gateway

import (
	"context"
	"errors"

	"github.com/openhusky/huskyd/internal/audit"
	"github.com/openhusky/huskyd/internal/husky"
	"github.com/openhusky/huskyd/internal/models"
	"github.com/openhusky/huskyd/internal/store"
)

// Service is the business logic behind the MCP tools.
type Service struct {
	store    *store.Store
	device   husky.Device
	recorder *audit.Recorder
}

// NewService creates the gateway service.
func NewService(s *store.Store, device husky.Device, rec *audit.Recorder) *Service {
	return &Service{store: s, device: device, recorder: rec}
}

// --- Sensor Operations ---

// GetRecognition returns the sensor's current snapshot.
func (s *Service) GetRecognition(ctx context.Context) (models.Recognition, error) {
	return s.device.Recognition(ctx)
}

// TakePhoto captures a photo on the device.
func (s *Service) TakePhoto(ctx context.Context) (models.CaptureResult, error) {
	result, err := s.device.TakePhoto(ctx)
	if err != nil {
		return models.CaptureResult{}, err
	}
	s.recorder.Record("photo.capture", "", result)
	return result, nil
}

// ListAlgorithms lists the device's recognition algorithms.
func (s *Service) ListAlgorithms(ctx context.Context) ([]string, error) {
	return s.device.Algorithms(ctx)
}

// CurrentAlgorithm returns the active recognition algorithm.
func (s *Service) CurrentAlgorithm(ctx context.Context) (string, error) {
	return s.device.CurrentAlgorithm(ctx)
}

// SwitchAlgorithm activates a recognition algorithm.
func (s *Service) SwitchAlgorithm(ctx context.Context, name string) error {
	if err := s.device.SwitchAlgorithm(ctx, name); err != nil {
		return err
	}
	s.recorder.Record("algorithm.switch", "", map[string]string{"algorithm": name})
	return nil
}

// --- Task Operations ---

// TaskResult is the per-task outcome of a create call. Specs are
// processed in order; a rejected spec does not block the rest.
type TaskResult struct {
	ID       string `json:"id,omitempty"`
	Accepted bool   `json:"accepted"`
	Error    string `json:"error,omitempty"`
}

// CreateTasks validates and stores each spec in order.
func (s *Service) CreateTasks(specs []models.TaskSpec) []TaskResult {
	results := make([]TaskResult, 0, len(specs))
	for _, spec := range specs {
		task, err := s.store.AddTask(spec)
		if err != nil {
			results = append(results, TaskResult{Accepted: false, Error: err.Error()})
			continue
		}
		s.recorder.Record("task.create", task.ID, spec)
		results = append(results, TaskResult{ID: task.ID, Accepted: true})
	}
	return results
}

// ListTasks returns all tasks in creation order.
func (s *Service) ListTasks() ([]models.Task, error) {
	return s.store.ListTasks("")
}

// CancelTask cancels a pending task.
func (s *Service) CancelTask(id string) error {
	if err := s.store.CancelTask(id); err != nil {
		return err
	}
	s.recorder.Record("task.cancel", id, nil)
	return nil
}

// IsNotFound reports whether err means the task does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrTaskNotFound)
}
