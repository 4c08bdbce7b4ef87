// Package dispatch maps task handlers to device actions.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openhusky/huskyd/internal/husky"
	"github.com/openhusky/huskyd/internal/models"
)

// ErrUnsupportedHandler indicates a handler name outside the closed set.
// The store rejects such tasks at creation, so hitting this at dispatch
// time is a programming error; it is surfaced rather than ignored.
var ErrUnsupportedHandler = errors.New("unsupported handler")

// ErrHandlerExecution indicates the external call behind a handler failed.
// The task stays pending and is retried on the next satisfying tick.
var ErrHandlerExecution = errors.New("handler execution failed")

// Result is what a handler produced, serialized into the audit trail and
// tool responses.
type Result struct {
	Handler models.Handler `json:"handler"`
	Detail  interface{}    `json:"detail,omitempty"`
}

// JSON renders the result for logs and tool output.
func (r Result) JSON() string {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"handler":%q}`, r.Handler)
	}
	return string(data)
}

// Dispatcher invokes the action behind a task's handler.
type Dispatcher interface {
	Dispatch(ctx context.Context, handler models.Handler, task *models.Task) (*Result, error)
}

// DeviceDispatcher executes handlers against the vision sensor.
type DeviceDispatcher struct {
	device husky.Device
}

// New creates a dispatcher backed by the given device.
func New(device husky.Device) *DeviceDispatcher {
	return &DeviceDispatcher{device: device}
}

// Dispatch runs the handler and returns its result. Failures of the
// underlying device call are wrapped in ErrHandlerExecution.
func (d *DeviceDispatcher) Dispatch(ctx context.Context, handler models.Handler, task *models.Task) (*Result, error) {
	switch handler {
	case models.HandlerTakePhoto:
		capture, err := d.device.TakePhoto(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: take_photo: %v", ErrHandlerExecution, err)
		}
		return &Result{Handler: handler, Detail: capture}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedHandler, handler)
	}
}
