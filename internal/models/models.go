// Package models defines the core domain types for huskyd.
package models

import (
	"fmt"
	"time"
)

// TaskStatus represents the current state of a scheduled task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusFired     TaskStatus = "fired"
	TaskStatusExpired   TaskStatus = "expired"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Handler is the closed set of actions a task can run when it fires.
type Handler string

const (
	// HandlerTakePhoto captures a photo to the device's internal memory.
	HandlerTakePhoto Handler = "take_photo"
)

// ParseHandler validates a free-text handler name at the input boundary.
func ParseHandler(s string) (Handler, error) {
	switch Handler(s) {
	case HandlerTakePhoto:
		return HandlerTakePhoto, nil
	default:
		return "", fmt.Errorf("unsupported handler %q", s)
	}
}

// TimeNow is the literal time value meaning "fire on the next tick".
const TimeNow = "now"

// TaskSpec is the caller-supplied description of a task, as it arrives
// from the task_scheduler tool. All fields are raw strings; validation
// and parsing happen in the store.
type TaskSpec struct {
	// Trigger is a recognized-label name to match, exactly as the sensor
	// emits it. Casing is preserved; "kEyboArd" stays "kEyboArd".
	Trigger string `json:"trigger,omitempty"`
	// Time is either an RFC3339 timestamp or the literal "now".
	Time string `json:"time,omitempty"`
	// ExpiresAt is an optional RFC3339 deadline after which a still-pending
	// task transitions to expired instead of waiting forever.
	ExpiresAt string `json:"expires_at,omitempty"`
	// Handler names the action to run. Required.
	Handler string `json:"handler"`
}

// Task is the unit of scheduled work owned by the task store.
type Task struct {
	ID        string     `json:"id"`
	Trigger   string     `json:"trigger,omitempty"`
	Time      string     `json:"time,omitempty"`
	DueAt     *time.Time `json:"due_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Handler   Handler    `json:"handler"`
	Status    TaskStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	FiredAt   *time.Time `json:"fired_at,omitempty"`
}

// HasTrigger reports whether the task waits on a recognition label.
func (t *Task) HasTrigger() bool { return t.Trigger != "" }

// HasTime reports whether the task carries a time condition.
func (t *Task) HasTime() bool { return t.DueAt != nil }

// DetectedObject is one recognized object in a sensor snapshot.
type DetectedObject struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"conf"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"w"`
	Height     int     `json:"h"`
}

// Recognition is the set of labels and objects the vision sensor reports
// as of one poll.
type Recognition struct {
	Algorithm  string           `json:"algorithm"`
	Objects    []DetectedObject `json:"objects"`
	CapturedAt time.Time        `json:"captured_at"`
}

// Labels returns the label strings present in the snapshot, in report order.
func (r Recognition) Labels() []string {
	labels := make([]string, 0, len(r.Objects))
	for _, o := range r.Objects {
		labels = append(labels, o.Label)
	}
	return labels
}

// CaptureResult is the outcome of a photo capture on the device.
type CaptureResult struct {
	Saved      bool      `json:"saved"`
	ImageRef   string    `json:"image_ref,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}
