// Package audit records state-mutating actions for later inspection.
package audit

import (
	"encoding/json"
	"log"

	"github.com/openhusky/huskyd/internal/store"
)

// Recorder writes audit events into the store. A nil Recorder is usable
// and records nothing, so callers never need to guard.
type Recorder struct {
	store *store.Store
}

// NewRecorder creates a recorder backed by the given store.
func NewRecorder(s *store.Store) *Recorder {
	return &Recorder{store: s}
}

// Record writes one event. Details are JSON-encoded; failures are logged
// rather than propagated because an audit miss must never fail the
// operation it describes.
func (r *Recorder) Record(action, taskID string, details interface{}) {
	if r == nil || r.store == nil {
		return
	}

	encoded := ""
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			encoded = "encode_error"
		} else {
			encoded = string(data)
		}
	}

	if err := r.store.WriteEvent(action, taskID, encoded); err != nil {
		log.Printf("audit: failed to record %s: %v", action, err)
	}
}
