package husky

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openhusky/huskyd/internal/models"
)

// DefaultTimeout bounds every device call when the caller's context has
// no deadline of its own.
const DefaultTimeout = 5 * time.Second

// HTTPDevice talks to a HuskyLens2 over its HTTP bridge.
type HTTPDevice struct {
	baseURL string
	client  *http.Client
}

// NewHTTPDevice creates a device client for the given base URL.
func NewHTTPDevice(baseURL string, timeout time.Duration) *HTTPDevice {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPDevice{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Recognition returns the current recognition snapshot.
func (d *HTTPDevice) Recognition(ctx context.Context) (models.Recognition, error) {
	var snap models.Recognition
	if err := d.getJSON(ctx, "/api/recognition", &snap); err != nil {
		return models.Recognition{}, fmt.Errorf("%w: %v", ErrRecognitionUnavailable, err)
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now().UTC()
	}
	return snap, nil
}

// TakePhoto triggers a capture to the device's internal memory.
func (d *HTTPDevice) TakePhoto(ctx context.Context) (models.CaptureResult, error) {
	var result models.CaptureResult
	if err := d.postJSON(ctx, "/api/photo", nil, &result); err != nil {
		return models.CaptureResult{}, fmt.Errorf("take photo: %w", err)
	}
	if result.CapturedAt.IsZero() {
		result.CapturedAt = time.Now().UTC()
	}
	return result, nil
}

// Algorithms lists the recognition algorithms the device supports.
func (d *HTTPDevice) Algorithms(ctx context.Context) ([]string, error) {
	var resp struct {
		Algorithms []string `json:"algorithms"`
	}
	if err := d.getJSON(ctx, "/api/algorithms", &resp); err != nil {
		return nil, fmt.Errorf("list algorithms: %w", err)
	}
	return resp.Algorithms, nil
}

// CurrentAlgorithm returns the active recognition algorithm.
func (d *HTTPDevice) CurrentAlgorithm(ctx context.Context) (string, error) {
	var resp struct {
		Algorithm string `json:"algorithm"`
	}
	if err := d.getJSON(ctx, "/api/algorithm", &resp); err != nil {
		return "", fmt.Errorf("current algorithm: %w", err)
	}
	return resp.Algorithm, nil
}

// SwitchAlgorithm activates a recognition algorithm by name. The device
// answers 404 for names outside its algorithm set.
func (d *HTTPDevice) SwitchAlgorithm(ctx context.Context, name string) error {
	body := map[string]string{"algorithm": name}
	if err := d.postJSON(ctx, "/api/algorithm", body, nil); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return fmt.Errorf("switch algorithm %q: %w", name, ErrUnknownAlgorithm)
		}
		return fmt.Errorf("switch algorithm %q: %w", name, err)
	}
	return nil
}

func (d *HTTPDevice) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return err
	}
	return d.do(req, out)
}

func (d *HTTPDevice) postJSON(ctx context.Context, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return d.do(req, out)
}

// statusError carries the device's HTTP status so callers can map
// endpoint-specific codes without string matching.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("device error (%d): %s", e.code, e.body)
}

func (d *HTTPDevice) do(req *http.Request, out interface{}) error {
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return &statusError{code: resp.StatusCode, body: string(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode device response: %w", err)
	}
	return nil
}
