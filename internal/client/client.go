// Package client is the MCP client side of the gateway: the chat TUI and
// the task CLI talk to huskyd through it.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/openhusky/huskyd/internal/models"
)

// Client holds a live MCP session against a huskyd gateway.
type Client struct {
	session *mcp.ClientSession
}

// Connect dials the gateway's streamable HTTP endpoint.
func Connect(ctx context.Context, serverURL string) (*Client, error) {
	transport := &mcp.StreamableClientTransport{
		Endpoint: serverURL,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}

	c := mcp.NewClient(&mcp.Implementation{
		Name:    "huskyd-client",
		Version: "0.1.0",
	}, &mcp.ClientOptions{
		KeepAlive: 30 * time.Second,
	})

	session, err := c.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to gateway: %w", err)
	}
	return &Client{session: session}, nil
}

// Close shuts the session down.
func (c *Client) Close() error {
	return c.session.Close()
}

// CallTool invokes a gateway tool and returns the text content of the
// result. A result flagged as an error becomes a Go error.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("call %s: %w", name, err)
	}

	text := extractText(result)
	if result.IsError {
		return "", fmt.Errorf("%s: %s", name, text)
	}
	return text, nil
}

// callToolJSON invokes a tool and decodes its text content into out.
func (c *Client) callToolJSON(ctx context.Context, name string, args map[string]any, out any) error {
	text, err := c.CallTool(ctx, name, args)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("decode %s result: %w", name, err)
	}
	return nil
}

func extractText(result *mcp.CallToolResult) string {
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// --- Typed wrappers over the gateway tools ---

// GetRecognition reads the camera's current snapshot.
func (c *Client) GetRecognition(ctx context.Context) (models.Recognition, error) {
	var snap models.Recognition
	err := c.callToolJSON(ctx, "get_recognition_result", map[string]any{}, &snap)
	return snap, err
}

// TakePhoto captures a photo on the camera.
func (c *Client) TakePhoto(ctx context.Context) (models.CaptureResult, error) {
	var result models.CaptureResult
	err := c.callToolJSON(ctx, "multimedia_control", map[string]any{
		"operation": "take_photo",
	}, &result)
	return result, err
}

// Algorithms lists the camera's recognition algorithms.
func (c *Client) Algorithms(ctx context.Context) ([]string, error) {
	var out struct {
		Algorithms []string `json:"algorithms"`
	}
	err := c.callToolJSON(ctx, "manage_applications", map[string]any{
		"operation": "list",
	}, &out)
	return out.Algorithms, err
}

// CurrentAlgorithm returns the active recognition algorithm.
func (c *Client) CurrentAlgorithm(ctx context.Context) (string, error) {
	var out struct {
		Current string `json:"current"`
	}
	err := c.callToolJSON(ctx, "manage_applications", map[string]any{
		"operation": "current",
	}, &out)
	return out.Current, err
}

// SwitchAlgorithm activates a recognition algorithm.
func (c *Client) SwitchAlgorithm(ctx context.Context, name string) error {
	var out struct {
		Current string `json:"current"`
	}
	return c.callToolJSON(ctx, "manage_applications", map[string]any{
		"operation": "switch",
		"algorithm": name,
	}, &out)
}

// TaskResult mirrors the gateway's per-task create outcome.
type TaskResult struct {
	ID       string `json:"id,omitempty"`
	Accepted bool   `json:"accepted"`
	Error    string `json:"error,omitempty"`
}

// CreateTasks submits task specs for scheduling.
func (c *Client) CreateTasks(ctx context.Context, specs []models.TaskSpec) ([]TaskResult, error) {
	tasks := make([]map[string]any, 0, len(specs))
	for _, spec := range specs {
		task := map[string]any{"handler": spec.Handler}
		if spec.Trigger != "" {
			task["trigger"] = spec.Trigger
		}
		if spec.Time != "" {
			task["time"] = spec.Time
		}
		if spec.ExpiresAt != "" {
			task["expires_at"] = spec.ExpiresAt
		}
		tasks = append(tasks, task)
	}

	var out struct {
		Results []TaskResult `json:"results"`
	}
	err := c.callToolJSON(ctx, "task_scheduler", map[string]any{
		"operation": "create",
		"tasks":     tasks,
	}, &out)
	return out.Results, err
}

// ListTasks returns all tasks in creation order.
func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	var out struct {
		Tasks []models.Task `json:"tasks"`
	}
	err := c.callToolJSON(ctx, "task_scheduler", map[string]any{
		"operation": "list",
	}, &out)
	return out.Tasks, err
}

// CancelTask cancels a pending task.
func (c *Client) CancelTask(ctx context.Context, id string) error {
	var out struct {
		Cancelled string `json:"cancelled"`
	}
	return c.callToolJSON(ctx, "task_scheduler", map[string]any{
		"operation": "cancel",
		"task_id":   id,
	}, &out)
}
