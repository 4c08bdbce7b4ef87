package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/openhusky/huskyd/internal/models"
)

// taskSchedulerInput is the payload of the task_scheduler tool.
type taskSchedulerInput struct {
	Operation string            `json:"operation" jsonschema:"one of create, list, cancel"`
	Tasks     []models.TaskSpec `json:"tasks,omitempty" jsonschema:"task specs for create"`
	TaskID    string            `json:"task_id,omitempty" jsonschema:"task id for cancel"`
}

// recognitionInput accepts an optional operation for compatibility with
// clients that send {"operation": "get_result"}.
type recognitionInput struct {
	Operation string `json:"operation,omitempty" jsonschema:"optional, only get_result is recognized"`
}

// applicationsInput is the payload of the manage_applications tool.
type applicationsInput struct {
	Operation string `json:"operation" jsonschema:"one of list, current, switch"`
	Algorithm string `json:"algorithm,omitempty" jsonschema:"algorithm name for switch"`
}

// multimediaInput is the payload of the multimedia_control tool.
type multimediaInput struct {
	Operation string `json:"operation" jsonschema:"one of take_photo"`
}

// RegisterTools attaches the gateway's tools to an MCP server.
func RegisterTools(server *mcp.Server, svc *Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "task_scheduler",
		Title:       "Task Scheduler",
		Description: "Create, list or cancel scheduled tasks. Tasks fire once when their trigger label matches or their time arrives.",
	}, svc.taskScheduler)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_recognition_result",
		Title:       "Get Recognition Result",
		Description: "Read the camera's current recognition snapshot: algorithm and detected objects.",
	}, svc.getRecognitionResult)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "manage_applications",
		Title:       "Manage Applications",
		Description: "List, query or switch the camera's recognition algorithm.",
	}, svc.manageApplications)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "multimedia_control",
		Title:       "Multimedia Control",
		Description: "Control the camera's media functions, such as taking a photo.",
	}, svc.multimediaControl)
}

func (s *Service) taskScheduler(ctx context.Context, req *mcp.CallToolRequest, input taskSchedulerInput) (*mcp.CallToolResult, any, error) {
	switch input.Operation {
	case "create":
		if len(input.Tasks) == 0 {
			return errorResult("create requires at least one task"), nil, nil
		}
		results := s.CreateTasks(input.Tasks)
		return jsonResult(map[string]any{"results": results})
	case "list":
		tasks, err := s.ListTasks()
		if err != nil {
			return errorResult(fmt.Sprintf("list tasks: %v", err)), nil, nil
		}
		return jsonResult(map[string]any{"tasks": tasks})
	case "cancel":
		if input.TaskID == "" {
			return errorResult("cancel requires task_id"), nil, nil
		}
		if err := s.CancelTask(input.TaskID); err != nil {
			return errorResult(fmt.Sprintf("cancel task: %v", err)), nil, nil
		}
		return jsonResult(map[string]any{"cancelled": input.TaskID})
	default:
		return errorResult(fmt.Sprintf("unknown operation %q", input.Operation)), nil, nil
	}
}

func (s *Service) getRecognitionResult(ctx context.Context, req *mcp.CallToolRequest, input recognitionInput) (*mcp.CallToolResult, any, error) {
	snap, err := s.GetRecognition(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("recognition: %v", err)), nil, nil
	}
	return jsonResult(snap)
}

func (s *Service) manageApplications(ctx context.Context, req *mcp.CallToolRequest, input applicationsInput) (*mcp.CallToolResult, any, error) {
	switch input.Operation {
	case "list":
		algos, err := s.ListAlgorithms(ctx)
		if err != nil {
			return errorResult(fmt.Sprintf("list algorithms: %v", err)), nil, nil
		}
		return jsonResult(map[string]any{"algorithms": algos})
	case "current":
		current, err := s.CurrentAlgorithm(ctx)
		if err != nil {
			return errorResult(fmt.Sprintf("current algorithm: %v", err)), nil, nil
		}
		return jsonResult(map[string]any{"current": current})
	case "switch":
		if input.Algorithm == "" {
			return errorResult("switch requires algorithm"), nil, nil
		}
		if err := s.SwitchAlgorithm(ctx, input.Algorithm); err != nil {
			return errorResult(fmt.Sprintf("switch algorithm: %v", err)), nil, nil
		}
		return jsonResult(map[string]any{"current": input.Algorithm})
	default:
		return errorResult(fmt.Sprintf("unknown operation %q", input.Operation)), nil, nil
	}
}

func (s *Service) multimediaControl(ctx context.Context, req *mcp.CallToolRequest, input multimediaInput) (*mcp.CallToolResult, any, error) {
	switch input.Operation {
	case "take_photo":
		result, err := s.TakePhoto(ctx)
		if err != nil {
			return errorResult(fmt.Sprintf("take photo: %v", err)), nil, nil
		}
		return jsonResult(result)
	default:
		return errorResult(fmt.Sprintf("unknown operation %q", input.Operation)), nil, nil
	}
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
