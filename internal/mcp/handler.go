package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Handler turns MCP tool calls into service calls and formats the results.
type Handler struct {
	service contextService
}

func NewHandler(service contextService) *Handler {
	return &Handler{
		service: service,
	}
}

// PersonalRecordsInput is the input for get_personal_records.
type PersonalRecordsInput struct {
	UserID string `json:"user_id" jsonschema:"Id of the user whose PRs are returned"`
}

// GetPersonalRecordsTool returns the MCP tool handler for get_personal_records.
func (h *Handler) GetPersonalRecordsTool() func(context.Context, *mcp.CallToolRequest, PersonalRecordsInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in PersonalRecordsInput) (*mcp.CallToolResult, any, error) {
		userID := strings.TrimSpace(in.UserID)
		if userID == "" {
			return errorResult("user_id is required"), nil, nil
		}
		prs, err := h.service.PersonalRecords(ctx, userID)
		if err != nil {
			return errorResult("Error listing personal records: " + err.Error()), nil, nil
		}
		return jsonResult(prs), nil, nil
	}
}

// WorkoutsRangeInput is the input for get_workouts_for_range.
type WorkoutsRangeInput struct {
	UserID   string `json:"user_id" jsonschema:"Id of the user whose workouts are returned"`
	FromDate string `json:"from_date" jsonschema:"Start date (YYYY-MM-DD), inclusive"`
	ToDate   string `json:"to_date" jsonschema:"End date (YYYY-MM-DD), inclusive"`
}

// GetWorkoutsForRangeTool returns the MCP tool handler for get_workouts_for_range.
func (h *Handler) GetWorkoutsForRangeTool() func(context.Context, *mcp.CallToolRequest, WorkoutsRangeInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in WorkoutsRangeInput) (*mcp.CallToolResult, any, error) {
		userID := strings.TrimSpace(in.UserID)
		if userID == "" {
			return errorResult("user_id is required"), nil, nil
		}
		from, err := time.Parse(dateLayout, in.FromDate)
		if err != nil {
			return errorResult("Invalid from_date: use YYYY-MM-DD"), nil, nil
		}
		to, err := time.Parse(dateLayout, in.ToDate)
		if err != nil {
			return errorResult("Invalid to_date: use YYYY-MM-DD"), nil, nil
		}

		list, err := h.service.WorkoutsForRange(ctx, userID, from, to)
		if err != nil {
			return errorResult("Error listing workouts: " + err.Error()), nil, nil
		}
		return jsonResult(list), nil, nil
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Error encoding response: " + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
	}
}
