package mcp

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2beens/fitnesstracker/internal/ingest"
	"github.com/2beens/fitnesstracker/internal/workouts"
)

// NewServer builds an MCP server with the training tools: personal records
// and workouts for a date range.
func NewServer(prs *ingest.PRRepo, workoutsRepo *workouts.Repo) *mcp.Server {
	return newServer(NewContextService(prs, workoutsRepo))
}

func newServer(service contextService) *mcp.Server {
	h := NewHandler(service)
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "fitnesstracker-context",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_personal_records",
		Description: "Returns the personal records (best weight and reps per exercise) of a user. Arg: user_id. Use when you need to know what the user's best lifts are.",
	}, h.GetPersonalRecordsTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_workouts_for_range",
		Description: "Returns the workouts of a user dated within the given range, newest first, with their exercises and sets. Args: user_id, from_date, to_date (YYYY-MM-DD). Use when you need to see what was trained in a period.",
	}, h.GetWorkoutsForRangeTool())

	return s
}

// NewHTTPHandler serves the MCP server over streamable HTTP, mounted at /mcp.
func NewHTTPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
}
