package mcp_server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"ingest-api/cmd/defines"
	"ingest-api/internal/destinations"
	"ingest-api/internal/models"
	"ingest-api/internal/services"
	"ingest-api/pkg/errors"
)

// Ingestion is the part of services.IngestionService exposed as tools
type Ingestion interface {
	Ingest(ctx context.Context, kind defines.DestinationKind, body models.IngestRequest) (*services.IngestOutcome, error)
	GetJob(ctx context.Context, jobID, apiKey string) (*services.JobView, error)
	ListWorkflows(ctx context.Context, apiKey string) ([]models.WorkflowInfo, error)
}

var IngestDocumentsTool = mcp.Tool{
	Name: "ingest_documents",
	Description: `Ingest every document under an S3 location into a destination.

The documents are partitioned, chunked and (for vector destinations) embedded by the
ingestion platform. Credentials left out fall back to the server configuration.

Set wait_for_completion=false for large folders and poll with get_ingestion_job.`,
	InputSchema: mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"destination": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"relational", "vector", "object"},
				"description": "Where the processed elements are written.",
			},
			"source_location": map[string]interface{}{
				"type":        "string",
				"description": "S3 folder or file, e.g. s3://bucket/clients/acme/",
			},
			"strategy": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"auto", "fast", "hi_res", "ocr_only", "vlm"},
				"description": "Partition strategy. Default hi_res.",
			},
			"chunking_strategy": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"by_title", "by_page"},
				"description": "Default by_title.",
			},
			"wait_for_completion": map[string]interface{}{
				"type":        "boolean",
				"description": "Wait for the job to finish before returning. Default true.",
			},
			"provider": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"pinecone", "weaviate"},
				"description": "Vector store provider for destination=vector.",
			},
			"destination_location": map[string]interface{}{
				"type":        "string",
				"description": "Target S3 prefix for destination=object.",
			},
			"table_name": map[string]interface{}{
				"type":        "string",
				"description": "Target table for destination=relational.",
			},
			"webhook_url": map[string]interface{}{
				"type":        "string",
				"description": "Receives one POST when the job finishes.",
			},
		},
		Required: []string{"destination", "source_location"},
	},
}

var GetIngestionJobTool = mcp.Tool{
	Name:        "get_ingestion_job",
	Description: "Return the status of an ingestion job by id.",
	InputSchema: mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"job_id": map[string]interface{}{
				"type":        "string",
				"description": "Job id returned by ingest_documents.",
			},
			"unstructured_api_key": map[string]interface{}{
				"type":        "string",
				"description": "Optional key for jobs submitted with a non-default account.",
			},
		},
		Required: []string{"job_id"},
	},
}

var ListWorkflowsTool = mcp.Tool{
	Name:        "list_ingestion_workflows",
	Description: "List the workflows known to the ingestion platform.",
	InputSchema: mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]interface{}{},
	},
}

// MCPServer wraps the MCP server with SSE support
type MCPServer struct {
	ingestion Ingestion
	mcpServer *server.MCPServer
	sseServer *server.SSEServer
}

func NewMCPServer(ingestion Ingestion) *MCPServer {
	s := &MCPServer{ingestion: ingestion}

	s.mcpServer = server.NewMCPServer(
		"Document Ingestion MCP Server",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	s.mcpServer.AddTool(IngestDocumentsTool, s.HandleIngestDocuments)
	s.mcpServer.AddTool(GetIngestionJobTool, s.HandleGetIngestionJob)
	s.mcpServer.AddTool(ListWorkflowsTool, s.HandleListWorkflows)

	return s
}

// StartSSE starts the SSE server on the specified address
func (s *MCPServer) StartSSE(addr string) error {
	s.sseServer = server.NewSSEServer(s.mcpServer,
		server.WithBaseURL(fmt.Sprintf("http://%s", addr)),
		server.WithSSEEndpoint("/sse"),
		server.WithMessageEndpoint("/message"),
		server.WithKeepAliveInterval(30*time.Second),
	)

	log.Printf("Starting MCP SSE server on %s", addr)
	return s.sseServer.Start(addr)
}

// Shutdown stops the SSE server if it was started
func (s *MCPServer) Shutdown(ctx context.Context) error {
	if s.sseServer == nil {
		return nil
	}
	return s.sseServer.Shutdown(ctx)
}

// StartStdio starts the server in stdio mode (for CLI tools)
func (s *MCPServer) StartStdio() error {
	log.Println("Starting MCP server in stdio mode")
	return server.ServeStdio(s.mcpServer)
}

func (s *MCPServer) HandleIngestDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	argsMap, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	destination, _ := argsMap["destination"].(string)
	kind, err := destinations.ParseKind(destination)
	if err != nil {
		return mcp.NewToolResultError("destination must be relational, vector or object"), nil
	}

	// the tool arguments use the same names as the HTTP request body
	raw, err := json.Marshal(argsMap)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	var body models.IngestRequest
	if err := json.Unmarshal(raw, &body); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	outcome, err := s.ingestion.Ingest(ctx, kind, body)
	if err != nil {
		return mcp.NewToolResultError(describeError(err)), nil
	}
	return jsonResult(outcome)
}

func (s *MCPServer) HandleGetIngestionJob(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	argsMap, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	jobID, _ := argsMap["job_id"].(string)
	if strings.TrimSpace(jobID) == "" {
		return mcp.NewToolResultError("job_id parameter is required"), nil
	}
	apiKey, _ := argsMap["unstructured_api_key"].(string)

	view, err := s.ingestion.GetJob(ctx, jobID, apiKey)
	if err != nil {
		return mcp.NewToolResultError(describeError(err)), nil
	}
	return jsonResult(view)
}

func (s *MCPServer) HandleListWorkflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflows, err := s.ingestion.ListWorkflows(ctx, "")
	if err != nil {
		return mcp.NewToolResultError(describeError(err)), nil
	}
	return jsonResult(workflows)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func describeError(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
