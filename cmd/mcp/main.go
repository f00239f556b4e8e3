package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"ingest-api/cmd/configs"
	"ingest-api/mcp_server"
	"ingest-api/pkg/dependency_injection"
)

// Runs the ingestion tools over stdio for local MCP clients
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	container, err := dependency_injection.NewContainer(context.Background(), configs.LoadConfig())
	if err != nil {
		log.Fatalf("Failed to initialize dependencies: %v", err)
	}
	defer container.Close()

	if err := mcp_server.NewMCPServer(container.Services.Ingestion).StartStdio(); err != nil {
		log.Printf("MCP server stopped: %v", err)
	}
}
