package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ingest-api/cmd/configs"
	"ingest-api/internal/handlers"
	"ingest-api/mcp_server"
	"ingest-api/pkg/dependency_injection"
)

func main() {
	loadEnv()

	cfg := configs.LoadConfig()

	ctx := context.Background()
	container, err := dependency_injection.NewContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependencies: %v", err)
	}
	defer container.Close()

	router := handlers.SetupRouter(cfg.AppEnv, container.Handlers, container.AuthMW)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s:%s", cfg.Server.Host, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	var mcpSrv *mcp_server.MCPServer
	if cfg.Server.MCPAddr != "" {
		mcpSrv = mcp_server.NewMCPServer(container.Services.Ingestion)
		go func() {
			if err := mcpSrv.StartSSE(cfg.Server.MCPAddr); err != nil && err != http.ErrServerClosed {
				log.Printf("MCP server stopped: %v", err)
			}
		}()
	}

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if mcpSrv != nil {
		if err := mcpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("MCP server shutdown: %v", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func loadEnv() {
	envPaths := []string{
		"../../.env", // from cmd/api/
		".env",
	}

	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("Loaded .env from: %s", path)
			return
		}
	}
	log.Println("No .env file found, using environment variables")
}
