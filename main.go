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

	"github.com/Viranshu-30/HippoSync/internal/access"
	"github.com/Viranshu-30/HippoSync/internal/adapter/llm"
	"github.com/Viranshu-30/HippoSync/internal/adapter/memory"
	"github.com/Viranshu-30/HippoSync/internal/config"
	"github.com/Viranshu-30/HippoSync/internal/extract"
	"github.com/Viranshu-30/HippoSync/internal/service"
	"github.com/Viranshu-30/HippoSync/internal/store"
	handler "github.com/Viranshu-30/HippoSync/internal/transport/http"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting chat backend...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("MemMachine URL: %s", cfg.MemMachineBaseURL)
	log.Printf("Completion provider URL: %s", cfg.OpenAIBaseURL)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize memory client
	memoryClient := memory.NewClient(cfg.MemMachineBaseURL, cfg.MemMachineGroupPrefix, cfg.MemMachineAgentID, cfg.MemoryTimeout)

	// Initialize LLM client
	llmClient := llm.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.LLMTimeout)

	// Initialize policy engine and access resolver
	ctx := context.Background()
	policyEngine, err := access.NewPolicyEngine(ctx, access.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}
	resolver := access.NewResolver(db, policyEngine)

	// Initialize service
	svc := service.New(db, resolver, memoryClient, llmClient, extract.NewSnifferExtractor(), cfg)

	// Create HTTP server
	server := handler.NewServer(svc)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down chat backend...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Chat backend stopped")
}
