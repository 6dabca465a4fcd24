// Package service implements the chat backend's business logic, chiefly
// the memory-augmented chat turn pipeline.
package service

import (
	"github.com/Viranshu-30/HippoSync/internal/access"
	"github.com/Viranshu-30/HippoSync/internal/adapter/llm"
	"github.com/Viranshu-30/HippoSync/internal/adapter/memory"
	"github.com/Viranshu-30/HippoSync/internal/config"
	"github.com/Viranshu-30/HippoSync/internal/extract"
	"github.com/Viranshu-30/HippoSync/internal/store"
)

type Service struct {
	store     store.Store
	resolver  *access.Resolver
	memory    memory.MemoryClient
	llmClient llm.LLMClient
	extractor extract.Extractor
	config    *config.Config
}

func New(store store.Store, resolver *access.Resolver, memoryClient memory.MemoryClient, llmClient llm.LLMClient, extractor extract.Extractor, cfg *config.Config) *Service {
	return &Service{
		store:     store,
		resolver:  resolver,
		memory:    memoryClient,
		llmClient: llmClient,
		extractor: extractor,
		config:    cfg,
	}
}
