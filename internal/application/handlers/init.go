// Package handlers contains application use case handlers.
package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/clinote/internal/domain/ports"
	"github.com/ersonp/clinote/internal/infrastructure/config"
)

// InitHandler handles workspace initialization.
type InitHandler struct{}

// NewInitHandler creates a new init handler.
func NewInitHandler() *InitHandler {
	return &InitHandler{}
}

// InitResult contains the result of initialization.
type InitResult struct {
	Config       *config.Config
	ConfigPath   string
	DatabasePath string
}

// Handle writes the default configuration to basePath.
func (h *InitHandler) Handle(ctx context.Context, basePath string) (*InitResult, error) {
	if config.Exists(basePath) {
		return nil, fmt.Errorf("clinote already initialized in %s", basePath)
	}

	if err := config.WriteDefault(basePath); err != nil {
		return nil, fmt.Errorf("writing default config: %w", err)
	}

	cfg, err := config.Load(basePath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return &InitResult{
		Config:       cfg,
		ConfigPath:   config.ConfigFilePath(basePath),
		DatabasePath: cfg.SQLitePath(basePath),
	}, nil
}

// Prepare creates the annotation schema and, when collections is not nil,
// the concept index collection.
func (h *InitHandler) Prepare(ctx context.Context, store ports.AnnotationStore, collections ports.CollectionManager, vectorSize uint64) error {
	if store != nil {
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("creating annotation schema: %w", err)
		}
	}
	if collections != nil {
		if err := collections.EnsureCollection(ctx, vectorSize); err != nil {
			return fmt.Errorf("creating collection: %w", err)
		}
	}
	return nil
}
