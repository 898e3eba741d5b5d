package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersonp/clinote/internal/application/handlers"
	"github.com/ersonp/clinote/internal/domain/ports"
	"github.com/ersonp/clinote/internal/infrastructure/config"
	embedder "github.com/ersonp/clinote/internal/infrastructure/embedder/openai"
	"github.com/ersonp/clinote/internal/infrastructure/relationaldb/sqlite"
	"github.com/ersonp/clinote/internal/infrastructure/vectordb/qdrant"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a clinote workspace",
		Long: "Creates a .clinote directory with default configuration and the annotation database. " +
			"The Qdrant collection is created when SNOMED search uses the concept index.",
		Args: cobra.NoArgs,
		RunE: runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	initHandler := handlers.NewInitHandler()
	result, err := initHandler.Handle(ctx, cwd)
	if err != nil {
		return err
	}
	fmt.Printf("Created %s\n", result.ConfigPath)

	store, err := sqlite.NewRepository(config.SQLiteConfig{Path: result.DatabasePath})
	if err != nil {
		return fmt.Errorf("creating sqlite repository: %w", err)
	}
	defer store.Close()

	var collections ports.CollectionManager
	if result.Config.Terminology.SNOMED.Source == config.SourceIndex {
		repo, err := qdrant.NewRepository(result.Config.Qdrant)
		if err != nil {
			return fmt.Errorf("connecting to qdrant: %w", err)
		}
		defer repo.Close()
		collections = repo
	}

	if err := initHandler.Prepare(ctx, store, collections, embedder.VectorSize); err != nil {
		return err
	}

	fmt.Printf("Created annotation database: %s\n", result.DatabasePath)
	if collections != nil {
		fmt.Printf("Created Qdrant collection: %s\n", result.Config.Qdrant.Collection)
	}
	fmt.Println("clinote initialized successfully!")

	return nil
}
