package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ersonp/clinote/internal/application/handlers"
	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/ports"
	"github.com/ersonp/clinote/internal/domain/services"
	"github.com/ersonp/clinote/internal/infrastructure/cache/memory"
	rediscache "github.com/ersonp/clinote/internal/infrastructure/cache/redis"
	"github.com/ersonp/clinote/internal/infrastructure/config"
	embedder "github.com/ersonp/clinote/internal/infrastructure/embedder/openai"
	"github.com/ersonp/clinote/internal/infrastructure/logging"
	ner "github.com/ersonp/clinote/internal/infrastructure/ner/openai"
	"github.com/ersonp/clinote/internal/infrastructure/relationaldb/sqlite"
	"github.com/ersonp/clinote/internal/infrastructure/terminology/fhir"
	"github.com/ersonp/clinote/internal/infrastructure/vectordb/qdrant"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and repositories are internal.
type Deps struct {
	Config            *config.Config
	Logger            *zap.Logger
	ExtractHandler    *handlers.ExtractHandler
	AnnotateHandler   *handlers.AnnotateHandler
	SearchHandler     *handlers.SearchHandler
	AnnotationHandler *handlers.AnnotationHandler
}

// depsOptions tunes dependency construction per command.
type depsOptions struct {
	allowFallback bool
}

// cleanups runs deferred close functions in reverse order.
type cleanups []func()

func (c *cleanups) add(fn func()) { *c = append(*c, fn) }

func (c cleanups) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// workspace is the loaded configuration and logger of the current directory.
type workspace struct {
	basePath string
	cfg      *config.Config
	logger   *zap.Logger
}

func loadWorkspace() (*workspace, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	return &workspace{basePath: cwd, cfg: cfg, logger: logger}, nil
}

// withDeps loads config and builds dependencies, then calls the provided function.
// It handles cleanup automatically.
func withDeps(ctx context.Context, opts depsOptions, fn func(*Deps) error) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = ws.logger.Sync() }()

	var c cleanups
	defer c.run()

	store, err := openStore(ctx, ws)
	if err != nil {
		return err
	}
	c.add(func() { store.Close() })

	recognizer, err := buildRecognizer(ws, opts.allowFallback)
	if err != nil {
		return err
	}

	snomed, err := buildSNOMEDMatcher(ctx, ws, &c)
	if err != nil {
		return err
	}

	hl7, err := loadTable(ws.basePath, "hl7", ws.cfg.Terminology.HL7.Table, entities.DefaultHL7Table)
	if err != nil {
		return err
	}

	mapperOpts := []services.MapperOption{
		services.WithThresholdFloor(ws.cfg.Mapping.ThresholdFloor),
		services.WithMaxResults(ws.cfg.Mapping.MaxResults),
	}
	if cache := buildCache(ctx, ws, &c); cache != nil {
		mapperOpts = append(mapperOpts, services.WithCandidateCache(cache))
	}
	mapper := services.NewMapper(ws.logger, mapperOpts...)

	annotationService := services.NewAnnotationService(recognizer, mapper, snomed, hl7, store, ws.logger)

	return fn(&Deps{
		Config:            ws.cfg,
		Logger:            ws.logger,
		ExtractHandler:    handlers.NewExtractHandler(recognizer),
		AnnotateHandler:   handlers.NewAnnotateHandler(annotationService),
		SearchHandler:     handlers.NewSearchHandler(snomed, hl7),
		AnnotationHandler: handlers.NewAnnotationHandler(annotationService),
	})
}

// withIndexHandler provides the concept index handler. The collection is
// created when missing.
func withIndexHandler(ctx context.Context, fn func(*handlers.IndexHandler) error) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = ws.logger.Sync() }()

	emb, err := embedder.NewEmbedder(ws.cfg.Embedder)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	repo, err := qdrant.NewRepository(ws.cfg.Qdrant)
	if err != nil {
		return fmt.Errorf("creating qdrant repository: %w", err)
	}
	defer repo.Close()

	if err := repo.EnsureCollection(ctx, embedder.VectorSize); err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	return fn(handlers.NewIndexHandler(services.NewConceptImportService(emb, repo)))
}

func openStore(ctx context.Context, ws *workspace) (*sqlite.Repository, error) {
	store, err := sqlite.NewRepository(config.SQLiteConfig{Path: ws.cfg.SQLitePath(ws.basePath)})
	if err != nil {
		return nil, fmt.Errorf("creating sqlite repository: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensuring sqlite schema: %w", err)
	}
	return store, nil
}

// buildRecognizer wires the pattern extractor and, when an API key is
// configured, the NER model.
func buildRecognizer(ws *workspace, allowFallback bool) (*services.EntityRecognizer, error) {
	patterns, err := services.NewPatternExtractor()
	if err != nil {
		return nil, fmt.Errorf("compiling patterns: %w", err)
	}

	var nerService *services.NERService
	if ws.cfg.NER.APIKey != "" {
		loader, err := ner.NewLoader(ws.cfg.NER, ws.logger)
		if err != nil {
			return nil, fmt.Errorf("creating NER loader: %w", err)
		}
		nerService = services.NewNERService(loader, tagMapping(ws.cfg.NER.Tags), ws.cfg.NER.ConfidenceFloor, ws.logger)
	}

	return services.NewEntityRecognizer(patterns, nerService, allowFallback || ws.cfg.NER.AllowFallback, ws.logger), nil
}

// tagMapping extends the default tag mapping with configured entries.
func tagMapping(extra map[string]string) services.TagMapping {
	tags := services.DefaultTagMapping()
	for tag, category := range extra {
		tags[strings.ToUpper(strings.TrimSpace(tag))] = entities.Category(strings.ToUpper(strings.TrimSpace(category)))
	}
	return tags
}

func buildSNOMEDMatcher(ctx context.Context, ws *workspace, c *cleanups) (ports.TerminologyMatcher, error) {
	cfg := ws.cfg.Terminology.SNOMED

	if cfg.Source == config.SourceLocal {
		return loadTable(ws.basePath, "snomed", cfg.Table, entities.DefaultSNOMEDFallback)
	}

	var fallback *services.LocalTerminology
	if cfg.FallbackEnabled() {
		fallback = services.MustLocalTerminology("snomed-fallback", entities.DefaultSNOMEDFallback)
	}

	var searcher ports.TerminologySearcher
	switch cfg.Source {
	case config.SourceIndex:
		emb, err := embedder.NewEmbedder(ws.cfg.Embedder)
		if err != nil {
			return nil, fmt.Errorf("creating embedder: %w", err)
		}
		repo, err := qdrant.NewRepository(ws.cfg.Qdrant)
		if err != nil {
			return nil, fmt.Errorf("creating qdrant repository: %w", err)
		}
		c.add(func() { repo.Close() })
		searcher = services.NewIndexSearcher(emb, repo)
	default:
		client, err := fhir.NewClient(cfg, ws.logger)
		if err != nil {
			return nil, fmt.Errorf("creating FHIR client: %w", err)
		}
		searcher = client
	}

	return services.NewTerminologyMatcher(searcher, fallback, ws.logger), nil
}

// loadTable returns the built-in table, or the configured JSON/CSV table
// when path is set.
func loadTable(basePath, name, path string, builtin []entities.TableEntry) (*services.LocalTerminology, error) {
	if path == "" {
		return services.NewLocalTerminology(name, builtin)
	}

	raw, err := handlers.ReadConceptTable(config.ResolvePath(basePath, path), "auto")
	if err != nil {
		return nil, fmt.Errorf("loading %s table: %w", name, err)
	}

	tableEntries, rowErrs := services.BuildTableEntries(raw, entities.SystemSNOMED)
	if len(rowErrs) > 0 {
		errs := make([]error, len(rowErrs))
		for i, e := range rowErrs {
			errs[i] = e
		}
		return nil, fmt.Errorf("loading %s table %s: %w", name, path, errors.Join(errs...))
	}

	return services.NewLocalTerminology(name, tableEntries)
}

// buildCache returns the configured candidate cache, or nil. An unreachable
// Redis disables caching instead of failing the command.
func buildCache(ctx context.Context, ws *workspace, c *cleanups) ports.CandidateCache {
	ttl := time.Duration(ws.cfg.Cache.TTLSeconds) * time.Second

	switch ws.cfg.Cache.Backend {
	case config.CacheMemory:
		return memory.New(ttl)
	case config.CacheRedis:
		cache, err := rediscache.New(ctx, ws.cfg.Cache.Redis, ttl, ws.logger)
		if err != nil {
			ws.logger.Warn("candidate cache disabled", zap.Error(err))
			return nil
		}
		c.add(func() { cache.Close() })
		return cache
	default:
		return nil
	}
}
