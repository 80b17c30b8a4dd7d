// Package container provides dependency injection for the teamkasse application.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"context"
	"errors"
	"fmt"

	"fjacquet/teamkasse/internal/classifier"
	"fjacquet/teamkasse/internal/config"
	"fjacquet/teamkasse/internal/coordinator"
	"fjacquet/teamkasse/internal/ingest"
	"fjacquet/teamkasse/internal/logging"
	"fjacquet/teamkasse/internal/service"
	"fjacquet/teamkasse/internal/store"
	"fjacquet/teamkasse/internal/store/memory"
	"fjacquet/teamkasse/internal/store/mongo"
	"fjacquet/teamkasse/internal/store/sqlite"
	"fjacquet/teamkasse/internal/suggest"
)

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation. All fields are private and can only
// be accessed through getter methods.
type Container struct {
	logger      logging.Logger
	config      *config.Config
	classifier  *classifier.Classifier
	store       store.Store
	coordinator *coordinator.Coordinator
	pipeline    *ingest.Pipeline
	suggester   suggest.Suggester
	gemini      *suggest.GeminiSuggester
	service     *service.Service
}

// NewContainer creates and wires all application dependencies.
//
// Parameters:
//   - ctx: Used while connecting to the store backend and the AI client
//   - cfg: Application configuration
//
// Returns:
//   - *Container: Fully wired container with all dependencies
//   - error: Any error encountered during dependency creation
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	// Create logger first as it's needed by other components
	logger := logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)

	kw, err := classifier.LoadKeywordFile(cfg.Ingest.KeywordsFile)
	if err != nil {
		return nil, err
	}
	cls := classifier.New(kw, logger)

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	logger.Info("Store opened", logging.F(logging.FieldBackend, cfg.Store.Backend))

	coord := coordinator.New(st, logger)
	pipeline := ingest.New(st, cls, logger, ingest.WithDelimiter(cfg.Delimiter()))

	keywords := suggest.NewKeywordSuggester(cls)
	var suggester suggest.Suggester = keywords
	var gemini *suggest.GeminiSuggester
	if cfg.AI.Enabled && cfg.AI.APIKey != "" {
		gemini, err = suggest.NewGeminiSuggester(ctx, suggest.GeminiConfig{
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
			Timeout: cfg.AITimeout(),
		}, keywords, logger)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		suggester = gemini
		logger.Info("AI fine suggestions enabled")
	} else {
		logger.Info("AI fine suggestions disabled")
	}

	svc := service.New(st, coord, pipeline, suggester, logger,
		service.WithIngestOptions(ingest.Options{StaleDueMonths: cfg.Ingest.StaleDueMonths}))

	logger.Info("Container initialized successfully",
		logging.F(logging.FieldBackend, cfg.Store.Backend),
		logging.F("ai_enabled", gemini != nil))

	return &Container{
		logger:      logger,
		config:      cfg,
		classifier:  cls,
		store:       st,
		coordinator: coord,
		pipeline:    pipeline,
		suggester:   suggester,
		gemini:      gemini,
		service:     svc,
	}, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	maxBatch := cfg.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = config.MaxBatchSize
	}
	switch cfg.Backend {
	case "", config.BackendMemory:
		return memory.New(memory.WithMaxBatchSize(maxBatch)), nil
	case config.BackendSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath, maxBatch)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendMongo:
		s, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, maxBatch)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetClassifier returns the keyword classifier.
func (c *Container) GetClassifier() *classifier.Classifier {
	return c.classifier
}

// GetStore returns the configured store backend.
func (c *Container) GetStore() store.Store {
	return c.store
}

// GetCoordinator returns the ledger write coordinator.
func (c *Container) GetCoordinator() *coordinator.Coordinator {
	return c.coordinator
}

// GetPipeline returns the ingestion pipeline.
func (c *Container) GetPipeline() *ingest.Pipeline {
	return c.pipeline
}

// GetSuggester returns the fine suggester, Gemini-backed when AI is enabled.
func (c *Container) GetSuggester() suggest.Suggester {
	return c.suggester
}

// GetService returns the application service.
func (c *Container) GetService() *service.Service {
	return c.service
}

// Close releases the store and the AI client.
func (c *Container) Close() error {
	var errs []error
	if c.gemini != nil {
		if err := c.gemini.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Gemini client: %w", err))
		}
	}
	if err := c.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}
	c.logger.Info("Container closed")
	return errors.Join(errs...)
}
