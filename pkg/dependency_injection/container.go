package dependency_injection

import (
	"context"
	"strconv"
	"time"

	fylogger "github.com/FyersDev/trading-logger-go"

	"ingest-api/cmd/configs"
	"ingest-api/internal/auth"
	"ingest-api/internal/destinations"
	"ingest-api/internal/handlers"
	"ingest-api/internal/middleware"
	"ingest-api/internal/models"
	"ingest-api/internal/orchestrator"
	"ingest-api/internal/repositories"
	"ingest-api/internal/services"
	"ingest-api/internal/unstructured"
	"ingest-api/pkg/memorydb"
	"ingest-api/pkg/objectstore"
	"ingest-api/pkg/postgres"
	"ingest-api/pkg/weaviate"
)

const (
	trackerCleanupInterval = 10 * time.Minute
	trackerRetention       = time.Hour
)

type Container struct {
	Config       *configs.Config
	DB           *postgres.DB
	Repositories *repositories.Repositories
	RedisClient  *memorydb.RedisClient
	TokenService *auth.TokenService
	AuthMW       *middleware.AuthMiddleware
	Handlers     *handlers.Handlers
	Services     *services.Services

	cancel context.CancelFunc
}

// NewContainer wires every dependency. The job ledger and the result cache
// are optional; the service runs without them when they are not configured.
func NewContainer(ctx context.Context, config *configs.Config) (*Container, error) {
	c := &Container{Config: config}

	if config.Database.Host != "" {
		db, err := postgres.NewDB(ctx, postgres.Options{
			Host:     config.Database.Host,
			Port:     config.Database.Port,
			User:     config.Database.User,
			Password: config.Database.Password,
			DBName:   config.Database.DBName,
			SSLMode:  config.Database.SSLMode,
		})
		if err != nil {
			fylogger.ErrorLog(ctx, "Failed to initialize job ledger database", err, nil)
			return nil, err
		}
		repos := repositories.NewRepositories(db)
		if err := repos.Jobs.CreateSchema(ctx); err != nil {
			fylogger.ErrorLog(ctx, "Failed to initialize job ledger schema", err, nil)
			db.Close()
			return nil, err
		}
		c.DB = db
		c.Repositories = repos
	}

	if config.Redis.URL != "" {
		redisClient, err := memorydb.NewRedisClient(ctx, memorydb.Options{
			Addr:     config.Redis.URL,
			Username: config.Redis.Username,
			Password: config.Redis.Password,
		})
		if err != nil {
			// the cache only speeds up job lookups
			fylogger.ErrorLog(ctx, "Failed to initialize redis client, continuing without result cache", err, nil)
		} else {
			c.RedisClient = redisClient
		}
	}

	tracker, err := services.NewJobTracker(config.Orchestrator.TrackerPoolSize)
	if err != nil {
		c.Close()
		return nil, err
	}
	tracker.RunCleanup(trackerCleanupInterval, trackerRetention)

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	events := services.NewEventHub()
	events.Run(runCtx)

	clientConfig := unstructured.Config{
		BaseURL:      config.Unstructured.APIURL,
		PartitionURL: config.Unstructured.PartitionURL,
		Timeout:      time.Duration(config.Unstructured.Timeout) * time.Second,
	}

	deps := services.IngestionDeps{
		Clients: func(apiKey string) services.IngestionClient {
			return unstructured.NewClient(clientConfig, apiKey)
		},
		Notifier:         orchestrator.NewNotifier(config.Orchestrator.WebhookTimeoutDuration()),
		Tracker:          tracker,
		Events:           events,
		RelationalSchema: relationalSchema(config.Orchestrator.EmbeddingDimension),
		VectorClass:      vectorClass,
	}
	if c.Repositories != nil {
		deps.Jobs = c.Repositories.Jobs
	}
	if c.RedisClient != nil {
		deps.Cache = c.RedisClient
	}
	if config.Orchestrator.SourcePreflight {
		deps.Inspectors = func(ctx context.Context, creds models.SourceCredentials) (services.SourceInspector, error) {
			return openStore(ctx, config, creds)
		}
	}

	pingers := map[string]services.Pinger{}
	if c.DB != nil {
		pingers["database"] = c.DB
	}
	if c.RedisClient != nil {
		pingers["redis"] = c.RedisClient
	}
	if config.Weaviate.ClusterURL != "" {
		vectors, err := weaviate.NewWeaviateClient(config.Weaviate.ClusterURL, config.Weaviate.APIKey)
		if err != nil {
			fylogger.ErrorLog(ctx, "weaviate health check disabled", err, map[string]interface{}{
				"cluster_url": config.Weaviate.ClusterURL,
			})
		} else {
			pingers["weaviate"] = vectors
		}
	}

	c.Services = &services.Services{
		Health:    services.NewHealthService(pingers),
		Ingestion: services.NewIngestionService(config, deps),
		Partition: services.NewPartitionService(config,
			func(ctx context.Context, creds models.SourceCredentials) (services.ObjectFetcher, error) {
				return openStore(ctx, config, creds)
			},
			func(apiKey string) services.Partitioner {
				return unstructured.NewClient(clientConfig, apiKey)
			},
		),
		Tracker: tracker,
		Events:  events,
	}

	c.TokenService = auth.NewTokenService(&config.JWT)
	c.AuthMW = middleware.NewAuthMiddleware(c.TokenService)
	c.Handlers = handlers.NewHandlers(c.Services)

	fylogger.InfoLog(ctx, "Container initialized", map[string]interface{}{
		"job_ledger":   c.DB != nil,
		"result_cache": c.RedisClient != nil,
		"auth_enabled": c.TokenService.Enabled(),
		"preflight":    config.Orchestrator.SourcePreflight,
	})

	return c, nil
}

func openStore(ctx context.Context, config *configs.Config, creds models.SourceCredentials) (*objectstore.Store, error) {
	return objectstore.New(ctx, objectstore.Options{
		AccessKey: creds.AccessKey,
		SecretKey: creds.SecretKey,
		Region:    config.AWS.Region,
		Endpoint:  config.AWS.Endpoint,
	})
}

// relationalSchema connects with the destination's own credentials and
// creates its elements table
func relationalSchema(dimensions int) services.RelationalSchemaFunc {
	return func(ctx context.Context, dest destinations.Relational) error {
		db, err := postgres.NewDB(ctx, postgres.Options{
			Host:     dest.Host,
			Port:     strconv.Itoa(dest.Port),
			User:     dest.Username,
			Password: dest.Password,
			DBName:   dest.Database,
			SSLMode:  "prefer",
			MaxConns: 1,
			MinConns: 0,
		})
		if err != nil {
			return err
		}
		defer db.Close()

		return repositories.NewRepositories(db).Elements.CreateSchema(ctx, dest.TableName, dimensions)
	}
}

func vectorClass(ctx context.Context, dest destinations.VectorStore, className string) error {
	client, err := weaviate.NewWeaviateClient(dest.ClusterURL, dest.APIKey)
	if err != nil {
		return err
	}
	return client.EnsureClass(ctx, className)
}

func (c *Container) Close() {
	// Stop services first (workers)
	if c.Services != nil {
		c.Services.Close()
	}
	if c.cancel != nil {
		c.cancel()
	}

	if c.DB != nil {
		c.DB.Close()
	}
	if c.RedisClient != nil {
		c.RedisClient.Close()
	}
}
