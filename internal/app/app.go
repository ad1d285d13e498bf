// Package app builds the reconciliation service from configuration
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sorrel/config"
	"github.com/Ramsey-B/sorrel/internal/repositories/document"
	"github.com/Ramsey-B/sorrel/internal/repositories/mergerun"
	"github.com/Ramsey-B/sorrel/pkg/backup/boltdb"
	"github.com/Ramsey-B/sorrel/pkg/database"
	"github.com/Ramsey-B/sorrel/pkg/events"
	"github.com/Ramsey-B/sorrel/pkg/execution"
	"github.com/Ramsey-B/sorrel/pkg/graph"
	"github.com/Ramsey-B/sorrel/pkg/kafka"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/pipeline"
	"github.com/Ramsey-B/sorrel/pkg/policy"
	"github.com/Ramsey-B/sorrel/pkg/redis"
	"github.com/Ramsey-B/sorrel/pkg/routes/health"
	"github.com/Ramsey-B/sorrel/pkg/routes/runs"
	"github.com/Ramsey-B/sorrel/pkg/startup"
	"github.com/Ramsey-B/sorrel/pkg/store"
	"github.com/Ramsey-B/sorrel/pkg/store/httpstore"
	"github.com/Ramsey-B/sorrel/pkg/store/memstore"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverHTTP     = "http"
	StoreDriverMemory   = "memory"
)

// App owns every connection the service needs and the pipeline built on them
type App struct {
	cfg     *config.Config
	logger  ectologger.Logger
	policy  *policy.Policy
	startup *startup.Startup

	tracing  *tracing.Provider
	db       database.DB
	redis    *redis.Client
	graph    *graph.Client
	producer *kafka.Producer
	backup   *boltdb.Storage

	documents *document.Repository
	store     store.DocumentStore
	history   runs.History
	pipeline  *pipeline.Pipeline
	checks    map[string]health.Check
}

// New loads the field policy. Nothing is connected until Start.
func New(cfg *config.Config, logger ectologger.Logger) (*App, error) {
	p := policy.DefaultPolicy()
	if cfg.PolicyFile != "" {
		loaded, err := policy.Load(cfg.PolicyFile)
		if err != nil {
			return nil, err
		}
		p = loaded
	}
	if cfg.Collection != "" {
		p.Collection = cfg.Collection
	}

	return &App{
		cfg:     cfg,
		logger:  logger,
		policy:  p,
		startup: startup.NewStartup(logger, cfg.StartupMaxAttempts),
		checks:  make(map[string]health.Check),
	}, nil
}

// Policy returns the active field policy
func (a *App) Policy() *policy.Policy {
	return a.policy
}

// Pipeline returns the pipeline built by Start
func (a *App) Pipeline() *pipeline.Pipeline {
	return a.pipeline
}

// History returns the run history built by Start
func (a *App) History() runs.History {
	return a.history
}

// Checks returns the health probes of the started dependencies
func (a *App) Checks() map[string]health.Check {
	return a.checks
}

// Backup returns the backup storage, nil when not started
func (a *App) Backup() *boltdb.Storage {
	return a.backup
}

// Documents returns the Postgres document repository, nil for other drivers
func (a *App) Documents() *document.Repository {
	return a.documents
}

func (a *App) usesDatabase() bool {
	return a.cfg.StoreDriver == StoreDriverPostgres || (a.cfg.ReportsPostgres && a.cfg.DatabaseHost != "")
}

// Start connects every configured dependency and builds the pipeline
func (a *App) Start(ctx context.Context) error {
	a.startup.AddDependency(startup.Func{
		Name: "tracing",
		StartFn: func(ctx context.Context) error {
			endpoint := ""
			if a.cfg.TracingEnabled {
				endpoint = a.cfg.TracingEndpoint
			}
			provider, err := tracing.Setup(ctx, tracing.Config{
				ServiceName: a.cfg.AppName,
				Endpoint:    endpoint,
				Protocol:    a.cfg.TracingProtocol,
				Insecure:    a.cfg.TracingInsecure,
				Timeout:     10 * time.Second,
			})
			a.tracing = provider
			return err
		},
		StopFn: func(ctx context.Context) error { return a.tracing.Shutdown(ctx) },
	})

	if a.usesDatabase() {
		a.startup.AddDependency(startup.Func{
			Name:     "database",
			Requires: []string{"tracing"},
			StartFn: func(ctx context.Context) error {
				db, err := a.ConnectDatabase(ctx)
				if err != nil {
					return err
				}
				a.db = db
				a.checks["database"] = db.PingContext
				return nil
			},
			StopFn: func(context.Context) error { return a.db.Close() },
		})
	}

	if a.cfg.RedisEnabled {
		a.startup.AddDependency(startup.Func{
			Name: "redis",
			StartFn: func(context.Context) error {
				client, err := redis.NewClient(redis.Config{
					Host:     a.cfg.RedisHost,
					Port:     a.cfg.RedisPort,
					Password: a.cfg.RedisPassword,
					DB:       a.cfg.RedisDB,
				}, a.logger)
				if err != nil {
					return err
				}
				a.redis = client
				a.checks["redis"] = client.Ping
				return nil
			},
			StopFn: func(context.Context) error { return a.redis.Close() },
		})
	}

	if a.cfg.GraphMirrorEnabled {
		a.startup.AddDependency(startup.Func{
			Name: "graph",
			StartFn: func(ctx context.Context) error {
				client, err := graph.NewClient(graph.Config{
					Host:     a.cfg.GraphDBHost,
					Port:     a.cfg.GraphDBPort,
					Username: a.cfg.GraphDBUser,
					Password: a.cfg.GraphDBPassword,
				}, a.logger)
				if err != nil {
					return err
				}
				if err := client.VerifyConnectivity(ctx); err != nil {
					_ = client.Close(ctx)
					return fmt.Errorf("graph database unreachable: %w", err)
				}
				a.graph = client
				a.checks["graph"] = client.VerifyConnectivity
				return nil
			},
			StopFn: func(ctx context.Context) error { return a.graph.Close(ctx) },
		})
	}

	if a.cfg.KafkaReportsEnabled {
		a.startup.AddDependency(startup.Func{
			Name: "kafka",
			StartFn: func(context.Context) error {
				a.producer = kafka.NewProducer(kafka.ProducerConfig{
					Brokers:      a.cfg.KafkaBrokers,
					Topic:        a.cfg.KafkaOutputTopic,
					BatchSize:    a.cfg.KafkaBatchSize,
					BatchTimeout: time.Duration(a.cfg.KafkaBatchTimeout) * time.Millisecond,
					RequiredAcks: a.cfg.KafkaRequiredAcks,
					Compression:  a.cfg.KafkaCompression,
				}, a.logger)
				return nil
			},
			StopFn: func(context.Context) error { return a.producer.Close() },
		})
	}

	if a.cfg.BackupBoltPath != "" {
		a.startup.AddDependency(startup.Func{
			Name: "backup",
			StartFn: func(context.Context) error {
				backup, err := boltdb.New(a.cfg.BackupBoltPath, a.logger)
				if err != nil {
					return err
				}
				a.backup = backup
				return nil
			},
			StopFn: func(context.Context) error { return a.backup.Close() },
		})
	}

	if err := a.startup.Start(ctx); err != nil {
		return err
	}
	return a.build()
}

// Stop closes every started dependency
func (a *App) Stop(ctx context.Context) error {
	return a.startup.Stop(ctx)
}

// ConnectDatabase opens the configured Postgres pool
func (a *App) ConnectDatabase(ctx context.Context) (database.DB, error) {
	return database.Connect(ctx, a.cfg.DatabaseDSN(), database.PoolConfig{
		MaxOpenConns:    a.cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    a.cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: a.cfg.DatabaseConnMaxLifetime,
	}, a.logger)
}

// Migrate applies the Postgres migrations
func (a *App) Migrate(ctx context.Context) error {
	db, err := a.ConnectDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := database.NewMigrationService(a.logger, &database.MigrationConfig{
		MigrationFolderPath: a.cfg.DatabaseMigrationFolderPath,
		Version:             uint(a.cfg.DatabaseMigrationVersion),
		Force:               a.cfg.DatabaseMigrationForce,
		AutoRollback:        a.cfg.DatabaseMigrationAutoRollback,
	})
	return svc.MigratePostgres(db, a.cfg.DatabaseName)
}

func (a *App) build() error {
	s, err := a.buildStore()
	if err != nil {
		return err
	}
	if a.graph != nil {
		s = graph.NewRelationMirror(s, graph.NewEdgeService(a.graph, a.logger), a.policy, a.logger)
	}
	a.store = s

	var sinks []store.ReportSink
	if a.db != nil && a.cfg.ReportsPostgres {
		repo := mergerun.NewRepository(a.db, a.logger)
		sinks = append(sinks, repo)
		a.history = repo
	} else {
		memory := runs.NewMemoryHistory(0)
		sinks = append(sinks, memory)
		a.history = memory
	}
	if a.producer != nil {
		sinks = append(sinks, events.NewEmitter(a.producer, a.logger))
	}

	opts := []pipeline.Option{pipeline.WithReportSinks(sinks...)}
	if a.backup != nil {
		opts = append(opts, pipeline.WithBackupSink(a.backup))
	}
	if a.redis != nil {
		opts = append(opts, pipeline.WithLocker(redis.NewLocker(a.redis, "")))
	}

	a.pipeline = pipeline.New(a.policy, a.store, pipeline.Config{
		Collection:      a.policy.Collection,
		ChangeDetection: models.ChangeDetection(a.cfg.ChangeDetection),
		Executor: execution.Options{
			Workers: a.cfg.ExecutorWorkers,
			Delay:   a.cfg.ExecutorDelay,
		},
		LockTTL: a.cfg.RunLockTTL,
	}, a.logger, opts...)
	return nil
}

func (a *App) buildStore() (store.DocumentStore, error) {
	switch a.cfg.StoreDriver {
	case StoreDriverPostgres:
		a.documents = document.NewRepository(a.db, a.cfg.StorePageSize, a.logger)
		return a.documents, nil
	case StoreDriverHTTP:
		return httpstore.New(httpstore.Config{
			BaseURL:  a.cfg.StoreHTTPBaseURL,
			Token:    a.cfg.StoreHTTPToken,
			PageSize: a.cfg.StorePageSize,
			Timeout:  a.cfg.StoreHTTPTimeout,
		}, a.logger), nil
	case StoreDriverMemory:
		mem := memstore.New()
		if a.cfg.StoreSeedFile != "" {
			docs, err := store.ReadDocumentsFile(a.cfg.StoreSeedFile)
			if err != nil {
				return nil, err
			}
			for _, d := range docs {
				if d.Collection == "" {
					d.Collection = a.policy.Collection
				}
				mem.Put(d)
			}
		}
		return mem, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", a.cfg.StoreDriver)
	}
}
