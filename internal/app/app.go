// Package app wires configuration into running services
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/TomMcIver/Stock-Port/config"
	"github.com/TomMcIver/Stock-Port/internal/repositories"
	"github.com/TomMcIver/Stock-Port/internal/repositories/association"
	"github.com/TomMcIver/Stock-Port/internal/repositories/memory"
	"github.com/TomMcIver/Stock-Port/internal/repositories/security"
	"github.com/TomMcIver/Stock-Port/internal/repositories/sqlite"
	"github.com/TomMcIver/Stock-Port/pkg/cache"
	"github.com/TomMcIver/Stock-Port/pkg/database"
	"github.com/TomMcIver/Stock-Port/pkg/graph"
	"github.com/TomMcIver/Stock-Port/pkg/kafka"
	"github.com/TomMcIver/Stock-Port/pkg/lexicon"
	"github.com/TomMcIver/Stock-Port/pkg/persistence"
	"github.com/TomMcIver/Stock-Port/pkg/routes/health"
	"github.com/TomMcIver/Stock-Port/pkg/startup"
	"github.com/TomMcIver/Stock-Port/pkg/tagging"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Options select which parts of the service Start brings up
type Options struct {
	Migrate  bool   // apply Postgres migrations before the engine loads
	Consume  bool   // run the Kafka article consumer
	Offline  bool   // use an in-process store seeded from SeedPath
	SeedPath string // securities seed for the in-process store, defaults when empty
}

// App holds the running services
type App struct {
	Config  config.Config
	Logger  ectologger.Logger
	Lexicon *lexicon.Lexicon
	Health  *health.Checker

	Store    repositories.Store
	Engine   *tagging.Engine
	Adapter  *persistence.Adapter
	Redis    *cache.Client
	Graph    *graph.Client
	Producer *kafka.Producer
	Consumer *kafka.Consumer

	startup     *startup.Startup
	db          database.DB
	stopWatcher context.CancelFunc
}

// New loads the lexicon and prepares an App. Nothing connects until Start.
func New(cfg config.Config, logger ectologger.Logger) (*App, error) {
	lex := lexicon.Default()
	if cfg.LexiconPath != "" {
		loaded, err := lexicon.Load(cfg.LexiconPath)
		if err != nil {
			return nil, err
		}
		lex = loaded
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Lexicon: lex,
		Health:  health.NewChecker(cfg.AppName),
		startup: startup.NewStartup(logger, cfg.StartupMaxAttempts),
	}, nil
}

// EngineConfig maps the tagging settings onto the engine configuration
func EngineConfig(cfg config.Config) tagging.Config {
	engineCfg := tagging.DefaultConfig()
	engineCfg.PatternThreshold = cfg.PatternThreshold
	engineCfg.ContextualThreshold = cfg.ContextualThreshold
	engineCfg.PatternWindow = cfg.PatternContextWindow
	engineCfg.ContextualWindow = cfg.ContextualContextWindow
	if cfg.MaxTopContexts > 0 {
		engineCfg.MaxTopContexts = cfg.MaxTopContexts
	}
	return engineCfg
}

// Start brings up the dependencies opts needs, in order, and marks the
// service ready.
func (a *App) Start(ctx context.Context, opts Options) error {
	driver := a.Config.DatabaseDriver
	if opts.Offline {
		driver = DriverMemory
	}

	engineAfter := []string{"database"}

	a.startup.AddDependency(startup.Func{
		Name:    "database",
		StartFn: func(ctx context.Context) error { return a.openStore(ctx, driver, opts.SeedPath) },
		StopFn: func(_ context.Context) error {
			if a.Store.Close == nil {
				return nil
			}
			return a.Store.Close()
		},
	})

	if driver == DriverPostgres && opts.Migrate {
		a.startup.AddDependency(startup.Func{
			Name:    "migrations",
			After:   []string{"database"},
			StartFn: func(_ context.Context) error { return a.migrate() },
		})
		engineAfter = append(engineAfter, "migrations")
	}

	if a.Config.RedisEnabled && !opts.Offline {
		a.startup.AddDependency(startup.Func{
			Name:    "redis",
			StartFn: a.connectRedis,
			StopFn: func(_ context.Context) error {
				if a.Redis == nil {
					return nil
				}
				return a.Redis.Close()
			},
		})
		engineAfter = append(engineAfter, "redis")
	}

	if a.Config.GraphEnabled && !opts.Offline {
		a.startup.AddDependency(startup.Func{
			Name:    "graph",
			StartFn: a.connectGraph,
			StopFn: func(ctx context.Context) error {
				if a.Graph == nil {
					return nil
				}
				return a.Graph.Close(ctx)
			},
		})
		engineAfter = append(engineAfter, "graph")
	}

	a.startup.AddDependency(startup.Func{
		Name:    "engine",
		After:   engineAfter,
		StartFn: a.startEngine,
		StopFn: func(_ context.Context) error {
			if a.stopWatcher != nil {
				a.stopWatcher()
			}
			return nil
		},
	})

	if opts.Consume {
		a.startup.AddDependency(startup.Func{
			Name:    "kafka",
			After:   []string{"engine"},
			StartFn: a.startKafka,
			StopFn:  a.stopKafka,
		})
	}

	if err := a.startup.Start(ctx); err != nil {
		return err
	}
	a.Health.SetReady(true)
	return nil
}

// Stop stops everything Start brought up, in reverse order
func (a *App) Stop(ctx context.Context) error {
	a.Health.SetReady(false)
	return a.startup.Stop(ctx)
}

// OpenStore opens the configured reference store without starting the engine
func (a *App) OpenStore(ctx context.Context) error {
	return a.openStore(ctx, a.Config.DatabaseDriver, "")
}

// Migrate applies the Postgres migrations and closes the connection
func (a *App) Migrate(ctx context.Context) error {
	if err := a.openStore(ctx, DriverPostgres, ""); err != nil {
		return err
	}
	defer a.db.Close()
	return a.migrate()
}

func (a *App) openStore(ctx context.Context, driver, seedPath string) error {
	if a.Store.Securities != nil {
		return nil
	}

	switch driver {
	case DriverMemory:
		store := memory.NewStore()
		seeds, err := lexicon.LoadSecurities(seedPath)
		if err != nil {
			return err
		}
		if _, err := SeedSecurities(ctx, a.Logger, store, seeds); err != nil {
			return err
		}
		a.Store = store.AsStore()

	case DriverSQLite:
		store, err := sqlite.Open(a.Config.DatabaseSQLitePath, a.Logger)
		if err != nil {
			return err
		}
		a.Store = store.AsStore()

	case DriverPostgres:
		db, err := database.Open(ctx, database.Options{
			DSN:             a.Config.PostgresDSN(),
			MaxOpenConns:    a.Config.DatabaseMaxOpenConns,
			MaxIdleConns:    a.Config.DatabaseMaxIdleConns,
			ConnMaxLifetime: a.Config.DatabaseConnMaxLifetime,
		}, a.Logger)
		if err != nil {
			return err
		}
		a.db = db
		a.Store = repositories.Store{
			Securities:   security.NewRepository(db, a.Logger),
			Associations: association.NewRepository(db, a.Logger),
			Close:        db.Close,
		}
		a.Health.AddCheck("database", db.PingContext)

	default:
		return fmt.Errorf("unknown DB_DRIVER %q (use postgres, sqlite or memory)", driver)
	}

	a.Logger.WithContext(ctx).WithFields(map[string]any{"driver": driver}).Info("Reference store ready")
	return nil
}

func (a *App) migrate() error {
	return database.NewMigrationService(a.Logger, &database.MigrationConfig{
		MigrationFolderPath: a.Config.DatabaseMigrationFolderPath,
		Version:             uint(max(a.Config.DatabaseMigrationVersion, 0)),
		Force:               a.Config.DatabaseMigrationForce,
		AutoRollback:        a.Config.DatabaseMigrationAutoRollback,
	}).MigratePostgres(a.db.SqlDB(), a.Config.DatabaseName)
}

func (a *App) connectRedis(ctx context.Context) error {
	if a.Redis != nil {
		return nil
	}
	client, err := cache.NewClient(ctx, cache.Config{
		Host:     a.Config.RedisHost,
		Port:     a.Config.RedisPort,
		Password: a.Config.RedisPassword,
		DB:       a.Config.RedisDB,
	}, a.Logger)
	if err != nil {
		return err
	}
	a.Redis = client
	a.Health.AddCheck("redis", client.Ping)
	return nil
}

func (a *App) connectGraph(ctx context.Context) error {
	if a.Graph == nil {
		client, err := graph.NewClient(graph.Config{
			Host:     a.Config.GraphDBHost,
			Port:     a.Config.GraphDBPort,
			Username: a.Config.GraphDBUser,
			Password: a.Config.GraphDBPassword,
			Database: a.Config.GraphDBName,
		}, a.Logger)
		if err != nil {
			return err
		}
		a.Graph = client
	}
	if err := a.Graph.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("graph database unreachable: %w", err)
	}
	a.Graph.EnsureConstraints(ctx)
	a.Health.AddCheck("graph", a.Graph.VerifyConnectivity)
	return nil
}

func (a *App) startEngine(ctx context.Context) error {
	var opts []tagging.Option
	if a.Redis != nil {
		opts = append(opts, tagging.WithReloadGuard(cache.NewReloadGuard(a.Redis, a.Config.ReloadLockTTL)))
	}
	a.Engine = tagging.NewEngine(a.Logger, a.Store.Securities, a.Lexicon, EngineConfig(a.Config), opts...)

	// Another replica may hold the reload lock; this process still needs a snapshot
	stats := a.Engine.Refresh(ctx)
	a.Logger.WithContext(ctx).WithFields(map[string]any{
		"symbols":  stats.Symbols,
		"names":    stats.Names,
		"aliases":  stats.Aliases,
		"degraded": stats.Degraded,
	}).Info("Reference snapshot loaded")

	var adapterOpts []persistence.Option
	adapterOpts = append(adapterOpts, persistence.WithMinConfidence(a.Config.MinPersistConfidence))
	if a.Graph != nil {
		adapterOpts = append(adapterOpts, persistence.WithProjector(graph.NewMentionProjector(a.Graph, a.Logger)))
	}
	if a.Config.ReloadOnNewSecurity {
		adapterOpts = append(adapterOpts, persistence.OnSecuritiesCreated(func(ctx context.Context, symbols []string) {
			a.Logger.WithContext(ctx).WithFields(map[string]any{"symbols": symbols}).Info("New securities created, reloading reference set")
			_, _ = a.Engine.Reload(ctx)
		}))
	}
	a.Adapter = persistence.NewAdapter(a.Logger, a.Store.Securities, a.Store.Associations, adapterOpts...)

	if a.Redis != nil {
		watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		a.stopWatcher = cancel
		watcher := cache.NewVersionWatcher(a.Redis, cache.RefreshFunc(func(ctx context.Context) {
			a.Engine.Refresh(ctx)
		}), a.Config.ReferenceVersionPollInterval, a.Logger)
		go watcher.Run(watchCtx)
	}
	return nil
}

// ReloadReference reloads the engine after an admin change to the reference set
func (a *App) ReloadReference(ctx context.Context) {
	if _, err := a.Engine.Reload(ctx); err != nil {
		// The holder of the lock publishes a version the watcher picks up
		a.Engine.Refresh(ctx)
	}
}

func (a *App) startKafka(ctx context.Context) error {
	parser, err := kafka.NewArticleParser(kafka.ArticleExpressions{
		ID:    a.Config.ArticleIDExpression,
		Title: a.Config.ArticleTitleExpression,
		Body:  a.Config.ArticleBodyExpression,
	})
	if err != nil {
		return err
	}

	var publisher kafka.Publisher
	if a.Config.KafkaOutputTopic != "" {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      a.Config.KafkaBrokers,
			Topic:        a.Config.KafkaOutputTopic,
			BatchSize:    a.Config.KafkaBatchSize,
			BatchTimeout: time.Duration(a.Config.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: a.Config.KafkaRequiredAcks,
			Compression:  a.Config.KafkaCompression,
			WriteTimeout: 10 * time.Second,
		}, a.Logger)
		if err != nil {
			return err
		}
		a.Producer = producer
		publisher = producer
	}

	consumerCfg := kafka.DefaultConsumerConfig(a.Config.KafkaBrokers, a.Config.KafkaInputTopic, a.Config.KafkaConsumerGroup)
	consumerCfg.Workers = a.Config.TagWorkerCount
	consumer, err := kafka.NewConsumer(consumerCfg, a.Logger)
	if err != nil {
		return err
	}
	a.Consumer = consumer

	processor := kafka.NewArticleProcessor(a.Logger, parser, a.Engine, a.Adapter, publisher)
	return consumer.Start(context.WithoutCancel(ctx), processor.Handle)
}

func (a *App) stopKafka(_ context.Context) error {
	var firstErr error
	if a.Consumer != nil {
		firstErr = a.Consumer.Stop()
	}
	if a.Producer != nil {
		if err := a.Producer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
