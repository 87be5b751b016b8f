package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/vietddude/crashwatch/internal/core/config"
	"github.com/vietddude/crashwatch/internal/core/domain"
	"github.com/vietddude/crashwatch/internal/health"
	"github.com/vietddude/crashwatch/internal/identity"
	redisclient "github.com/vietddude/crashwatch/internal/infra/redis"
	"github.com/vietddude/crashwatch/internal/infra/storage/postgres"
	"github.com/vietddude/crashwatch/internal/notify"
	"github.com/vietddude/crashwatch/internal/policy"
	"github.com/vietddude/crashwatch/internal/source"
)

// Config holds the application configuration.
type Config struct {
	Port          int
	Spool         config.SpoolConfig
	Redis         redisclient.Config
	Database      postgres.Config
	Platform      config.PlatformConfig
	Notifications config.NotificationConfig
	Packages      []config.PackageConfig
}

// Monitor is the main application struct wiring sources, policy and infra.
type Monitor struct {
	cfg          Config
	registry     *identity.MemoryRegistry
	handler      *policy.Handler
	fileSource   *source.FileSource
	queueSource  *source.QueueSource
	healthServer *health.Server
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// settings adapts the static notification config to the policy boundary.
type settings struct {
	showSystemCrashes bool
}

func (s settings) ShowSystemProcessCrashNotifications() bool {
	return s.showSystemCrashes
}

// NewMonitor creates a new Monitor instance with all dependencies initialized.
func NewMonitor(cfg Config) (*Monitor, error) {
	log := slog.Default()

	// 1. Static registries from config
	registry := identity.NewMemoryRegistry()
	for _, pkg := range cfg.Packages {
		registry.AddPackage(identity.Package{
			Name:   pkg.Name,
			AppID:  pkg.AppID,
			System: pkg.System,
		})
		if pkg.SuppressMemtagAdvisories {
			registry.SetAdvisorySuppressed(pkg.Name, domain.AdvisoryMemoryTagging, true)
		}
	}
	resolver := identity.NewResolver(registry, registry)

	// 2. Optional crash journal
	var db *postgres.DB
	var journal policy.Journal
	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate("migrations"); err != nil {
			return nil, err
		}
		journal = postgres.NewJournalRepo(db)
		slog.Info("Crash journal enabled")
	}

	// 3. Policy handler
	handler := policy.NewHandler(policy.HandlerConfig{
		Resolver:               resolver,
		Suppressions:           registry,
		Settings:               settings{showSystemCrashes: cfg.Notifications.ShowSystemProcessCrashes},
		Notifier:               notify.NewLogNotifier(log),
		Journal:                journal,
		MemoryTaggingSupported: cfg.Platform.MemoryTaggingSupported,
		Logger:                 log,
	})

	m := &Monitor{
		cfg:      cfg,
		registry: registry,
		handler:  handler,
		db:       db,
		log:      log,
	}

	// 4. Event sources
	if cfg.Spool.Dir != "" {
		m.fileSource = source.NewFileSource(cfg.Spool.Dir, cfg.Spool.ScanInterval, handler, log)
	}
	if cfg.Redis.URL != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		m.redisClient = redisClient
		m.queueSource = source.NewQueueSource(redisClient, handler, log)
	}

	// 5. Health/metrics server
	checks := make(map[string]health.Checker)
	if db != nil {
		checks["database"] = db
	}
	m.healthServer = health.NewServer(cfg.Port, checks)

	return m, nil
}

// Handler exposes the policy handler, mainly for tooling and tests.
func (m *Monitor) Handler() *policy.Handler {
	return m.handler
}

// Registry exposes the static identity registry.
func (m *Monitor) Registry() *identity.MemoryRegistry {
	return m.registry
}

// Start launches the event sources and the health server.
func (m *Monitor) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	if m.fileSource != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.fileSource.Run(runCtx)
		}()
		m.log.Info("File source started", "dir", m.cfg.Spool.Dir)
	}

	if m.queueSource != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.queueSource.Run(runCtx)
		}()
		m.log.Info("Queue source started", "stream", m.cfg.Redis.Stream)
	}

	go func() {
		if err := m.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error("Health server failed", "error", err)
		}
	}()
	m.log.Info("Health server started", "port", m.cfg.Port)

	return nil
}

// Stop shuts everything down gracefully.
func (m *Monitor) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()

	if err := m.healthServer.Stop(ctx); err != nil {
		m.log.Warn("Failed to stop health server", "error", err)
	}
	if m.redisClient != nil {
		if err := m.redisClient.Close(); err != nil {
			m.log.Warn("Failed to close redis client", "error", err)
		}
	}
	if m.db != nil {
		if err := m.db.Close(); err != nil {
			m.log.Warn("Failed to close database", "error", err)
		}
	}
	return nil
}
