package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/TremiDkhar/sitelink/internal/config"
	"github.com/TremiDkhar/sitelink/internal/httpserver"
	"github.com/TremiDkhar/sitelink/internal/httpserver/deps"
	"github.com/TremiDkhar/sitelink/internal/links"
	"github.com/TremiDkhar/sitelink/internal/logger"
	"github.com/TremiDkhar/sitelink/internal/metrics"
	"github.com/TremiDkhar/sitelink/internal/peer"
	"github.com/TremiDkhar/sitelink/internal/protocol"
	"github.com/TremiDkhar/sitelink/internal/redis"
	"github.com/TremiDkhar/sitelink/internal/registry"
	"github.com/TremiDkhar/sitelink/internal/scheduler"
	"github.com/TremiDkhar/sitelink/internal/sources/seed"
	redisstore "github.com/TremiDkhar/sitelink/internal/store/redis"
	"github.com/TremiDkhar/sitelink/internal/utils"
	"github.com/TremiDkhar/sitelink/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	links       *links.Manager
	reloader    *scheduler.RegistryReloader
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Redis holds every record; fail fast if unavailable
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.New(redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		DB:             cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("Redis initialized successfully")

	store := redisstore.NewStore(redisClient)
	m := metrics.NewMetrics()

	reg := registry.New(store, loggerClient,
		registry.WithPublisher(store),
		registry.WithObserver(m))

	// Serve the last published registry until the first rebuild completes
	warmer := scheduler.NewRegistryWarmer(store, reg, loggerClient)
	if err := warmer.Warm(context.Background()); err != nil {
		loggerClient.Warn("failed to warm registry from redis, waiting for rebuild",
			logger.Error(err))
	}

	service := protocol.NewService(reg, cfg.LocalSite, cfg.Digest, protocol.WithObserver(m))
	manager := links.NewManager(store, reg, cfg.LocalSite, cfg.Digest, loggerClient)

	reloadTrigger := make(chan struct{}, 1)
	reloader := scheduler.NewRegistryReloader(reg, loggerClient, cfg.ReloadInterval, reloadTrigger)

	d := deps.Deps{
		Logger:            loggerClient,
		StartTime:         time.Now(),
		Version:           version.Version,
		Commit:            version.Commit,
		BuildDate:         version.BuildDate,
		GoVersion:         version.GoVersion,
		TimeNow:           time.Now,
		AllowedHosts:      cfg.AllowedHosts,
		AllowedCIDRS:      cfg.AllowedCIDRS,
		TrustProxy:        cfg.TrustProxy,
		APIPrefix:         cfg.APIPrefix,
		CheckBurst:        cfg.CheckBurst,
		CheckRefillPerMin: cfg.CheckRefillPerMin,
		Protocol:          service,
		Links:             manager,
		Peer:              peer.NewClient(cfg.APIPrefix, cfg.PeerTimeout, loggerClient),
		Registry:          reg,
		Store:             store,
		Metrics:           m.Handler(),
		ReloadTrigger:     reloadTrigger,
		PeerCheckTimeout:  cfg.PeerTimeout,
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg.ListenPort, d),
		redisClient: redisClient,
		links:       manager,
		reloader:    reloader,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting sitelink %s on %s", version.String(), a.cfg.ListenPort)
	a.logger.Info("site link protocol",
		logger.String("local_site", a.cfg.LocalSite),
		logger.String("digest", string(a.cfg.Digest)),
		logger.String("check_path", a.cfg.APIPrefix+peer.CheckPath))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.applySeed(ctx); err != nil {
		return err
	}

	if err := a.reloader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start registry reloader: %w", err)
	}
	a.logger.Info("registry reloader started",
		logger.Duration("interval", a.cfg.ReloadInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.reloader.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	utils.CloseLogged(a.redisClient, "redis", a.logger)
	a.logger.Info("✅ sitelink stopped cleanly")
	_ = a.logger.Sync()
	return nil
}

func (a *App) applySeed(ctx context.Context) error {
	if a.cfg.SeedFile == "" {
		return nil
	}

	file, err := seed.NewLoader(a.cfg.SeedFile).Load()
	if err != nil {
		return fmt.Errorf("failed to load seed file: %w", err)
	}

	applied, err := seed.Apply(ctx, file, a.links, a.logger)
	if err != nil {
		return err
	}
	a.logger.Info("seed file applied",
		logger.String("file", a.cfg.SeedFile),
		logger.Int("links", applied))
	return nil
}
