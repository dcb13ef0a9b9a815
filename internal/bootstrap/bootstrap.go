// Package bootstrap wires configuration, logging, the model manager and
// the HTTP transport, then owns the service lifecycle until shutdown.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/leechanwoo-kor/chatterbox/internal/domain/tts"
	"github.com/leechanwoo-kor/chatterbox/internal/domain/tts/cache"
	"github.com/leechanwoo-kor/chatterbox/internal/domain/tts/engine"
	platformconfig "github.com/leechanwoo-kor/chatterbox/internal/platform/config"
	platformerrors "github.com/leechanwoo-kor/chatterbox/internal/platform/errors"
	platformlogging "github.com/leechanwoo-kor/chatterbox/internal/platform/logging"
	platformstorage "github.com/leechanwoo-kor/chatterbox/internal/platform/storage"
	httptransport "github.com/leechanwoo-kor/chatterbox/internal/transport/http"
	httptts "github.com/leechanwoo-kor/chatterbox/internal/transport/http/tts"
	"github.com/leechanwoo-kor/chatterbox/internal/utils"
)

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	config      *platformconfig.Config
	configPath  string
	logProvider *platformlogging.Logger
	logger      *utils.Logger
	db          *gorm.DB
	cacheStore  cache.Store
	factory     *engine.Factory
	manager     *tts.Manager
}

// Run starts the whole service lifecycle: configuration, dependencies,
// HTTP transport and graceful shutdown.
func Run(ctx context.Context) error {
	state := &appState{}

	if err := executeInitSteps(ctx, InitGraph(), state); err != nil {
		return err
	}

	config := state.config
	logger := state.logger
	if config == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}
	manager := state.manager
	if manager == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"model manager not initialised",
		)
	}

	logBootstrapGraph(logger)

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := manager.Close(closeCtx); err != nil {
			logger.ErrorTag("Model", "model manager did not shut down cleanly: %v", err)
		}
	}()

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if err := startServices(state, group, groupCtx); err != nil {
		cancel()
		return err
	}

	if len(config.Models.Preload) > 0 {
		group.Go(func() error {
			// a failed preload leaves lazy loading in place
			if err := manager.Preload(groupCtx, config.Models.Preload); err != nil {
				logger.ErrorTag("Model", "preload failed: %v", err)
			}
			return nil
		})
	}

	if err := waitForShutdown(signalCtx, cancel, logger, group); err != nil {
		return err
	}

	logger.InfoTag("Boot", "service stopped")
	logger.Close()
	return nil
}

func logBootstrapGraph(logger *utils.Logger) {
	logger.InfoTag("Boot", "initialisation complete")
	logger.InfoTag("Boot", "starting services")
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}
			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph declares the ordered initialisation steps and their
// dependencies.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "storage:init-database",
			Title:     "Initialise database",
			DependsOn: []string{"config:load", "logging:init-provider"},
			Kind:      platformerrors.KindCache,
			Execute:   initDatabaseStep,
		},
		{
			ID:        "cache:init-store",
			Title:     "Initialise synthesis cache",
			DependsOn: []string{"storage:init-database"},
			Kind:      platformerrors.KindCache,
			Execute:   initCacheStep,
		},
		{
			ID:        "engine:init-factory",
			Title:     "Initialise engine factory",
			DependsOn: []string{"config:load", "logging:init-provider"},
			Kind:      platformerrors.KindEngine,
			Execute:   initEngineFactoryStep,
		},
		{
			ID:        "model:init-manager",
			Title:     "Initialise model manager",
			DependsOn: []string{"cache:init-store", "engine:init-factory"},
			Kind:      platformerrors.KindModel,
			Execute:   initManagerStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader().Load()
	if err != nil {
		return err
	}
	if result.Config.HFToken != "" {
		os.Setenv("HF_TOKEN", result.Config.HFToken)
		os.Setenv("HUGGING_FACE_HUB_TOKEN", result.Config.HFToken)
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init-provider",
			"config not loaded",
		)
	}

	logProvider, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap,
			"logging:init-provider", "failed to initialise logging provider", err)
	}

	state.logProvider = logProvider
	state.logger = logProvider.Base()
	utils.DefaultLogger = state.logger

	state.logger.InfoTag("Boot", "logging ready [%s] config from %s",
		state.config.Log.Level, state.configPath)
	return nil
}

// initDatabaseStep opens SQLite only when the cache driver needs it.
func initDatabaseStep(_ context.Context, state *appState) error {
	if state.config.Cache.Driver != cache.DriverSQLite {
		return nil
	}
	db, err := platformstorage.Open(state.config.Cache.SQLite.DSN)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindCache,
			"storage:init-database", "failed to open cache database", err)
	}
	state.db = db
	return nil
}

func initCacheStep(_ context.Context, state *appState) error {
	cfg := state.config.Cache
	store, err := cache.New(cache.Config{
		Driver: cfg.Driver,
		TTL:    cfg.TTL,
		Redis: &cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		},
		SQLite: &cache.SQLiteConfig{DSN: cfg.SQLite.DSN},
		Memory: &cache.MemoryConfig{GCInterval: cfg.Memory.GCInterval},
	}, cache.Dependencies{SQLiteDB: state.db})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindCache,
			"cache:init-store", "failed to initialise synthesis cache", err)
	}
	state.cacheStore = store
	state.logger.InfoTag("Cache", "synthesis cache ready [%s]", driverName(cfg.Driver))
	return nil
}

func driverName(driver string) string {
	if driver == "" {
		return cache.DriverNone
	}
	return driver
}

func initEngineFactoryStep(_ context.Context, state *appState) error {
	cfg := state.config.Models
	factory, err := engine.NewFactory(engine.Config{
		Command:         cfg.RunnerCommand,
		Args:            cfg.RunnerArgs,
		WorkDir:         cfg.WorkDir,
		LoadTimeout:     cfg.LoadTimeout,
		GenerateTimeout: cfg.GenerateTimeout,
	}, state.logger)
	if err != nil {
		return err
	}
	state.factory = factory
	return nil
}

func initManagerStep(_ context.Context, state *appState) error {
	device := tts.DetectDevice(state.config.Models.Device)
	manager, err := tts.NewManager(state.factory, state.cacheStore, device, state.logger)
	if err != nil {
		return err
	}
	state.manager = manager
	state.logger.InfoTag("Model", "model manager ready on %s", device)
	return nil
}

func startServices(state *appState, g *errgroup.Group, groupCtx context.Context) error {
	if _, err := startHTTPServer(state, g, groupCtx); err != nil {
		return fmt.Errorf("start HTTP service: %w", err)
	}
	return nil
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	config := state.config
	logger := state.logger

	router, err := httptransport.Build(httptransport.Options{
		Config:     config,
		Logger:     logger,
		StaticRoot: config.Web.StaticDir,
	})
	if err != nil {
		return nil, err
	}

	service, err := httptts.NewService(config, logger, state.manager)
	if err != nil {
		return nil, err
	}
	service.Register(router.Root)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router.Engine,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "listening on %s", addr)

		go func() {
			<-groupCtx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "HTTP shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "HTTP service stopped")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "HTTP service failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *utils.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("Boot", "received signal %v, cleaning up", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("Boot", "error during shutdown: %v", err)
			return err
		}
		logger.InfoTag("Boot", "all services stopped")
	case <-time.After(15 * time.Second):
		timeoutErr := errors.New("shutdown timed out")
		logger.ErrorTag("Boot", "shutdown timed out, forcing exit")
		return timeoutErr
	}
	return nil
}
