package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/wrestlerank/internal/adapters/graphdb"
	"github.com/okian/wrestlerank/internal/adapters/importer"
	"github.com/okian/wrestlerank/internal/adapters/lock"
	"github.com/okian/wrestlerank/internal/adapters/repository"
	service "github.com/okian/wrestlerank/internal/app"
	"github.com/okian/wrestlerank/internal/config"
	"github.com/okian/wrestlerank/internal/domain/graph"
	"github.com/okian/wrestlerank/internal/domain/optimizer"
	"github.com/okian/wrestlerank/internal/domain/powerscore"
	"github.com/okian/wrestlerank/pkg/logger"
	"github.com/okian/wrestlerank/pkg/metrics"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// env is everything a subcommand needs.
type env struct {
	cfg    *config.Config
	svc    *service.Service
	log    logger.Logger
	stdout io.Writer
	stderr io.Writer

	closers []func(context.Context) error
}

func setup(ctx context.Context, configPath string, stdout, stderr io.Writer) (*env, error) {
	if configPath != "" {
		if err := os.Setenv(config.EnvConfig, configPath); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	if err := logger.Init(
		logger.WithWriter(stderr),
		logger.WithJSON(cfg.LogFormat == "json"),
		logger.WithLevel(level),
	); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	e := &env{cfg: cfg, log: logger.Get(), stdout: stdout, stderr: stderr}
	svc, err := e.wire(ctx)
	if err != nil {
		e.close(ctx)
		return nil, err
	}
	e.svc = svc
	e.serveMetrics(ctx)
	return e, nil
}

// wire builds the service from configuration.
func (e *env) wire(ctx context.Context) (*service.Service, error) {
	cfg := e.cfg
	store, err := e.openStore(ctx)
	if err != nil {
		return nil, err
	}
	locker, err := e.openLocker(ctx)
	if err != nil {
		return nil, err
	}
	weights, err := cfg.Weights()
	if err != nil {
		return nil, err
	}

	opts := []service.Option{
		service.WithStore(store),
		service.WithLocker(locker),
		service.WithLogger(e.log.Named("service")),
		service.WithSeed(cfg.Seed),
		service.WithIncludeAdjacent(cfg.IncludeAdjacent),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueCapacity),
		service.WithGraphOptions(
			graph.WithBatchSize(cfg.BatchSize),
			graph.WithResultWeights(weights),
			graph.WithCommonOpponentWeight(cfg.CommonOpponentWeight),
		),
		service.WithOptimizerOptions(
			optimizer.WithPageRank(cfg.PageRankDamping, cfg.PageRankTolerance, cfg.PageRankMaxIterations),
			optimizer.WithAnnealing(cfg.AnnealInitialTemperature, cfg.AnnealCoolingRate, cfg.AnnealMinTemperature, cfg.AnnealMaxIterations),
			optimizer.WithRestarts(cfg.AnnealRestarts),
			optimizer.WithWindow(cfg.AnnealWindow),
			optimizer.WithLocalSearch(cfg.LocalSearchMaxPasses, cfg.PairwisePolish),
		),
		service.WithScoringOptions(
			powerscore.WithModifiers(cfg.Modifiers),
			powerscore.WithForfeitPolicy(cfg.Forfeits()),
		),
	}
	if cfg.Neo4jURI != "" {
		client, err := graphdb.NewClient(graphdb.Config{
			URI:      cfg.Neo4jURI,
			Username: cfg.Neo4jUser,
			Password: cfg.Neo4jPassword,
		}, e.log.Named("neo4j"))
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, client.Close)
		opts = append(opts, service.WithExporter(graphdb.NewExporter(client, e.log.Named("export"))))
	}
	return service.New(opts...), nil
}

func (e *env) openStore(ctx context.Context) (repository.Store, error) {
	if e.cfg.Store != config.StorePostgres {
		return repository.NewMemoryStore(), nil
	}
	store, err := repository.NewPostgresStore(ctx, e.cfg.DatabaseURL, e.log.Named("postgres"),
		repository.WithMaxConns(int32(e.cfg.DatabaseMaxConns)), //nolint:gosec // validated range
		repository.WithRunMigrations(true))
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, func(context.Context) error { return store.Close() })
	return store, nil
}

func (e *env) openLocker(ctx context.Context) (lock.Locker, error) {
	if e.cfg.LockBackend != config.LockRedis {
		return lock.NewKeyedMutex(lock.WithWait(e.cfg.LockWait)), nil
	}
	rdb, err := lock.Dial(ctx, e.cfg.RedisAddr, e.cfg.RedisPassword, e.cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, func(context.Context) error { return rdb.Close() })
	return lock.NewRedisLocker(rdb,
		lock.WithTTL(e.cfg.LockTTL),
		lock.WithRedisWait(e.cfg.LockWait),
		lock.WithLogger(e.log.Named("lock"))), nil
}

// serveMetrics exposes the metrics registry while the command runs.
func (e *env) serveMetrics(ctx context.Context) {
	if e.cfg.MetricsAddr == "" {
		return
	}
	reg := metrics.GetRegistry()
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		var are prometheus.AlreadyRegisteredError
		if err := reg.Register(c); err != nil && !errors.As(err, &are) {
			e.log.Warn(ctx, "collector not registered", logger.Error(err))
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: e.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
	go func() {
		e.log.Info(ctx, "serving metrics", logger.String("addr", e.cfg.MetricsAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.Error(ctx, "metrics server failed", logger.Error(err))
		}
	}()
	e.closers = append(e.closers, srv.Shutdown)
}

// close stops the service and releases connections, newest first.
func (e *env) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if e.svc != nil {
		if err := e.svc.Stop(ctx); err != nil {
			e.log.Warn(ctx, "service stop", logger.Error(err))
		}
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](ctx); err != nil {
			e.log.Warn(ctx, "close", logger.Error(err))
		}
	}
	e.closers = nil
}

// load imports path into the store when given.
func (e *env) load(ctx context.Context, path string) (*service.ImportSummary, error) {
	if path == "" {
		path = e.cfg.MatchesPath
	}
	if path == "" {
		return nil, nil
	}
	res, err := importer.New(importer.WithLogger(e.log.Named("importer"))).LoadPath(ctx, path)
	if err != nil {
		return nil, err
	}
	sum, err := e.svc.Import(ctx, res)
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

func (e *env) print(v any) error {
	enc := json.NewEncoder(e.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
