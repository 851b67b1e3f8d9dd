// Package config defines process configuration and its loading.
//
// Conventions:
// - New(ctx) returns the defaults, Load(ctx) layers file and env on top.
// - Validation failures wrap ErrInvalidConfig, load failures ErrLoadConfig.
package config

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strings"
	"time"

	"github.com/okian/wrestlerank/internal/domain/graph"
	"github.com/okian/wrestlerank/internal/domain/model"
	"github.com/okian/wrestlerank/internal/domain/optimizer"
	"github.com/okian/wrestlerank/internal/domain/powerscore"
)

// Store and lock backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	LockLocal     = "local"
	LockRedis     = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"` // text or json

	Store            string `koanf:"store"`
	DatabaseURL      string `koanf:"database_url"`
	DatabaseMaxConns int    `koanf:"database_max_conns"`
	MatchesPath      string `koanf:"matches_path"`

	LockBackend   string        `koanf:"lock_backend"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	LockTTL       time.Duration `koanf:"lock_ttl"`
	LockWait      time.Duration `koanf:"lock_wait"`

	BatchSize            int                `koanf:"batch_size"`
	IncludeAdjacent      bool               `koanf:"include_adjacent"`
	CommonOpponentWeight float64            `koanf:"common_opponent_weight"`
	ResultWeights        map[string]float64 `koanf:"result_weights"`

	PageRankDamping       float64 `koanf:"pagerank_damping"`
	PageRankTolerance     float64 `koanf:"pagerank_tolerance"`
	PageRankMaxIterations int     `koanf:"pagerank_max_iterations"`

	AnnealInitialTemperature float64 `koanf:"anneal_initial_temperature"`
	AnnealCoolingRate        float64 `koanf:"anneal_cooling_rate"`
	AnnealMinTemperature     float64 `koanf:"anneal_min_temperature"`
	AnnealMaxIterations      int     `koanf:"anneal_max_iterations"`
	AnnealRestarts           int     `koanf:"anneal_restarts"`
	// AnnealWindow limits swap distance; 0 allows any pair.
	AnnealWindow int `koanf:"anneal_window"`

	LocalSearchMaxPasses int  `koanf:"local_search_max_passes"`
	PairwisePolish       bool `koanf:"pairwise_polish"`

	Seed          int64                `koanf:"seed"`
	Modifiers     powerscore.Modifiers `koanf:"modifiers"`
	ForfeitPolicy string               `koanf:"forfeit_policy"`

	WorkerCount   int    `koanf:"worker_count"`
	QueueCapacity int    `koanf:"queue_capacity"`
	Neo4jURI      string `koanf:"neo4j_uri"`
	Neo4jUser     string `koanf:"neo4j_user"`
	Neo4jPassword string `koanf:"neo4j_password"`
	MetricsAddr   string `koanf:"metrics_addr"`
}

// New returns the defaults. Context is accepted first to follow the
// project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Store:            StoreMemory,
		DatabaseMaxConns: 10,

		LockBackend: LockLocal,
		RedisAddr:   "localhost:6379",
		LockTTL:     5 * time.Minute,
		LockWait:    30 * time.Second,

		BatchSize:            graph.DefaultBatchSize,
		CommonOpponentWeight: graph.DefaultCommonOpponentWeight,
		ResultWeights:        map[string]float64{},

		PageRankDamping:       optimizer.DefaultDamping,
		PageRankTolerance:     optimizer.DefaultTolerance,
		PageRankMaxIterations: optimizer.DefaultPageRankIterations,

		AnnealInitialTemperature: optimizer.DefaultInitialTemperature,
		AnnealCoolingRate:        optimizer.DefaultCoolingRate,
		AnnealMinTemperature:     optimizer.DefaultMinTemperature,
		AnnealMaxIterations:      optimizer.DefaultAnnealIterations,
		AnnealRestarts:           optimizer.DefaultRestarts,

		LocalSearchMaxPasses: optimizer.DefaultLocalSearchMaxPasses,

		Seed:          optimizer.DefaultSeed,
		Modifiers:     powerscore.DefaultModifiers(),
		ForfeitPolicy: powerscore.ForfeitNeutral.String(),

		WorkerCount:   runtime.NumCPU(),
		QueueCapacity: 256,
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var problems []string
	bad := func(format string, args ...any) { problems = append(problems, fmt.Sprintf(format, args...)) }

	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			bad("database_url is required for the postgres store")
		}
	default:
		bad("store %q is not memory or postgres", c.Store)
	}
	switch c.LockBackend {
	case LockLocal:
	case LockRedis:
		if c.RedisAddr == "" {
			bad("redis_addr is required for the redis lock")
		}
	default:
		bad("lock_backend %q is not local or redis", c.LockBackend)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		bad("log_format %q is not text or json", c.LogFormat)
	}

	if c.BatchSize < 1 {
		bad("batch_size must be positive")
	}
	if !finite(c.CommonOpponentWeight) || c.CommonOpponentWeight < 0 {
		bad("common_opponent_weight must be a non-negative number")
	}
	if _, err := c.Weights(); err != nil {
		bad("%v", err)
	}
	if c.PageRankDamping <= 0 || c.PageRankDamping >= 1 {
		bad("pagerank_damping must be in (0,1)")
	}
	if c.PageRankTolerance <= 0 || c.PageRankMaxIterations < 1 {
		bad("pagerank_tolerance and pagerank_max_iterations must be positive")
	}
	if c.AnnealInitialTemperature <= 0 || c.AnnealMinTemperature <= 0 || c.AnnealMinTemperature > c.AnnealInitialTemperature {
		bad("annealing temperatures must satisfy 0 < min <= initial")
	}
	if c.AnnealCoolingRate <= 0 || c.AnnealCoolingRate >= 1 {
		bad("anneal_cooling_rate must be in (0,1)")
	}
	if c.AnnealMaxIterations < 0 || c.AnnealRestarts < 1 || c.AnnealWindow < 0 || c.LocalSearchMaxPasses < 0 {
		bad("annealing and local search counts must not be negative, restarts at least 1")
	}
	if err := c.Modifiers.Validate(); err != nil {
		bad("%v", err)
	}
	if _, err := powerscore.ParseForfeitPolicy(c.ForfeitPolicy); err != nil {
		bad("%v", err)
	}
	if c.WorkerCount < 1 || c.QueueCapacity < 1 {
		bad("worker_count and queue_capacity must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Weights converts result_weights into graph weights keyed by result type.
func (c *Config) Weights() (graph.ResultWeights, error) {
	out := graph.ResultWeights{}
	for name, w := range c.ResultWeights {
		r, err := model.ParseResultType(strings.ToLower(name))
		if err != nil {
			return nil, fmt.Errorf("result_weights: %w", err)
		}
		if !finite(w) || w <= 0 {
			return nil, fmt.Errorf("result_weights: %s must be positive", name)
		}
		out[r] = w
	}
	return out, nil
}

// Forfeits returns the parsed forfeit policy.
func (c *Config) Forfeits() powerscore.ForfeitPolicy {
	p, err := powerscore.ParseForfeitPolicy(c.ForfeitPolicy)
	if err != nil {
		return powerscore.ForfeitNeutral
	}
	return p
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
