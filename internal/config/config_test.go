package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/wrestlerank/internal/config"
	"github.com/okian/wrestlerank/internal/domain/model"
	"github.com/okian/wrestlerank/internal/domain/powerscore"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.LockBackend, convey.ShouldEqual, config.LockLocal)
			convey.So(cfg.BatchSize, convey.ShouldEqual, 100)
			convey.So(cfg.CommonOpponentWeight, convey.ShouldEqual, 0.5)
			convey.So(cfg.PageRankDamping, convey.ShouldEqual, 0.85)
			convey.So(cfg.AnnealCoolingRate, convey.ShouldEqual, 0.9999)
			convey.So(cfg.AnnealRestarts, convey.ShouldEqual, 4)
			convey.So(cfg.Seed, convey.ShouldEqual, int64(42))
			convey.So(cfg.Modifiers, convey.ShouldResemble, powerscore.DefaultModifiers())
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.LockWait, convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with a bad value", t, func() {
		cases := map[string]func(c *config.Config){
			"unknown store":          func(c *config.Config) { c.Store = "sqlite" },
			"postgres without url":   func(c *config.Config) { c.Store = config.StorePostgres },
			"unknown lock backend":   func(c *config.Config) { c.LockBackend = "etcd" },
			"zero batch":             func(c *config.Config) { c.BatchSize = 0 },
			"damping of one":         func(c *config.Config) { c.PageRankDamping = 1 },
			"cooling above one":      func(c *config.Config) { c.AnnealCoolingRate = 1.5 },
			"floor above start":      func(c *config.Config) { c.AnnealMinTemperature = 20 },
			"no restarts":            func(c *config.Config) { c.AnnealRestarts = 0 },
			"negative modifier":      func(c *config.Config) { c.Modifiers.BadLoss = -1 },
			"unknown forfeit policy": func(c *config.Config) { c.ForfeitPolicy = "coin_flip" },
			"unknown result weight":  func(c *config.Config) { c.ResultWeights = map[string]float64{"pinfall": 2} },
			"zero result weight":     func(c *config.Config) { c.ResultWeights = map[string]float64{"fall": 0} },
			"no workers":             func(c *config.Config) { c.WorkerCount = 0 },
		}
		for name, mutate := range cases {
			cfg := config.New(context.Background())
			mutate(cfg)
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			if err == nil {
				t.Errorf("%s: expected an error", name)
			}
		}
	})

	convey.Convey("Given result weights by name", t, func() {
		cfg := config.New(context.Background())
		cfg.ResultWeights = map[string]float64{"Fall": 1.5, "tech_fall": 1.25}
		w, err := cfg.Weights()

		convey.Convey("Then they map onto result types", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(w.For(model.ResultFall), convey.ShouldEqual, 1.5)
			convey.So(w.For(model.ResultTechFall), convey.ShouldEqual, 1.25)
			convey.So(w.For(model.ResultDecision), convey.ShouldEqual, 1.0)
		})
	})

	convey.Convey("Forfeits falls back to neutral", t, func() {
		cfg := config.New(context.Background())
		cfg.ForfeitPolicy = "decision"
		convey.So(cfg.Forfeits(), convey.ShouldEqual, powerscore.ForfeitDecision)
		cfg.ForfeitPolicy = "bogus"
		convey.So(cfg.Forfeits(), convey.ShouldEqual, powerscore.ForfeitNeutral)
	})
}
