package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	service "github.com/okian/wrestlerank/internal/app"
	"github.com/okian/wrestlerank/internal/simulate"
	"github.com/okian/wrestlerank/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.WithWriter(io.Discard))
	os.Exit(m.Run())
}

func writeSeason(t *testing.T) string {
	t.Helper()
	cfg := simulate.DefaultConfig()
	cfg.Classes = []string{"157"}
	cfg.Wrestlers = 6
	cfg.RoundRobin = true
	cfg.Noise = 0
	s, err := simulate.Generate(context.Background(), cfg)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	dir := t.TempDir()
	if _, err := simulate.WriteSeason(dir, s); err != nil {
		t.Fatalf("write season: %v", err)
	}
	return dir
}

func invoke(args ...string) (string, error) {
	var out, errOut bytes.Buffer
	err := run(context.Background(), args, &out, &errOut)
	return out.String(), err
}

func TestRunDispatch(t *testing.T) {
	t.Setenv("WRESTLERANK_ANNEAL_MAX_ITERATIONS", "2000")
	t.Setenv("WRESTLERANK_LOG_LEVEL", "error")
	dir := writeSeason(t)

	convey.Convey("Given the wrestlerank command", t, func() {
		convey.Convey("When no command is given", func() {
			_, err := invoke()
			convey.So(errors.Is(err, errUsage), convey.ShouldBeTrue)
		})

		convey.Convey("When the command is unknown", func() {
			_, err := invoke("dance")
			convey.So(errors.Is(err, errUsage), convey.ShouldBeTrue)
		})

		convey.Convey("When import has nothing to read", func() {
			_, err := invoke("import")
			convey.So(errors.Is(err, errUsage), convey.ShouldBeTrue)
		})

		convey.Convey("When a class is required but missing", func() {
			_, err := invoke("optimize", "-in", dir)
			convey.So(errors.Is(err, errUsage), convey.ShouldBeTrue)
		})

		convey.Convey("When an empty store is scored", func() {
			_, err := invoke("scores", "-class", "157")
			convey.So(errors.Is(err, service.ErrEmptyInput), convey.ShouldBeTrue)
		})

		convey.Convey("When a season is imported", func() {
			out, err := invoke("import", "-in", dir)
			convey.So(err, convey.ShouldBeNil)
			var sum service.ImportSummary
			convey.So(json.Unmarshal([]byte(out), &sum), convey.ShouldBeNil)
			convey.So(sum.Entities, convey.ShouldEqual, 6)
			convey.So(sum.New, convey.ShouldEqual, 15)
		})

		convey.Convey("When a class is optimized from files", func() {
			out, err := invoke("optimize", "-in", dir, "-class", "157", "-seed", "3")
			convey.So(err, convey.ShouldBeNil)
			var res optimizeOutput
			convey.So(json.Unmarshal([]byte(out), &res), convey.ShouldBeNil)
			convey.So(res.Ranking.Order, convey.ShouldHaveLength, 6)
			convey.So(res.Ranking.Seed, convey.ShouldEqual, int64(3))
			convey.So(res.Ranking.Cost, convey.ShouldEqual, 0.0)
			convey.So(strings.HasSuffix(res.Tag, "-pagerank_mfas_sa_ls"), convey.ShouldBeTrue)
			convey.So(res.Stages, convey.ShouldHaveLength, 4)
		})

		convey.Convey("When the matrix is printed", func() {
			out, err := invoke("matrix", "-in", dir, "-class", "157")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "157-001")
			convey.So(out, convey.ShouldContainSubstring, "anomalies: ")
		})

		convey.Convey("When every class is run", func() {
			out, err := invoke("run", "-in", dir)
			convey.So(err, convey.ShouldBeNil)
			var rows []runOutcome
			convey.So(json.Unmarshal([]byte(out), &rows), convey.ShouldBeNil)
			convey.So(rows, convey.ShouldHaveLength, 1)
			convey.So(rows[0].Error, convey.ShouldBeEmpty)
		})

		convey.Convey("When export is requested without Neo4j", func() {
			_, err := invoke("export-graph", "-in", dir, "-class", "157")
			convey.So(errors.Is(err, service.ErrNoExporter), convey.ShouldBeTrue)
		})

		convey.Convey("When a season is simulated", func() {
			out := filepath.Join(t.TempDir(), "season")
			stdout, err := invoke("simulate", "-classes", "165", "-wrestlers", "6", "-round-robin", "-noise", "0", "-out", out)
			convey.So(err, convey.ShouldBeNil)

			var sum simulate.Summary
			convey.So(json.Unmarshal([]byte(stdout), &sum), convey.ShouldBeNil)
			convey.So(sum.Classes, convey.ShouldHaveLength, 1)
			convey.So(sum.Classes[0].Kendall, convey.ShouldEqual, 0)
			_, statErr := os.Stat(filepath.Join(out, "weight_class_165.json"))
			convey.So(statErr, convey.ShouldBeNil)
		})
	})
}

func TestUsage(t *testing.T) {
	convey.Convey("Usage lists every command", t, func() {
		var b bytes.Buffer
		usage(&b)
		for name := range commands {
			convey.So(b.String(), convey.ShouldContainSubstring, name)
		}
	})
}
