package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/okian/wrestlerank/internal/domain/graph"
	"github.com/okian/wrestlerank/internal/domain/model"
	"github.com/okian/wrestlerank/internal/domain/optimizer"
	"github.com/okian/wrestlerank/internal/domain/powerscore"
	"github.com/okian/wrestlerank/internal/domain/weightclass"
	"github.com/okian/wrestlerank/internal/simulate"
)

func newFlags(e *env, name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	in := fs.String("in", "", "season file or directory to import first (default matches_path)")
	return fs, in
}

func requireClass(name, class string) error {
	if strings.TrimSpace(class) == "" {
		return fmt.Errorf("%w: %s needs -class", errUsage, name)
	}
	return nil
}

func cmdImport(ctx context.Context, e *env, args []string) error {
	fs, in := newFlags(e, "import")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sum, err := e.load(ctx, *in)
	if err != nil {
		return err
	}
	if sum == nil {
		return fmt.Errorf("%w: import needs -in or matches_path", errUsage)
	}
	return e.print(sum)
}

type buildOutput struct {
	Report graph.Report              `json:"report"`
	Edges  map[string]map[string]int `json:"edges"`
}

func cmdBuild(ctx context.Context, e *env, args []string) error {
	fs, in := newFlags(e, "build")
	class := fs.String("class", "", "weight class (default every class)")
	mode := fs.String("mode", "incremental", "full or incremental")
	adjacent := fs.Bool("adjacent", false, "let neighbouring classes supply common opponents")
	reset := fs.Bool("reset", false, "clear tallies and processed flags first")
	if err := fs.Parse(args); err != nil {
		return err
	}
	m, err := graph.ParseMode(*mode)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if _, err := e.load(ctx, *in); err != nil {
		return err
	}
	res, err := e.svc.BuildRelationships(ctx, graph.Request{
		WeightClass:     *class,
		Mode:            m,
		IncludeAdjacent: *adjacent,
		ResetFirst:      *reset,
	})
	if err != nil {
		return err
	}
	out := buildOutput{Report: res.Report, Edges: map[string]map[string]int{}}
	for c, g := range res.Graphs {
		out.Edges[c] = map[string]int{
			graph.Direct.String():         g.EdgeCount(graph.Direct),
			graph.CommonOpponent.String(): g.EdgeCount(graph.CommonOpponent),
		}
	}
	return e.print(out)
}

func cmdScores(ctx context.Context, e *env, args []string) error {
	fs, in := newFlags(e, "scores")
	class := fs.String("class", "", "weight class")
	top := fs.Int("top", 0, "only print the best n (default all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireClass("scores", *class); err != nil {
		return err
	}
	if _, err := e.load(ctx, *in); err != nil {
		return err
	}
	scores, err := e.svc.ComputePowerScores(ctx, *class, nil)
	if err != nil {
		return err
	}
	ranked := powerscore.Rank(scores)
	if *top > 0 && *top < len(ranked) {
		ranked = ranked[:*top]
	}
	return e.print(ranked)
}

type optimizeOutput struct {
	Ranking model.RankingResult     `json:"ranking"`
	Tag     string                  `json:"tag"`
	Stages  []optimizer.StageReport `json:"stages"`
	Warning string                  `json:"warning,omitempty"`
}

func cmdOptimize(ctx context.Context, e *env, args []string) error {
	fs, in := newFlags(e, "optimize")
	class := fs.String("class", "", "weight class")
	seed := fs.Int64("seed", 0, "annealing seed (default from config)")
	build := fs.Bool("build", true, "run an incremental build first")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireClass("optimize", *class); err != nil {
		return err
	}
	if err := e.prepare(ctx, *in, *class, *build); err != nil {
		return err
	}
	var sp *int64
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			sp = seed
		}
	})
	out, err := e.svc.OptimizeRanking(ctx, *class, sp)
	if err != nil {
		return err
	}
	res := optimizeOutput{Ranking: out.Ranking, Tag: out.Ranking.Tag(), Stages: out.Run.Stages}
	if out.Run.Warning != nil {
		res.Warning = out.Run.Warning.Error()
	}
	return e.print(res)
}

func cmdRanking(ctx context.Context, e *env, args []string) error {
	fs, in := newFlags(e, "ranking")
	class := fs.String("class", "", "weight class")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireClass("ranking", *class); err != nil {
		return err
	}
	if _, err := e.load(ctx, *in); err != nil {
		return err
	}
	rows, err := e.svc.Ranking(ctx, *class)
	if err != nil {
		return err
	}
	return e.print(rows)
}

type runOutcome struct {
	WeightClass string        `json:"weight_class"`
	Took        time.Duration `json:"took"`
	Error       string        `json:"error,omitempty"`
}

func cmdRun(ctx context.Context, e *env, args []string) error {
	fs, in := newFlags(e, "run")
	classes := fs.String("classes", "", "comma separated weight classes (default every class)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := e.load(ctx, *in); err != nil {
		return err
	}
	if err := e.svc.Start(ctx); err != nil {
		return err
	}
	outcomes, runErr := e.svc.RunAll(ctx, splitList(*classes), nil)
	rows := make([]runOutcome, len(outcomes))
	for i, o := range outcomes {
		rows[i] = runOutcome{WeightClass: o.WeightClass, Took: o.Took}
		if o.Err != nil {
			rows[i].Error = o.Err.Error()
		}
	}
	if err := e.print(rows); err != nil {
		return err
	}
	return runErr
}

func cmdMatrix(ctx context.Context, e *env, args []string) error {
	fs, in := newFlags(e, "matrix")
	class := fs.String("class", "", "weight class")
	build := fs.Bool("build", true, "run an incremental build first")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireClass("matrix", *class); err != nil {
		return err
	}
	if err := e.prepare(ctx, *in, *class, *build); err != nil {
		return err
	}
	m, err := e.svc.Matrix(ctx, *class, nil)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.stdout, "%s\nanomalies: %d\n", m.String(), m.Anomalies())
	return err
}

func cmdExportGraph(ctx context.Context, e *env, args []string) error {
	fs, in := newFlags(e, "export-graph")
	class := fs.String("class", "", "weight class")
	build := fs.Bool("build", true, "run an incremental build first")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireClass("export-graph", *class); err != nil {
		return err
	}
	if err := e.prepare(ctx, *in, *class, *build); err != nil {
		return err
	}
	sum, err := e.svc.ExportGraph(ctx, *class)
	if err != nil {
		return err
	}
	return e.print(sum)
}

func cmdSimulate(ctx context.Context, e *env, args []string) error {
	def := simulate.DefaultConfig()
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	classes := fs.String("classes", strings.Join(def.Classes, ","), "comma separated weight classes")
	wrestlers := fs.Int("wrestlers", def.Wrestlers, "wrestlers per class")
	bouts := fs.Int("bouts", def.Bouts, "bouts started by each wrestler")
	roundRobin := fs.Bool("round-robin", false, "pair every two wrestlers once")
	noise := fs.Float64("noise", def.Noise, "upset noise, 0 for none")
	seed := fs.Int64("seed", def.Seed, "generator and annealing seed")
	out := fs.String("out", "", "also write the season files to this directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := def
	cfg.Classes = splitList(*classes)
	cfg.Wrestlers, cfg.Bouts, cfg.RoundRobin = *wrestlers, *bouts, *roundRobin
	cfg.Noise, cfg.Seed = *noise, *seed
	cfg.Workers = e.cfg.WorkerCount
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	log := simulate.WithLogger(e.log.Named("simulate"))
	if *out != "" {
		season, err := simulate.Generate(ctx, cfg, log)
		if err != nil {
			return err
		}
		if _, err := simulate.WriteSeason(*out, season); err != nil {
			return err
		}
	}
	sum, err := simulate.Run(ctx, e.svc, cfg, log)
	if err != nil {
		return err
	}
	return e.print(sum)
}

// prepare imports in and, when build is set, brings class up to date.
func (e *env) prepare(ctx context.Context, in, class string, build bool) error {
	if _, err := e.load(ctx, in); err != nil {
		return err
	}
	if !build {
		return nil
	}
	_, err := e.svc.BuildRelationships(ctx, graph.Request{WeightClass: class})
	return err
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = weightclass.Normalize(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
