// Package simulate generates synthetic seasons from hidden strengths and
// checks how well the pipeline recovers them.
package simulate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/okian/wrestlerank/internal/adapters/importer"
	service "github.com/okian/wrestlerank/internal/app"
	"github.com/okian/wrestlerank/pkg/logger"
)

// Summary is the outcome of one simulation run.
type Summary struct {
	Entities int           `json:"entities"`
	Matches  int           `json:"matches"`
	Upsets   int           `json:"upsets"`
	Classes  []ClassReport `json:"classes"`
	Duration time.Duration `json:"duration"`
}

// Run generates a season, feeds it through svc and compares every
// published ranking with the hidden order. svc is started if needed and
// left running.
func Run(ctx context.Context, svc *service.Service, cfg Config, opts ...Option) (Summary, error) {
	start := time.Now()
	log := newSettings(opts).logger
	season, err := Generate(ctx, cfg, opts...)
	if err != nil {
		return Summary{}, err
	}
	if _, err := svc.Import(ctx, importer.Result{Entities: season.Entities, Matches: season.Matches}); err != nil {
		return Summary{}, fmt.Errorf("import season: %w", err)
	}
	if err := svc.Start(ctx); err != nil {
		return Summary{}, err
	}
	classes := make([]string, 0, len(season.Hidden))
	for c := range season.Hidden {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	seed := cfg.Seed
	if _, err := svc.RunAll(ctx, classes, &seed); err != nil {
		return Summary{}, fmt.Errorf("run season: %w", err)
	}

	sum := Summary{Entities: len(season.Entities), Matches: len(season.Matches), Upsets: season.Upsets}
	for _, class := range classes {
		ranking, err := svc.Store().LatestRanking(ctx, class)
		if err != nil {
			return sum, fmt.Errorf("load ranking for %s: %w", class, err)
		}
		g, err := svc.Graph(ctx, class)
		if err != nil {
			return sum, err
		}
		rep := Verify(g, season.Hidden[class], ranking.Order)
		sum.Classes = append(sum.Classes, rep)
		log.Info(ctx, "class verified",
			logger.String("weight_class", class),
			logger.Int("kendall", rep.Kendall),
			logger.Float64("kendall_norm", rep.KendallNorm),
			logger.Float64("hidden_cost", rep.HiddenCost),
			logger.Float64("ranked_cost", rep.RankedCost))
	}
	sum.Duration = time.Since(start)
	return sum, nil
}
