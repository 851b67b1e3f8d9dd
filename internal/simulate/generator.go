package simulate

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/okian/wrestlerank/internal/domain/model"
	"github.com/okian/wrestlerank/internal/domain/weightclass"
	"github.com/okian/wrestlerank/pkg/logger"
)

var teams = []string{"Cornell", "Iowa", "Lehigh", "Navy", "Ohio State", "Penn State", "Stanford", "Wyoming"}

// Season is a generated season with the order it was drawn from.
type Season struct {
	Entities []model.Entity
	Matches  []model.MatchRecord
	// Hidden holds each class ordered by true strength, strongest first.
	Hidden map[string][]string
	// Upsets counts bouts won by the weaker wrestler.
	Upsets int
}

type classSeason struct {
	class    string
	entities []model.Entity
	matches  []model.MatchRecord
	hidden   []string
	upsets   int
}

// Generate draws a season. Each class has its own generator seeded from
// cfg.Seed and the class position, so the output is reproducible whatever
// the worker count.
func Generate(ctx context.Context, cfg Config, opts ...Option) (Season, error) {
	if err := cfg.Validate(); err != nil {
		return Season{}, err
	}
	log := newSettings(opts).logger
	workers := min(max(cfg.Workers, 1), len(cfg.Classes))
	log.Info(ctx, "generating season",
		logger.Int("classes", len(cfg.Classes)),
		logger.Int("wrestlers", cfg.Wrestlers),
		logger.Bool("round_robin", cfg.RoundRobin),
		logger.Float64("noise", cfg.Noise),
		logger.Int64("seed", cfg.Seed))

	out := make([]classSeason, len(cfg.Classes))
	next := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				out[i] = generateClass(cfg, i)
			}
		}()
	}
	for i := range cfg.Classes {
		select {
		case next <- i:
		case <-ctx.Done():
			close(next)
			wg.Wait()
			return Season{}, fmt.Errorf("generate season: %w", ctx.Err())
		}
	}
	close(next)
	wg.Wait()

	s := Season{Hidden: make(map[string][]string, len(out))}
	for _, cs := range out {
		s.Entities = append(s.Entities, cs.entities...)
		s.Matches = append(s.Matches, cs.matches...)
		s.Hidden[cs.class] = cs.hidden
		s.Upsets += cs.upsets
	}
	log.Info(ctx, "season generated",
		logger.Int("entities", len(s.Entities)),
		logger.Int("matches", len(s.Matches)),
		logger.Int("upsets", s.Upsets))
	return s, nil
}

func generateClass(cfg Config, idx int) classSeason {
	class := weightclass.Normalize(cfg.Classes[idx])
	rng := rand.New(rand.NewSource(cfg.Seed + int64(idx)*7919)) //nolint:gosec // reproducible draws
	cs := classSeason{class: class}

	strength := make(map[string]float64, cfg.Wrestlers)
	ids := make([]string, cfg.Wrestlers)
	for i := range ids {
		id := fmt.Sprintf("%s-%03d", class, i+1)
		ids[i] = id
		strength[id] = rng.NormFloat64()
		cs.entities = append(cs.entities, model.Entity{
			ID:          id,
			Name:        fmt.Sprintf("Wrestler %s", id),
			Team:        teams[rng.Intn(len(teams))],
			WeightClass: class,
		})
	}
	cs.hidden = append([]string(nil), ids...)
	sort.SliceStable(cs.hidden, func(i, j int) bool { return strength[cs.hidden[i]] > strength[cs.hidden[j]] })

	day := 0
	bout := func(a, b string) {
		win, lose := a, b
		if strength[b] > strength[a] {
			win, lose = b, a
		}
		gap := strength[win] - strength[lose]
		upset := false
		if cfg.Noise > 0 {
			pWeaker := 1 / (1 + math.Exp(gap/cfg.Noise))
			if rng.Float64() < pWeaker {
				win, upset = lose, true
			}
		}
		if upset {
			cs.upsets++
		}
		raw := resultText(rng, gap, upset)
		parsed, _ := model.ParseResult(raw)
		date := cfg.Start.AddDate(0, 0, day/4)
		day++
		cs.matches = append(cs.matches, model.MatchRecord{
			ID:          fmt.Sprintf("%s-%05d", class, len(cs.matches)+1),
			WeightClass: class,
			Date:        date,
			EntityA:     a,
			EntityB:     b,
			Winner:      win,
			Result:      parsed.Type,
			Margin:      parsed.Margin,
			PinTime:     parsed.PinTime,
			Raw:         raw,
		})
	}

	if cfg.RoundRobin {
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				bout(ids[i], ids[j])
			}
		}
		return cs
	}
	for _, a := range ids {
		for k := 0; k < cfg.Bouts; k++ {
			b := ids[rng.Intn(len(ids)-1)]
			if b == a {
				b = ids[len(ids)-1]
			}
			bout(a, b)
		}
	}
	return cs
}

// resultText writes a result the way a bracket sheet would. Bigger strength
// gaps end in bonus results; upsets are always close decisions.
func resultText(rng *rand.Rand, gap float64, upset bool) string {
	switch {
	case upset:
		w := 2 + rng.Intn(4)
		return fmt.Sprintf("Dec %d-%d", w, w-1-rng.Intn(2))
	case gap > 2:
		return fmt.Sprintf("Fall %d:%02d", 1+rng.Intn(5), rng.Intn(60))
	case gap > 1.5:
		return fmt.Sprintf("TF %d-%d", 17+rng.Intn(4), rng.Intn(3))
	case gap > 0.8:
		l := rng.Intn(4)
		return fmt.Sprintf("MD %d-%d", l+8+rng.Intn(5), l)
	}
	l := rng.Intn(5)
	return fmt.Sprintf("Dec %d-%d", l+1+rng.Intn(7), l)
}
