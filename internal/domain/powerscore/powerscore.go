// Package powerscore computes the supplementary power score: a sum of five
// match-level components weighted by the ranks of both wrestlers.
package powerscore

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/wrestlerank/internal/domain/model"
	"github.com/okian/wrestlerank/pkg/metrics"
)

// Rank gaps and margins that switch components on or off.
const (
	CompetitiveDecisionMargin = 3
	CompetitiveMaxMargin      = 7
	ConsistencyMargin         = 2
	RankGap                   = 10
)

// Engine scores entities against a fixed rank snapshot. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	mods    Modifiers
	forfeit ForfeitPolicy
}

// New creates an engine with the default modifiers and neutral forfeits.
func New(opts ...Option) *Engine {
	e := &Engine{mods: DefaultModifiers(), forfeit: ForfeitNeutral}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Modifiers returns the multipliers in use.
func (e *Engine) Modifiers() Modifiers { return e.mods }

// Score is the pure scoring function: the sum of every component over the
// matches of id.
func Score(id string, matches []model.MatchRecord, ranks map[string]int, mods Modifiers) float64 {
	return New(WithModifiers(mods)).Score(id, matches, ranks)
}

// Score returns the total power score of id.
func (e *Engine) Score(id string, matches []model.MatchRecord, ranks map[string]int) float64 {
	b := e.Breakdown(id, matches, ranks)
	return b.Total
}

// Breakdown scores every match of id and keeps the per-match components.
func (e *Engine) Breakdown(id string, matches []model.MatchRecord, ranks map[string]int) model.ScoreBreakdown {
	b := model.ScoreBreakdown{EntityID: id, Matches: []model.MatchScore{}}
	for _, m := range matches {
		if ms, ok := e.ScoreMatch(id, m, ranks); ok {
			b.Add(ms)
		}
	}
	return b
}

// ScoreMatch scores one match from id's side. It reports false when the
// match does not count: id did not wrestle, the record is invalid, either
// side is unranked, or the result is excluded by policy.
func (e *Engine) ScoreMatch(id string, m model.MatchRecord, ranks map[string]int) (model.MatchScore, bool) {
	if !m.Involves(id) || m.Validate() != nil || !m.Result.ProducesEdge() {
		return model.MatchScore{}, false
	}
	if m.Result.IsForfeit() && e.forfeit == ForfeitNeutral {
		return model.MatchScore{}, false
	}
	opp := m.Opponent(id)
	r, o := ranks[id], ranks[opp]
	if r <= 0 || o <= 0 {
		return model.MatchScore{}, false
	}

	ms := model.MatchScore{
		MatchID:      m.ID,
		OpponentID:   opp,
		Won:          m.Won(id),
		Rank:         r,
		OpponentRank: o,
	}
	gap := o - r
	margin, hasMargin := marginOf(m)

	if ms.Won {
		ms.QualityWin = e.mods.QualityWin * float64(max(0, gap)+1)
		ms.Bonus = e.bonus(m.Result)
		if hasMargin && margin <= ConsistencyMargin && gap >= RankGap {
			ms.Consistency = e.mods.Consistency * float64(gap)
		}
	} else {
		if competitive(m.Result, margin, hasMargin) {
			ms.CompetitiveLoss = e.mods.QualityLoss * float64(max(0, r-o))
		}
		if gap >= RankGap {
			ms.BadLoss = e.mods.BadLoss * float64(gap)
		}
	}
	ms.Total = ms.QualityWin + ms.CompetitiveLoss + ms.Bonus - ms.Consistency - ms.BadLoss
	return ms, true
}

func (e *Engine) bonus(r model.ResultType) float64 {
	switch r {
	case model.ResultMajorDecision:
		return e.mods.Bonus
	case model.ResultTechFall:
		return 2 * e.mods.Bonus
	case model.ResultFall:
		return e.mods.Pin
	}
	return 0
}

// competitive reports whether a loss earns competitive-loss credit: never
// after a fall or tech fall, a decision only within three points, anything
// else only within seven.
func competitive(r model.ResultType, margin float64, hasMargin bool) bool {
	switch {
	case r == model.ResultFall || r == model.ResultTechFall:
		return false
	case !hasMargin:
		return false
	case margin > CompetitiveMaxMargin:
		return false
	case r == model.ResultDecision:
		return margin <= CompetitiveDecisionMargin
	}
	return true
}

func marginOf(m model.MatchRecord) (float64, bool) {
	if m.Margin == nil {
		return 0, false
	}
	d := *m.Margin
	if d < 0 {
		d = -d
	}
	return d, true
}

// Compute scores every entity of a weight class. Ranks are read once and
// held fixed for the whole pass.
func (e *Engine) Compute(ctx context.Context, class string, entities []string, matches []model.MatchRecord, ranks map[string]int) (map[string]model.ScoreBreakdown, error) {
	snapshot := make(map[string]int, len(ranks))
	for k, v := range ranks {
		snapshot[k] = v
	}

	byEntity := make(map[string][]model.MatchRecord, len(entities))
	for _, m := range matches {
		byEntity[m.EntityA] = append(byEntity[m.EntityA], m)
		byEntity[m.EntityB] = append(byEntity[m.EntityB], m)
	}

	out := make(map[string]model.ScoreBreakdown, len(entities))
	for _, id := range entities {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("score %s: %w", class, err)
		}
		out[id] = e.Breakdown(id, byEntity[id], snapshot)
	}
	metrics.RecordScoresComputed(class, len(out))
	return out, nil
}

// Record is a plain win-loss summary.
type Record struct {
	EntityID string `json:"entity_id"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Bonus    int    `json:"bonus"` // wins by major, tech fall or fall
	Falls    int    `json:"falls"`
	Forfeits int    `json:"forfeits"`
}

// WinPct returns wins over decided matches, or 0 without any.
func (r Record) WinPct() float64 {
	if n := r.Wins + r.Losses; n > 0 {
		return float64(r.Wins) / float64(n)
	}
	return 0
}

// BonusPct returns the share of wins with bonus points.
func (r Record) BonusPct() float64 {
	if r.Wins == 0 {
		return 0
	}
	return float64(r.Bonus) / float64(r.Wins)
}

// RecordFor summarises the valid, decided matches of id.
func RecordFor(id string, matches []model.MatchRecord) Record {
	rec := Record{EntityID: id}
	for _, m := range matches {
		if !m.Involves(id) || m.Validate() != nil || !m.Result.ProducesEdge() {
			continue
		}
		if m.Result.IsForfeit() {
			rec.Forfeits++
		}
		if !m.Won(id) {
			rec.Losses++
			continue
		}
		rec.Wins++
		switch m.Result {
		case model.ResultMajorDecision, model.ResultTechFall:
			rec.Bonus++
		case model.ResultFall:
			rec.Bonus++
			rec.Falls++
		}
	}
	return rec
}

// Rank orders breakdowns by total descending, ties by entity id.
func Rank(scores map[string]model.ScoreBreakdown) []model.ScoreBreakdown {
	out := make([]model.ScoreBreakdown, 0, len(scores))
	for _, b := range scores {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out
}
