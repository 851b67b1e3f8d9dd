package model

import (
	"time"

	"github.com/google/uuid"
)

// Algorithm names the producer of a ranking.
type Algorithm string

const (
	AlgorithmOptimal Algorithm = "pagerank_mfas_sa_ls"
	AlgorithmManual  Algorithm = "manual"
)

// RankingResult is an immutable ordered ranking for one weight class.
// Later runs supersede it with a new record.
type RankingResult struct {
	RunID       uuid.UUID `json:"run_id"`
	WeightClass string    `json:"weight_class"`
	Order       []string  `json:"order"`
	Generated   time.Time `json:"generated"`
	Algorithm   Algorithm `json:"algorithm"`
	Cost        float64   `json:"cost"`
	Seed        int64     `json:"seed"`
}

// Tag is the provenance label MMDDYY-algorithm.
func (r RankingResult) Tag() string {
	return r.Generated.Format("010206") + "-" + string(r.Algorithm)
}

// Ranks maps each entity to its 1-based position.
func (r RankingResult) Ranks() map[string]int {
	out := make(map[string]int, len(r.Order))
	for i, id := range r.Order {
		out[id] = i + 1
	}
	return out
}

// ScoreBreakdown explains an entity's power score.
type ScoreBreakdown struct {
	EntityID        string       `json:"entity_id"`
	Matches         []MatchScore `json:"matches"`
	QualityWin      float64      `json:"quality_win"`
	CompetitiveLoss float64      `json:"competitive_loss"`
	Bonus           float64      `json:"bonus"`
	Consistency     float64      `json:"consistency"`
	BadLoss         float64      `json:"bad_loss"`
	Total           float64      `json:"total"`
}

// MatchScore holds the five components for a single match. Consistency and
// BadLoss are stored as positive magnitudes and subtracted in Total.
type MatchScore struct {
	MatchID         string  `json:"match_id"`
	OpponentID      string  `json:"opponent_id"`
	Won             bool    `json:"won"`
	Rank            int     `json:"rank"`
	OpponentRank    int     `json:"opponent_rank"`
	QualityWin      float64 `json:"quality_win"`
	CompetitiveLoss float64 `json:"competitive_loss"`
	Bonus           float64 `json:"bonus"`
	Consistency     float64 `json:"consistency"`
	BadLoss         float64 `json:"bad_loss"`
	Total           float64 `json:"total"`
}

// Add folds a match into the breakdown totals.
func (b *ScoreBreakdown) Add(ms MatchScore) {
	b.Matches = append(b.Matches, ms)
	b.QualityWin += ms.QualityWin
	b.CompetitiveLoss += ms.CompetitiveLoss
	b.Bonus += ms.Bonus
	b.Consistency += ms.Consistency
	b.BadLoss += ms.BadLoss
	b.Total += ms.Total
}
