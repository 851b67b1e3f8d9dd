// Package types contains row types shared by the command surface and stores.
package types

// ScoreEntry is one row of a power score board.
type ScoreEntry struct {
	Rank     int     `json:"rank"`
	EntityID string  `json:"entity_id"`
	Score    float64 `json:"score"`
}

// RankingRow is one row of a published ranking.
type RankingRow struct {
	Rank       int     `json:"rank"`
	EntityID   string  `json:"entity_id"`
	Name       string  `json:"name,omitempty"`
	PowerScore float64 `json:"power_score"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
}
