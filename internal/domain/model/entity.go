// Package model contains domain models passed between layers.
package model

// Entity is a ranked wrestler within one weight class.
type Entity struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Team        string  `json:"team,omitempty"`
	WeightClass string  `json:"weight_class"`
	Rank        int     `json:"rank,omitempty"` // 0 means unranked
	PowerScore  float64 `json:"power_score,omitempty"`
}

// Ranked reports whether the entity holds a rank.
func (e Entity) Ranked() bool { return e.Rank > 0 }
