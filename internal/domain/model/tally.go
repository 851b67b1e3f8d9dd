package model

// Tally is the committed direct-edge state for one ordered pair in one
// weight class: how often Loser lost to Winner and the accumulated weight.
type Tally struct {
	WeightClass string  `json:"weight_class"`
	Loser       string  `json:"loser"`
	Winner      string  `json:"winner"`
	Count       int     `json:"count"`
	InferCount  int     `json:"infer_count"` // matches eligible for common-opponent inference
	Weight      float64 `json:"weight"`
}

// TallyKey identifies a tally row.
type TallyKey struct {
	WeightClass string
	Loser       string
	Winner      string
}

func (t Tally) Key() TallyKey {
	return TallyKey{WeightClass: t.WeightClass, Loser: t.Loser, Winner: t.Winner}
}

// Batch is one atomic unit of incremental graph building: every listed match
// flips to Processed together with the tally deltas, or nothing changes.
type Batch struct {
	WeightClass string
	MatchIDs    []string
	Deltas      []Tally
}
