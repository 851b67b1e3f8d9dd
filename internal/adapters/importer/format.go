package importer

// seasonFile is the canonical export: one weight class, a wrestler map
// keyed by id and a flat match list.
type seasonFile struct {
	WeightClass string                 `json:"weight_class"`
	Wrestlers   map[string]seasonEntry `json:"wrestlers"`
	Matches     []seasonMatch          `json:"matches"`
}

type seasonEntry struct {
	Name string `json:"name"`
	Team string `json:"team"`
	Rank int    `json:"rank"`
}

type seasonMatch struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	WeightClass string `json:"weight_class"`
	WrestlerA   string `json:"wrestler_a"`
	WrestlerB   string `json:"wrestler_b"`
	Winner      string `json:"winner"`
	Result      string `json:"result"`
}

// teamFile is a scraped team page: a roster whose athletes carry their own
// bouts as free-text summaries.
type teamFile struct {
	TeamName string        `json:"team_name"`
	Name     string        `json:"name"`
	Season   string        `json:"season"`
	Roster   []teamAthlete `json:"roster"`
}

type teamAthlete struct {
	ID          string      `json:"season_wrestler_id"`
	Name        string      `json:"name"`
	WeightClass string      `json:"weight_class"`
	Matches     []teamMatch `json:"matches"`
}

type teamMatch struct {
	Date       string `json:"date"`
	Event      string `json:"event"`
	Weight     string `json:"weight"`
	Summary    string `json:"summary"`
	OpponentID string `json:"opponent_id"`
}

// rankingsFile is a published ranking to seed rank snapshots.
type rankingsFile struct {
	WeightClass string `json:"weight_class"`
	Rankings    []struct {
		WrestlerID string `json:"wrestler_id"`
		Rank       int    `json:"rank"`
	} `json:"rankings"`
}

// shape decides which layout a document uses.
type shape struct {
	Wrestlers map[string]any `json:"wrestlers"`
	Roster    []any          `json:"roster"`
	Rankings  []any          `json:"rankings"`
}
