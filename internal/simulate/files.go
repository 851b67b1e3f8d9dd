package simulate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/okian/wrestlerank/internal/domain/model"
)

const filePermission = 0o600

type seasonEntry struct {
	Name string `json:"name"`
	Team string `json:"team"`
	Rank int    `json:"rank,omitempty"`
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

type seasonFile struct {
	WeightClass string                 `json:"weight_class"`
	Wrestlers   map[string]seasonEntry `json:"wrestlers"`
	Matches     []seasonMatch          `json:"matches"`
}

// WriteSeason writes one weight_class_<class>.json per class into dir, in
// the layout the importer reads. It returns the paths written.
func WriteSeason(dir string, s Season) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	files := make(map[string]*seasonFile)
	get := func(class string) *seasonFile {
		f, ok := files[class]
		if !ok {
			f = &seasonFile{WeightClass: class, Wrestlers: map[string]seasonEntry{}, Matches: []seasonMatch{}}
			files[class] = f
		}
		return f
	}
	for _, e := range s.Entities {
		get(e.WeightClass).Wrestlers[e.ID] = seasonEntry{Name: e.Name, Team: e.Team, Rank: e.Rank}
	}
	for _, m := range s.Matches {
		get(m.WeightClass).Matches = append(get(m.WeightClass).Matches, toSeasonMatch(m))
	}

	classes := make([]string, 0, len(files))
	for c := range files {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	paths := make([]string, 0, len(classes))
	for _, c := range classes {
		b, err := json.MarshalIndent(files[c], "", "  ")
		if err != nil {
			return paths, fmt.Errorf("encode %s: %w", c, err)
		}
		p := filepath.Join(dir, "weight_class_"+c+".json")
		if err := os.WriteFile(p, b, filePermission); err != nil {
			return paths, fmt.Errorf("write %s: %w", p, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func toSeasonMatch(m model.MatchRecord) seasonMatch {
	return seasonMatch{
		ID:          m.ID,
		Date:        m.Date.Format("2006-01-02"),
		WeightClass: m.WeightClass,
		WrestlerA:   m.EntityA,
		WrestlerB:   m.EntityB,
		Winner:      m.Winner,
		Result:      m.Raw,
	}
}
