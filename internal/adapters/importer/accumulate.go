package importer

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/okian/wrestlerank/internal/domain/model"
	"github.com/okian/wrestlerank/internal/domain/weightclass"
)

var (
	summaryRe = regexp.MustCompile(`(?i)(?P<winner>[^()]+?)\s*\((?P<wteam>[^()]+?)\)\s*over\s*(?P<loser>[^()]+?)\s*\((?P<lteam>[^()]+?)\)\s*\((?P<result>[^)]+)\)`)
	prefixRe  = regexp.MustCompile(`^\s*[^-()]+-\s*`)
)

type entityKey struct{ class, id string }

type accumulator struct {
	entities map[entityKey]model.Entity
	rostered map[entityKey]bool
	matches  map[string]model.MatchRecord
	order    []string
	rankings []model.RankingResult
	files    int
	skipped  int
}

func newAccumulator() *accumulator {
	return &accumulator{
		entities: make(map[entityKey]model.Entity),
		rostered: make(map[entityKey]bool),
		matches:  make(map[string]model.MatchRecord),
	}
}

// entity records e. Roster entries replace opponent placeholders, never
// the other way round.
func (a *accumulator) entity(e model.Entity, roster bool) {
	if e.ID == "" || e.WeightClass == "" {
		return
	}
	e.WeightClass = weightclass.Normalize(e.WeightClass)
	k := entityKey{e.WeightClass, e.ID}
	if _, ok := a.entities[k]; ok && (a.rostered[k] || !roster) {
		return
	}
	a.entities[k] = e
	a.rostered[k] = roster
}

func (a *accumulator) match(m model.MatchRecord) {
	if _, dup := a.matches[m.ID]; dup {
		return
	}
	a.matches[m.ID] = m
	a.order = append(a.order, m.ID)
}

func (a *accumulator) season(s seasonFile) {
	ids := make([]string, 0, len(s.Wrestlers))
	for id := range s.Wrestlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		w := s.Wrestlers[id]
		a.entity(model.Entity{ID: id, Name: w.Name, Team: w.Team, WeightClass: s.WeightClass, Rank: w.Rank}, true)
	}

	bouts := make(map[string]int)
	for _, sm := range s.Matches {
		class := sm.WeightClass
		if class == "" {
			class = s.WeightClass
		}
		date, _ := parseDate(sm.Date)
		id := sm.ID
		if id == "" {
			id = nthBout(bouts, matchID(date, sm.Winner, other(sm.WrestlerA, sm.WrestlerB, sm.Winner)))
		}
		a.match(record(id, class, date, sm.WrestlerA, sm.WrestlerB, sm.Winner, sm.Result))
	}
}

func (a *accumulator) team(t teamFile) {
	team := t.TeamName
	if team == "" {
		team = t.Name
	}
	for _, ath := range t.Roster {
		id, name := strings.TrimSpace(ath.ID), strings.TrimSpace(ath.Name)
		if id == "" || name == "" {
			continue
		}
		a.entity(model.Entity{ID: id, Name: name, Team: team, WeightClass: ath.WeightClass}, true)

		bouts := make(map[string]int)
		for _, tm := range ath.Matches {
			if byeOrUnscheduled(tm.Summary) {
				a.skipped++
				continue
			}
			p, ok := parseSummary(tm.Summary)
			if !ok || tm.OpponentID == "" {
				a.skipped++
				continue
			}
			class := strings.TrimSpace(tm.Weight)
			if class == "" {
				class = ath.WeightClass
			}
			if class == "" {
				a.skipped++
				continue
			}

			home := homeWon(name, tm.Summary, p)
			oppName, oppTeam := p.loser, p.lteam
			if !home {
				oppName, oppTeam = p.winner, p.wteam
			}
			a.entity(model.Entity{ID: tm.OpponentID, Name: oppName, Team: oppTeam, WeightClass: class}, false)

			winner, loser := id, tm.OpponentID
			if !home {
				winner, loser = loser, winner
			}
			date, ok := parseDate(tm.Date)
			if !ok {
				a.skipped++
				continue
			}
			a.match(record(nthBout(bouts, matchID(date, winner, loser)), class, date, winner, loser, winner, p.result))
		}
	}
}

func (a *accumulator) addRankings(rf rankingsFile, now time.Time) {
	rows := append(rf.Rankings[:0:0], rf.Rankings...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Rank < rows[j].Rank })
	order := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.WrestlerID != "" && r.Rank > 0 {
			order = append(order, r.WrestlerID)
		}
	}
	if len(order) == 0 || rf.WeightClass == "" {
		a.skipped++
		return
	}
	a.rankings = append(a.rankings, model.RankingResult{
		WeightClass: weightclass.Normalize(rf.WeightClass),
		Order:       order,
		Generated:   now.UTC(),
		Algorithm:   model.AlgorithmManual,
	})
}

func (a *accumulator) result() Result {
	res := Result{
		Entities: make([]model.Entity, 0, len(a.entities)),
		Matches:  make([]model.MatchRecord, 0, len(a.order)),
		Rankings: a.rankings,
		Files:    a.files,
		Skipped:  a.skipped,
	}
	for _, e := range a.entities {
		res.Entities = append(res.Entities, e)
	}
	sort.Slice(res.Entities, func(i, j int) bool {
		if res.Entities[i].WeightClass != res.Entities[j].WeightClass {
			return res.Entities[i].WeightClass < res.Entities[j].WeightClass
		}
		return res.Entities[i].ID < res.Entities[j].ID
	})
	for _, id := range a.order {
		m := a.matches[id]
		if m.Validate() != nil {
			res.Malformed++
		}
		res.Matches = append(res.Matches, m)
	}
	return res
}

type summary struct {
	winner, wteam, loser, lteam, result string
}

// parseSummary reads "Varsity - A (Team) over B (Team) (Dec 4-0)".
func parseSummary(s string) (summary, bool) {
	if !strings.Contains(strings.ToLower(s), "over") {
		return summary{}, false
	}
	clean := prefixRe.ReplaceAllString(strings.TrimSpace(s), "")
	m := summaryRe.FindStringSubmatch(clean)
	if m == nil {
		return summary{}, false
	}
	g := func(name string) string { return strings.TrimSpace(m[summaryRe.SubexpIndex(name)]) }
	return summary{g("winner"), g("wteam"), g("loser"), g("lteam"), g("result")}, true
}

func byeOrUnscheduled(s string) bool {
	l := strings.ToLower(s)
	return strings.Contains(l, "received a bye") || (strings.Contains(l, " vs. ") && !strings.Contains(l, "over"))
}

// homeWon decides whether the rostered athlete won. Names that match
// neither side fall back to whether the summary opens with the athlete.
func homeWon(name, raw string, p summary) bool {
	switch name {
	case p.winner:
		return true
	case p.loser:
		return false
	}
	return strings.HasPrefix(prefixRe.ReplaceAllString(strings.TrimSpace(raw), ""), name)
}

func matchID(date time.Time, winner, loser string) string {
	return date.Format("20060102") + "-" + winner + "-" + loser
}

// nthBout numbers repeated bouts with the same derived id. Both wrestlers'
// files list a day's bouts in the same order, so the numbering agrees and
// the copies still collapse.
func nthBout(seen map[string]int, id string) string {
	n := seen[id]
	seen[id] = n + 1
	if n == 0 {
		return id
	}
	return id + "-" + strconv.Itoa(n+1)
}

func other(a, b, winner string) string {
	if winner == a {
		return b
	}
	return a
}
