package repository

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/okian/wrestlerank/internal/domain/model"
)

// MemoryStore is an in-process Store. Every mutating call holds the write
// lock for its whole duration, which makes batches atomic.
type MemoryStore struct {
	mu         sync.RWMutex
	matches    map[string]*model.StoredMatch
	entities   map[string]map[string]model.Entity // class -> id -> entity
	tallies    map[model.TallyKey]model.Tally
	rankings   map[string][]model.RankingResult
	commitHook func(model.Batch) error
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		matches:  make(map[string]*model.StoredMatch),
		entities: make(map[string]map[string]model.Entity),
		tallies:  make(map[model.TallyKey]model.Tally),
		rankings: make(map[string][]model.RankingResult),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) UpsertMatches(ctx context.Context, matches []model.MatchRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range matches {
		if cur, ok := s.matches[m.ID]; ok && !reflect.DeepEqual(cur.Record, m) {
			return 0, fmt.Errorf("%w: %s", ErrConflictingMatch, m.ID)
		}
	}
	n := 0
	for _, m := range matches {
		if _, ok := s.matches[m.ID]; ok {
			continue
		}
		s.matches[m.ID] = &model.StoredMatch{Record: m, Status: model.StatusUnprocessed}
		n++
	}
	return n, nil
}

func (s *MemoryStore) UpsertEntities(ctx context.Context, entities []model.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entities {
		byID, ok := s.entities[e.WeightClass]
		if !ok {
			byID = make(map[string]model.Entity)
			s.entities[e.WeightClass] = byID
		}
		byID[e.ID] = e
	}
	return nil
}

func (s *MemoryStore) WeightClasses(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := make(map[string]struct{})
	for _, m := range s.matches {
		if m.Record.WeightClass != "" {
			set[m.Record.WeightClass] = struct{}{}
		}
	}
	for c := range s.entities {
		set[c] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) Matches(ctx context.Context, classes []string, status *model.MatchStatus) ([]model.StoredMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := toSet(classes)
	out := make([]model.StoredMatch, 0)
	for _, m := range s.matches {
		if len(want) > 0 {
			if _, ok := want[m.Record.WeightClass]; !ok {
				continue
			}
		}
		if status != nil && m.Status != *status {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Record, out[j].Record
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (s *MemoryStore) Roster(ctx context.Context, class string) ([]model.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Entity, 0, len(s.entities[class]))
	for _, e := range s.entities[class] {
		out = append(out, e)
	}
	sortRoster(out)
	return out, nil
}

// sortRoster orders ranked entities by rank, then the unranked by id.
func sortRoster(es []model.Entity) {
	sort.Slice(es, func(i, j int) bool {
		a, b := es[i], es[j]
		if a.Ranked() != b.Ranked() {
			return a.Ranked()
		}
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.ID < b.ID
	})
}

func (s *MemoryStore) Tallies(ctx context.Context, classes []string) ([]model.Tally, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := toSet(classes)
	out := make([]model.Tally, 0)
	for k, t := range s.tallies {
		if len(want) > 0 {
			if _, ok := want[k.WeightClass]; !ok {
				continue
			}
		}
		out = append(out, t)
	}
	sortTallies(out)
	return out, nil
}

func (s *MemoryStore) CommitBatch(ctx context.Context, batch model.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(batch.MatchIDs))
	for _, id := range batch.MatchIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s listed twice", ErrAlreadyProcessed, id)
		}
		seen[id] = struct{}{}
		m, ok := s.matches[id]
		if !ok {
			return fmt.Errorf("%w: match %s", ErrNotFound, id)
		}
		if !m.Status.CanTransition(model.StatusProcessed) {
			return fmt.Errorf("%w: %s", ErrAlreadyProcessed, id)
		}
	}
	if s.commitHook != nil {
		if err := s.commitHook(batch); err != nil {
			return err
		}
	}

	for _, id := range batch.MatchIDs {
		s.matches[id].Status = model.StatusProcessed
	}
	for _, d := range batch.Deltas {
		k := d.Key()
		cur := s.tallies[k]
		cur.WeightClass, cur.Loser, cur.Winner = k.WeightClass, k.Loser, k.Winner
		cur.Count += d.Count
		cur.InferCount += d.InferCount
		cur.Weight += d.Weight
		s.tallies[k] = cur
	}
	return nil
}

func (s *MemoryStore) ReplaceTallies(ctx context.Context, class string, tallies []model.Tally) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.tallies {
		if k.WeightClass == class {
			delete(s.tallies, k)
		}
	}
	for _, t := range tallies {
		t.WeightClass = class
		s.tallies[t.Key()] = t
	}
	return nil
}

func (s *MemoryStore) Reset(ctx context.Context, classes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := toSet(classes)
	for k := range s.tallies {
		if _, ok := want[k.WeightClass]; ok {
			delete(s.tallies, k)
		}
	}
	for _, m := range s.matches {
		if _, ok := want[m.Record.WeightClass]; ok {
			m.Status = model.StatusUnprocessed
		}
	}
	return nil
}

func (s *MemoryStore) SaveRanking(ctx context.Context, r model.RankingResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.Order = append([]string(nil), r.Order...)
	s.rankings[r.WeightClass] = append(s.rankings[r.WeightClass], r)
	return nil
}

func (s *MemoryStore) LatestRanking(ctx context.Context, class string) (model.RankingResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hist := s.rankings[class]
	if len(hist) == 0 {
		return model.RankingResult{}, fmt.Errorf("%w: ranking for %s", ErrNotFound, class)
	}
	latest := hist[0]
	for _, r := range hist[1:] {
		if !r.Generated.Before(latest.Generated) {
			latest = r
		}
	}
	latest.Order = append([]string(nil), latest.Order...)
	return latest, nil
}

func (s *MemoryStore) Rankings(ctx context.Context, class string) ([]model.RankingResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.RankingResult, len(s.rankings[class]))
	copy(out, s.rankings[class])
	sort.SliceStable(out, func(i, j int) bool { return out[i].Generated.Before(out[j].Generated) })
	return out, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{Matches: len(s.matches), Tallies: len(s.tallies)}
	for _, m := range s.matches {
		if m.Status == model.StatusProcessed {
			st.Processed++
		}
	}
	for _, byID := range s.entities {
		st.Entities += len(byID)
	}
	for _, h := range s.rankings {
		st.Rankings += len(h)
	}
	return st, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func toSet(xs []string) map[string]struct{} {
	out := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		out[x] = struct{}{}
	}
	return out
}

func sortTallies(ts []model.Tally) {
	sort.Slice(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		if a.WeightClass != b.WeightClass {
			return a.WeightClass < b.WeightClass
		}
		if a.Loser != b.Loser {
			return a.Loser < b.Loser
		}
		return a.Winner < b.Winner
	})
}
