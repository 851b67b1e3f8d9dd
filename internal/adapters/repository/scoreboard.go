package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"

	"github.com/okian/wrestlerank/internal/domain/types"
)

// Scoreboard keeps power scores of one weight class in a treap.
//
// Ordering: score DESC, then entity id ASC. "less" means ranks earlier, so
// an in-order walk yields the board from best to worst. Subtree sizes make
// Rank O(log n).
type Scoreboard struct {
	mu   sync.RWMutex
	root *node
	byID map[string]float64
}

type node struct {
	id          string
	score       float64
	prio        uint64
	left, right *node
	size        int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func less(aScore float64, aID string, bScore float64, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

// priority derives a stable heap priority from the id so the tree shape
// does not depend on insertion order.
func priority(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score float64) *node {
	if n == nil {
		return &node{id: id, score: score, prio: priority(id), size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func remove(n *node, id string, score float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.id == id && n.score == score:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, id, score)
		}
	case less(score, id, n.score, n.id):
		n.left = remove(n.left, id, score)
	default:
		n.right = remove(n.right, id, score)
	}
	fix(n)
	return n
}

// countBefore returns how many entries order strictly before (score, id).
func countBefore(n *node, score float64, id string) int {
	c := 0
	for n != nil {
		if less(n.score, n.id, score, id) {
			c += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return c
}

func collect(n *node, limit int, out *[]types.ScoreEntry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collect(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, types.ScoreEntry{EntityID: n.id, Score: n.score})
	}
	collect(n.right, limit, out)
}

// NewScoreboard creates an empty board.
func NewScoreboard() *Scoreboard {
	return &Scoreboard{byID: make(map[string]float64)}
}

// Upsert sets the score of id, replacing any previous value.
func (s *Scoreboard) Upsert(ctx context.Context, id string, score float64) error {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return fmt.Errorf("%w: %v for %s", ErrInvalidScore, score, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byID[id]; ok {
		if old == score {
			return nil
		}
		s.root = remove(s.root, id, old)
	}
	s.byID[id] = score
	s.root = insert(s.root, id, score)
	return nil
}

// Rank returns the competition rank of id: one plus the number of strictly
// higher scores, so equal scores share a rank.
func (s *Scoreboard) Rank(ctx context.Context, id string) (types.ScoreEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.byID[id]
	if !ok {
		return types.ScoreEntry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return types.ScoreEntry{Rank: 1 + countBefore(s.root, score, ""), EntityID: id, Score: score}, nil
}

// TopN returns the best n entries.
func (s *Scoreboard) TopN(ctx context.Context, n int) ([]types.ScoreEntry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.ScoreEntry, 0, n)
	collect(s.root, n, &out)
	for i := range out {
		if i > 0 && out[i].Score == out[i-1].Score {
			out[i].Rank = out[i-1].Rank
		} else {
			out[i].Rank = i + 1
		}
	}
	return out, nil
}

// Count returns the number of entries.
func (s *Scoreboard) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
