package optimizer

import (
	"math"
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func randomProblem(n int, seed int64) *problem {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec
	p := &problem{ids: make([]string, n), beat: make([][]float64, n)}
	for i := range p.beat {
		p.ids[i] = string(rune('a' + i))
		p.beat[i] = make([]float64, n)
	}
	for k := 0; k < n*3; k++ {
		a, b := rng.Intn(n), rng.Intn(n)
		if a != b {
			p.beat[a][b] += float64(1 + rng.Intn(3))
		}
	}
	return p
}

func TestSwapDeltaMatchesFullCost(t *testing.T) {
	Convey("Given a random weighted problem", t, func() {
		p := randomProblem(9, 7)
		rng := rand.New(rand.NewSource(3)) //nolint:gosec
		order := rng.Perm(9)

		Convey("Then every swap delta equals the cost difference", func() {
			base := p.cost(order)
			for i := 0; i < 9; i++ {
				for j := 0; j < 9; j++ {
					swapped := append([]int(nil), order...)
					swapped[i], swapped[j] = swapped[j], swapped[i]
					want := p.cost(swapped) - base
					So(math.Abs(p.swapDelta(order, i, j)-want), ShouldBeLessThan, 1e-9)
				}
			}
		})
	})
}

func TestStagesNeverLoseGround(t *testing.T) {
	Convey("Given random problems", t, func() {
		for seed := int64(1); seed <= 5; seed++ {
			p := randomProblem(8, seed)
			pr, _, _ := p.pagerank(DefaultDamping, DefaultTolerance, DefaultPageRankIterations)

			fas := p.greedyFAS(pr)
			So(fas, ShouldHaveLength, 8)

			ls := append([]int(nil), fas...)
			p.adjacentPasses(ls, DefaultLocalSearchMaxPasses)
			So(p.cost(ls), ShouldBeLessThanOrEqualTo, p.cost(fas)+eps)

			p.pairwisePolish(ls, DefaultLocalSearchMaxPasses)
			So(p.improveOnce(append([]int(nil), ls...)), ShouldBeFalse)
		}
	})
}

func TestPageRankDanglingMass(t *testing.T) {
	Convey("Given a chain with one unbeaten wrestler", t, func() {
		// a beat b, b beat c; a never lost.
		p := &problem{
			ids:  []string{"a", "b", "c"},
			beat: [][]float64{{0, 1, 0}, {0, 0, 1}, {0, 0, 0}},
		}
		v, _, converged := p.pagerankScores(DefaultDamping, DefaultTolerance, DefaultPageRankIterations)

		Convey("Then the unbeaten mass is spread back and the scores sum to one", func() {
			So(converged, ShouldBeTrue)
			sum := 0.0
			for _, x := range v {
				sum += x
			}
			So(math.Abs(sum-1), ShouldBeLessThan, 1e-6)
			So(v[0], ShouldBeGreaterThan, v[1])
			So(v[1], ShouldBeGreaterThan, v[2])
		})
	})

	Convey("Given nobody has lost", t, func() {
		p := &problem{ids: []string{"a", "b"}, beat: [][]float64{{0, 0}, {0, 0}}}
		v, _, _ := p.pagerankScores(DefaultDamping, DefaultTolerance, DefaultPageRankIterations)

		Convey("Then every score is uniform", func() {
			So(v[0], ShouldAlmostEqual, 0.5, 1e-9)
			So(v[1], ShouldAlmostEqual, 0.5, 1e-9)
		})
	})
}
