package graph

import (
	"github.com/okian/wrestlerank/internal/domain/model"
	"github.com/okian/wrestlerank/pkg/logger"
)

// Default configuration constants.
const (
	DefaultBatchSize            = 100
	DefaultCommonOpponentWeight = 0.5
)

// ResultWeights maps a result type to its direct edge weight. Missing types
// weigh 1.
type ResultWeights map[model.ResultType]float64

// For returns the weight of a match with result r.
func (w ResultWeights) For(r model.ResultType) float64 {
	if v, ok := w[r]; ok && v > 0 {
		return v
	}
	return 1
}

// Option configures a Builder.
type Option func(*Builder)

// WithBatchSize bounds how many matches are committed together.
func WithBatchSize(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithResultWeights sets result-type dependent direct edge weights.
func WithResultWeights(w ResultWeights) Option {
	return func(b *Builder) {
		if len(w) > 0 {
			b.weights = w
		}
	}
}

// WithCommonOpponentWeight sets the weight of one net common-opponent
// signal. Zero disables inference.
func WithCommonOpponentWeight(w float64) Option {
	return func(b *Builder) {
		if w >= 0 {
			b.coWeight = w
		}
	}
}

// WithLogger sets the builder logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}
