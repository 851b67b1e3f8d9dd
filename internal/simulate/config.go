package simulate

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// ErrInvalidConfig wraps every rejected simulation setting.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Config shapes a synthetic season.
type Config struct {
	Classes   []string  // weight classes to generate
	Wrestlers int       // wrestlers per class
	Bouts     int       // bouts started by each wrestler; ignored for round robins
	// RoundRobin pairs every two wrestlers of a class exactly once.
	RoundRobin bool
	// Noise is the logistic scale of upsets. Zero means the stronger
	// wrestler always wins.
	Noise   float64
	Seed    int64
	Workers int
	Start   time.Time
}

// DefaultConfig returns a small three class season.
func DefaultConfig() Config {
	return Config{
		Classes:   []string{"149", "157", "165"},
		Wrestlers: 16,
		Bouts:     6,
		Noise:     0.5,
		Seed:      1,
		Workers:   runtime.NumCPU(),
		Start:     time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	switch {
	case len(c.Classes) == 0:
		return fmt.Errorf("%w: no weight classes", ErrInvalidConfig)
	case c.Wrestlers < 2:
		return fmt.Errorf("%w: need at least two wrestlers, got %d", ErrInvalidConfig, c.Wrestlers)
	case !c.RoundRobin && c.Bouts < 1:
		return fmt.Errorf("%w: bouts must be positive, got %d", ErrInvalidConfig, c.Bouts)
	case c.Noise < 0:
		return fmt.Errorf("%w: negative noise %v", ErrInvalidConfig, c.Noise)
	}
	return nil
}
