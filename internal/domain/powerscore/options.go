package powerscore

import (
	"fmt"
	"math"
	"strings"
)

// Modifiers are the per-component multipliers. A Modifiers value is passed
// by copy into every scoring pass so concurrent runs never share tuning.
type Modifiers struct {
	QualityWin  float64 `json:"quality_win" koanf:"quality_win"`
	QualityLoss float64 `json:"quality_loss" koanf:"quality_loss"`
	Bonus       float64 `json:"bonus" koanf:"bonus"`
	Pin         float64 `json:"pin" koanf:"pin"`
	BadLoss     float64 `json:"bad_loss" koanf:"bad_loss"`
	Consistency float64 `json:"consistency" koanf:"consistency"`
}

// DefaultModifiers returns {1.0, 0.6, 0.4, 0.8, 1.2, 0.25}.
func DefaultModifiers() Modifiers {
	return Modifiers{
		QualityWin:  1.0,
		QualityLoss: 0.6,
		Bonus:       0.4,
		Pin:         0.8,
		BadLoss:     1.2,
		Consistency: 0.25,
	}
}

// Validate rejects negative or non-finite multipliers.
func (m Modifiers) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"quality_win", m.QualityWin},
		{"quality_loss", m.QualityLoss},
		{"bonus", m.Bonus},
		{"pin", m.Pin},
		{"bad_loss", m.BadLoss},
		{"consistency", m.Consistency},
	} {
		if f.v < 0 || math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s=%v", ErrInvalidModifier, f.name, f.v)
		}
	}
	return nil
}

// ForfeitPolicy decides how matches won without wrestling are scored.
type ForfeitPolicy int

const (
	// ForfeitNeutral ignores forfeits entirely.
	ForfeitNeutral ForfeitPolicy = iota
	// ForfeitDecision scores a forfeit like a decision of unknown margin.
	ForfeitDecision
)

func (p ForfeitPolicy) String() string {
	if p == ForfeitDecision {
		return "decision"
	}
	return "neutral"
}

// ParseForfeitPolicy maps "neutral" / "decision" onto a policy.
func ParseForfeitPolicy(s string) (ForfeitPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "neutral":
		return ForfeitNeutral, nil
	case "decision":
		return ForfeitDecision, nil
	}
	return ForfeitNeutral, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Option configures an Engine.
type Option func(*Engine)

// WithModifiers replaces the default multipliers. Invalid sets are ignored.
func WithModifiers(m Modifiers) Option {
	return func(e *Engine) {
		if m.Validate() == nil {
			e.mods = m
		}
	}
}

// WithForfeitPolicy selects the forfeit handling.
func WithForfeitPolicy(p ForfeitPolicy) Option {
	return func(e *Engine) {
		e.forfeit = p
	}
}
