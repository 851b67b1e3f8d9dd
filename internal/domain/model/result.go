package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ResultType classifies how a match was won.
type ResultType int

const (
	ResultUnknown ResultType = iota
	ResultDecision
	ResultMajorDecision
	ResultTechFall
	ResultFall
	ResultForfeit
	ResultMedicalForfeit // injury default, medical forfeit
	ResultDisqualification
	ResultNoContest
)

var resultNames = map[ResultType]string{ //nolint:gochecknoglobals
	ResultUnknown:          "unknown",
	ResultDecision:         "decision",
	ResultMajorDecision:    "major_decision",
	ResultTechFall:         "tech_fall",
	ResultFall:             "fall",
	ResultForfeit:          "forfeit",
	ResultMedicalForfeit:   "medical_forfeit",
	ResultDisqualification: "disqualification",
	ResultNoContest:        "no_contest",
}

func (r ResultType) String() string {
	if n, ok := resultNames[r]; ok {
		return n
	}
	return fmt.Sprintf("result(%d)", int(r))
}

// ParseResultType is the inverse of String.
func ParseResultType(name string) (ResultType, error) {
	for k, v := range resultNames {
		if v == name {
			return k, nil
		}
	}
	return ResultUnknown, fmt.Errorf("%w: unknown result type %q", ErrMalformedRecord, name)
}

func (r ResultType) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *ResultType) UnmarshalText(b []byte) error {
	v, err := ParseResultType(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// ProducesEdge reports whether a match of this type yields a winner edge.
func (r ResultType) ProducesEdge() bool {
	return r != ResultUnknown && r != ResultNoContest
}

// CountsForInference reports whether the result may feed common-opponent
// inference. Injury defaults and no contests say nothing about strength.
func (r ResultType) CountsForInference() bool {
	return r.ProducesEdge() && r != ResultMedicalForfeit
}

// IsForfeit reports whether the match was decided without wrestling.
func (r ResultType) IsForfeit() bool {
	return r == ResultForfeit || r == ResultMedicalForfeit
}

var (
	scoreRe = regexp.MustCompile(`(\d+)-(\d+)`)
	pinRe   = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
)

// ParsedResult is the normalized form of a raw result string such as
// "Dec 4-2", "MD 12-3", "TF 18-2 4:10" or "Fall 1:37".
type ParsedResult struct {
	Type    ResultType
	Margin  *float64
	PinTime *time.Duration
}

// ParseResult classifies a raw result string. Unrecognised input yields
// ResultUnknown and an ErrMalformedRecord error.
func ParseResult(raw string) (ParsedResult, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	out := ParsedResult{Type: classify(s)}
	if out.Type == ResultUnknown {
		return out, fmt.Errorf("%w: unrecognised result %q", ErrMalformedRecord, raw)
	}

	if m := scoreRe.FindStringSubmatch(s); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		d := float64(a - b)
		if d < 0 {
			d = -d
		}
		out.Margin = &d
	}
	if out.Type == ResultFall || out.Type == ResultTechFall {
		if m := pinRe.FindStringSubmatch(s); m != nil {
			mins, _ := strconv.Atoi(m[1])
			secs, _ := strconv.Atoi(m[2])
			d := time.Duration(mins)*time.Minute + time.Duration(secs)*time.Second
			out.PinTime = &d
		}
	}
	return out, nil
}

func classify(s string) ResultType {
	if s == "" {
		return ResultUnknown
	}
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '(' || r == ')' || r == ',' || r == '/'
	})
	has := func(words ...string) bool {
		for _, t := range tokens {
			for _, w := range words {
				if t == w {
					return true
				}
			}
		}
		return false
	}

	switch {
	case has("nc") || strings.Contains(s, "no contest"):
		return ResultNoContest
	case has("mff", "mffl", "inj", "def", "default") || strings.Contains(s, "m. for") ||
		strings.Contains(s, "medical") || strings.Contains(s, "injury"):
		return ResultMedicalForfeit
	case has("ff", "for.", "fft") || strings.Contains(s, "forfeit"):
		return ResultForfeit
	case has("dq") || strings.Contains(s, "disqualif"):
		return ResultDisqualification
	case has("tf") || strings.Contains(s, "tech"):
		return ResultTechFall
	case has("md") || strings.Contains(s, "major"):
		return ResultMajorDecision
	case has("f", "fall", "pin"):
		return ResultFall
	case has("dec", "d", "ud", "decision") || strings.HasPrefix(s, "sv") || strings.HasPrefix(s, "tb") ||
		strings.Contains(s, "sv-") || strings.Contains(s, "tb-"):
		return ResultDecision
	}
	return ResultUnknown
}
