// Package weightclass knows the ordered weight ladders and their neighbours.
package weightclass

import (
	"strings"
)

var (
	mens   = []string{"106", "113", "120", "126", "132", "138", "144", "150", "157", "165", "175", "190", "215", "285"}
	womens = []string{"W100", "W107", "W114", "W120", "W126", "W132", "W138", "W145", "W152", "W165", "W185", "W235"}
)

// Normalize canonicalises a weight class label: "157 lbs" -> "157",
// "w107" -> "W107". Unknown labels are returned trimmed.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(strings.TrimSuffix(strings.ToLower(s), "lbs"), "lb")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "w") {
		return "W" + strings.TrimSpace(s[1:])
	}
	return s
}

// Ladder returns the ordered ladder containing class, or nil.
func Ladder(class string) []string {
	c := Normalize(class)
	for _, ladder := range [][]string{mens, womens} {
		if indexOf(ladder, c) >= 0 {
			return append([]string(nil), ladder...)
		}
	}
	return nil
}

// Adjacent returns the classes one step below and above class, lighter first.
// Unknown classes have no neighbours.
func Adjacent(class string) []string {
	c := Normalize(class)
	for _, ladder := range [][]string{mens, womens} {
		i := indexOf(ladder, c)
		if i < 0 {
			continue
		}
		var out []string
		if i > 0 {
			out = append(out, ladder[i-1])
		}
		if i < len(ladder)-1 {
			out = append(out, ladder[i+1])
		}
		return out
	}
	return nil
}

// WithAdjacent returns class followed by its neighbours.
func WithAdjacent(class string) []string {
	return append([]string{Normalize(class)}, Adjacent(class)...)
}

// Known reports whether class sits on one of the ladders.
func Known(class string) bool {
	return Ladder(class) != nil
}

func indexOf(ladder []string, c string) int {
	for i, v := range ladder {
		if v == c {
			return i
		}
	}
	return -1
}
