// Package dice parses dice notation such as "2d20kh1+1d6+3" into a validated
// ParsedFormula and evaluates it against an injected Source.
package dice

import (
	"strconv"
	"strings"
)

// Limits enforced by Parse
const (
	MinCount       = 1
	MaxCount       = 100
	MinSides       = 2
	MaxSides       = 10000
	MaxModifier    = 1000
	MaxTerms       = 20
	MaxNotationLen = 256
)

// KeepRule selects which dice of a group count toward the total
type KeepRule string

// Keep rules
const (
	KeepNone    KeepRule = "none"
	KeepHighest KeepRule = "highest"
	KeepLowest  KeepRule = "lowest"
)

// DiceGroup is one "NdS" term, optionally with a keep marker
type DiceGroup struct {
	Count     int      `json:"count"`
	Sides     int      `json:"sides"`
	Keep      KeepRule `json:"keep"`
	KeepCount int      `json:"keep_count,omitempty"`
}

// IsD20 reports whether the group rolls twenty-sided dice
func (g DiceGroup) IsD20() bool {
	return g.Sides == 20
}

// String renders the group in canonical notation
func (g DiceGroup) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(g.Count))
	b.WriteByte('d')
	b.WriteString(strconv.Itoa(g.Sides))
	switch g.Keep {
	case KeepHighest:
		b.WriteString("kh")
		b.WriteString(strconv.Itoa(g.KeepCount))
	case KeepLowest:
		b.WriteString("kl")
		b.WriteString(strconv.Itoa(g.KeepCount))
	}
	return b.String()
}

// ParsedFormula is the validated form of a dice notation. Groups keep their
// order of appearance; modifiers are signed.
type ParsedFormula struct {
	Groups    []DiceGroup `json:"groups"`
	Modifiers []int       `json:"modifiers,omitempty"`
}

// ModifierTotal sums all modifiers
func (p ParsedFormula) ModifierTotal() int {
	total := 0
	for _, m := range p.Modifiers {
		total += m
	}
	return total
}

// FirstD20 returns the index of the first d20 group, or -1
func (p ParsedFormula) FirstD20() int {
	for i, g := range p.Groups {
		if g.IsD20() {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy
func (p ParsedFormula) Clone() ParsedFormula {
	out := ParsedFormula{
		Groups: make([]DiceGroup, len(p.Groups)),
	}
	copy(out.Groups, p.Groups)
	if len(p.Modifiers) > 0 {
		out.Modifiers = make([]int, len(p.Modifiers))
		copy(out.Modifiers, p.Modifiers)
	}
	return out
}

// String renders the formula in canonical notation, e.g. "2d20kh1+1d6-2"
func (p ParsedFormula) String() string {
	var b strings.Builder
	for i, g := range p.Groups {
		if i > 0 {
			b.WriteByte('+')
		}
		b.WriteString(g.String())
	}
	for _, m := range p.Modifiers {
		if m < 0 {
			b.WriteByte('-')
			b.WriteString(strconv.Itoa(-m))
			continue
		}
		b.WriteByte('+')
		b.WriteString(strconv.Itoa(m))
	}
	return b.String()
}
