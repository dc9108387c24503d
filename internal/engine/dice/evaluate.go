package dice

import (
	"slices"
)

// GroupOutcome is the breakdown of one evaluated dice group. Rolls are in draw
// order; Kept is ordered best-first for keep-highest and worst-first for
// keep-lowest.
type GroupOutcome struct {
	Group    DiceGroup `json:"group"`
	Rolls    []int     `json:"rolls"`
	Kept     []int     `json:"kept"`
	Dropped  []int     `json:"dropped,omitempty"`
	Subtotal int       `json:"subtotal"`
}

// RawOutcome is the result of evaluating a ParsedFormula before any roll
// policy is applied.
type RawOutcome struct {
	Groups        []GroupOutcome `json:"groups"`
	Modifiers     []int          `json:"modifiers,omitempty"`
	ModifierTotal int            `json:"modifier_total"`
	Total         int            `json:"total"`
}

// KeptRolls flattens the kept dice of every group in group order
func (o RawOutcome) KeptRolls() []int {
	var kept []int
	for _, g := range o.Groups {
		kept = append(kept, g.Kept...)
	}
	return kept
}

// Evaluate rolls every group of parsed against src and totals the kept dice
// plus modifiers. It never fails for a formula that passed Parse or Validate;
// identical formulas and source sequences yield identical outcomes.
func Evaluate(parsed ParsedFormula, src Source) RawOutcome {
	groups := make([]GroupOutcome, len(parsed.Groups))
	for i, g := range parsed.Groups {
		rolls := make([]int, g.Count)
		for j := range rolls {
			rolls[j] = src.Roll(g.Sides)
		}
		groups[i] = NewGroupOutcome(g, rolls)
	}
	return Assemble(groups, parsed.Modifiers)
}

// NewGroupOutcome applies the group's keep rule to rolls
func NewGroupOutcome(g DiceGroup, rolls []int) GroupOutcome {
	kept, dropped := keep(g, rolls)
	subtotal := 0
	for _, v := range kept {
		subtotal += v
	}
	return GroupOutcome{
		Group:    g,
		Rolls:    slices.Clone(rolls),
		Kept:     kept,
		Dropped:  dropped,
		Subtotal: subtotal,
	}
}

// Assemble totals group outcomes with modifiers
func Assemble(groups []GroupOutcome, modifiers []int) RawOutcome {
	out := RawOutcome{
		Groups:    groups,
		Modifiers: slices.Clone(modifiers),
	}
	for _, m := range modifiers {
		out.ModifierTotal += m
	}
	out.Total = out.ModifierTotal
	for _, g := range groups {
		out.Total += g.Subtotal
	}
	return out
}

func keep(g DiceGroup, rolls []int) (kept, dropped []int) {
	n := g.KeepCount
	if n > len(rolls) {
		n = len(rolls)
	}

	switch g.Keep {
	case KeepHighest:
		sorted := slices.Clone(rolls)
		slices.SortStableFunc(sorted, func(a, b int) int { return b - a })
		return sorted[:n], sorted[n:]
	case KeepLowest:
		sorted := slices.Clone(rolls)
		slices.Sort(sorted)
		return sorted[:n], sorted[n:]
	default:
		return slices.Clone(rolls), nil
	}
}
