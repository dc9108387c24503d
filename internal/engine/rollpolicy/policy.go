package rollpolicy

import (
	"slices"
	"time"

	"github.com/KirkDiggler/rpg-tabletop/internal/engine/dice"
	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
)

// Resolve applies the formula's policy to a raw outcome. Advantage and
// disadvantage touch only the first die of the first d20 group; the extra d20
// is drawn from src. Resolve has no side effects beyond consuming src.
func Resolve(f Formula, raw dice.RawOutcome, src dice.Source, at time.Time) (RollResult, error) {
	if err := f.Validate(); err != nil {
		return RollResult{}, err
	}

	groups := slices.Clone(raw.Groups)
	mode := f.Mode()
	var adv *AdvantageRoll

	idx := firstD20(groups)
	if idx < 0 {
		mode = ModeNormal
	}
	if mode != ModeNormal {
		g := groups[idx]
		original := g.Rolls[0]
		extra := src.Roll(20)
		chosen := max(original, extra)
		if mode == ModeDisadvantage {
			chosen = min(original, extra)
		}

		rolls := slices.Clone(g.Rolls)
		rolls[0] = chosen
		groups[idx] = dice.NewGroupOutcome(g.Group, rolls)
		adv = &AdvantageRoll{
			GroupIndex: idx,
			Original:   original,
			Extra:      extra,
			Chosen:     chosen,
		}
	}

	outcome := dice.Assemble(groups, raw.Modifiers)
	critRange := f.EffectiveCriticalRange()
	isCrit, isFumble := detect(outcome.Groups, critRange)

	return RollResult{
		Notation:      f.Notation,
		Evaluated:     notationOf(outcome.Groups, raw.Modifiers),
		Category:      f.EffectiveCategory(),
		CriticalRange: critRange,
		Groups:        outcome.Groups,
		Modifier:      outcome.ModifierTotal,
		Total:         outcome.Total,
		IsCritical:    isCrit,
		IsFumble:      isFumble,
		Mode:          mode,
		AdvantageRoll: adv,
		RolledAt:      at,
	}, nil
}

// ParseAndRoll parses the formula's notation, evaluates it against src and
// resolves the policy.
func ParseAndRoll(f Formula, src dice.Source, at time.Time) (RollResult, error) {
	parsed, err := dice.Parse(f.Notation)
	if err != nil {
		return RollResult{}, err
	}
	return Resolve(f, dice.Evaluate(parsed, src), src, at)
}

// DoubleDice builds the critical-damage formula: every group's dice count
// (and keep count) doubled, modifiers untouched. Doubling past the dice limit
// is a formula error.
func DoubleDice(parsed dice.ParsedFormula) (dice.ParsedFormula, error) {
	doubled := parsed.Clone()
	for i := range doubled.Groups {
		doubled.Groups[i].Count *= 2
		if doubled.Groups[i].Keep == dice.KeepHighest || doubled.Groups[i].Keep == dice.KeepLowest {
			doubled.Groups[i].KeepCount *= 2
		}
	}
	if err := dice.Validate(doubled); err != nil {
		return dice.ParsedFormula{}, errors.Wrap(err, "critical damage exceeds dice limits")
	}
	return doubled, nil
}

// RollCriticalDamage parses f, doubles its dice and evaluates the result. The
// caller decides when a critical hit warrants it.
func RollCriticalDamage(f Formula, src dice.Source, at time.Time) (RollResult, error) {
	parsed, err := dice.Parse(f.Notation)
	if err != nil {
		return RollResult{}, err
	}
	doubled, err := DoubleDice(parsed)
	if err != nil {
		return RollResult{}, err
	}

	result, err := Resolve(f, dice.Evaluate(doubled, src), src, at)
	if err != nil {
		return RollResult{}, err
	}
	result.CriticalDamage = true
	return result, nil
}

func firstD20(groups []dice.GroupOutcome) int {
	for i, g := range groups {
		if g.Group.IsD20() && len(g.Rolls) > 0 {
			return i
		}
	}
	return -1
}

func detect(groups []dice.GroupOutcome, critRange int) (critical, fumble bool) {
	for _, g := range groups {
		if !g.Group.IsD20() {
			continue
		}
		for _, v := range g.Kept {
			if v >= critRange {
				critical = true
			}
			if v == 1 {
				fumble = true
			}
		}
	}
	return critical, fumble
}

func notationOf(groups []dice.GroupOutcome, modifiers []int) string {
	parsed := dice.ParsedFormula{Modifiers: modifiers}
	for _, g := range groups {
		parsed.Groups = append(parsed.Groups, g.Group)
	}
	return parsed.String()
}
