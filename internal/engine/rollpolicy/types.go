// Package rollpolicy layers advantage/disadvantage, critical and fumble
// detection, and critical-damage doubling on top of raw dice evaluation.
package rollpolicy

import (
	"time"

	"github.com/KirkDiggler/rpg-tabletop/internal/engine/dice"
	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
)

// DefaultCriticalRange is the natural d20 value that scores a critical
const DefaultCriticalRange = 20

// MinCriticalRange is the lowest critical range accepted
const MinCriticalRange = 2

// Category classifies what a roll is for
type Category string

// Roll categories
const (
	CategoryAttack Category = "attack"
	CategoryDamage Category = "damage"
	CategorySkill  Category = "skill"
	CategorySave   Category = "save"
	CategoryOther  Category = "other"
)

// Categories lists every valid category
var Categories = []string{
	string(CategoryAttack),
	string(CategoryDamage),
	string(CategorySkill),
	string(CategorySave),
	string(CategoryOther),
}

// Mode is the advantage state actually applied to a roll
type Mode string

// Roll modes
const (
	ModeNormal       Mode = "normal"
	ModeAdvantage    Mode = "advantage"
	ModeDisadvantage Mode = "disadvantage"
)

// Formula is an immutable roll request: notation plus policy flags
type Formula struct {
	Notation      string   `json:"notation"`
	Category      Category `json:"category"`
	CriticalRange int      `json:"critical_range,omitempty"`
	Advantage     bool     `json:"advantage,omitempty"`
	Disadvantage  bool     `json:"disadvantage,omitempty"`
}

// Validate checks category and critical range; notation is checked by dice.Parse
func (f Formula) Validate() error {
	vb := errors.NewValidationBuilder()
	if f.Category != "" {
		errors.ValidateEnum("category", string(f.Category), Categories, vb)
	}
	if f.CriticalRange != 0 {
		errors.ValidateRange("critical_range", f.CriticalRange, MinCriticalRange, DefaultCriticalRange, vb)
	}
	return vb.Build()
}

// EffectiveCategory defaults an empty category to other
func (f Formula) EffectiveCategory() Category {
	if f.Category == "" {
		return CategoryOther
	}
	return f.Category
}

// EffectiveCriticalRange defaults an unset range to 20
func (f Formula) EffectiveCriticalRange() int {
	if f.CriticalRange == 0 {
		return DefaultCriticalRange
	}
	return f.CriticalRange
}

// Mode resolves the flags; advantage and disadvantage together cancel out
func (f Formula) Mode() Mode {
	switch {
	case f.Advantage && !f.Disadvantage:
		return ModeAdvantage
	case f.Disadvantage && !f.Advantage:
		return ModeDisadvantage
	default:
		return ModeNormal
	}
}

// AdvantageRoll records the extra d20 drawn for advantage or disadvantage
type AdvantageRoll struct {
	GroupIndex int `json:"group_index"`
	Original   int `json:"original"`
	Extra      int `json:"extra"`
	Chosen     int `json:"chosen"`
}

// RollResult is the immutable, fully resolved outcome of a roll. All numeric
// fields are integers on the wire.
type RollResult struct {
	Notation       string              `json:"notation"`
	Evaluated      string              `json:"evaluated"`
	Category       Category            `json:"category"`
	CriticalRange  int                 `json:"critical_range"`
	Groups         []dice.GroupOutcome `json:"groups"`
	Modifier       int                 `json:"modifier"`
	Total          int                 `json:"total"`
	IsCritical     bool                `json:"is_critical"`
	IsFumble       bool                `json:"is_fumble"`
	Mode           Mode                `json:"mode"`
	AdvantageRoll  *AdvantageRoll      `json:"advantage_roll,omitempty"`
	CriticalDamage bool                `json:"critical_damage,omitempty"`
	RolledAt       time.Time           `json:"rolled_at"`
}

// CriticalHit reports a critical on an attack roll, the only category where a
// critical triggers doubled damage.
func (r RollResult) CriticalHit() bool {
	return r.IsCritical && r.Category == CategoryAttack
}

// Rolls flattens every die drawn, in group order
func (r RollResult) Rolls() []int {
	var out []int
	for _, g := range r.Groups {
		out = append(out, g.Rolls...)
	}
	return out
}

// Kept flattens every kept die, in group order
func (r RollResult) Kept() []int {
	var out []int
	for _, g := range r.Groups {
		out = append(out, g.Kept...)
	}
	return out
}
