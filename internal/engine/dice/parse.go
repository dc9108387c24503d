package dice

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
)

// Constraint names reported on formula errors
const (
	ConstraintEmpty     = "empty"
	ConstraintLength    = "length"
	ConstraintSyntax    = "syntax"
	ConstraintCount     = "count"
	ConstraintSides     = "sides"
	ConstraintModifier  = "modifier"
	ConstraintKeepCount = "keep_count"
)

// maxDigits bounds numeric literals before conversion; anything longer is
// out of range for every limit.
const maxDigits = 6

// Parse validates notation and returns its structured form. On any violation
// it returns a zero ParsedFormula and a formula error naming the constraint.
func Parse(notation string) (ParsedFormula, error) {
	if len(notation) > MaxNotationLen {
		return ParsedFormula{}, errors.Formulaf(ConstraintLength,
			"dice notation must be at most %d characters", MaxNotationLen)
	}

	src := strings.ToLower(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, notation))
	if src == "" {
		return ParsedFormula{}, errors.Formula(ConstraintEmpty, "dice notation is required")
	}

	p := &parser{src: src}
	parsed, err := p.parse()
	if err != nil {
		return ParsedFormula{}, err.WithMeta("notation", notation)
	}
	return parsed, nil
}

// MustParse is Parse for notation known to be valid at compile time
func MustParse(notation string) ParsedFormula {
	parsed, err := Parse(notation)
	if err != nil {
		panic(err)
	}
	return parsed
}

// Validate checks a ParsedFormula built by hand against the same limits Parse enforces
func Validate(parsed ParsedFormula) error {
	if len(parsed.Groups) == 0 {
		return errors.Formula(ConstraintEmpty, "formula must contain at least one dice group")
	}
	if len(parsed.Groups)+len(parsed.Modifiers) > MaxTerms {
		return errors.Formulaf(ConstraintLength, "formula may contain at most %d terms", MaxTerms)
	}
	for _, g := range parsed.Groups {
		if err := validateGroup(g); err != nil {
			return err
		}
	}
	for _, m := range parsed.Modifiers {
		if m > MaxModifier || m < -MaxModifier {
			return errors.Formulaf(ConstraintModifier,
				"modifier magnitude must not exceed %d, got %d", MaxModifier, m)
		}
	}
	return nil
}

type parser struct {
	src string
	pos int
	out ParsedFormula
}

func (p *parser) parse() (ParsedFormula, *errors.Error) {
	sign := 1
	switch p.peek() {
	case '+':
		p.pos++
	case '-':
		sign = -1
		p.pos++
	}

	terms := 0
	for {
		terms++
		if terms > MaxTerms {
			return ParsedFormula{}, errors.Formulaf(ConstraintLength,
				"formula may contain at most %d terms", MaxTerms)
		}
		if err := p.term(sign); err != nil {
			return ParsedFormula{}, err
		}
		if p.done() {
			break
		}

		switch p.peek() {
		case '+':
			sign = 1
		case '-':
			sign = -1
		default:
			return ParsedFormula{}, p.unexpected()
		}
		p.pos++
		if p.done() {
			return ParsedFormula{}, errors.Formula(ConstraintSyntax, "dice notation ends with an operator")
		}
	}

	if len(p.out.Groups) == 0 {
		return ParsedFormula{}, errors.Formula(ConstraintEmpty, "formula must contain at least one dice group")
	}
	return p.out, nil
}

func (p *parser) term(sign int) *errors.Error {
	leading := p.digits()
	if p.peek() != 'd' {
		if leading == "" {
			return p.unexpected()
		}
		value, ok := toInt(leading)
		if !ok || value > MaxModifier {
			return errors.Formulaf(ConstraintModifier,
				"modifier magnitude must not exceed %d, got %s", MaxModifier, leading)
		}
		p.out.Modifiers = append(p.out.Modifiers, sign*value)
		return nil
	}
	p.pos++

	if sign < 0 {
		return errors.Formula(ConstraintSyntax, "dice groups cannot be subtracted")
	}

	group := DiceGroup{Count: 1, Keep: KeepNone}
	if leading != "" {
		count, ok := toInt(leading)
		if !ok {
			return errors.Formulaf(ConstraintCount,
				"dice count must be between %d and %d, got %s", MinCount, MaxCount, leading)
		}
		group.Count = count
	}

	sides := p.digits()
	if sides == "" {
		return errors.Formula(ConstraintSyntax, "die size is missing after 'd'")
	}
	n, ok := toInt(sides)
	if !ok {
		return errors.Formulaf(ConstraintSides,
			"die must have between %d and %d sides, got %s", MinSides, MaxSides, sides)
	}
	group.Sides = n

	if p.peek() == 'k' {
		p.pos++
		switch p.peek() {
		case 'h':
			group.Keep = KeepHighest
		case 'l':
			group.Keep = KeepLowest
		default:
			return errors.Formula(ConstraintSyntax, "keep marker must be 'kh' or 'kl'")
		}
		p.pos++

		group.KeepCount = 1
		if keep := p.digits(); keep != "" {
			k, ok := toInt(keep)
			if !ok {
				return errors.Formulaf(ConstraintKeepCount,
					"keep count must be between 1 and dice count %d, got %s", group.Count, keep)
			}
			group.KeepCount = k
		}
		if p.peek() == 'k' {
			return errors.Formula(ConstraintSyntax, "a dice group may have only one keep marker")
		}
	}

	if err := validateGroup(group); err != nil {
		return err
	}
	p.out.Groups = append(p.out.Groups, group)
	return nil
}

func validateGroup(g DiceGroup) *errors.Error {
	if g.Count < MinCount || g.Count > MaxCount {
		return errors.Formulaf(ConstraintCount,
			"dice count must be between %d and %d, got %d", MinCount, MaxCount, g.Count)
	}
	if g.Sides < MinSides || g.Sides > MaxSides {
		return errors.Formulaf(ConstraintSides,
			"die must have between %d and %d sides, got %d", MinSides, MaxSides, g.Sides)
	}
	switch g.Keep {
	case KeepNone, "":
		if g.KeepCount != 0 {
			return errors.Formula(ConstraintKeepCount, "keep count requires a keep marker")
		}
	case KeepHighest, KeepLowest:
		if g.KeepCount < 1 || g.KeepCount > g.Count {
			return errors.Formulaf(ConstraintKeepCount,
				"keep count must be between 1 and dice count %d, got %d", g.Count, g.KeepCount)
		}
	default:
		return errors.Formulaf(ConstraintSyntax, "unknown keep rule %q", g.Keep)
	}
	return nil
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) done() bool {
	return p.pos >= len(p.src)
}

func (p *parser) digits() string {
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) unexpected() *errors.Error {
	if p.done() {
		return errors.Formula(ConstraintSyntax, "unexpected end of dice notation")
	}
	return errors.Formulaf(ConstraintSyntax,
		"unexpected character %q at position %d", p.src[p.pos], p.pos)
}

func toInt(digits string) (int, bool) {
	if len(digits) > maxDigits {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}
