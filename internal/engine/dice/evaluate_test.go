package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KirkDiggler/rpg-tabletop/internal/engine/dice"
)

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

func TestEvaluate_KeepHighestIsDeterministic(t *testing.T) {
	parsed := dice.MustParse("2d20kh1")

	outcome := dice.Evaluate(parsed, dice.NewSequenceSource(5, 17))

	require.Len(t, outcome.Groups, 1)
	assert.Equal(t, []int{5, 17}, outcome.Groups[0].Rolls)
	assert.Equal(t, []int{17}, outcome.Groups[0].Kept)
	assert.Equal(t, []int{5}, outcome.Groups[0].Dropped)
	assert.Equal(t, 17, outcome.Total)

	again := dice.Evaluate(parsed, dice.NewSequenceSource(5, 17))
	assert.Equal(t, outcome, again)
}

func TestEvaluate_KeepLowest(t *testing.T) {
	outcome := dice.Evaluate(dice.MustParse("4d6kl2+1"), dice.NewSequenceSource(6, 2, 5, 3))

	assert.Equal(t, []int{2, 3}, outcome.Groups[0].Kept)
	assert.Equal(t, []int{5, 6}, outcome.Groups[0].Dropped)
	assert.Equal(t, 6, outcome.Total)
}

func TestEvaluate_MultipleGroupsAndModifiers(t *testing.T) {
	outcome := dice.Evaluate(dice.MustParse("2d8+1d6+3-1"), dice.NewSequenceSource(7, 2, 4))

	assert.Equal(t, []int{7, 2}, outcome.Groups[0].Kept)
	assert.Equal(t, []int{4}, outcome.Groups[1].Kept)
	assert.Equal(t, 2, outcome.ModifierTotal)
	assert.Equal(t, 15, outcome.Total)
	assert.Equal(t, []int{7, 2, 4}, outcome.KeptRolls())
}

func TestEvaluate_TotalEqualsKeptPlusModifiers(t *testing.T) {
	notations := []string{
		"1d20+5",
		"4d6kh3",
		"10d10kl4-7",
		"3d8+2d4+1d12+10",
		"100d6kh50-1000",
	}

	for _, notation := range notations {
		t.Run(notation, func(t *testing.T) {
			parsed := dice.MustParse(notation)
			for seed := uint64(0); seed < 50; seed++ {
				outcome := dice.Evaluate(parsed, dice.NewSeededSource(seed))

				assert.Equal(t, sum(outcome.KeptRolls())+parsed.ModifierTotal(), outcome.Total)
				for i, g := range outcome.Groups {
					group := parsed.Groups[i]
					require.Len(t, g.Rolls, group.Count)
					for _, r := range g.Rolls {
						assert.GreaterOrEqual(t, r, 1)
						assert.LessOrEqual(t, r, group.Sides)
					}
					if group.Keep != dice.KeepNone {
						assert.Len(t, g.Kept, min(group.KeepCount, group.Count))
					} else {
						assert.Len(t, g.Kept, group.Count)
					}
				}
			}
		})
	}
}

func TestSeededSource_Replays(t *testing.T) {
	parsed := dice.MustParse("8d12")

	a := dice.Evaluate(parsed, dice.NewSeededSource(42))
	b := dice.Evaluate(parsed, dice.NewSeededSource(42))

	assert.Equal(t, a, b)
}

func TestSequenceSource_FoldsOutOfRangeValues(t *testing.T) {
	src := dice.NewSequenceSource(7, 0, -1)

	assert.Equal(t, 1, src.Roll(6))
	assert.Equal(t, 6, src.Roll(6))
	assert.Equal(t, 5, src.Roll(6))
	assert.Equal(t, 3, src.Drawn())
}

func TestToolkitSource_StaysInRange(t *testing.T) {
	src := dice.NewToolkitSource()
	for i := 0; i < 200; i++ {
		v := src.Roll(20)
		assert.GreaterOrEqual(t, v, 1)
		assert.LessOrEqual(t, v, 20)
	}
}
