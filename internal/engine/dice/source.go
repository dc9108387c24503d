package dice

import (
	"fmt"
	"math/rand/v2"
	"sync"

	toolkitdice "github.com/KirkDiggler/rpg-toolkit/dice"
)

// Source draws uniform integers in [1, sides]. Evaluation never touches a
// global random source; callers inject one.
type Source interface {
	Roll(sides int) int
}

// ToolkitSource draws from rpg-toolkit's dice roller. Safe for concurrent use.
type ToolkitSource struct{}

// NewToolkitSource returns the production source
func NewToolkitSource() *ToolkitSource {
	return &ToolkitSource{}
}

// Roll draws one die of the given size
func (s *ToolkitSource) Roll(sides int) int {
	roll, err := toolkitdice.NewRoll(1, sides)
	if err != nil {
		// Unreachable for validated formulas: sides is always >= 2.
		panic(fmt.Sprintf("dice: toolkit roll d%d: %v", sides, err))
	}
	return roll.GetValue()
}

// SeededSource replays a deterministic sequence from a seed
type SeededSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededSource creates a source seeded with seed
func NewSeededSource(seed uint64) *SeededSource {
	return &SeededSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Roll draws one die of the given size
func (s *SeededSource) Roll(sides int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(sides) + 1
}

// SequenceSource returns a fixed sequence of values, cycling when exhausted.
// Values outside [1, sides] are folded into range.
type SequenceSource struct {
	mu     sync.Mutex
	values []int
	next   int
}

// NewSequenceSource creates a source yielding values in order
func NewSequenceSource(values ...int) *SequenceSource {
	if len(values) == 0 {
		values = []int{1}
	}
	return &SequenceSource{values: values}
}

// Roll returns the next value of the sequence
func (s *SequenceSource) Roll(sides int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.values[s.next%len(s.values)]
	s.next++
	if v < 1 || v > sides {
		v = ((v-1)%sides+sides)%sides + 1
	}
	return v
}

// Drawn reports how many values have been consumed
func (s *SequenceSource) Drawn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}
