package idgen_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KirkDiggler/rpg-tabletop/internal/pkg/idgen"
)

func TestSequentialGenerator(t *testing.T) {
	gen := idgen.NewSequential("entry")
	assert.Equal(t, "entry_1", gen.Generate())
	assert.Equal(t, "entry_2", gen.Generate())

	bare := idgen.NewSequential("")
	assert.Equal(t, "1", bare.Generate())
}

func TestSequentialGeneratorConcurrent(t *testing.T) {
	gen := idgen.NewSequential("")
	seen := sync.Map{}
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, dup := seen.LoadOrStore(gen.Generate(), true)
			assert.False(t, dup)
		}()
	}
	wg.Wait()
}

func TestUUIDGenerator(t *testing.T) {
	id := idgen.NewUUID("sess").Generate()
	require.True(t, strings.HasPrefix(id, "sess_"))

	parsed, err := uuid.Parse(strings.TrimPrefix(id, "sess_"))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())

	assert.NotEqual(t, idgen.NewUUID("").Generate(), idgen.NewUUID("").Generate())
}
