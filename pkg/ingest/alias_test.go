package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidatesWithAuthor(t *testing.T) {
	t.Parallel()
	c := NewCandidates("Moby Dick", "Herman Melville")

	assert.Equal(t, "moby-dick", c.Next())
	assert.Equal(t, "moby-dick-herman-melville", c.Next())
	assert.Equal(t, "moby-dick-herman-melville-0", c.Next())
	assert.Equal(t, "moby-dick-herman-melville-1", c.Next())
	assert.Equal(t, "moby-dick-herman-melville-2", c.Next())
}

func TestCandidatesWithoutAuthor(t *testing.T) {
	t.Parallel()
	c := NewCandidates("Moby Dick", "")

	assert.Equal(t, "moby-dick", c.Next())
	assert.Equal(t, "moby-dick-0", c.Next())
	assert.Equal(t, "moby-dick-1", c.Next())
}

func TestCandidatesMissingTitle(t *testing.T) {
	t.Parallel()
	c := NewCandidates("", "")

	assert.Equal(t, "no-title", c.Next())
	assert.Equal(t, "no-title-0", c.Next())
}

func TestCandidatesTransliterates(t *testing.T) {
	t.Parallel()
	c := NewCandidates("Война и мир", "Лев Толстой")

	first := c.Next()
	assert.NotEmpty(t, first)
	assert.Regexp(t, `^[a-z0-9_-]+$`, first)
	assert.Regexp(t, `^[a-z0-9_-]+$`, c.Next())
}

func TestCandidatesRestartable(t *testing.T) {
	t.Parallel()
	first := NewCandidates("Walden", "")
	second := NewCandidates("Walden", "")

	for i := 0; i < 5; i++ {
		assert.Equal(t, first.Next(), second.Next())
	}
}

func TestAllocatorSkipsTaken(t *testing.T) {
	t.Parallel()
	taken := map[string]bool{
		"moby-dick":   true,
		"moby-dick-0": true,
	}
	a := &Allocator{
		Exists: func(ctx context.Context, alias string) (bool, error) {
			return taken[alias], nil
		},
	}

	alias, err := a.Allocate(context.Background(), "Moby Dick", "")
	require.NoError(t, err)
	assert.Equal(t, "moby-dick-1", alias)
}
