package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThrottle_AllowsWithinLimit(t *testing.T) {
	th := New(DefaultConfig())
	for i := 0; i < 5; i++ {
		assert.True(t, th.Allow("1.2.3.4"))
		th.RecordFailure("1.2.3.4")
	}
}

func TestThrottle_EscalatesToTemporaryBlock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TemporaryBlockAfter = 3
	th := New(cfg)

	for i := 0; i < 3; i++ {
		th.RecordFailure("5.6.7.8")
	}
	assert.Equal(t, BlockTemporary, th.Status("5.6.7.8"))
	assert.False(t, th.Allow("5.6.7.8"))
}

func TestThrottle_EscalatesToPermanentAfterRepeatedBlocks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TemporaryBlockAfter = 2
	cfg.PermanentBlockAfter = 2
	th := New(cfg)

	for round := 0; round < 2; round++ {
		for i := 0; i < 2; i++ {
			th.RecordFailure("9.9.9.9")
		}
	}
	assert.Equal(t, BlockPermanent, th.Status("9.9.9.9"))
	assert.False(t, th.Allow("9.9.9.9"))
}
