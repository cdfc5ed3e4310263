// Package ratelimit implements per-IP/per-identity throttling with
// escalating temporary-then-permanent IP blocks. The wallet service never
// owns session/auth; this package models the capability session.Gate
// assumes exists, with an in-memory reference implementation.
package ratelimit

import (
	"sync"
	"time"
)

// BlockLevel mirrors the admin BlockedIP escalation ladder.
type BlockLevel string

const (
	BlockNone      BlockLevel = ""
	BlockTemporary BlockLevel = "temporary"
	BlockPermanent BlockLevel = "permanent"
)

// Config tunes the throttle window and escalation thresholds.
type Config struct {
	Window              time.Duration
	MaxAttempts         int
	TemporaryBlockAfter int           // failures within Window before a temporary block
	TemporaryBlockTTL   time.Duration
	PermanentBlockAfter int // number of temporary blocks before permanent escalation
}

func DefaultConfig() Config {
	return Config{
		Window:              time.Minute,
		MaxAttempts:         5,
		TemporaryBlockAfter: 10,
		TemporaryBlockTTL:   15 * time.Minute,
		PermanentBlockAfter: 3,
	}
}

type counter struct {
	attempts   int
	windowFrom time.Time
}

type blockState struct {
	level        BlockLevel
	blockedUntil time.Time
	temporaryCount int
}

// Throttle is an in-memory, per-key (IP or identity) rate limiter with
// escalating block records. Safe for concurrent use.
type Throttle struct {
	cfg      Config
	mu       sync.Mutex
	counters map[string]*counter
	blocks   map[string]*blockState
	now      func() time.Time
}

func New(cfg Config) *Throttle {
	return &Throttle{
		cfg:      cfg,
		counters: map[string]*counter{},
		blocks:   map[string]*blockState{},
		now:      time.Now,
	}
}

// Allow reports whether key (an IP or identity) may proceed. A blocked key
// always returns false regardless of its counter state.
func (t *Throttle) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if b, ok := t.blocks[key]; ok {
		if b.level == BlockPermanent {
			return false
		}
		if b.level == BlockTemporary && now.Before(b.blockedUntil) {
			return false
		}
	}

	c, ok := t.counters[key]
	if !ok || now.Sub(c.windowFrom) > t.cfg.Window {
		c = &counter{attempts: 0, windowFrom: now}
		t.counters[key] = c
	}
	return c.attempts < t.cfg.MaxAttempts
}

// RecordFailure registers a failed attempt for key and escalates the block
// state when thresholds are crossed.
func (t *Throttle) RecordFailure(key string) BlockLevel {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	c, ok := t.counters[key]
	if !ok || now.Sub(c.windowFrom) > t.cfg.Window {
		c = &counter{attempts: 0, windowFrom: now}
		t.counters[key] = c
	}
	c.attempts++

	b, ok := t.blocks[key]
	if !ok {
		b = &blockState{}
		t.blocks[key] = b
	}

	if c.attempts >= t.cfg.TemporaryBlockAfter && b.level != BlockPermanent {
		b.level = BlockTemporary
		b.blockedUntil = now.Add(t.cfg.TemporaryBlockTTL)
		b.temporaryCount++
		c.attempts = 0
		c.windowFrom = now

		if b.temporaryCount >= t.cfg.PermanentBlockAfter {
			b.level = BlockPermanent
		}
	}

	return b.level
}

// Reset clears a key's failure counter, used on successful auth. The
// key's block record is kept.
func (t *Throttle) Reset(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.counters, key)
	// a block record survives a successful attempt; only the failure
	// counter resets. A block never lifts on success, only on expiry.
}

// Status reports a key's current block level, for health/handler surfacing.
func (t *Throttle) Status(key string) BlockLevel {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.blocks[key]
	if !ok {
		return BlockNone
	}
	if b.level == BlockTemporary && t.now().After(b.blockedUntil) {
		return BlockNone
	}
	return b.level
}
