package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
	"lukechampine.com/frand"
)

// PCG stream selectors. The estimator and every advisor worker draw from
// distinct streams of the same seed.
const (
	estimateStream = 0x6d6f6f5f65737431
	sampleStream   = 0x6d6f6f5f736d706c
)

// Engine is the move advisor for one rule set.
// It is safe for concurrent use.
type Engine struct {
	rules Rules
	cache *DistribCache
	log   zerolog.Logger
}

// EngineOptions configures the engine
type EngineOptions struct {
	Rules     *Rules          // Game rules (nil = DefaultRules)
	CacheSize int             // Distribution cache entries (0 = default, negative = disabled)
	Logger    *zerolog.Logger // Fallback logger when the context carries none (nil = disabled)
}

// NewEngine creates a new engine with the given options
func NewEngine(opts EngineOptions) (*Engine, error) {
	rules := DefaultRules()
	if opts.Rules != nil {
		rules = *opts.Rules
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		rules: rules,
		log:   zerolog.Nop(),
	}
	if opts.Logger != nil {
		e.log = *opts.Logger
	}

	cacheSize := opts.CacheSize
	if cacheSize == 0 {
		cacheSize = DefaultCacheSize
	}
	if cacheSize > 0 {
		e.cache = NewDistribCache(uint32(cacheSize))
	}
	return e, nil
}

// Rules returns the rules the engine plays by.
func (e *Engine) Rules() Rules { return e.rules }

// Cache returns the distribution cache, or nil when caching is disabled.
func (e *Engine) Cache() *DistribCache { return e.cache }

// Estimate validates state and estimates the hidden-hand distribution.
// A zero seed draws a random one. Estimates for the same state, trial count
// and seed are served from the cache.
func (e *Engine) Estimate(ctx context.Context, state *GameState, opts EstimateOptions, seed uint64) (*HandsDistrib, error) {
	if err := state.Validate(&e.rules); err != nil {
		return nil, err
	}
	return e.estimate(ctx, state, opts, seed), nil
}

func (e *Engine) estimate(ctx context.Context, state *GameState, opts EstimateOptions, seed uint64) *HandsDistrib {
	logger := e.logger(ctx)
	if opts.Trials <= 0 {
		opts.Trials = DefaultEstimateTrials
	}

	if seed == 0 {
		seed = RandomSeed()
	}

	var key StateKey
	if e.cache != nil {
		key = MakeStateKey(&e.rules, state, opts.Trials, seed)
		if d, ok := e.cache.Lookup(key); ok {
			logger.Debug().Int("trials", opts.Trials).Msg("estimate cache hit")
			return d
		}
	}
	start := time.Now()
	rng := rand.New(rand.NewPCG(seed, estimateStream))
	d := EstimateHandsDistrib(rng, &e.rules, state, opts)
	logger.Debug().
		Int("trials", opts.Trials).
		Int("unknown_cards", len(d.cards)).
		Dur("elapsed", time.Since(start)).
		Msg("estimate")

	if e.cache != nil {
		e.cache.Add(key, d)
	}
	return d
}

// logger prefers the logger carried by ctx over the engine's own.
func (e *Engine) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &e.log
}

// RandomSeed returns a non-zero seed from a cryptographically seeded source.
func RandomSeed() uint64 {
	return frand.Uint64n(^uint64(0)) + 1
}

func (e *Engine) String() string {
	return fmt.Sprintf("Engine{cards: %d..%d, rows: %d, row length: %d, hand: %d}",
		e.rules.MinCardIdx, e.rules.MaxCardIdx, e.rules.RowCount, e.rules.MaxRowLen, e.rules.HandLen)
}
