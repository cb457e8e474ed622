package engine

import (
	"cmp"
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// DefaultAdviseSamples is the number of weighted hand assignments played out
// by Advise when no sample count is given.
const DefaultAdviseSamples = 10000

// AdviseOptions controls the advisor.
type AdviseOptions struct {
	Trials   int              // Estimator trials (0 = DefaultEstimateTrials)
	Samples  int              // Hand assignments to play out (0 = DefaultAdviseSamples)
	Workers  int              // Number of parallel workers (0 = GOMAXPROCS)
	Seed     uint64           // RNG seed (0 = random)
	Progress ProgressCallback // Optional, called after every batch of samples
}

// AdviseProgress contains progress information during Advise
type AdviseProgress struct {
	SamplesCompleted int     `json:"samples_completed"`
	SamplesTotal     int     `json:"samples_total"`
	Percent          float64 `json:"percent"`
	BestCard         int     `json:"best_card"`     // current leader, 0 before any weight is seen
	BestRelCost      float64 `json:"best_rel_cost"` // current leader's weighted relative cost
}

// ProgressCallback is called periodically during Advise with progress updates.
// Calls are serialized.
type ProgressCallback func(progress AdviseProgress)

// ActionScore is the evaluation of one candidate card.
type ActionScore struct {
	Card    Card
	RelCost float64 // weighted mean of own cost minus the others' mean cost
	StdDev  float64 // weighted standard deviation of the relative cost
}

// Advice is the result of Advise.
type Advice struct {
	Actions          []ActionScore // best first
	Samples          int
	WeightSum        float64
	EffectiveSamples float64 // Kish effective sample size of the importance weights
	Seed             uint64
	Distrib          *HandsDistrib
}

// Best returns the recommended card.
func (a *Advice) Best() Card { return a.Actions[0].Card }

// Find returns the score of card, if it was a candidate.
func (a *Advice) Find(card Card) (ActionScore, bool) {
	for _, s := range a.Actions {
		if s.Card == card {
			return s, true
		}
	}
	return ActionScore{}, false
}

// workerResult holds the samples drawn by a single worker
type workerResult struct {
	weights  []float64
	relCosts [][]float64 // per sample, aligned with MyHand
}

// Advise ranks the cards of state.MyHand. It estimates the hidden hands,
// draws weighted hand assignments from the estimate and plays every candidate
// out against each of them. A fixed (Seed, Workers) pair gives the same advice.
func (e *Engine) Advise(ctx context.Context, state *GameState, opts AdviseOptions) (*Advice, error) {
	if err := state.Validate(&e.rules); err != nil {
		return nil, err
	}
	if len(state.MyHand) == 0 {
		return nil, fmt.Errorf("%w: no cards left to play", ErrInvalidState)
	}

	// Set defaults
	if opts.Samples <= 0 {
		opts.Samples = DefaultAdviseSamples
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	opts.Workers = min(opts.Workers, opts.Samples)

	// One seed drives both the estimate and the playouts so that
	// Advice.Seed reproduces the whole run.
	seed := opts.Seed
	if seed == 0 {
		seed = RandomSeed()
	}

	logger := e.logger(ctx)
	distrib := e.estimate(ctx, state, EstimateOptions{Trials: opts.Trials}, seed)

	start := time.Now()
	agg := newAdviseAggregator(state.MyHand, opts.Samples, opts.Progress)
	results := make([]workerResult, opts.Workers)

	g, gctx := errgroup.WithContext(ctx)
	samplesPerWorker := opts.Samples / opts.Workers
	extraSamples := opts.Samples % opts.Workers
	for i := 0; i < opts.Workers; i++ {
		workerSamples := samplesPerWorker
		if i < extraSamples {
			workerSamples++
		}
		workerSeed := seed + uint64(i)*1000000

		g.Go(func() error {
			res, err := e.adviseWorker(gctx, state, distrib, workerSamples, workerSeed, agg)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	advice, err := mergeAdvice(state.MyHand, results)
	if err != nil {
		return nil, err
	}
	advice.Seed = seed
	advice.Distrib = distrib

	logger.Debug().
		Int("samples", advice.Samples).
		Int("workers", opts.Workers).
		Float64("ess", advice.EffectiveSamples).
		Stringer("best", advice.Best()).
		Dur("elapsed", time.Since(start)).
		Msg("advise")
	return advice, nil
}

// adviseWorker draws samples hand assignments with its own generator.
func (e *Engine) adviseWorker(ctx context.Context, state *GameState, distrib *HandsDistrib,
	samples int, seed uint64, agg *adviseAggregator,
) (workerResult, error) {
	rng := rand.New(rand.NewPCG(seed, sampleStream))
	res := workerResult{
		weights:  make([]float64, 0, samples),
		relCosts: make([][]float64, 0, samples),
	}

	batch := agg.batchSize()
	pending := 0
	for s := 0; s < samples; s++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		hands, weight := distrib.Sample(rng, &e.rules)
		hands[0] = state.MyHand
		relCosts := EstimatePolicyRelCosts(rng, &e.rules, &state.Table, hands, len(state.MyHand))

		res.weights = append(res.weights, weight)
		res.relCosts = append(res.relCosts, relCosts)

		pending++
		if pending == batch || s == samples-1 {
			agg.report(res.weights[len(res.weights)-pending:], res.relCosts[len(res.relCosts)-pending:])
			pending = 0
		}
	}
	return res, nil
}

// mergeAdvice combines worker results in worker order.
func mergeAdvice(hand []Card, results []workerResult) (*Advice, error) {
	var weights []float64
	costs := make([][]float64, len(hand))
	for _, res := range results {
		weights = append(weights, res.weights...)
		for _, rc := range res.relCosts {
			for i, c := range rc {
				costs[i] = append(costs[i], c)
			}
		}
	}

	weightSum, sqSum := 0.0, 0.0
	for _, w := range weights {
		weightSum += w
		sqSum += w * w
	}
	if !(weightSum > 0) {
		return nil, fmt.Errorf("advise: all %d samples carry zero weight", len(weights))
	}

	advice := &Advice{
		Actions:          make([]ActionScore, len(hand)),
		Samples:          len(weights),
		WeightSum:        weightSum,
		EffectiveSamples: weightSum * weightSum / sqSum,
	}
	for i, card := range hand {
		mean, std := stat.PopMeanStdDev(costs[i], weights)
		advice.Actions[i] = ActionScore{Card: card, RelCost: mean, StdDev: std}
	}
	slices.SortStableFunc(advice.Actions, func(a, b ActionScore) int {
		return cmp.Compare(a.RelCost, b.RelCost)
	})
	return advice, nil
}

// adviseAggregator tracks running totals for progress reporting.
type adviseAggregator struct {
	mu        sync.Mutex
	hand      []Card
	total     int
	completed int
	weightSum float64
	costSums  []float64
	callback  ProgressCallback
}

func newAdviseAggregator(hand []Card, total int, callback ProgressCallback) *adviseAggregator {
	return &adviseAggregator{
		hand:     hand,
		total:    total,
		costSums: make([]float64, len(hand)),
		callback: callback,
	}
}

// batchSize reports progress approximately 20 times per run.
func (a *adviseAggregator) batchSize() int {
	return max(1, a.total/20)
}

func (a *adviseAggregator) report(weights []float64, relCosts [][]float64) {
	if a.callback == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for s, w := range weights {
		a.weightSum += w
		for i, c := range relCosts[s] {
			a.costSums[i] += w * c
		}
	}
	a.completed += len(weights)

	progress := AdviseProgress{
		SamplesCompleted: a.completed,
		SamplesTotal:     a.total,
		Percent:          float64(a.completed) / float64(a.total) * 100,
	}
	if a.weightSum > 0 {
		best := 0
		for i := range a.costSums {
			if a.costSums[i] < a.costSums[best] {
				best = i
			}
		}
		progress.BestCard = a.hand[best].Idx()
		progress.BestRelCost = a.costSums[best] / a.weightSum
	}
	a.callback(progress)
}
