package engine

import (
	"cmp"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/yourusername/deepmoo/internal/cardmatrix"
	"github.com/yourusername/deepmoo/internal/prob"
)

// DefaultEstimateTrials is the number of uniform hand completions scored by
// EstimateHandsDistrib when no trial count is given.
const DefaultEstimateTrials = 10000

// DeckOwner is the owner index of cards that nobody holds.
const DeckOwner = 0

// EstimateOptions controls the hidden-hand estimator.
type EstimateOptions struct {
	Trials int // uniform hand completions to score (default 10000)
}

// HandsDistrib is the posterior distribution of the hidden cards over their
// possible owners. Owner 0 is the deck, owner i > 0 is opponent i.
//
// A HandsDistrib is immutable once estimated; Sample may be called from
// several goroutines as long as each uses its own generator.
type HandsDistrib struct {
	cardProbs      *cardmatrix.Matrix[Card, float64]
	meanOwnerProbs []float64
	cards          []Card // unknown cards, most likely in the deck first
	handLen        int    // cards every opponent holds now
	playerCount    int
}

// EstimateHandsDistrib estimates Pr(owner holds card | observed history) for
// every card the acting player has not seen, assuming the opponents follow
// Policy. It is a self-normalized importance-sampling estimate: uniform hand
// completions weighted by the likelihood of the observed actions.
func EstimateHandsDistrib(rng *rand.Rand, rules *Rules, state *GameState, opts EstimateOptions) *HandsDistrib {
	if opts.Trials <= 0 {
		opts.Trials = DefaultEstimateTrials
	}

	// knownHands[p] lists the cards opponent p is known to have held: the
	// cards it played, in round order.
	knownHands := make([][]Card, state.PlayerCount)
	seen := make([]bool, rules.MaxCardIdx+1)
	for _, round := range state.PastRounds {
		for p := 1; p < state.PlayerCount; p++ {
			card := round.Actions[p]
			knownHands[p] = append(knownHands[p], card)
			seen[card.Idx()] = true
		}
		for _, card := range round.Table.Cards() {
			seen[card.Idx()] = true
		}
	}
	for _, card := range state.Table.Cards() {
		seen[card.Idx()] = true
	}
	for _, card := range state.MyHand {
		seen[card.Idx()] = true
	}

	// Walking the universe in index order keeps the result deterministic.
	var unknownCards []Card
	for _, card := range rules.Cards() {
		if !seen[card.Idx()] {
			unknownCards = append(unknownCards, card)
		}
	}
	slices.SortFunc(unknownCards, func(a, b Card) int { return cmp.Compare(a.Idx(), b.Idx()) })

	cardProbs := estimateCardProbs(rng, rules, state, knownHands, unknownCards, opts.Trials)

	meanOwnerProbs := make([]float64, state.PlayerCount)
	for owner := range meanOwnerProbs {
		meanOwnerProbs[owner] = floats.Sum(cardProbs.Col(owner))
	}
	prob.NormalizePDF(meanOwnerProbs)

	// Cards most likely in the deck come first so that sequential sampling
	// fills the deck before the opponents' hands run out of slots.
	slices.SortStableFunc(unknownCards, func(a, b Card) int {
		return cmp.Compare(cardProbs.Elem(b, DeckOwner), cardProbs.Elem(a, DeckOwner))
	})

	return &HandsDistrib{
		cardProbs:      cardProbs,
		meanOwnerProbs: meanOwnerProbs,
		cards:          unknownCards,
		handLen:        rules.HandLen - len(state.PastRounds),
		playerCount:    state.PlayerCount,
	}
}

// Cards returns the unknown cards in sampling order.
func (d *HandsDistrib) Cards() []Card { return slices.Clone(d.cards) }

// Prob returns the posterior probability that owner holds card.
func (d *HandsDistrib) Prob(card Card, owner int) float64 { return d.cardProbs.Elem(card, owner) }

// MeanOwnerProbs returns the expected share of unknown cards per owner.
func (d *HandsDistrib) MeanOwnerProbs() []float64 { return slices.Clone(d.meanOwnerProbs) }

// HandLen returns the number of cards every opponent holds.
func (d *HandsDistrib) HandLen() int { return d.handLen }

// PlayerCount returns the number of players, the acting player included.
func (d *HandsDistrib) PlayerCount() int { return d.playerCount }

// DeckLen returns the number of unknown cards left in the deck.
func (d *HandsDistrib) DeckLen() int { return len(d.cards) - d.handLen*(d.playerCount-1) }

// Sample draws one assignment of every unknown card to an owner, respecting
// every owner's capacity. hands[0] is the deck, hands[i] opponent i's hand.
// weight is the importance weight (posterior over sampling probability) of
// the draw.
func (d *HandsDistrib) Sample(rng *rand.Rand, _ *Rules) (hands [][]Card, weight float64) {
	hands = make([][]Card, d.playerCount)
	if d.handLen == 0 {
		return hands, 1
	}

	capacity := make([]int, d.playerCount)
	capacity[DeckOwner] = d.DeckLen()
	for owner := 1; owner < d.playerCount; owner++ {
		capacity[owner] = d.handLen
	}
	if capacity[DeckOwner] < 0 {
		panic(fmt.Sprintf("engine: %d unknown cards cannot fill %d hands of %d",
			len(d.cards), d.playerCount-1, d.handLen))
	}

	owners := make([]int, 0, d.playerCount) // owners with free slots
	for owner, c := range capacity {
		if c > 0 {
			owners = append(owners, owner)
		}
	}

	weight = 1
	sampleProbs := make([]float64, d.playerCount)
	for _, card := range d.cards {
		if len(owners) == 0 {
			panic(fmt.Sprintf("engine: no owner left for card %v", card))
		}

		probs := sampleProbs[:len(owners)]
		for i, owner := range owners {
			free := capacity[owner] - len(hands[owner])
			probs[i] = d.cardProbs.Elem(card, owner) * float64(free) / d.meanOwnerProbs[owner]
		}
		if sum := floats.Sum(probs); !(sum > 0) || math.IsInf(sum, 0) {
			// The posterior puts no mass on the remaining owners; fall back to
			// free capacity. The draw then carries zero weight.
			for i, owner := range owners {
				probs[i] = float64(capacity[owner] - len(hands[owner]))
			}
		}
		prob.NormalizePDF(probs)

		i := prob.SamplePDF(rng, probs)
		owner := owners[i]
		hands[owner] = append(hands[owner], card)
		weight *= d.cardProbs.Elem(card, owner) / probs[i]

		if len(hands[owner]) >= capacity[owner] {
			owners = slices.Delete(owners, i, i+1)
		}
	}
	if len(owners) != 0 {
		panic(fmt.Sprintf("engine: %d owners still have free slots after sampling", len(owners)))
	}

	return hands, weight
}

// estimateCardProbs scores uniform hand completions by the likelihood of the
// observed history and accumulates, per unknown card and owner, the log-sum
// of the likelihoods of the completions that gave the card to that owner.
func estimateCardProbs(rng *rand.Rand, rules *Rules, state *GameState,
	knownHands [][]Card, unknownCards []Card, trials int,
) *cardmatrix.Matrix[Card, float64] {
	logProbs := cardmatrix.New(unknownCards, state.PlayerCount, math.Inf(-1))
	pool := slices.Clone(unknownCards)

	for trial := 0; trial < trials; trial++ {
		hands := sampleHandsUniform(rng, rules, knownHands, pool)
		logLikelihood := handsLogLikelihood(rules, state, hands)

		for owner := range hands {
			unknownBegin := 0
			if owner != DeckOwner {
				unknownBegin = len(knownHands[owner])
			}
			for _, card := range hands[owner][unknownBegin:] {
				p := logProbs.Ptr(card, owner)
				*p = prob.LogAdd(*p, logLikelihood)
			}
		}
	}

	logProbs.ForEachRow(prob.ExpNormalizeLogPDF)
	return logProbs
}

// sampleHandsUniform completes every opponent's initial hand with uniformly
// drawn unknown cards; whatever is left goes to the deck. pool is shuffled
// in place.
func sampleHandsUniform(rng *rand.Rand, rules *Rules, knownHands [][]Card, pool []Card) [][]Card {
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	next := 0
	hands := make([][]Card, len(knownHands))
	for p := 1; p < len(hands); p++ {
		hand := make([]Card, 0, rules.HandLen)
		hand = append(hand, knownHands[p]...)
		for len(hand) < rules.HandLen {
			if next >= len(pool) {
				panic(fmt.Sprintf("engine: not enough unknown cards to complete hand of player %d", p))
			}
			hand = append(hand, pool[next])
			next++
		}
		hands[p] = hand
	}
	hands[DeckOwner] = pool[next:]
	return hands
}

// handsLogLikelihood returns log Pr(observed actions | hands, Policy): the
// log-probability that every opponent, holding the given initial hand,
// would have played exactly what it played.
func handsLogLikelihood(rules *Rules, state *GameState, hands [][]Card) float64 {
	logLikelihood := 0.0
	for r, round := range state.PastRounds {
		for p := 1; p < len(hands); p++ {
			if hands[p][r] != round.Actions[p] {
				panic(fmt.Sprintf("engine: replay mismatch for player %d in round %d", p, r))
			}
			// The played card heads the remaining hand.
			policy := Policy(rules, &round.Table, state.PlayerCount, hands[p][r:])
			logLikelihood += math.Log(policy[0])
		}
	}
	return logLikelihood
}
