package engine

import (
	"cmp"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/yourusername/deepmoo/internal/prob"
)

// ActionChooser selects which card a player plays during a simulated playout.
// It returns an index into hand.
type ActionChooser interface {
	ChooseAction(rng *rand.Rand, player, round int, table *Table, hand []Card) int
}

// RowPicker selects the row a player takes when its card matches no row.
type RowPicker interface {
	PickRow(rng *rand.Rand, table *Table) int
}

// SampledRowPicker picks a row at random, favoring cheap rows through
// CostsToPolicy. Playouts use it for every player.
type SampledRowPicker struct{}

// PickRow implements RowPicker.
func (SampledRowPicker) PickRow(rng *rand.Rand, table *Table) int {
	rowCosts := make([]float64, table.RowCount())
	for i := range rowCosts {
		rowCosts[i] = float64(table.RowCost(i))
	}
	return prob.SamplePDF(rng, CostsToPolicy(rowCosts))
}

// CheapestRowPicker always takes the cheapest row.
type CheapestRowPicker struct{}

// PickRow implements RowPicker.
func (CheapestRowPicker) PickRow(_ *rand.Rand, table *Table) int {
	return table.CheapestRow()
}

// policyChooser forces the acting player's first action and samples every
// other action from Policy.
type policyChooser struct {
	rules       *Rules
	playerCount int
	firstAction int
}

func (c *policyChooser) ChooseAction(rng *rand.Rand, player, round int, table *Table, hand []Card) int {
	switch {
	case player == 0 && round == 0:
		return c.firstAction
	case len(hand) == 1:
		return 0
	}
	return prob.SamplePDF(rng, Policy(c.rules, table, c.playerCount, hand))
}

// EstimatePolicyRelCosts scores every card of hands[0] as the acting player's
// next move. For each candidate it simulates roundCount rounds in which the
// candidate is played first and every other action follows Policy, and
// reports the acting player's cost minus the mean cost of the others.
// Lower is better. The table and hands are not modified.
func EstimatePolicyRelCosts(rng *rand.Rand, rules *Rules, table *Table, hands [][]Card, roundCount int) []float64 {
	chooser := &policyChooser{rules: rules, playerCount: len(hands)}
	relCosts := make([]float64, len(hands[0]))
	for i := range hands[0] {
		chooser.firstAction = i
		costs := SimulatePlayout(rng, rules, table.Clone(), cloneHands(hands), roundCount, chooser, SampledRowPicker{})
		otherCostMean := floats.Sum(costs[1:]) / float64(len(costs)-1)
		relCosts[i] = costs[0] - otherCostMean
	}
	return relCosts
}

type playedCard struct {
	player int
	card   Card
}

// SimulatePlayout plays roundCount rounds on table with the given hands and
// returns the total cost taken by each player. Both table and hands are
// consumed.
func SimulatePlayout(rng *rand.Rand, rules *Rules, table Table, hands [][]Card,
	roundCount int, chooser ActionChooser, picker RowPicker,
) []float64 {
	costs := make([]float64, len(hands))
	actions := make([]playedCard, len(hands))
	for round := 0; round < roundCount; round++ {
		for player, hand := range hands {
			i := chooser.ChooseAction(rng, player, round, &table, hand)
			actions[player] = playedCard{player: player, card: hand[i]}
			// swap-remove
			hand[i] = hand[len(hand)-1]
			hands[player] = hand[:len(hand)-1]
		}

		// Cards are revealed together but placed lowest first.
		order := slices.Clone(actions)
		slices.SortFunc(order, func(a, b playedCard) int { return cmp.Compare(a.card.Idx(), b.card.Idx()) })
		for _, a := range order {
			costs[a.player] += SimulateAction(rng, rules, &table, a.card, picker)
		}
	}
	return costs
}

// SimulateAction places card on the table and returns the cost the player
// pays. A card that overflows its row takes that row; a card that matches no
// row takes the row chosen by picker. The taken row is left holding only card.
func SimulateAction(rng *rand.Rand, rules *Rules, table *Table, card Card, picker RowPicker) float64 {
	row, ok := table.MatchRow(card)
	if ok {
		if table.RowLen(row) < rules.MaxRowLen {
			table.PushToRow(row, card)
			return 0
		}
	} else {
		row = picker.PickRow(rng, table)
	}

	cost := table.RowCost(row)
	table.ReplaceRow(row, card)
	return float64(cost)
}

func cloneHands(hands [][]Card) [][]Card {
	out := make([][]Card, len(hands))
	for i, h := range hands {
		out[i] = slices.Clone(h)
	}
	return out
}
