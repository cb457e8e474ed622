package engine

import (
	"math"

	"github.com/yourusername/deepmoo/internal/prob"
)

// policyCostOffset keeps CostsToPolicy finite for zero-cost actions.
const policyCostOffset = 0.02

// Policy estimates which card a "reasonable" player would play from hand in
// the given table situation. It returns a normalized pdf aligned with hand.
//
// Each card is scored with the expected cost of playing it right now, under
// the assumption that every other player plays uniformly at random among
// the cards still unseen.
func Policy(rules *Rules, table *Table, playerCount int, hand []Card) []float64 {
	costs := make([]float64, len(hand))
	for i, card := range hand {
		costs[i] = actionCost(rules, table, playerCount, len(hand), card)
	}
	return CostsToPolicy(costs)
}

// CostsToPolicy converts costs into a pdf that favors cheap entries:
// every cost x gets weight 1/(0.02+x) before normalization.
// The slice is transformed in place and returned.
func CostsToPolicy(costs []float64) []float64 {
	for i, x := range costs {
		costs[i] = 1 / (policyCostOffset + x)
	}
	prob.NormalizePDF(costs)
	return costs
}

// actionCost estimates the cost of playing card now.
func actionCost(rules *Rules, table *Table, playerCount, handLen int, card Card) float64 {
	// cards that are neither on the table nor in our hand
	freeCardCount := rules.CardCount() - table.CardCount() - handLen

	if row, ok := table.MatchRow(card); ok {
		// The card lands on row. We ignore the chance that another player
		// under-eats this row with a small card first.
		lastIdx := table.RowLast(row).Idx()

		// slack: cards the row takes before it overflows
		// gap: indices between the row's last card and ours that other
		// players can fill before our card is placed
		slack := rules.MaxRowLen - table.RowLen(row)
		gap := card.Idx() - lastIdx - 1
		if slack > gap || slack >= playerCount-1 {
			return 0
		}

		rowCost := float64(table.RowCost(row))
		if slack == 0 && gap == 0 {
			return rowCost
		}

		// cost of the row once the other players have filled it up
		cost := rowCost + float64(slack)*MeanCost(lastIdx+1, card.Idx())
		// exactly slack opponents must hit the gap for us to take the row
		hitProb := prob.BinomPMF(playerCount-1, slack, gapProb(gap, freeCardCount))
		return hitProb * cost
	}

	// The card is under every row; we under-eat the cheapest row unless some
	// other player plays an even smaller card first.
	cost := float64(table.RowCost(table.CheapestRow()))
	gap := card.Idx() - rules.MinCardIdx
	missProb := math.Pow(1-gapProb(gap, freeCardCount), float64(playerCount-1))
	return missProb * cost
}

// gapProb is the chance that one uniformly random unseen card falls into a
// gap of the given width.
func gapProb(gap, freeCardCount int) float64 {
	if freeCardCount <= 0 {
		return 0
	}
	return prob.Clamp01(float64(gap) / float64(freeCardCount))
}
