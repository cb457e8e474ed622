// Package engine provides the public API of the move advisor: the game model,
// the single-step policy model, the hidden-hand estimator, the playout
// simulator and the advisor that ties them together.
package engine

import (
	"errors"
	"fmt"
	"strconv"
)

// Validation errors returned by Rules.Validate and GameState.Validate.
var (
	ErrInvalidRules = errors.New("invalid rules")
	ErrInvalidState = errors.New("invalid game state")
)

// MaxCardIdx is the largest card index a Card can hold.
const MaxCardIdx = 255

// Card is an immutable playing card. Its cost is derived from the index.
type Card struct {
	idx  uint8
	cost uint8
}

// NewCard returns the card with the given index.
func NewCard(idx int) Card {
	cost := 0
	if idx%5 == 0 {
		cost += 2
		if idx%2 == 0 {
			cost++
		}
	}
	if idx%11 == 0 {
		cost += 5
	}
	return Card{idx: uint8(idx), cost: uint8(max(cost, 1))}
}

// Idx returns the card index.
func (c Card) Idx() int { return int(c.idx) }

// Cost returns the penalty paid for taking this card.
func (c Card) Cost() int { return int(c.cost) }

func (c Card) String() string { return strconv.Itoa(int(c.idx)) }

// MeanCost estimates the total cost of the cards that fill the index range
// [beginIdx, endIdx), using the long-run frequency of each cost bonus.
func MeanCost(beginIdx, endIdx int) float64 {
	count := float64(endIdx - beginIdx)
	return count * (2./5. + 1./10. + 5./11. + 1.)
}

// Cards converts card indices to cards.
func Cards(idxs ...int) []Card {
	cards := make([]Card, len(idxs))
	for i, idx := range idxs {
		cards[i] = NewCard(idx)
	}
	return cards
}

// Table is the set of rows in the middle of the table.
// Every row holds at least one card, sorted ascending by index.
// Copies of a Table value share row storage; use Clone before mutating.
type Table struct {
	rows [][]Card
}

// NewTable creates a table from rows. The rows are copied.
func NewTable(rows [][]Card) Table {
	t := Table{rows: make([][]Card, len(rows))}
	for i, row := range rows {
		t.rows[i] = append([]Card(nil), row...)
	}
	return t
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() Table {
	return NewTable(t.rows)
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int { return len(t.rows) }

// Row returns the cards of a row. The slice must not be modified.
func (t *Table) Row(row int) []Card { return t.rows[row] }

// Rows returns a copy of all rows.
func (t *Table) Rows() [][]Card { return t.Clone().rows }

// RowLen returns the number of cards in a row.
func (t *Table) RowLen(row int) int { return len(t.rows[row]) }

// RowCost returns the sum of the costs of the cards in a row.
func (t *Table) RowCost(row int) int {
	cost := 0
	for _, c := range t.rows[row] {
		cost += c.Cost()
	}
	return cost
}

// RowLast returns the most recently appended card of a row.
func (t *Table) RowLast(row int) Card {
	r := t.rows[row]
	return r[len(r)-1]
}

// CardCount returns the number of cards on the table.
func (t *Table) CardCount() int {
	n := 0
	for _, row := range t.rows {
		n += len(row)
	}
	return n
}

// Cards returns every card on the table, row by row.
func (t *Table) Cards() []Card {
	cards := make([]Card, 0, t.CardCount())
	for _, row := range t.rows {
		cards = append(cards, row...)
	}
	return cards
}

// MatchRow finds the row a card attaches to: the row whose last card is the
// largest one still smaller than the card. ok is false when the card is
// smaller than every row's last card.
func (t *Table) MatchRow(card Card) (row int, ok bool) {
	row = -1
	matchIdx := -1
	for i := range t.rows {
		last := t.RowLast(i).Idx()
		if last < card.Idx() && last > matchIdx {
			row = i
			matchIdx = last
		}
	}
	return row, row >= 0
}

// CheapestRow returns the row with the smallest cost, the lowest index on ties.
func (t *Table) CheapestRow() int {
	best := 0
	for i := 1; i < len(t.rows); i++ {
		if t.RowCost(i) < t.RowCost(best) {
			best = i
		}
	}
	return best
}

// ReplaceRow clears a row and leaves card as its only card.
func (t *Table) ReplaceRow(row int, card Card) {
	t.rows[row] = append(t.rows[row][:0], card)
}

// PushToRow appends card to a row.
func (t *Table) PushToRow(row int, card Card) {
	t.rows[row] = append(t.rows[row], card)
}

// Rules is the immutable configuration of a game.
type Rules struct {
	MinCardIdx int `json:"min_card_idx" yaml:"min_card_idx"`
	MaxCardIdx int `json:"max_card_idx" yaml:"max_card_idx"`
	MaxRowLen  int `json:"max_row_len" yaml:"max_row_len"` // cards a row holds before a forced take
	HandLen    int `json:"hand_len" yaml:"hand_len"`
	RowCount   int `json:"row_count" yaml:"row_count"`
}

// DefaultRules returns the standard 104-card game with four rows.
func DefaultRules() Rules {
	return Rules{
		MinCardIdx: 1,
		MaxCardIdx: 104,
		MaxRowLen:  5,
		HandLen:    10,
		RowCount:   4,
	}
}

// CardCount returns the size of the card universe.
func (r *Rules) CardCount() int {
	return r.MaxCardIdx - r.MinCardIdx + 1
}

// Cards returns the whole card universe in ascending order.
func (r *Rules) Cards() []Card {
	cards := make([]Card, 0, r.CardCount())
	for idx := r.MinCardIdx; idx <= r.MaxCardIdx; idx++ {
		cards = append(cards, NewCard(idx))
	}
	return cards
}

// Contains reports whether idx is a valid card index under these rules.
func (r *Rules) Contains(idx int) bool {
	return idx >= r.MinCardIdx && idx <= r.MaxCardIdx
}

// Validate checks that the rules describe a playable game.
func (r *Rules) Validate() error {
	switch {
	case r.MinCardIdx < 0 || r.MaxCardIdx > MaxCardIdx:
		return fmt.Errorf("%w: card indices must lie in [0, %d]", ErrInvalidRules, MaxCardIdx)
	case r.MinCardIdx > r.MaxCardIdx:
		return fmt.Errorf("%w: min_card_idx %d > max_card_idx %d", ErrInvalidRules, r.MinCardIdx, r.MaxCardIdx)
	case r.MaxRowLen < 1:
		return fmt.Errorf("%w: max_row_len must be positive", ErrInvalidRules)
	case r.HandLen < 1:
		return fmt.Errorf("%w: hand_len must be positive", ErrInvalidRules)
	case r.RowCount < 1:
		return fmt.Errorf("%w: row_count must be positive", ErrInvalidRules)
	case r.RowCount+2*r.HandLen > r.CardCount():
		return fmt.Errorf("%w: %d cards cannot fill %d rows and two hands of %d",
			ErrInvalidRules, r.CardCount(), r.RowCount, r.HandLen)
	}
	return nil
}

// Round is a fully resolved past round: the table before anyone played and
// the card revealed by every player. Actions[0] belongs to the acting player.
type Round struct {
	Table   Table
	Actions []Card
}

// GameState is everything the acting player has observed at a decision point.
type GameState struct {
	MyHand      []Card  // cards the acting player still holds
	PastRounds  []Round // resolved rounds, oldest first
	Table       Table   // current table
	PlayerCount int
}

// Validate checks the caller contract of the estimator and the simulator:
// consistent round bookkeeping, no card seen twice, tables of the right shape.
func (s *GameState) Validate(rules *Rules) error {
	if s.PlayerCount < 2 {
		return fmt.Errorf("%w: need at least 2 players, got %d", ErrInvalidState, s.PlayerCount)
	}
	if len(s.PastRounds) > rules.HandLen {
		return fmt.Errorf("%w: %d past rounds exceed hand length %d", ErrInvalidState, len(s.PastRounds), rules.HandLen)
	}
	if want := rules.HandLen - len(s.PastRounds); len(s.MyHand) != want {
		return fmt.Errorf("%w: hand has %d cards, want %d", ErrInvalidState, len(s.MyHand), want)
	}
	if need := s.PlayerCount*rules.HandLen + rules.RowCount; need > rules.CardCount() {
		return fmt.Errorf("%w: %d players need %d cards, only %d exist", ErrInvalidState, s.PlayerCount, need, rules.CardCount())
	}

	if err := validateTable(rules, &s.Table); err != nil {
		return fmt.Errorf("current table: %w", err)
	}

	// cards known to be gone from every hand: played actions
	played := make(map[int]bool)
	for i, round := range s.PastRounds {
		if err := validateTable(rules, &round.Table); err != nil {
			return fmt.Errorf("round %d table: %w", i+1, err)
		}
		if len(round.Actions) != s.PlayerCount {
			return fmt.Errorf("%w: round %d has %d actions, want %d", ErrInvalidState, i+1, len(round.Actions), s.PlayerCount)
		}
		for _, c := range round.Actions {
			if !rules.Contains(c.Idx()) {
				return fmt.Errorf("%w: round %d action %d out of range", ErrInvalidState, i+1, c.Idx())
			}
			if played[c.Idx()] {
				return fmt.Errorf("%w: card %d played twice", ErrInvalidState, c.Idx())
			}
			played[c.Idx()] = true
		}
	}

	inHand := make(map[int]bool)
	for _, c := range s.MyHand {
		if !rules.Contains(c.Idx()) {
			return fmt.Errorf("%w: hand card %d out of range", ErrInvalidState, c.Idx())
		}
		if inHand[c.Idx()] {
			return fmt.Errorf("%w: duplicate hand card %d", ErrInvalidState, c.Idx())
		}
		if played[c.Idx()] {
			return fmt.Errorf("%w: hand card %d was already played", ErrInvalidState, c.Idx())
		}
		inHand[c.Idx()] = true
	}
	for _, c := range s.Table.Cards() {
		if inHand[c.Idx()] {
			return fmt.Errorf("%w: hand card %d is on the table", ErrInvalidState, c.Idx())
		}
	}

	// The opponents still hold as many cards as we do, all of them unseen.
	unknown := rules.CardCount() - len(s.seenCards())
	if need := (s.PlayerCount - 1) * len(s.MyHand); unknown < need {
		return fmt.Errorf("%w: %d unseen cards cannot fill %d opponent hands of %d",
			ErrInvalidState, unknown, s.PlayerCount-1, len(s.MyHand))
	}
	return nil
}

// seenCards is the set of cards the estimator treats as known: opponent
// actions, every table and the hand.
func (s *GameState) seenCards() map[int]bool {
	seen := make(map[int]bool)
	for _, round := range s.PastRounds {
		for _, c := range round.Actions[1:] {
			seen[c.Idx()] = true
		}
		for _, c := range round.Table.Cards() {
			seen[c.Idx()] = true
		}
	}
	for _, c := range s.Table.Cards() {
		seen[c.Idx()] = true
	}
	for _, c := range s.MyHand {
		seen[c.Idx()] = true
	}
	return seen
}

func validateTable(rules *Rules, t *Table) error {
	if t.RowCount() != rules.RowCount {
		return fmt.Errorf("%w: %d rows, want %d", ErrInvalidState, t.RowCount(), rules.RowCount)
	}
	seen := make(map[int]bool)
	for i := 0; i < t.RowCount(); i++ {
		row := t.Row(i)
		if len(row) == 0 {
			return fmt.Errorf("%w: row %d is empty", ErrInvalidState, i+1)
		}
		if len(row) > rules.MaxRowLen {
			return fmt.Errorf("%w: row %d holds %d cards, max %d", ErrInvalidState, i+1, len(row), rules.MaxRowLen)
		}
		for j, c := range row {
			if !rules.Contains(c.Idx()) {
				return fmt.Errorf("%w: card %d out of range", ErrInvalidState, c.Idx())
			}
			if seen[c.Idx()] {
				return fmt.Errorf("%w: card %d appears twice", ErrInvalidState, c.Idx())
			}
			seen[c.Idx()] = true
			if j > 0 && row[j-1].Idx() >= c.Idx() {
				return fmt.Errorf("%w: row %d is not ascending", ErrInvalidState, i+1)
			}
		}
	}
	return nil
}
