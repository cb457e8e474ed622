package engine

import (
	"errors"
	"testing"
)

func TestCardCosts(t *testing.T) {
	tests := []struct {
		idx  int
		want int
	}{
		{2, 1},
		{5, 2},
		{15, 2},
		{25, 2},
		{10, 3},
		{20, 3},
		{30, 3},
		{11, 5},
		{22, 5},
		{33, 5},
		{55, 7},
	}

	for _, tc := range tests {
		if got := NewCard(tc.idx).Cost(); got != tc.want {
			t.Errorf("NewCard(%d).Cost() = %d, want %d", tc.idx, got, tc.want)
		}
	}
}

func TestCardCostPositive(t *testing.T) {
	for idx := 0; idx <= MaxCardIdx; idx++ {
		c := NewCard(idx)
		if c.Cost() < 1 {
			t.Errorf("NewCard(%d).Cost() = %d, want >= 1", idx, c.Cost())
		}
		if c.Idx() != idx {
			t.Errorf("NewCard(%d).Idx() = %d", idx, c.Idx())
		}
		if c != NewCard(idx) {
			t.Errorf("NewCard(%d) not equal to itself", idx)
		}
	}
}

func TestMeanCost(t *testing.T) {
	if got := MeanCost(5, 5); got != 0 {
		t.Errorf("MeanCost(5, 5) = %v, want 0", got)
	}
	want := 10 * (2./5. + 1./10. + 5./11. + 1.)
	if got := MeanCost(1, 11); got != want {
		t.Errorf("MeanCost(1, 11) = %v, want %v", got, want)
	}
}

func TestMatchRow(t *testing.T) {
	table := NewTable([][]Card{Cards(20), Cards(1, 5), Cards(10)})

	tests := []struct {
		card   int
		want   int
		wantOK bool
	}{
		{7, 1, true},
		{12, 2, true},
		{25, 0, true},
		{11, 2, true},
		{3, -1, false},
	}

	for _, tc := range tests {
		got, ok := table.MatchRow(NewCard(tc.card))
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("MatchRow(%d) = %d, %v, want %d, %v", tc.card, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestCheapestRow(t *testing.T) {
	table := NewTable([][]Card{Cards(10, 11), Cards(20), Cards(30), Cards(3, 4)})
	// costs 8, 3, 3, 2
	if got := table.CheapestRow(); got != 3 {
		t.Errorf("CheapestRow() = %d, want 3", got)
	}

	table = NewTable([][]Card{Cards(10, 11), Cards(20), Cards(30)})
	if got := table.CheapestRow(); got != 1 {
		t.Errorf("CheapestRow() with tie = %d, want 1", got)
	}
}

func TestTableRowOps(t *testing.T) {
	table := NewTable([][]Card{Cards(3, 5, 7), Cards(10)})

	if got := table.RowCost(0); got != 4 {
		t.Errorf("RowCost(0) = %d, want 4", got)
	}
	if got := table.RowLast(0); got != NewCard(7) {
		t.Errorf("RowLast(0) = %v, want 7", got)
	}
	if got := table.CardCount(); got != 4 {
		t.Errorf("CardCount() = %d, want 4", got)
	}

	clone := table.Clone()
	clone.PushToRow(1, NewCard(12))
	clone.ReplaceRow(0, NewCard(8))
	if table.RowLen(1) != 1 || table.RowLen(0) != 3 {
		t.Errorf("mutating a clone changed the original: %v", table.Rows())
	}
	if clone.RowLen(1) != 2 || clone.RowLen(0) != 1 || clone.RowLast(0) != NewCard(8) {
		t.Errorf("clone = %v, want [[8] [10 12]]", clone.Rows())
	}
}

func TestRulesValidate(t *testing.T) {
	rules := DefaultRules()
	if err := rules.Validate(); err != nil {
		t.Fatalf("DefaultRules().Validate() = %v", err)
	}
	if rules.CardCount() != 104 {
		t.Errorf("CardCount() = %d, want 104", rules.CardCount())
	}

	bad := []Rules{
		{MinCardIdx: 10, MaxCardIdx: 1, MaxRowLen: 5, HandLen: 1, RowCount: 1},
		{MinCardIdx: 1, MaxCardIdx: 300, MaxRowLen: 5, HandLen: 1, RowCount: 1},
		{MinCardIdx: 1, MaxCardIdx: 104, MaxRowLen: 0, HandLen: 10, RowCount: 4},
		{MinCardIdx: 1, MaxCardIdx: 104, MaxRowLen: 5, HandLen: 0, RowCount: 4},
		{MinCardIdx: 1, MaxCardIdx: 104, MaxRowLen: 5, HandLen: 10, RowCount: 0},
		{MinCardIdx: 1, MaxCardIdx: 10, MaxRowLen: 5, HandLen: 5, RowCount: 4},
	}
	for _, r := range bad {
		if err := r.Validate(); !errors.Is(err, ErrInvalidRules) {
			t.Errorf("%+v.Validate() = %v, want ErrInvalidRules", r, err)
		}
	}
}

// smallRules is the ten-card game used throughout the engine tests.
func smallRules() Rules {
	return Rules{MinCardIdx: 1, MaxCardIdx: 10, MaxRowLen: 3, HandLen: 2, RowCount: 2}
}

// oneRoundState is a small game after one round: we held {2, 9}, the
// opponent played 3 onto our 2.
func oneRoundState() *GameState {
	return &GameState{
		MyHand: Cards(9),
		PastRounds: []Round{
			{Table: NewTable([][]Card{Cards(1), Cards(5)}), Actions: Cards(2, 3)},
		},
		Table:       NewTable([][]Card{Cards(1, 2, 3), Cards(5)}),
		PlayerCount: 2,
	}
}

// twoRoundState is oneRoundState after the last round: we played 9, the
// opponent 8.
func twoRoundState() *GameState {
	s := oneRoundState()
	s.MyHand = nil
	s.PastRounds = append(s.PastRounds, Round{Table: s.Table, Actions: Cards(9, 8)})
	s.Table = NewTable([][]Card{Cards(1, 2, 3), Cards(5, 8, 9)})
	return s
}

func TestGameStateValidate(t *testing.T) {
	rules := smallRules()
	if err := oneRoundState().Validate(&rules); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if err := twoRoundState().Validate(&rules); err != nil {
		t.Fatalf("Validate() after the last round = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(s *GameState)
	}{
		{"one player", func(s *GameState) { s.PlayerCount = 1 }},
		{"hand too long", func(s *GameState) { s.MyHand = Cards(8, 9) }},
		{"hand card played", func(s *GameState) { s.MyHand = Cards(2) }},
		{"hand card on table", func(s *GameState) { s.MyHand = Cards(5) }},
		{"hand card out of range", func(s *GameState) { s.MyHand = Cards(11) }},
		{"wrong action count", func(s *GameState) { s.PastRounds[0].Actions = Cards(2) }},
		{"card played twice", func(s *GameState) { s.PastRounds[0].Actions = Cards(3, 3) }},
		{"wrong row count", func(s *GameState) { s.Table = NewTable([][]Card{Cards(1, 2, 3)}) }},
		{"empty row", func(s *GameState) { s.Table = NewTable([][]Card{Cards(1, 2, 3), nil}) }},
		{"row too long", func(s *GameState) { s.Table = NewTable([][]Card{Cards(1, 2, 3, 4), Cards(5)}) }},
		{"row not ascending", func(s *GameState) { s.Table = NewTable([][]Card{Cards(3, 2, 1), Cards(5)}) }},
		{"duplicate table card", func(s *GameState) { s.Table = NewTable([][]Card{Cards(1, 5), Cards(5)}) }},
		{"too few unseen cards", func(s *GameState) {
			s.PlayerCount = 3
			s.MyHand = Cards(1)
			s.PastRounds = []Round{{Table: NewTable([][]Card{Cards(1), Cards(2)}), Actions: Cards(3, 4, 5)}}
			s.Table = NewTable([][]Card{Cards(6, 7), Cards(8, 9, 10)})
		}},
		{"opening table too full", func(s *GameState) {
			s.PlayerCount = 3
			s.MyHand = Cards(8, 9)
			s.PastRounds = nil
			s.Table = NewTable([][]Card{Cards(1, 2, 3), Cards(5, 6, 7)})
		}},
	}

	for _, tc := range tests {
		s := oneRoundState()
		tc.mutate(s)
		if err := s.Validate(&rules); !errors.Is(err, ErrInvalidState) {
			t.Errorf("%s: Validate() = %v, want ErrInvalidState", tc.name, err)
		}
	}
}
