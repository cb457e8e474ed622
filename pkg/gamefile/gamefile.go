// Package gamefile reads and writes the line-oriented game record format.
//
// Every non-blank line is a command followed by whitespace separated
// arguments; lines starting with '#' are comments:
//
//	# three players, four rows
//	p me alice bob
//	h 3 17 22 38 41 56 60 71 88 99
//	t 5
//	t 24
//	t 63
//	t 90
//	a 22 8 27
//	t 5 8
//	...
//
// 'h' lists the acting player's initial hand and 'p' the player names, the
// acting player first. Each 't' adds one row to the table being built. An
// 'a' line records the card every player revealed in a round; the rows
// collected since the previous 'a' are the table that round was played on.
// The rows after the last 'a' are the current table.
package gamefile

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/yourusername/deepmoo/pkg/engine"
)

// ParseError is a syntax or consistency error in a game file.
type ParseError struct {
	Line   int // 1-based, 0 when the error is detected at end of input
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return "end: " + e.Reason
	}
	return fmt.Sprintf("%d: %s", e.Line, e.Reason)
}

// Game is a parsed game file.
type Game struct {
	Names []string // player names, the acting player first
	State engine.GameState
}

// Parse reads a game file. Card indices are checked against rules.
func Parse(r io.Reader, rules *engine.Rules) (*Game, error) {
	scanner := bufio.NewScanner(r)

	var (
		hand    map[int]bool
		names   []string
		rounds  []engine.Round
		rows    [][]engine.Card
		lineNum int
	)

	for scanner.Scan() {
		lineNum++
		fail := func(reason string) error { return &ParseError{Line: lineNum, Reason: reason} }

		words := strings.Fields(scanner.Text())
		if len(words) == 0 || strings.HasPrefix(words[0], "#") {
			continue
		}

		switch words[0] {
		case "h":
			if hand != nil {
				return nil, fail("duplicated 'h' command")
			}
			cards, err := parseCards(words[1:], rules)
			if err != nil {
				return nil, fail(err.Error())
			}
			hand = make(map[int]bool, len(cards))
			for _, c := range cards {
				if hand[c.Idx()] {
					return nil, fail(fmt.Sprintf("duplicated card %d in hand", c.Idx()))
				}
				hand[c.Idx()] = true
			}
			if len(hand) != rules.HandLen {
				return nil, fail("bad hand length")
			}

		case "p":
			if names != nil {
				return nil, fail("duplicated 'p' command")
			}
			if len(words) < 3 {
				return nil, fail("too few players")
			}
			names = slices.Clone(words[1:])

		case "t":
			if len(words) < 2 {
				return nil, fail("row cannot be empty")
			}
			row, err := parseCards(words[1:], rules)
			if err != nil {
				return nil, fail(err.Error())
			}
			rows = append(rows, row)

		case "a":
			if hand == nil {
				return nil, fail("missing 'h' command")
			}
			if names == nil {
				return nil, fail("missing 'p' command")
			}
			if len(rows) != rules.RowCount {
				return nil, fail("wrong number of rows on table")
			}
			actions, err := parseCards(words[1:], rules)
			if err != nil {
				return nil, fail(err.Error())
			}
			if len(actions) != len(names) {
				return nil, fail("wrong number of actions")
			}
			if !hand[actions[0].Idx()] {
				return nil, fail("my action was not in my hand")
			}
			delete(hand, actions[0].Idx())

			rounds = append(rounds, engine.Round{Table: engine.NewTable(rows), Actions: actions})
			rows = nil

		default:
			return nil, fail(fmt.Sprintf("unknown command %q", words[0]))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading game file: %w", err)
	}

	atEnd := func(reason string) error { return &ParseError{Reason: reason} }
	if hand == nil {
		return nil, atEnd("missing 'h' command")
	}
	if names == nil {
		return nil, atEnd("missing 'p' command")
	}
	if len(rows) != rules.RowCount {
		return nil, atEnd("wrong number of rows on table")
	}

	myHand := make([]engine.Card, 0, len(hand))
	for idx := range hand {
		myHand = append(myHand, engine.NewCard(idx))
	}
	sortCards(myHand)

	return &Game{
		Names: names,
		State: engine.GameState{
			MyHand:      myHand,
			PastRounds:  rounds,
			Table:       engine.NewTable(rows),
			PlayerCount: len(names),
		},
	}, nil
}

// ParseString parses a game file held in memory.
func ParseString(s string, rules *engine.Rules) (*Game, error) {
	return Parse(strings.NewReader(s), rules)
}

func parseCards(words []string, rules *engine.Rules) ([]engine.Card, error) {
	cards := make([]engine.Card, 0, len(words))
	for _, w := range words {
		idx, err := strconv.Atoi(w)
		switch {
		case err != nil:
			return nil, fmt.Errorf("bad card %q (could not parse integer)", w)
		case idx < rules.MinCardIdx:
			return nil, fmt.Errorf("bad card %d (index too low)", idx)
		case idx > rules.MaxCardIdx:
			return nil, fmt.Errorf("bad card %d (index too high)", idx)
		}
		cards = append(cards, engine.NewCard(idx))
	}
	return cards, nil
}

func sortCards(cards []engine.Card) {
	slices.SortFunc(cards, func(a, b engine.Card) int { return cmp.Compare(a.Idx(), b.Idx()) })
}

// Write renders state in the game file format. A nil names slice is
// replaced by "me", "p2", "p3" and so on.
func Write(w io.Writer, names []string, state *engine.GameState) error {
	if names == nil {
		names = DefaultNames(state.PlayerCount)
	}
	if len(names) != state.PlayerCount {
		return fmt.Errorf("writing game file: %d names for %d players", len(names), state.PlayerCount)
	}

	initialHand := slices.Clone(state.MyHand)
	for _, round := range state.PastRounds {
		initialHand = append(initialHand, round.Actions[0])
	}
	sortCards(initialHand)

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "p %s\n", strings.Join(names, " "))
	fmt.Fprintf(bw, "h %s\n", joinCards(initialHand))
	for i := range state.PastRounds {
		round := &state.PastRounds[i]
		fmt.Fprintf(bw, "# round %d\n", i+1)
		writeTable(bw, &round.Table)
		fmt.Fprintf(bw, "a %s\n", joinCards(round.Actions))
	}
	if len(state.PastRounds) > 0 {
		fmt.Fprintf(bw, "# current table\n")
	}
	writeTable(bw, &state.Table)
	return bw.Flush()
}

// DefaultNames returns placeholder player names.
func DefaultNames(playerCount int) []string {
	names := make([]string, playerCount)
	for i := range names {
		if i == 0 {
			names[i] = "me"
			continue
		}
		names[i] = "p" + strconv.Itoa(i+1)
	}
	return names
}

func writeTable(w io.Writer, t *engine.Table) {
	for i := 0; i < t.RowCount(); i++ {
		fmt.Fprintf(w, "t %s\n", joinCards(t.Row(i)))
	}
}

func joinCards(cards []engine.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
