package engine

import (
	"cmp"
	"context"
	"fmt"
	"slices"
)

// SkillType represents the skill rating of a played card.
type SkillType int

const (
	SkillVeryBad  SkillType = iota // Blunder: loses >= 2.0 relative cost
	SkillBad                       // Error: loses 1.0-2.0
	SkillDoubtful                  // Doubtful: loses 0.5-1.0
	SkillNone                      // Good or best card
)

// String returns the display name of the skill type.
func (s SkillType) String() string {
	return [...]string{"Very Bad", "Bad", "Doubtful", "None"}[s]
}

// Abbr returns the abbreviated notation (??, ?, ?!).
func (s SkillType) Abbr() string {
	return [...]string{"??", "?", "?!", ""}[s]
}

// MarshalText renders the skill by name.
func (s SkillType) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SkillThresholds are the relative cost loss thresholds for skill ratings.
var SkillThresholds = [4]float64{
	2.0, // very bad
	1.0, // bad
	0.5, // doubtful
	0.0, // none
}

// ClassifySkill returns the skill rating based on relative cost loss.
// loss should be positive for cards worse than the best.
func ClassifySkill(loss float64) SkillType {
	if loss >= SkillThresholds[0] {
		return SkillVeryBad
	} else if loss >= SkillThresholds[1] {
		return SkillBad
	} else if loss >= SkillThresholds[2] {
		return SkillDoubtful
	}
	return SkillNone
}

// RoundReview grades the acting player's card in one past round.
type RoundReview struct {
	Round    int           // 0-based round index
	Played   Card          // The card that was played
	Best     Card          // The best card according to Advise
	Loss     float64       // played relative cost - best relative cost
	Skill    SkillType     // Skill rating
	IsForced bool          // True if only one card was left
	Actions  []ActionScore // Every candidate, best first
}

// Review is the result of grading every past round.
type Review struct {
	Rounds       []RoundReview
	TotalLoss    float64
	ErrorPerCard float64 // mean loss over unforced rounds
}

// Count returns how many rounds received the given rating.
func (r *Review) Count(skill SkillType) int {
	n := 0
	for _, rr := range r.Rounds {
		if rr.Skill == skill {
			n++
		}
	}
	return n
}

// Review replays the decision point of every past round and grades the card
// the acting player chose there.
func (e *Engine) Review(ctx context.Context, state *GameState, opts AdviseOptions) (*Review, error) {
	if err := state.Validate(&e.rules); err != nil {
		return nil, err
	}

	review := &Review{Rounds: make([]RoundReview, 0, len(state.PastRounds))}
	unforced := 0
	for r := range state.PastRounds {
		rr, err := e.reviewRound(ctx, state, r, opts)
		if err != nil {
			return nil, fmt.Errorf("reviewing round %d: %w", r+1, err)
		}
		review.Rounds = append(review.Rounds, rr)
		review.TotalLoss += rr.Loss
		if !rr.IsForced {
			unforced++
		}
	}
	if unforced > 0 {
		review.ErrorPerCard = review.TotalLoss / float64(unforced)
	}
	return review, nil
}

func (e *Engine) reviewRound(ctx context.Context, state *GameState, r int, opts AdviseOptions) (RoundReview, error) {
	decision := DecisionPoint(state, r)
	played := state.PastRounds[r].Actions[0]

	rr := RoundReview{Round: r, Played: played, Best: played}
	if len(decision.MyHand) == 1 {
		rr.IsForced = true
		rr.Skill = SkillNone
		return rr, nil
	}

	opts.Progress = nil
	advice, err := e.Advise(ctx, decision, opts)
	if err != nil {
		return rr, err
	}
	rr.Actions = advice.Actions
	rr.Best = advice.Best()

	score, ok := advice.Find(played)
	if !ok {
		return rr, fmt.Errorf("%w: played card %v missing from reconstructed hand", ErrInvalidState, played)
	}
	rr.Loss = max(0, score.RelCost-advice.Actions[0].RelCost)
	rr.Skill = ClassifySkill(rr.Loss)
	return rr, nil
}

// DecisionPoint reconstructs what the acting player observed right before
// playing in past round r: the hand held then, the rounds before it and the
// table of round r.
func DecisionPoint(state *GameState, r int) *GameState {
	hand := slices.Clone(state.MyHand)
	for _, round := range state.PastRounds[r:] {
		hand = append(hand, round.Actions[0])
	}
	slices.SortFunc(hand, func(a, b Card) int { return cmp.Compare(a.Idx(), b.Idx()) })

	return &GameState{
		MyHand:      hand,
		PastRounds:  state.PastRounds[:r],
		Table:       state.PastRounds[r].Table,
		PlayerCount: state.PlayerCount,
	}
}
