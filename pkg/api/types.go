// Package api provides the HTTP/JSON, Server-Sent Events and WebSocket API
// of the move advisor.
package api

import (
	"fmt"

	"github.com/yourusername/deepmoo/pkg/engine"
	"github.com/yourusername/deepmoo/pkg/gamefile"
)

// ============================================================================
// Request Types
// ============================================================================

// GameInput describes a decision point, either as a game file in Text or
// structurally. Text wins when both are given.
type GameInput struct {
	Text        string      `json:"text,omitempty"`         // Game file contents
	Names       []string    `json:"names,omitempty"`        // Player names, acting player first
	Hand        []int       `json:"hand,omitempty"`         // Cards the acting player still holds
	Rounds      []RoundJSON `json:"rounds,omitempty"`       // Resolved rounds, oldest first
	Table       [][]int     `json:"table,omitempty"`        // Current rows
	PlayerCount int         `json:"player_count,omitempty"` // Defaults to len(Names)
}

// RoundJSON is one resolved round.
type RoundJSON struct {
	Table   [][]int `json:"table"`   // Rows before anyone played
	Actions []int   `json:"actions"` // One card per player, acting player first
}

// EstimateRequest is the request body for the hidden-hand estimate.
type EstimateRequest struct {
	Game   GameInput `json:"game"`
	Trials int       `json:"trials,omitempty"` // Estimator trials (default from config)
	Seed   uint64    `json:"seed,omitempty"`   // Random seed (0 = random)
}

// AdviseRequest is the request body for advice and reviews.
type AdviseRequest struct {
	Game    GameInput `json:"game"`
	Trials  int       `json:"trials,omitempty"`  // Estimator trials
	Samples int       `json:"samples,omitempty"` // Hand assignments to play out
	Workers int       `json:"workers,omitempty"` // Parallel workers (0 = server default)
	Seed    uint64    `json:"seed,omitempty"`    // Random seed (0 = random)
}

// ============================================================================
// Response Types
// ============================================================================

// CardPosterior is the posterior ownership of one unknown card.
// Probs[0] is the deck, Probs[i] opponent i.
type CardPosterior struct {
	Card  int       `json:"card"`
	Probs []float64 `json:"probs"`
}

// EstimateResponse is the response for the hidden-hand estimate.
type EstimateResponse struct {
	Cards          []CardPosterior `json:"cards"`            // Most likely in the deck first
	MeanOwnerProbs []float64       `json:"mean_owner_probs"` // Expected share per owner
	HandLen        int             `json:"hand_len"`         // Cards every opponent holds
	DeckLen        int             `json:"deck_len"`         // Unknown cards left in the deck
}

// ActionResponse is the evaluation of one candidate card.
type ActionResponse struct {
	Card    int     `json:"card"`
	RelCost float64 `json:"rel_cost"` // Own cost minus the others' mean, lower is better
	StdDev  float64 `json:"std_dev"`
}

// AdviseResponse is the response for advice.
type AdviseResponse struct {
	Best             int              `json:"best"`              // Recommended card
	Actions          []ActionResponse `json:"actions"`           // Best first
	Samples          int              `json:"samples"`           // Samples played out
	WeightSum        float64          `json:"weight_sum"`        // Total importance weight
	EffectiveSamples float64          `json:"effective_samples"` // Effective sample size
	Seed             uint64           `json:"seed"`              // Seed used
}

// RoundReviewResponse grades one past round.
type RoundReviewResponse struct {
	Round     int              `json:"round"` // 1-indexed
	Played    int              `json:"played"`
	Best      int              `json:"best"`
	Loss      float64          `json:"loss"`       // Relative cost lost against the best card
	Skill     string           `json:"skill"`      // "None", "Doubtful", "Bad", "Very Bad"
	SkillAbbr string           `json:"skill_abbr"` // "", "?!", "?", "??"
	IsForced  bool             `json:"is_forced"`  // True if only one card was left
	Actions   []ActionResponse `json:"actions,omitempty"`
}

// ReviewResponse is the response for a review of the past rounds.
type ReviewResponse struct {
	Rounds       []RoundReviewResponse `json:"rounds"`
	TotalLoss    float64               `json:"total_loss"`
	ErrorPerCard float64               `json:"error_per_card"`
	VeryBad      int                   `json:"very_bad"`
	Bad          int                   `json:"bad"`
	Doubtful     int                   `json:"doubtful"`
}

// ErrorResponse is returned when an error occurs.
type ErrorResponse struct {
	Error   string `json:"error"`             // Error message
	Code    string `json:"code,omitempty"`    // Error code
	Details string `json:"details,omitempty"` // Additional details
}

// HealthResponse is the response for health check.
type HealthResponse struct {
	Status  string             `json:"status"`          // "ok" or "error"
	Version string             `json:"version"`         // Server version
	Ready   bool               `json:"ready"`           // Whether the engine is set up
	Rules   engine.Rules       `json:"rules"`           // Rules the engine plays by
	Pool    *PoolStats         `json:"pool,omitempty"`  // Worker pool statistics
	Cache   *engine.CacheStats `json:"cache,omitempty"` // Distribution cache statistics
}

// ============================================================================
// Helper Functions
// ============================================================================

// State converts the input into a game state under rules. Names are
// returned for display; they are defaulted when absent.
func (g *GameInput) State(rules *engine.Rules) (*engine.GameState, []string, error) {
	if g.Text != "" {
		game, err := gamefile.ParseString(g.Text, rules)
		if err != nil {
			return nil, nil, err
		}
		return &game.State, game.Names, nil
	}

	playerCount := g.PlayerCount
	if playerCount == 0 {
		playerCount = len(g.Names)
	}
	if playerCount < 0 {
		return nil, nil, fmt.Errorf("%w: negative player count", engine.ErrInvalidState)
	}
	names := g.Names
	if len(names) != playerCount {
		names = gamefile.DefaultNames(playerCount)
	}

	hand, err := toCards(rules, g.Hand)
	if err != nil {
		return nil, nil, fmt.Errorf("hand: %w", err)
	}
	table, err := toTable(rules, g.Table)
	if err != nil {
		return nil, nil, fmt.Errorf("table: %w", err)
	}
	state := &engine.GameState{
		MyHand:      hand,
		Table:       table,
		PlayerCount: playerCount,
	}
	for i, r := range g.Rounds {
		t, err := toTable(rules, r.Table)
		if err != nil {
			return nil, nil, fmt.Errorf("round %d table: %w", i+1, err)
		}
		actions, err := toCards(rules, r.Actions)
		if err != nil {
			return nil, nil, fmt.Errorf("round %d actions: %w", i+1, err)
		}
		state.PastRounds = append(state.PastRounds, engine.Round{Table: t, Actions: actions})
	}
	return state, names, nil
}

func toCards(rules *engine.Rules, idxs []int) ([]engine.Card, error) {
	cards := make([]engine.Card, len(idxs))
	for i, idx := range idxs {
		if !rules.Contains(idx) {
			return nil, fmt.Errorf("%w: card %d out of range", engine.ErrInvalidState, idx)
		}
		cards[i] = engine.NewCard(idx)
	}
	return cards, nil
}

func toTable(rules *engine.Rules, rows [][]int) (engine.Table, error) {
	cardRows := make([][]engine.Card, len(rows))
	for i, row := range rows {
		cards, err := toCards(rules, row)
		if err != nil {
			return engine.Table{}, err
		}
		cardRows[i] = cards
	}
	return engine.NewTable(cardRows), nil
}

// DistribToResponse converts an estimate to an API response.
func DistribToResponse(d *engine.HandsDistrib) *EstimateResponse {
	resp := &EstimateResponse{
		MeanOwnerProbs: d.MeanOwnerProbs(),
		HandLen:        d.HandLen(),
		DeckLen:        d.DeckLen(),
	}
	for _, c := range d.Cards() {
		probs := make([]float64, d.PlayerCount())
		for owner := range probs {
			probs[owner] = d.Prob(c, owner)
		}
		resp.Cards = append(resp.Cards, CardPosterior{Card: c.Idx(), Probs: probs})
	}
	return resp
}

func actionsToResponse(actions []engine.ActionScore) []ActionResponse {
	out := make([]ActionResponse, len(actions))
	for i, a := range actions {
		out[i] = ActionResponse{Card: a.Card.Idx(), RelCost: a.RelCost, StdDev: a.StdDev}
	}
	return out
}

// AdviceToResponse converts advice to an API response.
func AdviceToResponse(a *engine.Advice) *AdviseResponse {
	return &AdviseResponse{
		Best:             a.Best().Idx(),
		Actions:          actionsToResponse(a.Actions),
		Samples:          a.Samples,
		WeightSum:        a.WeightSum,
		EffectiveSamples: a.EffectiveSamples,
		Seed:             a.Seed,
	}
}

// ReviewToResponse converts a review to an API response.
func ReviewToResponse(r *engine.Review) *ReviewResponse {
	resp := &ReviewResponse{
		Rounds:       make([]RoundReviewResponse, len(r.Rounds)),
		TotalLoss:    r.TotalLoss,
		ErrorPerCard: r.ErrorPerCard,
		VeryBad:      r.Count(engine.SkillVeryBad),
		Bad:          r.Count(engine.SkillBad),
		Doubtful:     r.Count(engine.SkillDoubtful),
	}
	for i, rr := range r.Rounds {
		resp.Rounds[i] = RoundReviewResponse{
			Round:     rr.Round + 1,
			Played:    rr.Played.Idx(),
			Best:      rr.Best.Idx(),
			Loss:      rr.Loss,
			Skill:     rr.Skill.String(),
			SkillAbbr: rr.Skill.Abbr(),
			IsForced:  rr.IsForced,
			Actions:   actionsToResponse(rr.Actions),
		}
	}
	return resp
}
