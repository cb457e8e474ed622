// deepmoo - move advisor for the 6 nimmt! card game
package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/deepmoo/internal/config"
	"github.com/yourusername/deepmoo/internal/logging"
	"github.com/yourusername/deepmoo/pkg/engine"
	"github.com/yourusername/deepmoo/pkg/gamefile"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "advise":
		cmdAdvise(args)
	case "posterior":
		cmdPosterior(args)
	case "review":
		cmdReview(args)
	case "simulate":
		cmdSimulate(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`deepmoo - 6 nimmt! Move Advisor

Usage: deepmoo <command> [options]

Commands:
  advise      Rank the cards in hand, best first
  posterior   Show who probably holds each unseen card
  review      Grade the cards played in past rounds
  simulate    Play out a single candidate card (at most 2000 deals unless -samples is set)

Use "deepmoo <command> -h" for command-specific help.

Game File Format:
  p me alice bob          player names, acting player first
  h 3 17 22 ...           initial hand
  t 5 / t 24 / ...        one line per row
  a 22 8 27               cards revealed in a round, in 'p' order
  The rows before each 'a' are that round's table, the rows after the last
  'a' the current table. Use "-f -" to read from stdin.`)
}

// setup holds what every command needs.
type setup struct {
	cfg    *config.Config
	engine *engine.Engine
	game   *gamefile.Game
	ctx    context.Context
}

// commonFlags are shared by all commands.
type commonFlags struct {
	file    *string
	cfgFile *string
	trials  *int
	samples *int
	workers *int
	seed    *uint64
	verbose *bool
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		file:    fs.String("f", "", "Game file (- for stdin)"),
		cfgFile: fs.String("config", "", "YAML config file"),
		trials:  fs.Int("trials", 0, "Estimator trials (0 = config)"),
		samples: fs.Int("samples", 0, "Sampled deals to play out (0 = config)"),
		workers: fs.Int("workers", 0, "Parallel workers (0 = config)"),
		seed:    fs.Uint64("seed", 0, "Random seed (0 = config or random)"),
		verbose: fs.Bool("v", false, "Log engine phases to stderr"),
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func load(command string, f commonFlags) *setup {
	if *f.file == "" {
		fmt.Fprintln(os.Stderr, "Error: game file required")
		fmt.Fprintf(os.Stderr, "Usage: deepmoo %s -f <game file>\n", command)
		os.Exit(1)
	}

	cfg, err := config.Load(*f.cfgFile, "")
	if err != nil {
		fail("%v", err)
	}
	if *f.trials > 0 {
		cfg.Engine.Trials = *f.trials
	}
	if *f.samples > 0 {
		cfg.Engine.Samples = *f.samples
	}
	if *f.workers > 0 {
		cfg.Engine.Workers = *f.workers
	}
	if *f.seed != 0 {
		cfg.Engine.Seed = *f.seed
	}

	level := "warn"
	if *f.verbose {
		level = "debug"
	}
	logger := logging.MustNew(os.Stderr, level, true)

	e, err := engine.NewEngine(engine.EngineOptions{
		Rules:     &cfg.Rules,
		CacheSize: cfg.Engine.CacheSize,
		Logger:    &logger,
	})
	if err != nil {
		fail("failed to create engine: %v", err)
	}

	var r io.Reader = os.Stdin
	if *f.file != "-" {
		file, err := os.Open(*f.file)
		if err != nil {
			fail("%v", err)
		}
		defer file.Close()
		r = file
	}
	game, err := gamefile.Parse(r, &cfg.Rules)
	if err != nil {
		var perr *gamefile.ParseError
		if errors.As(err, &perr) {
			fail("%s:%v", *f.file, perr)
		}
		fail("%v", err)
	}

	return &setup{
		cfg:    cfg,
		engine: e,
		game:   game,
		ctx:    logger.WithContext(context.Background()),
	}
}

func (s *setup) adviseOptions() engine.AdviseOptions {
	return engine.AdviseOptions{
		Trials:  s.cfg.Engine.Trials,
		Samples: s.cfg.Engine.Samples,
		Workers: s.cfg.Engine.Workers,
		Seed:    s.cfg.Engine.Seed,
	}
}

func cmdAdvise(args []string) {
	fs := flag.NewFlagSet("advise", flag.ExitOnError)
	f := addCommonFlags(fs)
	details := fs.Bool("details", false, "Also print deviation and sample statistics")
	fs.Parse(args)

	s := load("advise", f)
	advice, err := s.engine.Advise(s.ctx, &s.game.State, s.adviseOptions())
	if err != nil {
		fail("advise: %v", err)
	}

	for _, a := range advice.Actions {
		if *details {
			fmt.Printf("%3d %6.2f  ± %.2f\n", a.Card.Idx(), -a.RelCost, a.StdDev)
			continue
		}
		fmt.Printf("%3d %6.2f\n", a.Card.Idx(), -a.RelCost)
	}
	if *details {
		fmt.Printf("\nSamples: %d (effective %.0f), seed %d\n",
			advice.Samples, advice.EffectiveSamples, advice.Seed)
	}
}

func cmdPosterior(args []string) {
	fs := flag.NewFlagSet("posterior", flag.ExitOnError)
	f := addCommonFlags(fs)
	fs.Parse(args)

	s := load("posterior", f)
	d, err := s.engine.Estimate(s.ctx, &s.game.State, engine.EstimateOptions{Trials: s.cfg.Engine.Trials}, s.cfg.Engine.Seed)
	if err != nil {
		fail("estimate: %v", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("Unseen cards (%d per hand, %d in the deck)", d.HandLen(), d.DeckLen()))

	header := table.Row{"Card", "Bulls", "Deck"}
	for _, name := range s.game.Names[1:] {
		header = append(header, name)
	}
	t.AppendHeader(header)

	for _, c := range d.Cards() {
		row := table.Row{c.Idx(), c.Cost()}
		for owner := 0; owner < d.PlayerCount(); owner++ {
			row = append(row, percent(d.Prob(c, owner)))
		}
		t.AppendRow(row)
	}

	footer := table.Row{"mean", ""}
	for _, p := range d.MeanOwnerProbs() {
		footer = append(footer, percent(p))
	}
	t.AppendFooter(footer)

	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	configs := []table.ColumnConfig{{Number: 1, Align: text.AlignRight}, {Number: 2, Align: text.AlignRight}}
	for col := 3; col <= 2+d.PlayerCount(); col++ {
		configs = append(configs, table.ColumnConfig{Number: col, Align: text.AlignRight, AlignFooter: text.AlignRight})
	}
	t.SetColumnConfigs(configs)
	t.Render()
}

func percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

func cmdReview(args []string) {
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	f := addCommonFlags(fs)
	fs.Parse(args)

	s := load("review", f)
	review, err := s.engine.Review(s.ctx, &s.game.State, s.adviseOptions())
	if err != nil {
		fail("review: %v", err)
	}
	if len(review.Rounds) == 0 {
		fmt.Println("No rounds played yet.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Round", "Played", "Best", "Loss", "Rating"})
	for _, rr := range review.Rounds {
		rating := rr.Skill.String()
		switch {
		case rr.IsForced:
			rating = "forced"
		case rr.Skill != engine.SkillNone:
			rating = fmt.Sprintf("%s %s", rr.Skill, rr.Skill.Abbr())
		}
		t.AppendRow(table.Row{rr.Round + 1, rr.Played, rr.Best, fmt.Sprintf("%.2f", rr.Loss), rating})
	}
	t.AppendFooter(table.Row{"", "", "total", fmt.Sprintf("%.2f", review.TotalLoss),
		fmt.Sprintf("%.2f per card", review.ErrorPerCard)})
	t.SetStyle(table.StyleLight)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	t.Render()

	fmt.Printf("Very bad: %d  Bad: %d  Doubtful: %d\n",
		review.Count(engine.SkillVeryBad), review.Count(engine.SkillBad), review.Count(engine.SkillDoubtful))
}

// simulateDefaultSamples caps the configured sample count for simulate,
// which plays out a single card serially. An explicit -samples overrides it.
const simulateDefaultSamples = 2000

func cmdSimulate(args []string) {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	f := addCommonFlags(fs)
	cardFlag := fs.Int("card", 0, "Candidate card from the hand")
	fs.Parse(args)

	s := load("simulate", f)
	state := &s.game.State
	card := engine.NewCard(*cardFlag)
	if !s.cfg.Rules.Contains(*cardFlag) || !slices.Contains(state.MyHand, card) {
		fail("card %d is not in the hand %v", *cardFlag, state.MyHand)
	}

	seed := s.cfg.Engine.Seed
	if seed == 0 {
		seed = engine.RandomSeed()
	}
	d, err := s.engine.Estimate(s.ctx, state, engine.EstimateOptions{Trials: s.cfg.Engine.Trials}, seed)
	if err != nil {
		fail("estimate: %v", err)
	}

	samples := s.cfg.Engine.Samples
	if samples > simulateDefaultSamples && *f.samples == 0 {
		samples = simulateDefaultSamples
	}
	idx := slices.Index(state.MyHand, card)
	rng := rand.New(rand.NewPCG(seed, uint64(card.Idx())))
	costs := make([]float64, 0, samples)
	weights := make([]float64, 0, samples)
	for i := 0; i < samples; i++ {
		hands, w := d.Sample(rng, &s.cfg.Rules)
		hands[0] = state.MyHand
		rel := engine.EstimatePolicyRelCosts(rng, &s.cfg.Rules, &state.Table, hands, len(state.MyHand))
		costs = append(costs, rel[idx])
		weights = append(weights, w)
	}
	zerolog.Ctx(s.ctx).Debug().Int("samples", samples).Msg("simulate")

	printSimulation(card, costs, weights, seed)
}

// printSimulation summarizes the relative costs of one candidate.
func printSimulation(card engine.Card, costs, weights []float64, seed uint64) {
	order := make([]int, len(costs))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int { return cmp.Compare(costs[a], costs[b]) })
	x := make([]float64, len(order))
	w := make([]float64, len(order))
	for i, o := range order {
		x[i], w[i] = costs[o], weights[o]
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("Card %d (%d bulls), seed %d", card.Idx(), card.Cost(), seed))
	if floats.Sum(w) <= 0 {
		t.AppendRow(table.Row{"samples", len(x)})
		t.AppendRow(table.Row{"weight", "all zero"})
		t.Render()
		return
	}

	mean, std := stat.PopMeanStdDev(x, w)
	t.AppendRows([]table.Row{
		{"samples", len(x)},
		{"mean rel cost", fmt.Sprintf("%.2f", mean)},
		{"std dev", fmt.Sprintf("%.2f", std)},
		{"best", fmt.Sprintf("%.2f", x[0])},
		{"10%", fmt.Sprintf("%.2f", stat.Quantile(0.1, stat.Empirical, x, w))},
		{"median", fmt.Sprintf("%.2f", stat.Quantile(0.5, stat.Empirical, x, w))},
		{"90%", fmt.Sprintf("%.2f", stat.Quantile(0.9, stat.Empirical, x, w))},
		{"worst", fmt.Sprintf("%.2f", x[len(x)-1])},
	})
	t.SetStyle(table.StyleLight)
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	t.Render()
}
