package trades

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/bullbear/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Candidate holds the spreads found for one ticker and expiration
type Candidate struct {
	Ticker          string   `json:"ticker"`
	Expiration      string   `json:"expiration"`
	CurrentPrice    float64  `json:"current_price"`
	BullPutSpreads  []Spread `json:"bull_put_spreads,omitempty"`
	BearCallSpreads []Spread `json:"bear_call_spreads,omitempty"`
}

// Spreads returns whichever spread list the candidate carries.
func (c Candidate) Spreads() []Spread {
	if len(c.BullPutSpreads) > 0 {
		return c.BullPutSpreads
	}
	return c.BearCallSpreads
}

// Config tunes the generator. Zero fields take defaults.
type Config struct {
	WeekOffsets         []int `yaml:"week_offsets"`
	MaxSpreadsPerExpiry int   `yaml:"max_spreads_per_expiry"`
	Concurrency         int   `yaml:"concurrency"`
}

// DefaultConfig returns the production generator settings.
func DefaultConfig() Config {
	return Config{
		WeekOffsets:         append([]int(nil), DefaultWeekOffsets...),
		MaxSpreadsPerExpiry: 5,
		Concurrency:         2,
	}
}

// Generator builds spread candidates from option chains
type Generator struct {
	chains domain.OptionChainProvider
	quotes domain.QuoteProvider
	cfg    Config
	now    func() time.Time
	log    zerolog.Logger
}

// NewGenerator creates a candidate generator
func NewGenerator(chains domain.OptionChainProvider, quotes domain.QuoteProvider, cfg Config, log zerolog.Logger) *Generator {
	def := DefaultConfig()
	if len(cfg.WeekOffsets) == 0 {
		cfg.WeekOffsets = def.WeekOffsets
	}
	if cfg.MaxSpreadsPerExpiry <= 0 {
		cfg.MaxSpreadsPerExpiry = def.MaxSpreadsPerExpiry
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	return &Generator{
		chains: chains,
		quotes: quotes,
		cfg:    cfg,
		now:    time.Now,
		log:    log.With().Str("component", "trade_generator").Logger(),
	}
}

// SetClock overrides the clock used to pick expirations.
func (g *Generator) SetClock(now func() time.Time) {
	g.now = now
}

// Generate finds bull put spreads for the bullish tickers and bear call
// spreads for the bearish ones, one candidate per ticker and chosen
// expiration. Each candidate keeps the first spreads in enumeration order up
// to the configured limit. Tickers whose data cannot be loaded are skipped;
// only context cancellation is an error.
func (g *Generator) Generate(ctx context.Context, bullish, bearish []string) ([]Candidate, error) {
	type job struct {
		ticker string
		bull   bool
	}
	var jobs []job
	for _, t := range bullish {
		jobs = append(jobs, job{strings.ToUpper(t), true})
	}
	for _, t := range bearish {
		jobs = append(jobs, job{strings.ToUpper(t), false})
	}

	results := make([][]Candidate, len(jobs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.Concurrency)
	for i, j := range jobs {
		i, j := i, j
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			results[i] = g.forTicker(egCtx, j.ticker, j.bull)
			return egCtx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("trade generation interrupted: %w", err)
	}

	var candidates []Candidate
	for _, r := range results {
		candidates = append(candidates, r...)
	}
	g.log.Info().
		Int("bullish", len(bullish)).
		Int("bearish", len(bearish)).
		Int("candidates", len(candidates)).
		Msg("Trade candidates generated")
	return candidates, nil
}

func (g *Generator) forTicker(ctx context.Context, ticker string, bull bool) []Candidate {
	log := g.log.With().Str("ticker", ticker).Bool("bull", bull).Logger()

	quote, err := g.quotes.GetQuote(ctx, ticker)
	if err != nil || quote == nil || quote.LastPrice == nil {
		log.Warn().Err(err).Msg("No underlying price, skipping")
		return nil
	}
	price := *quote.LastPrice

	available, err := g.chains.GetExpirations(ctx, ticker)
	if err != nil || len(available) == 0 {
		available = fridayDates(g.now())
		log.Warn().Err(err).Strs("fallback", available).Msg("Expiration listing unavailable, trying standard Friday expiries")
	}
	expirations := SelectExpirations(available, g.now(), g.cfg.WeekOffsets)
	if len(expirations) == 0 {
		log.Warn().Msg("No expirations available")
		return nil
	}

	var out []Candidate
	for _, exp := range expirations {
		chain, err := g.chains.GetOptionChain(ctx, ticker, exp)
		if err != nil || chain == nil {
			log.Warn().Err(err).Str("expiration", exp).Msg("Failed to load option chain")
			continue
		}

		c := Candidate{Ticker: ticker, Expiration: exp, CurrentPrice: price}
		if bull {
			c.BullPutSpreads = g.finish(FindBullPutSpreads(chain.Puts, price), ticker, exp)
		} else {
			c.BearCallSpreads = g.finish(FindBearCallSpreads(chain.Calls, price), ticker, exp)
		}
		out = append(out, c)
	}
	return out
}

func (g *Generator) finish(spreads []Spread, ticker, expiration string) []Spread {
	if len(spreads) > g.cfg.MaxSpreadsPerExpiry {
		spreads = spreads[:g.cfg.MaxSpreadsPerExpiry]
	}
	for i := range spreads {
		spreads[i].Ticker = ticker
		spreads[i].Expiration = expiration
	}
	return spreads
}
