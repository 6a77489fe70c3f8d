package selector

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/seojun-park/kisbot/internal/domain"
)

const defaultMaxStocks = 10

// candidatePool is how many ranking rows auto mode screens before filtering.
const candidatePool = 30

// Selector resolves the stock universe a strategy trades on each run.
type Selector struct {
	watchlist domain.WatchlistStore
	rankings  domain.RankingProvider
	logger    *slog.Logger
}

// New creates a Selector.
func New(watchlist domain.WatchlistStore, rankings domain.RankingProvider, logger *slog.Logger) *Selector {
	return &Selector{
		watchlist: watchlist,
		rankings:  rankings,
		logger:    logger.With(slog.String("component", "selector")),
	}
}

// Resolve returns the stock codes the strategy should evaluate, in priority
// order. An empty universe is not an error; the engine records it as a
// no-op for the strategy.
func (s *Selector) Resolve(ctx context.Context, strat domain.Strategy) ([]string, error) {
	switch strat.SelectionMode {
	case domain.SelectionWatchlist:
		return s.fromWatchlist(ctx)
	case domain.SelectionAuto:
		return s.fromScreen(ctx, strat.AutoSelection)
	case domain.SelectionRanking:
		return s.fromRanking(ctx, strat.AutoSelection)
	}
	return nil, fmt.Errorf("%w: selection mode %q", domain.ErrValidation, strat.SelectionMode)
}

// fromWatchlist returns active watchlist codes in insertion order.
func (s *Selector) fromWatchlist(ctx context.Context) ([]string, error) {
	entries, err := s.watchlist.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	codes := make([]string, 0, len(entries))
	for _, e := range entries {
		codes = append(codes, e.Code)
	}
	return codes, nil
}

// fromScreen screens volume-ranking candidates by change rate and volume,
// orders survivors by change rate descending, and truncates to MaxStocks.
func (s *Selector) fromScreen(ctx context.Context, sel domain.AutoSelection) ([]string, error) {
	candidates, err := s.rankings.TopByVolume(ctx, candidatePool)
	if err != nil {
		return nil, fmt.Errorf("screen candidates: %w", err)
	}

	filtered := candidates[:0]
	for _, c := range candidates {
		if c.ChangeRate >= sel.MinChangeRate && c.Volume >= sel.MinVolume {
			filtered = append(filtered, c)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].ChangeRate > filtered[j].ChangeRate
	})

	codes := truncate(filtered, sel.MaxStocks)
	s.logger.Debug("screened candidates",
		slog.Int("candidates", len(candidates)),
		slog.Int("selected", len(codes)),
	)
	return codes, nil
}

// fromRanking takes the top of the configured exchange ranking as-is.
func (s *Selector) fromRanking(ctx context.Context, sel domain.AutoSelection) ([]string, error) {
	max := sel.MaxStocks
	if max <= 0 {
		max = defaultMaxStocks
	}

	var (
		ranked []domain.RankedStock
		err    error
	)
	switch sel.RankingType {
	case domain.RankingFluctuation:
		ranked, err = s.rankings.TopByChangeRate(ctx, max)
	case domain.RankingMarketCap:
		ranked, err = s.rankings.TopByMarketCap(ctx, max)
	case domain.RankingVolume, "":
		ranked, err = s.rankings.TopByVolume(ctx, max)
	default:
		return nil, fmt.Errorf("%w: ranking type %q", domain.ErrValidation, sel.RankingType)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch ranking: %w", err)
	}
	return truncate(ranked, max), nil
}

func truncate(ranked []domain.RankedStock, max int) []string {
	if max <= 0 {
		max = defaultMaxStocks
	}
	if len(ranked) > max {
		ranked = ranked[:max]
	}
	codes := make([]string, 0, len(ranked))
	for _, r := range ranked {
		codes = append(codes, r.Code)
	}
	return codes
}
