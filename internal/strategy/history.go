package strategy

import (
	"context"
	"fmt"

	"github.com/seojun-park/kisbot/internal/domain"
)

// maxHistory caps the closes kept per stock; longest indicator lookback is
// well under this.
const maxHistory = 200

// history accumulates closing prices per stock, oldest first. It is owned by
// a single strategy instance and accessed from one run at a time.
type history struct {
	closes map[string][]float64
	warmed map[string]bool
	depth  int
}

func newHistory(depth int) *history {
	if depth <= 0 || depth > maxHistory {
		depth = maxHistory
	}
	return &history{
		closes: make(map[string][]float64),
		warmed: make(map[string]bool),
		depth:  depth,
	}
}

// warmup seeds the series for code from daily chart closes. It runs once per
// code per instance lifetime.
func (h *history) warmup(ctx context.Context, code string, charts domain.ChartProvider) error {
	if h.warmed[code] || charts == nil {
		return nil
	}
	closes, err := charts.DailyCloses(ctx, code, h.depth)
	if err != nil {
		return fmt.Errorf("warm up %s: %w", code, err)
	}
	h.closes[code] = append(closes, h.closes[code]...)
	h.trim(code)
	h.warmed[code] = true
	return nil
}

// observe appends the latest price to the series for code.
func (h *history) observe(code string, price float64) {
	h.closes[code] = append(h.closes[code], price)
	h.trim(code)
}

// series returns the accumulated closes for code, oldest first.
func (h *history) series(code string) []float64 {
	return h.closes[code]
}

func (h *history) trim(code string) {
	if s := h.closes[code]; len(s) > h.depth {
		h.closes[code] = s[len(s)-h.depth:]
	}
}
