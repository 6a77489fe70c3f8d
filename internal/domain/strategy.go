package domain

import "time"

// SelectionMode determines how a strategy builds its stock universe for each run.
type SelectionMode string

const (
	SelectionWatchlist SelectionMode = "watchlist"
	SelectionAuto      SelectionMode = "auto"
	SelectionRanking   SelectionMode = "ranking"
)

// Valid reports whether the mode is one of the supported selection modes.
func (m SelectionMode) Valid() bool {
	switch m {
	case SelectionWatchlist, SelectionAuto, SelectionRanking:
		return true
	}
	return false
}

// RankingType selects which exchange ranking feeds the "ranking" and "auto"
// selection modes.
type RankingType string

const (
	RankingVolume      RankingType = "volume"
	RankingFluctuation RankingType = "fluctuation"
	RankingMarketCap   RankingType = "market_cap"
)

// Valid reports whether the ranking type is supported.
func (r RankingType) Valid() bool {
	switch r {
	case RankingVolume, RankingFluctuation, RankingMarketCap:
		return true
	}
	return false
}

// AutoSelection configures automatic stock screening for a strategy.
type AutoSelection struct {
	MaxStocks     int         `json:"max_stocks"`
	MinChangeRate float64     `json:"min_change_rate"`
	MinVolume     int64       `json:"min_volume"`
	RankingType   RankingType `json:"ranking_type"`
	Market        string      `json:"market"`
}

// Strategy is a registered trading strategy with its typed configuration.
// Config keys are interpreted per Type by the strategy factory.
type Strategy struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Type          string         `json:"type"`
	Config        map[string]any `json:"config"`
	Active        bool           `json:"active"`
	SelectionMode SelectionMode  `json:"selection_mode"`
	AutoSelection AutoSelection  `json:"auto_selection"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
