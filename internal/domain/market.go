package domain

import "time"

// MarketData is a real-time quote snapshot for a single stock.
type MarketData struct {
	Code       string    `json:"code"`
	Price      float64   `json:"price"`
	PrevClose  float64   `json:"prev_close"`
	ChangeRate float64   `json:"change_rate"` // percent vs previous close
	Volume     int64     `json:"volume"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Open       float64   `json:"open"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// RankedStock is one row of an exchange ranking (volume, fluctuation, market cap).
type RankedStock struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	ChangeRate float64 `json:"change_rate"`
	Volume     int64   `json:"volume"`
}

// Holding is a position held in the trading account.
type Holding struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Quantity int64   `json:"quantity"`
	AvgCost  float64 `json:"avg_cost"`
}

// AccountBalance summarises the trading account.
type AccountBalance struct {
	Cash      float64   `json:"cash"`
	Holdings  []Holding `json:"holdings"`
	FetchedAt time.Time `json:"fetched_at"`
}

// MarketStatus is a snapshot of the trading session state.
type MarketStatus struct {
	Open     bool      `json:"open"`
	Now      time.Time `json:"now"`
	NextOpen time.Time `json:"next_open"`
	Close    time.Time `json:"close"`
}
