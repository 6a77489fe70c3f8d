package domain

import "time"

// SignalAction is the trading action a strategy decided on.
type SignalAction string

const (
	SignalActionBuy  SignalAction = "BUY"
	SignalActionSell SignalAction = "SELL"
)

// SignalStatus records whether the resulting order went through.
type SignalStatus string

const (
	SignalStatusExecuted SignalStatus = "executed"
	SignalStatusFailed   SignalStatus = "failed"
)

// Signal is one trading decision made during a run, together with the
// outcome of the order it produced.
type Signal struct {
	ID        string       `json:"id"`
	Strategy  string       `json:"strategy"`
	Action    SignalAction `json:"action"`
	Code      string       `json:"code"`
	Quantity  int64        `json:"quantity"`
	Price     float64      `json:"price"`
	OrderType string       `json:"order_type"`
	Status    SignalStatus `json:"status"`
	OrderNo   string       `json:"order_no,omitempty"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// StrategyError records a failure scoped to one strategy (and optionally one
// stock) during a run. Failures are collected, never propagated across
// strategies.
type StrategyError struct {
	Strategy string `json:"strategy"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message"`
}

// RunReport summarises a single engine run.
type RunReport struct {
	Timestamp time.Time       `json:"timestamp"`
	Signals   []Signal        `json:"signals"`
	Errors    []StrategyError `json:"errors"`
	Message   string          `json:"message,omitempty"`
}

// SchedulerStatus is a snapshot of the recurring run schedule.
type SchedulerStatus struct {
	Running  bool      `json:"running"`
	Mode     string    `json:"mode,omitempty"` // "interval" or "daily"
	Interval string    `json:"interval,omitempty"`
	At       string    `json:"at,omitempty"` // HH:MM for daily mode
	NextRun  time.Time `json:"next_run,omitzero"`
}
