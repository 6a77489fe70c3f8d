package domain

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Order division codes as the brokerage expects them in ORD_DVSN.
const (
	OrderTypeLimit  = "00" // limit order at the given price
	OrderTypeMarket = "01" // market order, price field ignored
)

// OrderRequest is a cash order to submit to the brokerage.
type OrderRequest struct {
	Code      string    `json:"code"`
	Side      OrderSide `json:"side"`
	Quantity  int64     `json:"quantity"`
	Price     float64   `json:"price"`
	OrderType string    `json:"order_type"`
}

// OrderResult is the brokerage's acknowledgement of a submitted order.
type OrderResult struct {
	OrderNo string `json:"order_no"`
	Message string `json:"message"`
}
