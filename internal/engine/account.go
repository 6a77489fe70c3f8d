package engine

import "github.com/seojun-park/kisbot/internal/domain"

// accountState tracks cash and holdings locally during a run so consecutive
// orders within the same run see the effect of earlier fills without
// re-fetching the balance.
type accountState struct {
	available float64
	holdings  map[string]domain.Holding
}

func newAccountState(b domain.AccountBalance) *accountState {
	holdings := make(map[string]domain.Holding, len(b.Holdings))
	for _, h := range b.Holdings {
		holdings[h.Code] = h
	}
	return &accountState{available: b.Cash, holdings: holdings}
}

func (a *accountState) cash() float64 { return a.available }

func (a *accountState) holding(code string) domain.Holding {
	return a.holdings[code]
}

func (a *accountState) settleBuy(code string, qty int64, price float64) {
	a.available -= float64(qty) * price
	h := a.holdings[code]
	h.Code = code
	h.Quantity += qty
	a.holdings[code] = h
}

func (a *accountState) settleSell(code string, qty int64, price float64) {
	a.available += float64(qty) * price
	h := a.holdings[code]
	h.Quantity -= qty
	if h.Quantity <= 0 {
		delete(a.holdings, code)
		return
	}
	a.holdings[code] = h
}
