package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seojun-park/kisbot/internal/domain"
)

type fakePositionProvider struct {
	balance domain.AccountBalance
	err     error
}

func (f *fakePositionProvider) Balance(context.Context) (domain.AccountBalance, error) {
	return f.balance, f.err
}

func (f *fakePositionProvider) HoldingOf(_ context.Context, code string) (domain.Holding, error) {
	if f.err != nil {
		return domain.Holding{}, f.err
	}
	for _, h := range f.balance.Holdings {
		if h.Code == code {
			return h, nil
		}
	}
	return domain.Holding{}, fmt.Errorf("holding %s: %w", code, domain.ErrNotFound)
}

func newAccountHandler(p *fakePositionProvider) *AccountHandler {
	return NewAccountHandler(p, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBalance(t *testing.T) {
	h := newAccountHandler(&fakePositionProvider{balance: domain.AccountBalance{
		Cash:     1_000_000,
		Holdings: []domain.Holding{{Code: "005930", Quantity: 10, AvgCost: 70_000}},
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/account/balance", nil)
	rec := httptest.NewRecorder()
	h.Balance(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.AccountBalance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, float64(1_000_000), got.Cash)
	require.Len(t, got.Holdings, 1)
}

func TestHolding(t *testing.T) {
	h := newAccountHandler(&fakePositionProvider{balance: domain.AccountBalance{
		Holdings: []domain.Holding{{Code: "005930", Quantity: 10, AvgCost: 70_000}},
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/account/holdings/005930", nil)
	rec := serveWithPath("GET /api/account/holdings/{code}", h.Holding, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Holding
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(10), got.Quantity)
}

func TestHoldingNotHeld(t *testing.T) {
	h := newAccountHandler(&fakePositionProvider{})

	req := httptest.NewRequest(http.MethodGet, "/api/account/holdings/000660", nil)
	rec := serveWithPath("GET /api/account/holdings/{code}", h.Holding, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHoldingBrokerageDown(t *testing.T) {
	h := newAccountHandler(&fakePositionProvider{err: fmt.Errorf("connect: refused")})

	req := httptest.NewRequest(http.MethodGet, "/api/account/holdings/005930", nil)
	rec := serveWithPath("GET /api/account/holdings/{code}", h.Holding, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
