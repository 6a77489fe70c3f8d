package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seojun-park/kisbot/internal/domain"
	"github.com/seojun-park/kisbot/internal/registry"
)

type fakeStrategyService struct {
	strategies map[string]domain.Strategy
	createErr  error
}

func newFakeStrategyService() *fakeStrategyService {
	return &fakeStrategyService{strategies: make(map[string]domain.Strategy)}
}

func (f *fakeStrategyService) Create(ctx context.Context, p registry.CreateParams) (domain.Strategy, error) {
	if f.createErr != nil {
		return domain.Strategy{}, f.createErr
	}
	s := domain.Strategy{
		ID:            fmt.Sprintf("strat-%d", len(f.strategies)+1),
		Name:          p.Name,
		Type:          p.Type,
		Config:        p.Config,
		SelectionMode: p.SelectionMode,
	}
	f.strategies[s.ID] = s
	return s, nil
}

func (f *fakeStrategyService) Get(ctx context.Context, id string) (domain.Strategy, error) {
	s, ok := f.strategies[id]
	if !ok {
		return domain.Strategy{}, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeStrategyService) List(ctx context.Context, opts domain.ListOpts) ([]domain.Strategy, error) {
	out := make([]domain.Strategy, 0, len(f.strategies))
	for _, s := range f.strategies {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStrategyService) Update(ctx context.Context, id string, p registry.UpdateParams) (domain.Strategy, error) {
	s, ok := f.strategies[id]
	if !ok {
		return domain.Strategy{}, domain.ErrNotFound
	}
	if p.Name != nil {
		s.Name = *p.Name
	}
	f.strategies[id] = s
	return s, nil
}

func (f *fakeStrategyService) Delete(ctx context.Context, id string) error {
	if _, ok := f.strategies[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.strategies, id)
	return nil
}

func (f *fakeStrategyService) Activate(ctx context.Context, id string) (domain.Strategy, error) {
	return f.setActive(id, true)
}

func (f *fakeStrategyService) Deactivate(ctx context.Context, id string) (domain.Strategy, error) {
	return f.setActive(id, false)
}

func (f *fakeStrategyService) setActive(id string, active bool) (domain.Strategy, error) {
	s, ok := f.strategies[id]
	if !ok {
		return domain.Strategy{}, domain.ErrNotFound
	}
	s.Active = active
	f.strategies[id] = s
	return s, nil
}

func newStrategyHandler(svc StrategyService) *StrategyHandler {
	return NewStrategyHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// serveWithPath routes the request through a ServeMux so path parameters
// resolve the same way they do in production.
func serveWithPath(pattern string, fn http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, fn)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestCreateStrategy(t *testing.T) {
	svc := newFakeStrategyService()
	h := newStrategyHandler(svc)

	body := strings.NewReader(`{"name":"golden-cross","type":"moving_average_crossover"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/strategies", body)
	rec := httptest.NewRecorder()
	h.CreateStrategy(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var s domain.Strategy
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, "golden-cross", s.Name)
	assert.NotEmpty(t, s.ID)
}

func TestCreateStrategyValidationError(t *testing.T) {
	svc := newFakeStrategyService()
	svc.createErr = fmt.Errorf("%w: name must not be empty", domain.ErrValidation)
	h := newStrategyHandler(svc)

	body := strings.NewReader(`{"type":"rsi"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/strategies", body)
	rec := httptest.NewRecorder()
	h.CreateStrategy(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateStrategyUnknownType(t *testing.T) {
	svc := newFakeStrategyService()
	svc.createErr = fmt.Errorf("%w: %q", domain.ErrUnknownStrategyType, "astrology")
	h := newStrategyHandler(svc)

	body := strings.NewReader(`{"name":"stars","type":"astrology"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/strategies", body)
	rec := httptest.NewRecorder()
	h.CreateStrategy(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateStrategyDuplicateName(t *testing.T) {
	svc := newFakeStrategyService()
	svc.createErr = domain.ErrAlreadyExists
	h := newStrategyHandler(svc)

	body := strings.NewReader(`{"name":"golden-cross","type":"moving_average_crossover"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/strategies", body)
	rec := httptest.NewRecorder()
	h.CreateStrategy(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetStrategyNotFound(t *testing.T) {
	h := newStrategyHandler(newFakeStrategyService())

	req := httptest.NewRequest(http.MethodGet, "/api/strategies/nope", nil)
	rec := serveWithPath("GET /api/strategies/{id}", h.GetStrategy, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActivateStrategy(t *testing.T) {
	svc := newFakeStrategyService()
	created, err := svc.Create(context.Background(), registry.CreateParams{Name: "rsi-dip", Type: "rsi"})
	require.NoError(t, err)

	h := newStrategyHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/strategies/"+created.ID+"/activate", nil)
	rec := serveWithPath("POST /api/strategies/{id}/activate", h.ActivateStrategy, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var s domain.Strategy
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.True(t, s.Active)
}

func TestDeleteStrategy(t *testing.T) {
	svc := newFakeStrategyService()
	created, err := svc.Create(context.Background(), registry.CreateParams{Name: "momo", Type: "momentum"})
	require.NoError(t, err)

	h := newStrategyHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/strategies/"+created.ID, nil)
	rec := serveWithPath("DELETE /api/strategies/{id}", h.DeleteStrategy, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, svc.strategies)
}
