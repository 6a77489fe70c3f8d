package kis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/seojun-park/kisbot/internal/domain"
)

// Transaction IDs for the domestic-stock endpoints. Paper trading uses the
// V-prefixed order and balance IDs.
const (
	trQuote       = "FHKST01010100"
	trDailyChart  = "FHKST03010100"
	trVolumeRank  = "FHPST01710000"
	trFluctuation = "FHPST01700000"
	trMarketCap   = "FHPST01740000"

	trOrderBuy       = "TTTC0802U"
	trOrderSell      = "TTTC0801U"
	trOrderBuyPaper  = "VTTC0802U"
	trOrderSellPaper = "VTTC0801U"
	trBalance        = "TTTC8434R"
	trBalancePaper   = "VTTC8434R"
)

// Config holds the brokerage API credentials and account.
type Config struct {
	// BaseURL is the API root, e.g. "https://openapi.koreainvestment.com:9443".
	BaseURL   string
	AppKey    string
	AppSecret string
	// AccountNo is the 10-digit account, optionally with a dash before the
	// 2-digit product code ("12345678-01").
	AccountNo string
	// Paper switches to the mock-investment transaction IDs.
	Paper bool
}

// Client is the REST client for the brokerage's open API. It implements
// domain.QuoteProvider, ChartProvider, RankingProvider, PositionProvider
// and Broker.
type Client struct {
	baseURL    string
	appKey     string
	appSecret  string
	cano       string
	acntPrdtCd string
	paper      bool
	httpClient *http.Client
	tokens     *tokenSource
	logger     *slog.Logger
}

// NewClient creates the brokerage client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	cano, prdt, err := splitAccountNo(cfg.AccountNo)
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: 30 * time.Second}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		appKey:     cfg.AppKey,
		appSecret:  cfg.AppSecret,
		cano:       cano,
		acntPrdtCd: prdt,
		paper:      cfg.Paper,
		httpClient: httpClient,
		tokens:     newTokenSource(cfg.BaseURL, cfg.AppKey, cfg.AppSecret, httpClient),
		logger:     logger.With(slog.String("component", "kis")),
	}, nil
}

// splitAccountNo splits "12345678-01" (or "1234567801") into the 8-digit
// account and 2-digit product code.
func splitAccountNo(acct string) (cano, prdt string, err error) {
	s := strings.ReplaceAll(acct, "-", "")
	if len(s) != 10 {
		return "", "", fmt.Errorf("kis: account number %q must be 10 digits", acct)
	}
	return s[:8], s[8:], nil
}

// doRequest performs one authenticated API call. A 401 invalidates the
// cached token and retries once with a fresh one.
func (c *Client) doRequest(ctx context.Context, method, path, trID string, query url.Values, reqBody any) ([]byte, error) {
	body, retry, err := c.doOnce(ctx, method, path, trID, query, reqBody)
	if retry {
		c.tokens.invalidate()
		body, _, err = c.doOnce(ctx, method, path, trID, query, reqBody)
	}
	return body, err
}

func (c *Client) doOnce(ctx context.Context, method, path, trID string, query url.Values, reqBody any) (respBody []byte, retry bool, err error) {
	token, err := c.tokens.get(ctx)
	if err != nil {
		return nil, false, err
	}

	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return nil, false, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("appkey", c.appKey)
	req.Header.Set("appsecret", c.appSecret)
	req.Header.Set("tr_id", trID)
	req.Header.Set("custtype", "P")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, true, fmt.Errorf("kis: %w", domain.ErrUnauthorized)
	}
	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, false, err
	}
	return respBody, false, nil
}

// checkStatus maps non-2xx HTTP status codes to sentinel errors.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr envelope
	_ = json.Unmarshal(body, &apiErr)

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("kis: %w: %s (%s)", domain.ErrNotFound, apiErr.Msg1, apiErr.MsgCd)
	case http.StatusForbidden:
		return fmt.Errorf("kis: %w: %s (%s)", domain.ErrUnauthorized, apiErr.Msg1, apiErr.MsgCd)
	case http.StatusTooManyRequests:
		return fmt.Errorf("kis: %w: %s (%s)", domain.ErrRateLimited, apiErr.Msg1, apiErr.MsgCd)
	default:
		return fmt.Errorf("kis: HTTP %d: %s (%s)", statusCode, apiErr.Msg1, apiErr.MsgCd)
	}
}
