package kis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// refreshMargin renews the token this long before it actually expires.
const refreshMargin = 5 * time.Minute

// tokenSource caches the OAuth access token in memory. The API limits token
// issuance to one request per minute, so the cached token is reused until
// close to expiry.
type tokenSource struct {
	baseURL    string
	appKey     string
	appSecret  string
	httpClient *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func newTokenSource(baseURL, appKey, appSecret string, httpClient *http.Client) *tokenSource {
	return &tokenSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		appKey:     appKey,
		appSecret:  appSecret,
		httpClient: httpClient,
	}
}

// get returns a valid access token, issuing a new one when needed.
func (t *tokenSource) get(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Now().Before(t.expiresAt.Add(-refreshMargin)) {
		return t.token, nil
	}

	reqBody, err := json.Marshal(map[string]string{
		"grant_type": "client_credentials",
		"appkey":     t.appKey,
		"appsecret":  t.appSecret,
	})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/oauth2/tokenP", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("kis: token request HTTP %d: %s", resp.StatusCode, body)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("kis: token response missing access_token")
	}

	t.token = tok.AccessToken
	t.expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return t.token, nil
}

// invalidate discards the cached token so the next call issues a new one.
func (t *tokenSource) invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = ""
	t.expiresAt = time.Time{}
}
