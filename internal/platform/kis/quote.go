package kis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/seojun-park/kisbot/internal/domain"
)

// CurrentData fetches the real-time quote for a stock code.
func (c *Client) CurrentData(ctx context.Context, code string) (domain.MarketData, error) {
	query := url.Values{
		"FID_COND_MRKT_DIV_CODE": {"J"},
		"FID_INPUT_ISCD":         {code},
	}
	body, err := c.doRequest(ctx, http.MethodGet, "/uapi/domestic-stock/v1/quotations/inquire-price", trQuote, query, nil)
	if err != nil {
		return domain.MarketData{}, fmt.Errorf("kis: quote %s: %w", code, err)
	}

	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.MarketData{}, fmt.Errorf("kis: decode quote: %w", err)
	}
	if err := resp.err(); err != nil {
		return domain.MarketData{}, err
	}

	out := resp.Output
	return domain.MarketData{
		Code:       code,
		Price:      atof(out.Price),
		PrevClose:  atof(out.PrevClose),
		ChangeRate: atof(out.ChangeRate),
		Volume:     atoi(out.Volume),
		High:       atof(out.High),
		Low:        atof(out.Low),
		Open:       atof(out.Open),
		FetchedAt:  time.Now().UTC(),
	}, nil
}

// DailyCloses fetches up to days daily closing prices for a stock, oldest
// first.
func (c *Client) DailyCloses(ctx context.Context, code string, days int) ([]float64, error) {
	now := time.Now()
	query := url.Values{
		"FID_COND_MRKT_DIV_CODE": {"J"},
		"FID_INPUT_ISCD":         {code},
		"FID_INPUT_DATE_1":       {now.AddDate(0, 0, -days*2).Format("20060102")},
		"FID_INPUT_DATE_2":       {now.Format("20060102")},
		"FID_PERIOD_DIV_CODE":    {"D"},
		"FID_ORG_ADJ_PRC":        {"0"},
	}
	body, err := c.doRequest(ctx, http.MethodGet, "/uapi/domestic-stock/v1/quotations/inquire-daily-itemchartprice", trDailyChart, query, nil)
	if err != nil {
		return nil, fmt.Errorf("kis: daily chart %s: %w", code, err)
	}

	var resp dailyChartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("kis: decode daily chart: %w", err)
	}
	if err := resp.err(); err != nil {
		return nil, err
	}

	// Rows arrive newest first; reverse into chronological order.
	rows := resp.Output2
	closes := make([]float64, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].Close == "" {
			continue
		}
		closes = append(closes, atof(rows[i].Close))
	}
	if len(closes) > days {
		closes = closes[len(closes)-days:]
	}
	return closes, nil
}
