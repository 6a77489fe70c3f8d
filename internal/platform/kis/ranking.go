package kis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/seojun-park/kisbot/internal/domain"
)

// TopByVolume returns the most traded stocks.
func (c *Client) TopByVolume(ctx context.Context, limit int) ([]domain.RankedStock, error) {
	query := url.Values{
		"FID_COND_MRKT_DIV_CODE": {"J"},
		"FID_COND_SCR_DIV_CODE":  {"20171"},
		"FID_INPUT_ISCD":         {"0000"},
		"FID_DIV_CLS_CODE":       {"0"},
		"FID_BLNG_CLS_CODE":      {"0"},
		"FID_TRGT_CLS_CODE":      {"111111111"},
		"FID_TRGT_EXLS_CLS_CODE": {"000000"},
		"FID_INPUT_PRICE_1":      {""},
		"FID_INPUT_PRICE_2":      {""},
		"FID_VOL_CNT":            {""},
		"FID_INPUT_DATE_1":       {""},
	}
	return c.ranking(ctx, "/uapi/domestic-stock/v1/quotations/volume-rank", trVolumeRank, query, limit)
}

// TopByChangeRate returns the biggest gainers.
func (c *Client) TopByChangeRate(ctx context.Context, limit int) ([]domain.RankedStock, error) {
	query := url.Values{
		"fid_cond_mrkt_div_code": {"J"},
		"fid_cond_scr_div_code":  {"20170"},
		"fid_input_iscd":         {"0000"},
		"fid_rank_sort_cls_code": {"0"},
		"fid_input_cnt_1":        {"0"},
		"fid_prc_cls_code":       {"0"},
		"fid_input_price_1":      {""},
		"fid_input_price_2":      {""},
		"fid_vol_cnt":            {""},
		"fid_trgt_cls_code":      {"0"},
		"fid_trgt_exls_cls_code": {"0"},
		"fid_div_cls_code":       {"0"},
		"fid_rsfl_rate1":         {""},
		"fid_rsfl_rate2":         {""},
	}
	return c.ranking(ctx, "/uapi/domestic-stock/v1/ranking/fluctuation", trFluctuation, query, limit)
}

// TopByMarketCap returns the largest stocks by market capitalisation.
func (c *Client) TopByMarketCap(ctx context.Context, limit int) ([]domain.RankedStock, error) {
	query := url.Values{
		"fid_cond_mrkt_div_code": {"J"},
		"fid_cond_scr_div_code":  {"20174"},
		"fid_div_cls_code":       {"0"},
		"fid_input_iscd":         {"0000"},
		"fid_trgt_cls_code":      {"0"},
		"fid_trgt_exls_cls_code": {"0"},
		"fid_input_price_1":      {""},
		"fid_input_price_2":      {""},
		"fid_vol_cnt":            {""},
	}
	return c.ranking(ctx, "/uapi/domestic-stock/v1/ranking/market-cap", trMarketCap, query, limit)
}

func (c *Client) ranking(ctx context.Context, path, trID string, query url.Values, limit int) ([]domain.RankedStock, error) {
	body, err := c.doRequest(ctx, http.MethodGet, path, trID, query, nil)
	if err != nil {
		return nil, fmt.Errorf("kis: ranking %s: %w", trID, err)
	}

	var resp rankingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("kis: decode ranking: %w", err)
	}
	if err := resp.err(); err != nil {
		return nil, err
	}

	rows := resp.Output
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	ranked := make([]domain.RankedStock, 0, len(rows))
	for _, row := range rows {
		if row.Code == "" {
			continue
		}
		ranked = append(ranked, domain.RankedStock{
			Code:       row.Code,
			Name:       row.Name,
			ChangeRate: atof(row.ChangeRate),
			Volume:     atoi(row.Volume),
		})
	}
	return ranked, nil
}
