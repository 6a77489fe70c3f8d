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

// Balance fetches account cash and holdings.
func (c *Client) Balance(ctx context.Context) (domain.AccountBalance, error) {
	trID := trBalance
	if c.paper {
		trID = trBalancePaper
	}
	query := url.Values{
		"CANO":                  {c.cano},
		"ACNT_PRDT_CD":          {c.acntPrdtCd},
		"AFHR_FLPR_YN":          {"N"},
		"OFL_YN":                {""},
		"INQR_DVSN":             {"02"},
		"UNPR_DVSN":             {"01"},
		"FUND_STTL_ICLD_YN":     {"N"},
		"FNCG_AMT_AUTO_RDPT_YN": {"N"},
		"PRCS_DVSN":             {"00"},
		"CTX_AREA_FK100":        {""},
		"CTX_AREA_NK100":        {""},
	}
	body, err := c.doRequest(ctx, http.MethodGet, "/uapi/domestic-stock/v1/trading/inquire-balance", trID, query, nil)
	if err != nil {
		return domain.AccountBalance{}, fmt.Errorf("kis: balance: %w", err)
	}

	var resp balanceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.AccountBalance{}, fmt.Errorf("kis: decode balance: %w", err)
	}
	if err := resp.err(); err != nil {
		return domain.AccountBalance{}, err
	}

	bal := domain.AccountBalance{FetchedAt: time.Now().UTC()}
	if len(resp.Output2) > 0 {
		bal.Cash = atof(resp.Output2[0].Cash)
	}
	for _, row := range resp.Output1 {
		qty := atoi(row.Quantity)
		if qty == 0 {
			continue
		}
		bal.Holdings = append(bal.Holdings, domain.Holding{
			Code:     row.Code,
			Name:     row.Name,
			Quantity: qty,
			AvgCost:  atof(row.AvgCost),
		})
	}
	return bal, nil
}

// HoldingOf returns the holding for one stock, or ErrNotFound when the
// account does not hold it.
func (c *Client) HoldingOf(ctx context.Context, code string) (domain.Holding, error) {
	bal, err := c.Balance(ctx)
	if err != nil {
		return domain.Holding{}, err
	}
	for _, h := range bal.Holdings {
		if h.Code == code {
			return h, nil
		}
	}
	return domain.Holding{}, fmt.Errorf("kis: holding %s: %w", code, domain.ErrNotFound)
}
