package kis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/seojun-park/kisbot/internal/domain"
)

// SubmitOrder places a cash order. Limit orders carry the request price;
// market orders send a zero price as the API requires.
func (c *Client) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if req.Quantity <= 0 {
		return domain.OrderResult{}, fmt.Errorf("%w: order quantity must be positive", domain.ErrValidation)
	}

	trID := c.orderTrID(req.Side)
	price := req.Price
	if req.OrderType == domain.OrderTypeMarket {
		price = 0
	}

	payload := map[string]string{
		"CANO":         c.cano,
		"ACNT_PRDT_CD": c.acntPrdtCd,
		"PDNO":         req.Code,
		"ORD_DVSN":     req.OrderType,
		"ORD_QTY":      strconv.FormatInt(req.Quantity, 10),
		"ORD_UNPR":     strconv.FormatFloat(price, 'f', 0, 64),
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/uapi/domestic-stock/v1/trading/order-cash", trID, nil, payload)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("kis: order %s %s: %w", req.Side, req.Code, err)
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderResult{}, fmt.Errorf("kis: decode order response: %w", err)
	}
	if err := resp.err(); err != nil {
		return domain.OrderResult{}, err
	}
	return domain.OrderResult{OrderNo: resp.Output.OrderNo, Message: resp.Msg1}, nil
}

func (c *Client) orderTrID(side domain.OrderSide) string {
	if c.paper {
		if side == domain.OrderSideSell {
			return trOrderSellPaper
		}
		return trOrderBuyPaper
	}
	if side == domain.OrderSideSell {
		return trOrderSell
	}
	return trOrderBuy
}
