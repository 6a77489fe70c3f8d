package kis

import (
	"fmt"
	"strconv"
	"strings"
)

// envelope is the common response wrapper. rt_cd "0" means success.
type envelope struct {
	RtCd  string `json:"rt_cd"`
	MsgCd string `json:"msg_cd"`
	Msg1  string `json:"msg1"`
}

// err maps a non-zero rt_cd to an error.
func (e envelope) err() error {
	if e.RtCd == "0" {
		return nil
	}
	return fmt.Errorf("kis: api error %s: %s", e.MsgCd, strings.TrimSpace(e.Msg1))
}

// The API returns every number as a string; these helpers tolerate empty
// fields.

func atof(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func atoi(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

type quoteResponse struct {
	envelope
	Output struct {
		Price      string `json:"stck_prpr"`
		PrevClose  string `json:"prdy_clpr"`
		ChangeRate string `json:"prdy_ctrt"`
		Volume     string `json:"acml_vol"`
		High       string `json:"stck_hgpr"`
		Low        string `json:"stck_lwpr"`
		Open       string `json:"stck_oprc"`
	} `json:"output"`
}

type dailyChartResponse struct {
	envelope
	Output2 []struct {
		Date  string `json:"stck_bsop_date"`
		Close string `json:"stck_clpr"`
	} `json:"output2"`
}

type rankingResponse struct {
	envelope
	Output []rankingRow `json:"output"`
}

type rankingRow struct {
	Code       string `json:"mksc_shrn_iscd"`
	Name       string `json:"hts_kor_isnm"`
	ChangeRate string `json:"prdy_ctrt"`
	Volume     string `json:"acml_vol"`
}

type orderResponse struct {
	envelope
	Output struct {
		OrderNo string `json:"ODNO"`
	} `json:"output"`
}

type balanceResponse struct {
	envelope
	Output1 []struct {
		Code     string `json:"pdno"`
		Name     string `json:"prdt_name"`
		Quantity string `json:"hldg_qty"`
		AvgCost  string `json:"pchs_avg_pric"`
	} `json:"output1"`
	Output2 []struct {
		Cash string `json:"dnca_tot_amt"`
	} `json:"output2"`
}
