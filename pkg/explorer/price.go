package explorer

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/rs/zerolog/log"
)

// BNBPriceUSD returns the current BNB/USD price. Binance first, CoinGecko as
// backup. 0 means "unavailable" and switches the analysis to no-USD mode.
func (c *Client) BNBPriceUSD(ctx context.Context) float64 {
	if p := c.binancePrice(ctx); p > 0 {
		log.Info().Float64("usd", p).Str("source", "binance").Msg("BNB price")
		return p
	}
	if p := c.coingeckoPrice(ctx); p > 0 {
		log.Info().Float64("usd", p).Str("source", "coingecko").Msg("BNB price")
		return p
	}
	log.Warn().Msg("BNB/USD price unavailable, amounts will be BNB-only")
	return 0
}

func (c *Client) binancePrice(ctx context.Context) float64 {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(c.binanceURL + "/api/v3/ticker/price?symbol=BNBUSDT")
	if err != nil || resp.StatusCode() != 200 {
		return 0
	}

	var ticker struct {
		Price string `json:"price"`
	}
	if json.Unmarshal(resp.Body(), &ticker) != nil {
		return 0
	}
	p, _ := strconv.ParseFloat(ticker.Price, 64)
	return p
}

func (c *Client) coingeckoPrice(ctx context.Context) float64 {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(c.coingeckoURL + "/api/v3/simple/price?ids=binancecoin&vs_currencies=usd")
	if err != nil || resp.StatusCode() != 200 {
		return 0
	}

	var body struct {
		Binancecoin struct {
			USD float64 `json:"usd"`
		} `json:"binancecoin"`
	}
	if json.Unmarshal(resp.Body(), &body) != nil {
		return 0
	}
	return body.Binancecoin.USD
}
