package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"go.uber.org/ratelimit"

	"github.com/memescan/pkg/config"
)

// Client talks to the Etherscan API V2 (multi-chain). All requests carry the
// configured chainid (56 = BNB Smart Chain) and are paced through a single
// rate limiter shared by every caller, workers included.
type Client struct {
	http    *resty.Client
	limiter ratelimit.Limiter

	baseURL string
	apiKey  string
	chainID string

	binanceURL   string
	coingeckoURL string
}

const transferPageSize = 10000

func New(cfg *config.Config) *Client {
	return &Client{
		http:         resty.New().SetTimeout(30 * time.Second),
		limiter:      ratelimit.New(cfg.ExplorerRateLimit),
		baseURL:      cfg.EtherscanURL,
		apiKey:       cfg.EtherscanAPIKey,
		chainID:      cfg.ChainID,
		binanceURL:   cfg.BinanceAPI,
		coingeckoURL: cfg.CoinGeckoAPI,
	}
}

// TokenTransfer is a raw tokentx record. Etherscan encodes every field as a
// string; normalization into typed events happens in the analyzer.
type TokenTransfer struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	From            string `json:"from"`
	ContractAddress string `json:"contractAddress"`
	To              string `json:"to"`
	Value           string `json:"value"`
	TokenName       string `json:"tokenName"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
}

// ProxyTransaction is the result of proxy/eth_getTransactionByHash.
// Value is hex-encoded wei.
type ProxyTransaction struct {
	Hash  string `json:"hash"`
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
}

// InternalTransfer is a txlistinternal record. Value is decimal wei.
type InternalTransfer struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (c *Client) call(ctx context.Context, params map[string]string) (*envelope, error) {
	c.limiter.Take()

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("chainid", c.chainID).
		SetQueryParam("apikey", c.apiKey).
		Get(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("etherscan request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("etherscan HTTP %d", resp.StatusCode())
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("etherscan unmarshal: %w", err)
	}
	return &env, nil
}

// noRecords reports the benign "nothing found" status Etherscan returns for
// empty result sets, which must not be treated as an upstream failure.
func noRecords(env *envelope) bool {
	return env.Status == "0" && strings.Contains(strings.ToLower(env.Message), "no transactions found")
}

// TokenTransfers fetches the complete transfer history of a token contract,
// ascending by time, walking pages of 10000 until a short page.
func (c *Client) TokenTransfers(ctx context.Context, contract string) ([]TokenTransfer, error) {
	var all []TokenTransfer

	for page := 1; ; page++ {
		env, err := c.call(ctx, map[string]string{
			"module":          "account",
			"action":          "tokentx",
			"contractaddress": contract,
			"startblock":      "0",
			"endblock":        "99999999",
			"page":            fmt.Sprint(page),
			"offset":          fmt.Sprint(transferPageSize),
			"sort":            "asc",
		})
		if err != nil {
			if len(all) > 0 {
				// keep what we have; a mid-pagination failure is not fatal
				log.Warn().Err(err).Int("page", page).Msg("transfer pagination aborted")
				break
			}
			return nil, err
		}

		if env.Status == "0" {
			if len(all) == 0 && !noRecords(env) {
				return nil, fmt.Errorf("etherscan error: %s", env.Message)
			}
			break
		}

		var transfers []TokenTransfer
		if err := json.Unmarshal(env.Result, &transfers); err != nil {
			// Etherscan reports some errors as a bare string in result
			var msg string
			if json.Unmarshal(env.Result, &msg) == nil && msg != "" {
				return nil, fmt.Errorf("etherscan error: %s", msg)
			}
			return nil, fmt.Errorf("etherscan transfers unmarshal: %w", err)
		}

		all = append(all, transfers...)
		log.Debug().Int("total", len(all)).Int("page", page).Msg("fetched transfers")

		if len(transfers) < transferPageSize {
			break
		}
	}

	return all, nil
}

// TransactionByHash resolves the top-level native value transfer of a
// transaction via the proxy module.
func (c *Client) TransactionByHash(ctx context.Context, hash string) (*ProxyTransaction, error) {
	env, err := c.call(ctx, map[string]string{
		"module": "proxy",
		"action": "eth_getTransactionByHash",
		"txhash": hash,
	})
	if err != nil {
		return nil, err
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return nil, fmt.Errorf("transaction %s not found", hash)
	}

	var tx ProxyTransaction
	if err := json.Unmarshal(env.Result, &tx); err != nil {
		return nil, fmt.Errorf("transaction unmarshal: %w", err)
	}
	return &tx, nil
}

// InternalTransfersByHash lists the internal native transfers of a single
// transaction. An empty list is normal for plain transfers.
func (c *Client) InternalTransfersByHash(ctx context.Context, hash string) ([]InternalTransfer, error) {
	env, err := c.call(ctx, map[string]string{
		"module": "account",
		"action": "txlistinternal",
		"txhash": hash,
		"sort":   "asc",
	})
	if err != nil {
		return nil, err
	}
	if env.Status != "1" {
		if noRecords(env) {
			return nil, nil
		}
		return nil, fmt.Errorf("etherscan error: %s", env.Message)
	}

	var txs []InternalTransfer
	if err := json.Unmarshal(env.Result, &txs); err != nil {
		return nil, fmt.Errorf("internal transfers unmarshal: %w", err)
	}
	return txs, nil
}
