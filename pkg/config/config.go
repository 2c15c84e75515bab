package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// Distinguished system addresses excluded from all accounting.
var ExcludedAddresses = map[string]bool{
	"0x0000000000000000000000000000000000000000": true,
	"0x000000000000000000000000000000000000dead": true,
}

type Config struct {
	// Etherscan API V2 (chainid 56 = BNB Smart Chain)
	EtherscanAPIKey string
	EtherscanURL    string
	ChainID         string

	// Price APIs
	BinanceAPI   string
	CoinGeckoAPI string

	// Early-buyer window, offsets in seconds from token creation
	WindowStartSeconds int64
	WindowEndSeconds   int64

	// Addresses with more transactions than this are treated as bots
	BotTxThreshold int

	// Optional flat per-token USD price, used when BNB flow valuation is
	// unavailable. 0 disables flat-price fallback.
	FlatPriceUSD float64

	// Explorer politeness
	ExplorerRateLimit int // requests per second, shared across workers
	FlowWorkers       int // concurrent native-flow lookups

	// Result store
	DBPath    string
	ResultTTL time.Duration
	CSVPath   string

	// Optional cron schedule for periodic re-analysis (watch mode)
	AnalyzeCron string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		EtherscanAPIKey: os.Getenv("ETHERSCAN_API_KEY"),
		EtherscanURL:    envOr("ETHERSCAN_URL", "https://api.etherscan.io/v2/api"),
		ChainID:         envOr("CHAIN_ID", "56"),

		BinanceAPI:   envOr("BINANCE_API", "https://api.binance.com"),
		CoinGeckoAPI: envOr("COINGECKO_API", "https://api.coingecko.com"),

		WindowStartSeconds: int64(envInt("WINDOW_START_SECONDS", 0)),
		WindowEndSeconds:   int64(envInt("WINDOW_END_SECONDS", 180)),

		BotTxThreshold: envInt("BOT_TX_THRESHOLD", 100),
		FlatPriceUSD:   envFloat("FLAT_PRICE_USD", 0),

		ExplorerRateLimit: envInt("EXPLORER_RATE_LIMIT", 5),
		FlowWorkers:       envInt("FLOW_WORKERS", 4),

		DBPath:    envOr("DB_PATH", "memescan.db"),
		ResultTTL: time.Duration(envInt("RESULT_TTL_HOURS", 720)) * time.Hour,
		CSVPath:   os.Getenv("CSV_PATH"),

		AnalyzeCron: os.Getenv("ANALYZE_CRON"),
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.EtherscanAPIKey == "" {
		return fmt.Errorf("ETHERSCAN_API_KEY is required (register at https://etherscan.io/register)")
	}
	if c.WindowEndSeconds <= 0 {
		return fmt.Errorf("window end must be > 0 (got %d)", c.WindowEndSeconds)
	}
	if c.WindowStartSeconds >= c.WindowEndSeconds {
		return fmt.Errorf("window start (%d) must be before window end (%d)", c.WindowStartSeconds, c.WindowEndSeconds)
	}
	if c.BotTxThreshold < 0 {
		return fmt.Errorf("bot threshold must be >= 0 (got %d)", c.BotTxThreshold)
	}
	if c.FlatPriceUSD < 0 {
		return fmt.Errorf("flat price must be >= 0 (got %f)", c.FlatPriceUSD)
	}
	if c.ExplorerRateLimit <= 0 {
		c.ExplorerRateLimit = 5
	}
	if c.FlowWorkers <= 0 {
		c.FlowWorkers = 1
	}
	return nil
}

// ValidTokenAddress reports whether s looks like a BSC contract address.
func ValidTokenAddress(s string) bool {
	return common.IsHexAddress(strings.TrimSpace(s))
}

// NormalizeAddress lower-cases a 0x address the way the explorer returns them.
func NormalizeAddress(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
