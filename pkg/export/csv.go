package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/memescan/pkg/analyzer"
)

var csvHeader = []string{
	"address", "first_buy", "bnb_spent", "bnb_received", "bnb_profit",
	"total_profit_usd", "profit_multiple", "holding_time", "status",
	"buy_count", "sell_count", "is_bot",
}

// WriteCSV renders the buyer reports of a result as CSV. A UTF-8 BOM is
// written first so spreadsheet apps pick the right encoding.
func WriteCSV(w io.Writer, result *analyzer.Result) error {
	if _, err := w.Write([]byte("\xef\xbb\xbf")); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, b := range result.Buyers {
		status := "cleared"
		if b.IsHolding {
			status = "holding"
		}
		row := []string{
			b.Address,
			time.Unix(b.FirstBuyTime, 0).UTC().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.4f", b.BNBSpent),
			fmt.Sprintf("%.4f", b.BNBReceived),
			fmt.Sprintf("%.4f", b.BNBProfit),
			fmt.Sprintf("%.2f", b.TotalProfitUSD),
			fmt.Sprintf("%.2f", b.ProfitMultiple),
			b.HoldingTime,
			status,
			fmt.Sprint(b.BuyCount),
			fmt.Sprint(b.SellCount),
			fmt.Sprint(b.IsBot),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// FileName builds the export file name for a token symbol.
func FileName(symbol string) string {
	if symbol == "" || symbol == "Unknown" {
		symbol = "token"
	}
	return fmt.Sprintf("early_buyers_%s.csv", symbol)
}
