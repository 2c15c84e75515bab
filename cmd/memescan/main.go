package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/memescan/pkg/analyzer"
	"github.com/memescan/pkg/config"
	"github.com/memescan/pkg/db"
	"github.com/memescan/pkg/explorer"
	"github.com/memescan/pkg/export"
)

const maxTableRows = 30

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
	log.Info().Msg("🔥 memescan: BSC early buyer analyzer")

	tokenFlag := flag.String("token", "", "token contract address (overrides TOKEN_ADDRESS)")
	csvFlag := flag.String("csv", "", "buyer report CSV path (default early_buyers_<symbol>.csv)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	token := *tokenFlag
	if token == "" {
		token = os.Getenv("TOKEN_ADDRESS")
	}
	if token == "" && flag.NArg() > 0 {
		token = flag.Arg(0)
	}
	if !config.ValidTokenAddress(token) {
		log.Fatal().Str("token", token).Msg("invalid contract address, expected 0x + 40 hex chars")
	}
	if *csvFlag != "" {
		cfg.CSVPath = *csvFlag
	}

	store, err := db.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("database init failed")
	}
	defer store.Close()

	an := analyzer.New(cfg, explorer.New(cfg))
	an.SetProgress(logProgress{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() { <-sigCh; log.Info().Msg("shutting down..."); cancel() }()

	if cfg.AnalyzeCron != "" {
		runWatch(ctx, cfg, store, an, token)
		return
	}

	if err := runOnce(ctx, cfg, store, an, token); err != nil {
		log.Fatal().Err(err).Msg("analysis failed")
	}
}

// runWatch re-analyzes the token on the configured cron schedule and prunes
// stored runs past the retention window.
func runWatch(ctx context.Context, cfg *config.Config, store *db.Store, an *analyzer.Analyzer, token string) {
	c := cron.New()

	_, err := c.AddFunc(cfg.AnalyzeCron, func() {
		if err := runOnce(ctx, cfg, store, an, token); err != nil {
			log.Error().Err(err).Msg("scheduled analysis failed")
		}
		if n, err := store.PruneOlderThan(cfg.ResultTTL); err == nil && n > 0 {
			log.Info().Int64("pruned", n).Msg("old runs removed")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.AnalyzeCron).Msg("bad ANALYZE_CRON")
	}

	// first pass immediately, then on schedule
	if err := runOnce(ctx, cfg, store, an, token); err != nil {
		log.Error().Err(err).Msg("analysis failed")
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
}

func runOnce(ctx context.Context, cfg *config.Config, store *db.Store, an *analyzer.Analyzer, token string) error {
	start := time.Now()
	result, err := an.AnalyzeToken(ctx, token)
	if err != nil {
		return err
	}

	printResult(result, time.Since(start))

	if id, err := store.SaveRun(result); err != nil {
		log.Error().Err(err).Msg("could not persist run")
	} else {
		log.Info().Int64("run_id", id).Msg("💾 result stored")
	}

	path := cfg.CSVPath
	if path == "" {
		path = export.FileName(result.Token.Symbol)
	}
	if err := writeCSV(path, result); err != nil {
		log.Error().Err(err).Str("path", path).Msg("CSV export failed")
	} else {
		log.Info().Str("path", path).Msg("📄 CSV written")
	}
	return nil
}

func writeCSV(path string, result *analyzer.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return export.WriteCSV(f, result)
}

func printResult(r *analyzer.Result, elapsed time.Duration) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	fmt.Println()
	bold.Printf("  %s (%s) — early buyers %d..%ds after launch\n",
		r.Token.Name, r.Token.Symbol, r.WindowStart, r.WindowEnd)
	fmt.Printf("  launch %s · BNB $%.2f · %s\n",
		time.Unix(r.CreationTime, 0).UTC().Format("2006-01-02 15:04:05"),
		r.Token.BNBPriceUSD, elapsed.Round(time.Second))
	fmt.Printf("  buyers %d · holding %d (%.1f%%) · cleared %d (%.1f%%) · bots %d\n",
		r.Stats.TotalBuyers, r.Stats.HoldingBuyers, r.Stats.HoldingRatio,
		r.Stats.ClearedBuyers, r.Stats.ClearedRatio, r.Stats.Bots)
	if r.SkippedTx > 0 || r.SkippedRecords > 0 {
		fmt.Printf("  skipped: %d tx lookups, %d malformed records\n", r.SkippedTx, r.SkippedRecords)
	}
	fmt.Println()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Address", "First Buy", "BNB Spent", "BNB Recv", "Profit (USD)", "X", "Held", "Status"})
	table.SetBorder(false)

	for i, b := range r.Buyers {
		if i >= maxTableRows {
			fmt.Printf("  … %d more buyers (see CSV / stored run)\n", len(r.Buyers)-maxTableRows)
			break
		}
		status := green.Sprint("holding")
		if !b.IsHolding {
			status = red.Sprint("cleared")
		}
		if b.IsBot {
			status = "bot"
		}
		table.Append([]string{
			b.Address[:10] + "…",
			time.Unix(b.FirstBuyTime, 0).UTC().Format("15:04:05"),
			fmt.Sprintf("%.4f", b.BNBSpent),
			fmt.Sprintf("%.4f", b.BNBReceived),
			fmt.Sprintf("%.2f", b.TotalProfitUSD),
			fmt.Sprintf("%.2f", b.ProfitMultiple),
			b.HoldingTime,
			status,
		})
	}
	table.Render()
	fmt.Println()
}

// logProgress forwards pipeline progress to the console log.
type logProgress struct{}

func (logProgress) Report(stage string, percent int, message string) {
	log.Info().Str("stage", stage).Int("pct", percent).Msg(message)
}
