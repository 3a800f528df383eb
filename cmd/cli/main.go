package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"grid-arbitrage/internal/analysis"
	"grid-arbitrage/internal/arbitrage"
	"grid-arbitrage/internal/config"
	"grid-arbitrage/internal/logging"
	"grid-arbitrage/internal/model"
	"grid-arbitrage/internal/report"
	"grid-arbitrage/internal/scenario"
	"grid-arbitrage/internal/store"

	"github.com/rs/zerolog/log"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		cmdRun(os.Args[2:])
	case "rank":
		cmdRank(os.Args[2:])
	case "stats":
		cmdStats(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli run --config examples/config.yaml [--out results/ledger.csv] [--save]")
	fmt.Println("  cli rank --scenarios examples/scenarios")
	fmt.Println("  cli stats --config examples/config.yaml")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - run solves the scenario and prints the per-period income ledger")
	fmt.Println("  - rank solves every scenario file and orders them by total income")
	fmt.Println("  - stats summarizes the two price series without solving")
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	outPath := fs.String("out", "", "Optional: write the ledger CSV here")
	save := fs.Bool("save", false, "Record the run in the SQLite store (storage.dsn)")
	_ = fs.Parse(args)

	cfg := mustConfig(*cfgPath)
	sc, err := cfg.Scenario.Build()
	if err != nil {
		log.Fatal().Err(err).Msg("cli: build scenario")
	}

	engine := arbitrage.New(arbitrage.WithIdleTolerance(cfg.Income.IdleTolerance))
	res, err := engine.Run(sc)
	if err != nil {
		log.Fatal().Err(err).Str("scenario", sc.Name).Msg("cli: run failed")
	}

	report.Ledger(os.Stdout, res)

	if *outPath != "" {
		if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
			log.Fatal().Err(err).Msg("cli: create output dir")
		}
		if err := arbitrage.WriteLedgerCSV(*outPath, res); err != nil {
			log.Fatal().Err(err).Msg("cli: write ledger")
		}
		fmt.Printf("\nWrote %d rows to %s\n", len(res.Ledger), *outPath)
	}

	if *save {
		if err := saveRun(context.Background(), cfg.Storage.DSN, res); err != nil {
			log.Fatal().Err(err).Str("dsn", cfg.Storage.DSN).Msg("cli: save run")
		}
		fmt.Printf("Saved run %s to %s\n", res.RunID, cfg.Storage.DSN)
	}
}

// saveRun records res in the store at dsn. The store is closed before it
// returns, on success and on failure.
func saveRun(ctx context.Context, dsn string, res *arbitrage.Result) (err error) {
	db, err := store.New(dsn)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close store: %w", cerr)
		}
	}()
	return db.SaveRun(ctx, res)
}

func cmdRank(args []string) {
	fs := flag.NewFlagSet("rank", flag.ExitOnError)
	paths := fs.String("scenarios", "examples/scenarios", "Comma-separated scenario YAML paths or a directory")
	logLevel := fs.String("log-level", "warn", "Log level")
	_ = fs.Parse(args)

	setupLogging(*logLevel)

	files, err := expandPaths(splitPaths(*paths))
	if err != nil {
		log.Fatal().Err(err).Msg("cli: list scenarios")
	}

	engine := arbitrage.New()
	summaries := make([]arbitrage.Summary, 0, len(files))
	for _, f := range files {
		sc, err := loadScenario(f)
		if err != nil {
			log.Fatal().Err(err).Str("file", f).Msg("cli: load scenario")
		}
		res, err := engine.Run(sc)
		if err != nil {
			log.Fatal().Err(err).Str("file", f).Msg("cli: run failed")
		}
		summaries = append(summaries, res.Summary())
	}

	report.Ranking(os.Stdout, analysis.RankByIncome(summaries))
}

func cmdStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	_ = fs.Parse(args)

	cfg := mustConfig(*cfgPath)
	sc, err := cfg.Scenario.Build()
	if err != nil {
		log.Fatal().Err(err).Msg("cli: build scenario")
	}

	report.Stats(os.Stdout, analysis.RankByOracleProfit([]model.MarketChannel{sc.ChannelA, sc.ChannelB}))
	spread, err := analysis.CrossChannelSpread(sc.ChannelA, sc.ChannelB)
	if err != nil {
		log.Fatal().Err(err).Msg("cli: spread")
	}
	report.Spread(os.Stdout, spread)
}

func mustConfig(path string) *config.Config {
	if path == "" {
		fmt.Println("--config is required")
		os.Exit(2)
	}
	cfg, err := config.Load(path)
	if err != nil {
		setupLogging("info")
		log.Fatal().Err(err).Str("path", path).Msg("cli: load config")
	}
	if err := logging.Setup(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		log.Fatal().Err(err).Msg("cli: logging")
	}
	return cfg
}

func setupLogging(level string) {
	if err := logging.Setup(logging.Config{Level: level, Format: "console"}); err != nil {
		log.Fatal().Err(err).Msg("cli: logging")
	}
}

func loadScenario(path string) (*scenario.Scenario, error) {
	sc, err := config.LoadScenarioFile(path)
	if err != nil {
		return nil, err
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sc.Build()
}

func expandPaths(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
				continue
			}
			out = append(out, filepath.Join(p, e.Name()))
		}
	}
	return out, nil
}

func splitPaths(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
