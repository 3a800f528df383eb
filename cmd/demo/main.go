package main

import (
	"flag"
	"fmt"
	"os"

	"grid-arbitrage/internal/arbitrage"
	"grid-arbitrage/internal/logging"
	"grid-arbitrage/internal/report"
	"grid-arbitrage/internal/scenario"

	"github.com/rs/zerolog/log"
)

// Demo:
// - Build both reference scenarios with their default inputs
// - Solve each and print the per-period income ledger
// - Optionally write each ledger as CSV
func main() {
	outDir := flag.String("out", "", "Optional directory for <scenario>.csv ledgers (e.g. results)")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	if err := logging.Setup(logging.Config{Level: *logLevel, Format: "console"}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	engine := arbitrage.New()
	for _, build := range []func(scenario.Params) (*scenario.Scenario, error){scenario.SingleBus, scenario.ControlHub} {
		sc, err := build(scenario.Params{})
		if err != nil {
			log.Fatal().Err(err).Msg("demo: build scenario")
		}
		res, err := engine.Run(sc)
		if err != nil {
			log.Fatal().Err(err).Str("scenario", sc.Name).Msg("demo: run failed")
		}

		report.Ledger(os.Stdout, res)

		if *outDir != "" {
			if err := os.MkdirAll(*outDir, 0o755); err != nil {
				log.Fatal().Err(err).Msg("demo: create output dir")
			}
			path := fmt.Sprintf("%s/%s.csv", *outDir, sc.Name)
			if err := arbitrage.WriteLedgerCSV(path, res); err != nil {
				log.Fatal().Err(err).Msg("demo: write ledger")
			}
			fmt.Printf("\nWrote CSV: %s\n", path)
		}
	}
}
