// Command polyfolio-analyze runs the portfolio analysis pipeline for one
// account and exports the results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bobmcallan/polyfolio/internal/app"
	"github.com/bobmcallan/polyfolio/internal/models"
)

func main() {
	configPath := flag.String("config", os.Getenv("POLYFOLIO_CONFIG"), "config file path")
	wallet := flag.String("wallet", "", "account address to analyze (overrides config)")
	startDate := flag.String("start", "", "window start, YYYY-MM-DD (overrides config)")
	endDate := flag.String("end", "", "window end, YYYY-MM-DD, inclusive (overrides config)")
	flag.Parse()

	a, err := app.NewApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	address := *wallet
	if address == "" {
		address = a.Config.Wallet
	}
	if address == "" {
		a.Logger.Fatal().Msg("No wallet given: set -wallet or the wallet config key")
	}

	window, err := buildWindow(a, *startDate, *endDate)
	if err != nil {
		a.Logger.Fatal().Err(err).Msg("Invalid analysis window")
	}

	ctx := context.Background()
	report, err := a.AnalyzerService.Run(ctx, address, window)
	if err != nil {
		a.Logger.Fatal().Err(err).Str("wallet", address).Msg("Analysis failed")
	}

	files, err := a.ReportStore.SaveReport(report)
	if err != nil {
		a.Logger.Fatal().Err(err).Msg("Failed to save report")
	}

	if png, err := a.AnalyzerService.Chart(report); err != nil {
		a.Logger.Warn().Err(err).Msg("Skipping P&L chart")
	} else if name, err := a.ReportStore.SaveChart(report, png); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to save P&L chart")
	} else {
		files = append(files, name)
	}

	printSummary(report, files)
}

// buildWindow resolves the analysis window from flags, falling back to
// config. The end date is inclusive: it extends to the last second of
// that day.
func buildWindow(a *app.App, startFlag, endFlag string) (models.TimeWindow, error) {
	start, end, err := a.Config.Analyzer.Window()
	if err != nil {
		return models.TimeWindow{}, err
	}

	if startFlag != "" {
		start, err = time.Parse("2006-01-02", startFlag)
		if err != nil {
			return models.TimeWindow{}, fmt.Errorf("invalid -start %q: %w", startFlag, err)
		}
	}
	if endFlag != "" {
		end, err = time.Parse("2006-01-02", endFlag)
		if err != nil {
			return models.TimeWindow{}, fmt.Errorf("invalid -end %q: %w", endFlag, err)
		}
	}

	if !end.IsZero() {
		end = end.Add(24*time.Hour - time.Second)
	}
	return models.TimeWindow{Start: start, End: end}, nil
}

func printSummary(report *models.AnalysisReport, files []string) {
	p := report.Portfolio

	name := report.UserName
	if name == "" {
		name = report.Wallet
	}

	fmt.Printf("\nPortfolio analysis for %s\n", name)
	fmt.Printf("  Positions:       %d (%d closed, %d open)\n", len(report.Positions), p.ClosedCount, p.OpenCount)
	fmt.Printf("  Trades:          %d\n", len(report.Trades))
	fmt.Printf("  Realized P&L:    $%.2f\n", p.RealizedPnL)
	fmt.Printf("  Unrealized P&L:  $%.2f\n", p.UnrealizedPnL)
	fmt.Printf("  Total P&L:       $%.2f\n", p.TotalPnL)
	fmt.Printf("  Total invested:  $%.2f\n", p.TotalInvested)
	fmt.Printf("  Overall ROI:     %.2f%%\n", p.OverallROI)
	fmt.Printf("  Win rate:        %.2f%% (%d wins, %d losses)\n", p.WinRate, p.WinningCount, p.LosingCount)
	fmt.Printf("  Profit factor:   %.2f\n", p.ProfitFactor)
	fmt.Printf("  Capital at risk: $%.2f\n", p.CapitalAtRisk)

	fmt.Println("\nFiles written:")
	for _, f := range files {
		fmt.Printf("  %s\n", f)
	}
}
