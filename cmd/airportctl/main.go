package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/i474232898/airport-weather/internal/app"
	"github.com/i474232898/airport-weather/internal/config"
	"github.com/i474232898/airport-weather/internal/observability"
)

var rt *app.Runtime

var rootCmd = &cobra.Command{
	Use:           "airportctl",
	Short:         "One-shot airport weather scrapes",
	Long:          `airportctl runs a single scrape against the KMA aviation pages and prints the result as JSON.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		// Logs go to stderr so stdout stays valid JSON.
		log := observability.NewLoggerTo(os.Stderr, cfg.LogLevel, cfg.LogFormat)
		rt, err = app.Build(cmd.Context(), cfg, log, observability.NewMetrics())
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if rt != nil {
			rt.Close()
		}
	},
}

var weatherCmd = &cobra.Command{
	Use:   "weather",
	Short: "Scrape observations, trends and advisories",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := rt.Service.Scrape(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(snap)
	},
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List airports covered by a weather advisory",
	RunE: func(cmd *cobra.Command, args []string) error {
		reports, err := rt.Service.SpecialReports(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(reports)
	},
}

var forecastCmd = &cobra.Command{
	Use:   "forecast ICAO",
	Short: "Print the detail forecast of one airport",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, err := rt.Service.Forecast(cmd.Context(), strings.ToUpper(args[0]))
		if err != nil {
			return err
		}
		return printJSON(days)
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Scrape once and write the result to history and the latest mirrors",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := rt.Service.Scrape(cmd.Context())
		if err != nil {
			return err
		}
		if err := rt.Syncer.Sync(cmd.Context(), snap, rt.Clock.Now()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "synced %d airports, %d special reports\n", len(snap.Airports), len(snap.SpecialReports))
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(weatherCmd, reportsCmd, forecastCmd, syncCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
