// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// winnertrade-ctl is a command-line tool for inspecting and controlling a
// running WinnerTrade backend.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wingedpig/winnertrade/internal/apierr"
	"github.com/wingedpig/winnertrade/internal/config"
	"github.com/wingedpig/winnertrade/internal/gateway"
	"github.com/wingedpig/winnertrade/internal/health"
	"github.com/wingedpig/winnertrade/pkg/client"
)

var (
	version    = "0.1.0"
	apiURL     = fmt.Sprintf("http://127.0.0.1:%d", config.DefaultPort)
	jsonOutput = false
	yamlOutput = false

	// API client instance
	apiClient *client.Client
)

func main() {
	if env := os.Getenv(config.EnvAPIURL); env != "" {
		apiURL = strings.TrimSuffix(env, "/")
	}

	// Parse global flags and filter them out
	var filteredArgs []string
	for _, arg := range os.Args[1:] {
		switch arg {
		case "-json":
			jsonOutput = true
		case "-yaml":
			yamlOutput = true
		default:
			filteredArgs = append(filteredArgs, arg)
		}
	}

	apiClient = client.New(apiURL, client.WithTimeout(15*time.Second))

	if len(filteredArgs) < 1 {
		printUsage()
		os.Exit(1)
	}

	cmd := filteredArgs[0]
	args := filteredArgs[1:]

	var err error
	switch cmd {
	case "status":
		err = cmdStatus(args)
	case "health":
		err = cmdHealth(args)
	case "config":
		err = cmdConfig(args)
	case "engine":
		err = cmdEngine(args)
	case "logs":
		err = cmdLogs(args)
	case "positions":
		err = cmdPositions(args)
	case "ticker":
		err = cmdTicker(args)
	case "signal":
		err = cmdSignal(args)
	case "version", "-v", "--version":
		fmt.Printf("winnertrade-ctl %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", apierr.Friendly(err))
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`winnertrade-ctl - Inspect and control a running WinnerTrade backend

Usage:
  winnertrade-ctl [-json|-yaml] <command> [arguments]

Global Flags:
  -json          Output in JSON format
  -yaml          Output in YAML format

Environment:
  %s    Base URL of the backend API (default: %s)

Commands:
  status                   Show backend, engine and account summary
  health                   Check that the backend answers

  config get               Show the stored configuration (secret masked)
  config path              Show the configuration file location
  config test [file]       Test exchange credentials of the stored (or given JSON) configuration

  engine status            Show whether the engine is running
  engine start [-interval N]  Start the engine (interval in seconds, 30-300)
  engine stop              Stop the engine

  logs <trades|signals|trailing> [-n N]  Show the last N log lines (default: 100)
  positions [symbol]       Show open positions
  ticker [symbol]          Show the latest price (default: BTC/USDT)
  signal                   Show the last signal

  version                  Show version
  help                     Show this help
`, config.EnvAPIURL, apiURL)
}

// printStructured outputs v as JSON or YAML when requested and reports
// whether it did.
func printStructured(v interface{}) bool {
	switch {
	case jsonOutput:
		out, _ := json.MarshalIndent(v, "", "  ")
		fmt.Println(string(out))
	case yamlOutput:
		out, _ := yaml.Marshal(toGeneric(v))
		fmt.Print(string(out))
	default:
		return false
	}
	return true
}

type statusReport struct {
	Backend string               `json:"backend"`
	URL     string               `json:"url"`
	Engine  *client.EngineStatus `json:"engine,omitempty"`
	Stats   *client.Stats        `json:"stats,omitempty"`
	Balance *client.Balance      `json:"balance,omitempty"`
}

func cmdStatus(args []string) error {
	ctx := context.Background()

	report := statusReport{Backend: "unreachable", URL: apiURL}
	if health.Probe(ctx, apiClient.HealthURL(), health.DefaultTimeout) {
		report.Backend = "ok"

		engine, err := apiClient.Engine.Status(ctx)
		if err != nil {
			return err
		}
		report.Engine = engine

		stats, err := apiClient.Dashboard.Stats(ctx)
		if err != nil {
			return err
		}
		report.Stats = stats

		// Balance needs exchange access; leave it out when that fails.
		if bal, err := apiClient.Dashboard.Balance(ctx); err == nil {
			report.Balance = bal
		}
	}

	if printStructured(report) {
		return nil
	}

	fmt.Printf("Backend:  %s (%s)\n", report.Backend, report.URL)
	if report.Engine == nil {
		return nil
	}
	fmt.Printf("Engine:   %s\n", engineText(report.Engine))
	if report.Balance != nil {
		fmt.Printf("Balance:  %s USDT\n", report.Balance.Balance.StringFixed(2))
	}
	s := report.Stats
	fmt.Printf("Trades:   %d (%d wins, %d losses, win rate %.1f%%)\n", s.TotalTrades, s.Wins, s.Losses, s.WinRate)
	fmt.Printf("PnL:      total %s, today %s (fees %s)\n", s.TotalPnL.StringFixed(2), s.DayPnL.StringFixed(2), s.TotalFees.StringFixed(2))
	fmt.Printf("R:        total %.2f, today %.2f\n", s.TotalR, s.DayR)
	if s.TradingDisabledToday {
		fmt.Println("Trading disabled for today (daily R limit reached)")
	}
	return nil
}

func engineText(e *client.EngineStatus) string {
	if !e.Running {
		return "stopped"
	}
	if e.IntervalSeconds != nil {
		return fmt.Sprintf("running (every %ds)", *e.IntervalSeconds)
	}
	return "running"
}

func cmdHealth(args []string) error {
	res := health.NewProber(apiClient.HealthURL(), health.DefaultTimeout).Check(context.Background())
	if printStructured(res) {
		return nil
	}
	if !res.OK {
		return fmt.Errorf("backend at %s is not answering", apiURL)
	}
	fmt.Println("ok")
	return nil
}

func cmdConfig(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: winnertrade-ctl config <get|path|test>")
	}

	ctx := context.Background()
	gw := gateway.New(apiClient.Config)

	switch args[0] {
	case "get":
		cfg, err := gw.Read(ctx)
		if err != nil {
			return err
		}
		if !printStructured(cfg) {
			out, _ := yaml.Marshal(toGeneric(cfg))
			fmt.Print(string(out))
		}
		return nil

	case "path":
		path, err := gw.Path(ctx)
		if err != nil {
			return err
		}
		if !printStructured(client.ConfigPath{ConfigPath: path}) {
			fmt.Println(path)
		}
		return nil

	case "test":
		var cfg *client.AppConfig
		if len(args) > 1 {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			cfg = &client.AppConfig{}
			if err := json.Unmarshal(data, cfg); err != nil {
				return fmt.Errorf("parse %s: %w", args[1], err)
			}
		} else {
			stored, err := gw.Read(ctx)
			if err != nil {
				return err
			}
			cfg = stored
		}

		res, err := gw.TestConnection(ctx, cfg)
		if err != nil {
			return fmt.Errorf("%s", apierr.FriendlyConnection(err))
		}
		if printStructured(res) {
			return nil
		}
		fmt.Println(res.Message)
		if res.Balance.Valid {
			fmt.Printf("Balance: %s USDT\n", res.Balance.Decimal.StringFixed(2))
		}
		return nil

	default:
		return fmt.Errorf("unknown config command: %s", args[0])
	}
}

// toGeneric round-trips v through JSON so YAML keys match the API field
// names.
func toGeneric(v interface{}) interface{} {
	raw, _ := json.Marshal(v)
	var generic interface{}
	json.Unmarshal(raw, &generic)
	return generic
}

func cmdEngine(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: winnertrade-ctl engine <status|start|stop>")
	}
	ctx := context.Background()

	switch args[0] {
	case "status":
		st, err := apiClient.Engine.Status(ctx)
		if err != nil {
			return err
		}
		if !printStructured(st) {
			fmt.Println(engineText(st))
		}
		return nil

	case "start":
		fs := flag.NewFlagSet("engine start", flag.ContinueOnError)
		interval := fs.Int("interval", client.DefaultEngineInterval, "Cycle interval in seconds (30-300)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		res, err := apiClient.Engine.Start(ctx, *interval)
		if err != nil {
			return err
		}
		if !printStructured(res) {
			fmt.Printf("Engine started (every %ds)\n", res.IntervalSeconds)
		}
		return nil

	case "stop":
		res, err := apiClient.Engine.Stop(ctx)
		if err != nil {
			return err
		}
		if !printStructured(res) {
			if res.Message != "" {
				fmt.Printf("Engine stopped (%s)\n", res.Message)
			} else {
				fmt.Println("Engine stopped")
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown engine command: %s", args[0])
	}
}

func cmdLogs(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: winnertrade-ctl logs <trades|signals|trailing> [-n N]")
	}
	kind := client.LogKind(args[0])

	fs := flag.NewFlagSet("logs", flag.ContinueOnError)
	n := fs.Int("n", client.DefaultLogLimit, "Number of lines")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	lines, err := apiClient.Dashboard.Logs(context.Background(), kind, *n)
	if err != nil {
		return err
	}
	if printStructured(lines) {
		return nil
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}

func cmdPositions(args []string) error {
	var symbol string
	if len(args) > 0 {
		symbol = args[0]
	}

	positions, err := apiClient.Dashboard.Positions(context.Background(), symbol)
	if err != nil {
		return err
	}
	if printStructured(positions) {
		return nil
	}
	if len(positions) == 0 {
		fmt.Println("No open positions")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tSIDE\tSIZE\tENTRY\tMARK\tUNREALIZED PNL")
	for _, p := range positions {
		fmt.Fprintf(w, "%s\t%s\t%g\t%s\t%s\t%s\n", p.Symbol, p.Side, p.Size,
			p.EntryPrice.String(), p.MarkPrice.String(), p.UnrealizedPnL.StringFixed(2))
	}
	return w.Flush()
}

func cmdTicker(args []string) error {
	symbol := "BTC/USDT"
	if len(args) > 0 {
		symbol = args[0]
	}

	t, err := apiClient.Dashboard.Ticker(context.Background(), symbol)
	if err != nil {
		return err
	}
	if !printStructured(t) {
		fmt.Printf("%s  last %s  bid %s  ask %s\n", symbol, t.Last, t.Bid, t.Ask)
	}
	return nil
}

func cmdSignal(args []string) error {
	sig, err := apiClient.Dashboard.LastSignal(context.Background())
	if err != nil {
		return err
	}
	if printStructured(sig) {
		return nil
	}
	if sig.Raw == nil {
		fmt.Println("No signal today")
		return nil
	}
	fmt.Println(*sig.Raw)
	return nil
}
