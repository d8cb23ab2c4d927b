// Command coincap runs the daily CoinCap ETL and serves its dashboard.
//
// Usage:
//
//	coincap --config configs/coincap.yaml run         # one run now
//	coincap --config configs/coincap.yaml schedule    # run every local midnight
//	coincap --config configs/coincap.yaml dashboard   # serve the dashboard
//	coincap --config configs/coincap.yaml runs        # list recorded runs
//	coincap version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/rickgao/coincap-data/internal/version"
)

const defaultConfigPath = "configs/coincap.yaml"

func main() {
	app := &cli.App{
		Name:    "coincap",
		Usage:   "daily CoinCap snapshot pipeline and dashboard",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   defaultConfigPath,
				Usage:   "path to config file",
				EnvVars: []string{"COINCAP_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			runCommand,
			scheduleCommand,
			dashboardCommand,
			runsCommand,
			versionCommand,
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
