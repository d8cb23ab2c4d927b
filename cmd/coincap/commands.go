package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/coincap-data/internal/config"
	"github.com/rickgao/coincap-data/internal/dashboard"
	"github.com/rickgao/coincap-data/internal/objstore"
	"github.com/rickgao/coincap-data/internal/pipeline"
	"github.com/rickgao/coincap-data/internal/version"
)

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "run the daily pipeline once and exit",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "memory",
			Usage: "write to an in-memory store instead of the bucket (dry run)",
		},
	},
	Action: func(c *cli.Context) error {
		e, err := setup(c, "pipeline")
		if err != nil {
			return err
		}

		var store objstore.Store
		if c.Bool("memory") {
			store = objstore.NewMemory()
		} else if store, err = e.openStore(c.Context); err != nil {
			return err
		}

		p, cleanup := e.buildPipeline(c.Context, e.cfg.Pipeline, store)
		defer cleanup()

		report, err := p.Run(c.Context)
		if err != nil {
			return err
		}
		printReport(report)
		if report.Status == pipeline.StatusFailed {
			return cli.Exit("pipeline run failed", 1)
		}
		return nil
	},
}

var scheduleCommand = &cli.Command{
	Name:  "schedule",
	Usage: "run the pipeline at every local midnight",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "serve",
			Usage: "also serve the dashboard from this process (disables dashboard_command)",
		},
	},
	Action: func(c *cli.Context) error {
		e, err := setup(c, "scheduler")
		if err != nil {
			return err
		}

		store, err := e.openStore(c.Context)
		if err != nil {
			return err
		}

		pc := e.cfg.Pipeline
		var (
			runStore objstore.Store = store
			dash     *dashboardStack
		)
		if c.Bool("serve") {
			if dash, err = e.buildDashboard(store, ""); err != nil {
				return err
			}
			defer dash.close()
			runStore = dash.store
			pc = servedPipeline(pc)
			e.logger.Info("serving dashboard in-process, launch step disabled")
		}

		p, cleanup := e.buildPipeline(c.Context, pc, runStore)
		defer cleanup()

		var runner pipeline.Runner = p
		if dash != nil {
			runner = reloadAfterRun{runner: p, loader: dash.loader}
		}

		sched := pipeline.NewScheduler(pipeline.SchedulerConfig{
			RunOnStart: pc.ShouldRunOnStart(),
		}, runner, e.logger)

		g, ctx := errgroup.WithContext(c.Context)

		g.Go(func() error {
			if err := sched.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()

			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return sched.Stop(stopCtx)
		})

		if dash != nil {
			g.Go(func() error {
				return dash.server.ListenAndServe(ctx)
			})
		}

		err = g.Wait()
		e.logger.Info("scheduler exited")
		return err
	},
}

var dashboardCommand = &cli.Command{
	Name:  "dashboard",
	Usage: "serve the dashboard over the clean objects",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "date",
			Usage: "serve a fixed run date (YYYY_MM_DD) instead of today",
		},
	},
	Action: func(c *cli.Context) error {
		e, err := setup(c, "dashboard")
		if err != nil {
			return err
		}

		store, err := e.openStore(c.Context)
		if err != nil {
			return err
		}

		dash, err := e.buildDashboard(store, c.String("date"))
		if err != nil {
			return err
		}
		defer dash.close()

		return dash.server.ListenAndServe(c.Context)
	},
}

var runsCommand = &cli.Command{
	Name:  "runs",
	Usage: "list recent runs from the ledger",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "limit",
			Value: 20,
			Usage: "number of runs to show",
		},
	},
	Action: func(c *cli.Context) error {
		e, err := setup(c, "ledger")
		if err != nil {
			return err
		}

		l, pool, err := e.openLedger(c.Context)
		if err != nil {
			return err
		}
		if l == nil {
			return cli.Exit("no ledger database configured", 1)
		}
		defer pool.Close()

		runs, err := l.RecentRuns(c.Context, c.Int("limit"))
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN ID\tDATE\tSTATUS\tSTARTED\tDURATION")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Date, r.Status,
				r.StartedAt.Local().Format(time.DateTime),
				r.Duration().Round(time.Millisecond),
			)
		}
		return w.Flush()
	},
}

var versionCommand = &cli.Command{
	Name:  "version",
	Usage: "print build information",
	Action: func(c *cli.Context) error {
		fmt.Println(version.String())
		return nil
	},
}

// buildPipeline wires store, the API client and the optional ledger into a
// pipeline. cleanup releases the ledger pool.
func (e *env) buildPipeline(ctx context.Context, pc config.PipelineConfig, store objstore.Store) (*pipeline.Pipeline, func()) {
	client := e.newClient()
	e.preflight(ctx, client)

	var recorder pipeline.Recorder
	cleanup := func() {}
	l, pool, err := e.openLedger(ctx)
	if err != nil {
		// Runs proceed without a ledger.
		e.logger.Error("run ledger unavailable", "error", err)
	} else if l != nil {
		recorder = l
		cleanup = pool.Close
	}

	p := pipeline.New(pipeline.Config{
		Retries:    pc.Retries,
		RetryDelay: pc.RetryDelay,
		RunTimeout: pc.RunTimeout,
	}, pipeline.DailySteps(pc, client, store, e.logger), recorder, e.logger)

	return p, cleanup
}

// dashboardStack is a dashboard server and what it reads through.
type dashboardStack struct {
	store  objstore.Store // store wrapped by the cache, when one is configured
	loader *dashboard.Loader
	server *dashboard.Server
	close  func()
}

// buildDashboard creates the dashboard server over store. A non-empty date
// pins the loader to that run date.
func (e *env) buildDashboard(store objstore.Store, date string) (*dashboardStack, error) {
	read, cached, closeCache := e.dashboardStore(store)

	loader := dashboard.NewLoader(read, e.cfg.Dashboard.MarketsCurrency, e.logger)
	if date != "" {
		loader.PinDate(date)
	}

	srv, err := dashboard.NewServer(e.cfg.Dashboard, loader, e.logger)
	if err != nil {
		closeCache()
		return nil, fmt.Errorf("create dashboard: %w", err)
	}
	if cached != nil {
		srv.AddCheck("cache", cached)
	}

	return &dashboardStack{store: read, loader: loader, server: srv, close: closeCache}, nil
}

// servedPipeline returns pc for a process that also serves the dashboard.
// The server already holds the listen address, so nothing is launched.
func servedPipeline(pc config.PipelineConfig) config.PipelineConfig {
	pc.DashboardCommand = nil
	return pc
}

// reloadAfterRun makes an in-process dashboard reread the clean objects a
// run has just written.
type reloadAfterRun struct {
	runner pipeline.Runner
	loader *dashboard.Loader
}

func (r reloadAfterRun) Run(ctx context.Context) (*pipeline.RunReport, error) {
	report, err := r.runner.Run(ctx)
	if err == nil {
		r.loader.Reset()
	}
	return report, err
}

func printReport(r *pipeline.RunReport) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "run %s (%s): %s in %s\n", r.Run.ID, r.Run.Date, r.Status,
		r.FinishedAt.Sub(r.Run.StartedAt).Round(time.Millisecond))
	fmt.Fprintln(w, "TASK\tSTATUS\tATTEMPTS\tDETAIL")
	for _, t := range r.Tasks {
		detail := t.Result.Message
		if t.Result.Err != nil {
			detail = t.Result.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", t.Task, t.Result.Status, t.Attempts, detail)
	}
	w.Flush()
}
