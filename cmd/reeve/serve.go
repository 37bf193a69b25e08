package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/reeveops/reeve/internal/adapter"
	"github.com/reeveops/reeve/internal/condition"
	"github.com/reeveops/reeve/internal/config"
	"github.com/reeveops/reeve/internal/engine"
	"github.com/reeveops/reeve/internal/events"
	"github.com/reeveops/reeve/internal/facts"
	"github.com/reeveops/reeve/internal/history"
	"github.com/reeveops/reeve/internal/logger"
	"github.com/reeveops/reeve/internal/metrics"
	"github.com/reeveops/reeve/internal/model"
	"github.com/reeveops/reeve/internal/resolve"
	"github.com/reeveops/reeve/internal/returner"
	"github.com/reeveops/reeve/internal/server"
	"github.com/reeveops/reeve/internal/telemetry"
)

type serveOptions struct {
	PlanPath      string
	StorePath     string
	Addr          string
	Watch         bool
	HistoryDir    string
	TokenLifetime time.Duration
	Verbose       bool
}

var serveCmdRunner = runServe

func newServeCmd(registry *adapter.Registry, root *rootFlags) *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the plan over an authenticated HTTP API",
		Long: `Serve starts an HTTP front-end for one plan: authenticated job submission,
job history, a live event stream over websocket, health and metrics. With
--watch the plan file is re-applied whenever it changes on disk.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Verbose = root.verbose

			if err := validatePlanPath(opts.PlanPath); err != nil {
				return err
			}

			return serveCmdRunner(registry, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.PlanPath, "plan", "p", "", "Path to plan file")
	cmd.Flags().StringVar(&opts.StorePath, "secure", "", "Path to a secure store file (overrides the plan's store)")
	cmd.Flags().StringVar(&opts.Addr, "addr", ":8000", "Listen address")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Re-apply the plan when the file changes")
	cmd.Flags().StringVar(&opts.HistoryDir, "history-dir", defaultHistoryDir(), "Directory for the job history database")
	cmd.Flags().DurationVar(&opts.TokenLifetime, "token-lifetime", 12*time.Hour, "Lifetime of issued API tokens")
	cmd.MarkFlagRequired("plan") //nolint:errcheck

	return cmd
}

func runServe(registry *adapter.Registry, opts serveOptions) error {
	level := "info"
	if opts.Verbose {
		level = "debug"
	}

	log, err := logger.New(logger.Options{Level: level, HumanReadable: true})
	if err != nil {
		return err
	}

	runner := &planRunner{
		registry: registry,
		planPath: opts.PlanPath,
		log:      log,
	}

	plan, err := runner.prepare()
	if err != nil {
		return err
	}

	store, err := loadPlanStore(opts.PlanPath, opts.StorePath, plan)
	if err != nil {
		return err
	}

	auth, err := server.NewAuthenticator(store, opts.TokenLifetime)
	if err != nil {
		return err
	}

	hist, err := history.Open(opts.HistoryDir, log)
	if err != nil {
		return err
	}
	defer hist.Close() //nolint:errcheck

	returners, err := returner.Configured(store, log)
	if err != nil {
		return err
	}
	defer returners.CloseAll() //nolint:errcheck

	evaluator, err := condition.NewEvaluator()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceVersion = version
	shutdownTracing, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Error(err, "failed to flush traces")
		}
	}()

	runner.store = store
	runner.facts = facts.Collect().Merge(plan.Facts)
	runner.conditions = evaluator
	runner.bus = events.NewBus(log, 256)
	runner.history = hist
	runner.returners = returners
	runner.metrics = metrics.New()
	runner.baseCtx = ctx

	srv, err := server.New(server.Options{
		Addr:    opts.Addr,
		Plan:    plan,
		Runner:  runner,
		History: hist,
		Events:  runner.bus,
		Metrics: runner.metrics,
		Auth:    auth,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	if opts.Watch {
		watcher := server.NewWatcher(opts.PlanPath, runner, log)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				log.Error(err, "plan watcher stopped")
			}
		}()
	}

	log.WithFields(map[string]any{
		"addr": opts.Addr,
		"plan": plan.Name,
	}).Info("reeve API listening")

	return srv.Run(ctx)
}

// planRunner launches runs of one plan file. Launches are single flight: a
// second submission while a job is in flight is refused rather than queued.
type planRunner struct {
	registry   *adapter.Registry
	planPath   string
	store      *resolve.SecureStore
	facts      facts.Facts
	conditions *condition.Evaluator
	bus        *events.Bus
	history    *history.Store
	returners  *returner.Registry
	metrics    *metrics.Metrics
	log        *logger.Logger
	baseCtx    context.Context

	mu      sync.Mutex
	running bool
}

// prepare re-reads the plan file and validates it. Re-reading on every
// launch is what makes --watch pick up edits.
func (r *planRunner) prepare() (*config.Plan, error) {
	plan, err := config.ParsePlan(r.planPath)
	if err != nil {
		return nil, err
	}
	if err := config.ValidatePlan(plan); err != nil {
		return nil, err
	}
	if err := validateOpParams(r.registry, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *planRunner) Launch(ctx context.Context, dryRun bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	plan, err := r.prepare()
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return "", fmt.Errorf("a job is already in flight")
	}
	r.running = true
	r.mu.Unlock()

	jid := model.NewJID(time.Now())
	go r.execute(jid, plan, dryRun)

	return jid, nil
}

// execute runs one job to completion on the server's base context, then
// records it. It owns clearing the single-flight latch.
func (r *planRunner) execute(jid string, plan *config.Plan, dryRun bool) {
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	parallel := plan.Settings.Parallel
	if parallel <= 0 {
		parallel = 4
	}

	execCtx := &engine.ExecutionContext{
		Plan:            plan,
		DryRun:          dryRun,
		ContinueOnError: plan.Settings.ContinueOnError,
		WorkerPool:      make(chan struct{}, parallel),
		Results:         make(map[string]*model.ExecutionResult),
		Logger:          r.log,
		Registry:        r.registry,
		Store:           r.store,
		Facts:           r.facts,
		Conditions:      r.conditions,
		Events:          r.bus,
		JID:             jid,
		Context:         r.baseCtx,
	}

	summary, err := engine.Run(execCtx)
	if err != nil {
		r.log.WithFields(map[string]any{"jid": jid}).Error(err, "job failed")
	}
	if summary == nil {
		return
	}

	rec := history.NewRecord(jid, plan.Name, dryRun, summary)
	if err := r.history.Save(rec); err != nil {
		r.log.Error(err, "failed to record job")
	}

	r.metrics.ObserveRun(plan.Name, dryRun, summary)
	for _, res := range summary.Results {
		r.metrics.ObserveOp(res)
	}

	retCtx, retCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer retCancel()
	if err := r.returners.ReturnAll(retCtx, rec); err != nil {
		r.log.Error(err, "returner delivery failed")
	}
}
