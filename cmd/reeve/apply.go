package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/reeveops/reeve/internal/adapter"
	"github.com/reeveops/reeve/internal/condition"
	"github.com/reeveops/reeve/internal/config"
	"github.com/reeveops/reeve/internal/engine"
	"github.com/reeveops/reeve/internal/events"
	"github.com/reeveops/reeve/internal/facts"
	"github.com/reeveops/reeve/internal/history"
	"github.com/reeveops/reeve/internal/logger"
	"github.com/reeveops/reeve/internal/model"
	"github.com/reeveops/reeve/internal/resolve"
	"github.com/reeveops/reeve/internal/returner"
	"github.com/reeveops/reeve/internal/tui"
)

type applyOptions struct {
	PlanPath       string
	StorePath      string
	DryRun         bool
	Verbose        bool
	NonInteractive bool
	HistoryDir     string
}

var applyCmdRunner = runApply

func newApplyCmd(registry *adapter.Registry, root *rootFlags) *cobra.Command {
	opts := applyOptions{}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a reeve plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DryRun = root.dryRun
			opts.Verbose = root.verbose
			opts.NonInteractive = !term.IsTerminal(int(os.Stdout.Fd()))

			if err := validatePlanPath(opts.PlanPath); err != nil {
				return err
			}

			return applyCmdRunner(registry, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.PlanPath, "plan", "p", "", "Path to plan file")
	cmd.Flags().StringVar(&opts.StorePath, "secure", "", "Path to a secure store file (overrides the plan's store)")
	cmd.Flags().StringVar(&opts.HistoryDir, "history-dir", defaultHistoryDir(), "Directory for the job history database")
	cmd.MarkFlagRequired("plan") //nolint:errcheck

	return cmd
}

func runApply(registry *adapter.Registry, opts applyOptions) error {
	plan, err := config.ParsePlan(opts.PlanPath)
	if err != nil {
		return err
	}
	if err := config.ValidatePlan(plan); err != nil {
		return err
	}
	if err := validateOpParams(registry, plan); err != nil {
		return err
	}

	effectiveDryRun := opts.DryRun || plan.Settings.DryRun
	effectiveVerbose := opts.Verbose || plan.Settings.Verbose

	level := "info"
	if effectiveVerbose {
		level = "debug"
	}

	log, err := logger.New(logger.Options{Level: level, HumanReadable: true})
	if err != nil {
		return err
	}

	store, err := loadPlanStore(opts.PlanPath, opts.StorePath, plan)
	if err != nil {
		return err
	}

	evaluator, err := condition.NewEvaluator()
	if err != nil {
		return err
	}

	graph, err := engine.BuildDAG(plan.Operations)
	if err != nil {
		return err
	}
	execPlan, err := engine.GeneratePlan(graph)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	parallel := plan.Settings.Parallel
	if parallel <= 0 {
		parallel = 4
	}

	bus := events.NewBus(log, 256)
	jid := model.NewJID(time.Now())

	execCtx := &engine.ExecutionContext{
		Plan:            plan,
		DryRun:          effectiveDryRun,
		Verbose:         effectiveVerbose,
		ContinueOnError: plan.Settings.ContinueOnError,
		WorkerPool:      make(chan struct{}, parallel),
		Results:         make(map[string]*model.ExecutionResult),
		Logger:          log,
		Registry:        registry,
		Store:           store,
		Facts:           facts.Collect().Merge(plan.Facts),
		Conditions:      evaluator,
		Events:          bus,
		JID:             jid,
		Context:         ctx,
	}

	modelState := tui.NewModel(plan, execPlan, opts.NonInteractive)
	interactive := !opts.NonInteractive

	var program *tea.Program
	var programErr error
	done := make(chan struct{})

	if interactive {
		program = tea.NewProgram(modelState)
		sub := bus.Subscribe(events.JobPrefix(jid), func(ev events.Event) {
			if msg := tuiMessage(ev); msg != nil {
				dispatchTuiMessage(true, program, nil, msg)
			}
		})
		defer bus.Unsubscribe(sub)

		go func() {
			_, programErr = program.Run()
			// Quitting the display before the run finishes aborts the run.
			cancel()
			close(done)
		}()
	}

	summary, execErr := engine.Run(execCtx)

	if interactive {
		program.Send(tea.QuitMsg{})
		<-done
		if programErr != nil {
			return programErr
		}
	} else if summary != nil {
		for _, res := range summary.Results {
			dispatchTuiMessage(false, nil, &modelState, tui.OpResultMsg{Result: res})
		}
		dispatchTuiMessage(false, nil, &modelState, tui.JobDoneMsg{Summary: summary})
		fmt.Fprintln(os.Stdout, modelState.View())
	}

	if summary != nil {
		recordRun(log, store, opts.HistoryDir, jid, plan.Name, effectiveDryRun, summary)
	}

	if execErr != nil {
		return execErr
	}
	if summary == nil {
		return nil
	}

	if code := summary.ExitCode(); code != 0 {
		os.Exit(code)
	}
	return nil
}

// recordRun persists the finished job and hands it to any configured
// returners. Neither failing is fatal to the run itself.
func recordRun(log *logger.Logger, store *resolve.SecureStore, historyDir, jid, planName string, dryRun bool, summary *model.RunSummary) {
	rec := history.NewRecord(jid, planName, dryRun, summary)

	hist, err := history.Open(historyDir, log)
	if err != nil {
		log.Error(err, "job history unavailable")
	} else {
		if err := hist.Save(rec); err != nil {
			log.Error(err, "failed to record job")
		}
		if err := hist.Close(); err != nil {
			log.Error(err, "failed to close job history")
		}
	}

	returners, err := returner.Configured(store, log)
	if err != nil {
		log.Error(err, "returner configuration invalid")
		return
	}

	// Delivery gets its own deadline so an aborted run still returns
	// whatever results it produced.
	retCtx, retCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer retCancel()

	if err := returners.ReturnAll(retCtx, rec); err != nil {
		log.Error(err, "returner delivery failed")
	}
	if err := returners.CloseAll(); err != nil {
		log.Error(err, "returner shutdown failed")
	}
}

// validateOpParams checks each operation's params against the schema its
// adapter publishes.
func validateOpParams(registry *adapter.Registry, plan *config.Plan) error {
	for _, op := range plan.Operations {
		impl, err := registry.Get(op.Adapter)
		if err != nil {
			return err
		}
		if err := config.ValidateParams(op.ID, impl.Schema(), op.Params); err != nil {
			return err
		}
	}
	return nil
}

// loadPlanStore opens the secure store the plan points at, or the one the
// --secure flag names. The flag path is taken as given; a plan-declared
// relative path resolves against the plan file's directory. Neither being
// set yields an empty store, so resolution falls through to adapter
// defaults.
func loadPlanStore(planPath, override string, plan *config.Plan) (*resolve.SecureStore, error) {
	path := override
	if path == "" {
		path = plan.Store.Path
		if path != "" && !filepath.IsAbs(path) {
			path = filepath.Join(filepath.Dir(planPath), path)
		}
	}
	if path == "" {
		return resolve.EmptyStore(), nil
	}

	identity := plan.Store.Identity
	if identity == "" {
		identity = os.Getenv("REEVE_AGE_IDENTITY")
	}

	var key *resolve.Key
	if identity != "" {
		key = &resolve.Key{IdentityFile: identity}
	} else if pass := os.Getenv("REEVE_AGE_PASSPHRASE"); pass != "" {
		key = &resolve.Key{Passphrase: pass}
	}

	return resolve.LoadStore(path, key)
}

// tuiMessage converts a job event into the display message it drives.
// Events that do not concern the display return nil.
func tuiMessage(ev events.Event) tea.Msg {
	if strings.HasSuffix(ev.Tag, "/start") {
		return tui.OpStartMsg{OpID: opIDFromTag(ev.Tag), Time: ev.Timestamp}
	}

	switch data := ev.Data.(type) {
	case *model.ExecutionResult:
		return tui.OpResultMsg{Result: data}
	case *model.RunSummary:
		return tui.JobDoneMsg{Summary: data}
	}
	return nil
}

// opIDFromTag extracts the operation id from a job/<jid>/op/<id>/... tag.
func opIDFromTag(tag string) string {
	parts := strings.Split(tag, "/")
	if len(parts) < 5 || parts[2] != "op" {
		return ""
	}
	return parts[3]
}

func dispatchTuiMessage(interactive bool, program *tea.Program, state *tui.Model, msg tea.Msg) {
	if interactive {
		if program != nil {
			program.Send(msg)
		}
		return
	}

	updated, _ := state.Update(msg)
	if m, ok := updated.(tui.Model); ok {
		*state = m
	}
}
