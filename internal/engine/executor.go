package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/reeveops/reeve/internal/adapter"
	"github.com/reeveops/reeve/internal/config"
	"github.com/reeveops/reeve/internal/events"
	"github.com/reeveops/reeve/internal/model"
	"github.com/reeveops/reeve/internal/resolve"
	reeveerrors "github.com/reeveops/reeve/pkg/errors"
)

// Run builds the DAG for the context's plan, executes it level by level and
// returns the aggregated summary. Job lifecycle events are published when
// the context carries a bus.
func Run(execCtx *ExecutionContext) (*model.RunSummary, error) {
	if execCtx == nil || execCtx.Plan == nil {
		return nil, reeveerrors.NewInvocationError("", fmt.Errorf("execution context has no plan"))
	}

	graph, err := BuildDAG(execCtx.Plan.Operations)
	if err != nil {
		return nil, err
	}
	plan, err := GeneratePlan(graph)
	if err != nil {
		return nil, err
	}

	if execCtx.JID == "" {
		execCtx.JID = model.NewJID(time.Now())
	}

	start := time.Now()
	publish(execCtx, events.JobNewTag(execCtx.JID), map[string]any{
		"plan":    execCtx.Plan.Name,
		"ops":     len(graph.Nodes),
		"dry_run": execCtx.DryRun,
	})

	results, execErr := Execute(execCtx, plan)

	summary := &model.RunSummary{}
	for _, res := range results {
		summary.Add(res)
	}
	summary.Duration = time.Since(start)

	publish(execCtx, events.JobDoneTag(execCtx.JID), summary)

	return summary, execErr
}

// Execute runs the execution plan and returns operation results in plan
// order. The returned error reports the first operation failure (or a
// plumbing failure); per-operation outcomes are always carried by the
// results themselves.
func Execute(execCtx *ExecutionContext, plan *ExecutionPlan) ([]*model.ExecutionResult, error) {
	if execCtx == nil {
		return nil, reeveerrors.NewInvocationError("", fmt.Errorf("execution context is nil"))
	}
	if execCtx.Plan == nil {
		return nil, reeveerrors.NewInvocationError("", fmt.Errorf("execution context plan is nil"))
	}
	if plan == nil {
		return nil, reeveerrors.NewInvocationError("", fmt.Errorf("execution plan is nil"))
	}

	baseCtx := execCtx.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	defaultTimeout := time.Duration(execCtx.Plan.Settings.Timeout) * time.Second

	opLookup := config.OperationMap(execCtx.Plan.Operations)

	if execCtx.Results == nil {
		execCtx.Results = make(map[string]*model.ExecutionResult)
	}

	var resultsMu sync.Mutex
	var allResults []*model.ExecutionResult
	var firstErr error

	for _, level := range plan.Levels {
		levelResults := make([]*model.ExecutionResult, len(level.OpIDs))
		var levelErr error
		var once sync.Once
		var wg sync.WaitGroup

		for idx, opID := range level.OpIDs {
			op, ok := opLookup[opID]
			if !ok {
				return allResults, reeveerrors.NewInvocationError(opID, fmt.Errorf("operation not found"))
			}

			wg.Add(1)
			go func(idx int, op config.Operation) {
				defer wg.Done()

				publish(execCtx, events.OpStartTag(execCtx.JID, op.ID), map[string]any{
					"name":    op.Name,
					"adapter": op.Adapter,
				})

				res, err := executeOp(ctx, execCtx, &op, defaultTimeout)
				if res != nil {
					levelResults[idx] = res
					resultsMu.Lock()
					execCtx.Results[op.ID] = res
					resultsMu.Unlock()
					publish(execCtx, events.OpResultTag(execCtx.JID, op.ID), res)
				}

				if err != nil {
					once.Do(func() {
						levelErr = err
						if !execCtx.ContinueOnError {
							cancel()
						}
					})
				}
			}(idx, op)
		}

		wg.Wait()

		if levelErr != nil {
			for _, res := range levelResults {
				if res != nil {
					allResults = append(allResults, res)
				}
			}
			if firstErr == nil {
				firstErr = levelErr
			}
			if !execCtx.ContinueOnError {
				return allResults, levelErr
			}
			continue
		}

		for _, res := range levelResults {
			if res != nil {
				allResults = append(allResults, res)
			}
		}
	}

	return allResults, firstErr
}

// executeOp runs the full pipeline for one operation: resolve parameters,
// evaluate the condition, probe, check, invoke, normalize, and optionally
// verify.
func executeOp(ctx context.Context, execCtx *ExecutionContext, op *config.Operation, timeout time.Duration) (*model.ExecutionResult, error) {
	if ctx.Err() != nil {
		return nil, reeveerrors.NewInvocationError(op.ID, ctx.Err())
	}

	if op.Timeout > 0 {
		timeout = time.Duration(op.Timeout) * time.Second
	}

	opCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		opCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if execCtx.WorkerPool != nil {
		select {
		case execCtx.WorkerPool <- struct{}{}:
			defer func() { <-execCtx.WorkerPool }()
		case <-opCtx.Done():
			return timeoutResult(op, opCtx.Err())
		}
	}

	impl, err := execCtx.Registry.Get(op.Adapter)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	finish := func(res *model.ExecutionResult) *model.ExecutionResult {
		res.OpID = op.ID
		res.Adapter = op.Adapter
		res.Duration = time.Since(start)
		return res
	}

	params := resolve.Resolve(op.Params, op.Adapter, impl.Defaults(), execCtx.Store)

	req := &adapter.Request{
		OpID:    op.ID,
		Name:    op.Name,
		Absent:  op.WantsAbsent(),
		Desired: op.Desired,
		Params:  params,
	}

	if op.When != "" && execCtx.Conditions != nil {
		holds, err := execCtx.Conditions.Holds(op.When, execCtx.Facts, params)
		if err != nil {
			res := finish(model.NewFailureResult(op.Name, fmt.Sprintf("condition evaluation failed: %v", err)))
			return res, reeveerrors.NewValidationError(op.ID, "condition evaluation failed", err)
		}
		if !holds {
			res := finish(model.NewSuccessResult(op.Name, nil, "skipped: condition not met"))
			res.Skipped = true
			return res, nil
		}
	}

	if rv, ok := impl.(adapter.RequestValidator); ok {
		if err := rv.ValidateRequest(req); err != nil {
			res := finish(model.NewFailureResult(op.Name, fmt.Sprintf("invalid request: %v", err)))
			return res, reeveerrors.NewValidationError(op.ID, "invalid request", err)
		}
	}

	current, probeErr := impl.Probe(opCtx, req)
	if probeErr != nil {
		execCtx.Logger.WithFields(map[string]any{"op": op.ID, "error": probeErr.Error()}).Warn("probe failed")
		res := finish(model.NewFailureResult(op.Name, fmt.Sprintf("Failed to check %s existence", op.Name)))
		return res, reeveerrors.NewProbeError(op.Name, probeErr)
	}

	check := Check(op.Name, op.Desired, current, op.WantsAbsent(), execCtx.DryRun)

	switch check.Decision {
	case DecisionSatisfied:
		return finish(model.NewSuccessResult(op.Name, nil, fmt.Sprintf("%s already in desired state", op.Name))), nil

	case DecisionWouldChange:
		return finish(model.NewUnknownResult(op.Name, check.Diff, fmt.Sprintf("%s would be changed", op.Name))), nil
	}

	action := buildAction(op, current, req, check.Diff)
	outcome := impl.Invoke(opCtx, action)
	res := Normalize(outcome, check.Diff, op.Name, action.Verb())

	if res.Result == model.OutcomeFailure {
		invErr := outcome.Err
		if invErr == nil {
			invErr = errors.New(res.Comment())
		}
		return finish(res), reeveerrors.NewInvocationError(op.ID, invErr)
	}

	if op.EffectiveVerify(execCtx.Plan.Settings) {
		if verifyRes, err := verifyOp(opCtx, impl, op, req); verifyRes != nil {
			return finish(verifyRes), err
		}
		res.AppendComment(fmt.Sprintf("verified: %s in desired state", op.Name))
	}

	return finish(res), nil
}

// verifyOp re-probes after a successful invocation. It returns a non-nil
// result only when verification failed; persistent drift is a failure that
// claims no changes.
func verifyOp(ctx context.Context, impl adapter.Adapter, op *config.Operation, req *adapter.Request) (*model.ExecutionResult, error) {
	current, err := impl.Probe(ctx, req)
	if err != nil {
		res := model.NewFailureResult(op.Name, fmt.Sprintf("Failed to check %s existence", op.Name))
		return res, reeveerrors.NewProbeError(op.Name, err)
	}

	check := Check(op.Name, op.Desired, current, op.WantsAbsent(), false)
	if check.Decision == DecisionSatisfied {
		return nil, nil
	}

	res := model.NewFailureResult(op.Name, fmt.Sprintf("verification failed for %s: target still drifted", op.Name))
	return res, reeveerrors.NewInvocationError(op.ID, fmt.Errorf("verification failed for %s", op.Name))
}

// buildAction picks the verb for a drifted target: delete for absent
// targets, create for missing ones, the operation's custom verb when set,
// update otherwise.
func buildAction(op *config.Operation, current *adapter.State, req *adapter.Request, diff map[string]model.Change) adapter.Action {
	kind := adapter.ActionUpdate
	verb := ""

	switch {
	case op.WantsAbsent():
		kind = adapter.ActionDelete
	case current == nil || !current.Exists:
		kind = adapter.ActionCreate
	case op.Action != "":
		kind = adapter.ActionCustom
		verb = op.Action
	}

	return adapter.Action{Kind: kind, CustomVerb: verb, Req: req, Diff: diff}
}

func timeoutResult(op *config.Operation, err error) (*model.ExecutionResult, error) {
	if err == nil {
		err = context.DeadlineExceeded
	}
	res := model.NewFailureResult(op.Name, "timeout exceeded")
	res.OpID = op.ID
	res.Adapter = op.Adapter
	return res, reeveerrors.NewInvocationError(op.ID, err)
}

func publish(execCtx *ExecutionContext, tag string, data any) {
	if execCtx.Events == nil {
		return
	}
	execCtx.Events.Publish(tag, data)
}
