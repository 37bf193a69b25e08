package tui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reeveops/reeve/internal/config"
	"github.com/reeveops/reeve/internal/engine"
	"github.com/reeveops/reeve/internal/model"
)

func TestNewModelInitialisesState(t *testing.T) {
	plan := &config.Plan{Name: "edge"}
	execPlan := &engine.ExecutionPlan{Levels: []engine.ExecutionLevel{{OpIDs: []string{"svc", "bucket"}}}}
	m := NewModel(plan, execPlan, false)

	require.Equal(t, plan, m.plan)
	require.Equal(t, execPlan, m.execPlan)
	require.Equal(t, 2, m.TotalOps())
	require.Zero(t, m.CompletedOps())
	require.False(t, m.IsFinished())
	require.Equal(t, model.StatusPending, m.status["svc"])
	require.Equal(t, []string{"svc", "bucket"}, m.order)
}

func TestNewModelReadsPreviewSetting(t *testing.T) {
	plan := &config.Plan{Name: "edge", Settings: config.Settings{DryRun: true}}
	m := NewModel(plan, &engine.ExecutionPlan{}, false)
	require.True(t, m.dryRun)
}

func TestModelInitReturnsSpinnerTick(t *testing.T) {
	m := NewModel(&config.Plan{}, &engine.ExecutionPlan{}, false)
	require.NotNil(t, m.Init())
}

func TestModelTracksOpResults(t *testing.T) {
	execPlan := &engine.ExecutionPlan{Levels: []engine.ExecutionLevel{{OpIDs: []string{"svc"}}}}
	m := NewModel(&config.Plan{}, execPlan, false)

	updated, _ := m.Update(OpStartMsg{OpID: "svc", Time: time.Now()})
	m = updated.(Model)
	require.Equal(t, model.StatusRunning, m.status["svc"])

	res := model.NewSuccessResult("nginx", map[string]model.Change{
		"state": {Old: "stopped", New: "running"},
	}, "Start succeeded for nginx")
	res.OpID = "svc"

	updated, _ = m.Update(OpResultMsg{Result: res})
	m = updated.(Model)
	require.Equal(t, model.StatusChanged, m.status["svc"])
	require.Equal(t, 1, m.CompletedOps())
	require.True(t, m.IsFinished())
}

func TestModelStoresSummaryOnJobDone(t *testing.T) {
	m := NewModel(&config.Plan{}, &engine.ExecutionPlan{}, false)

	sum := &model.RunSummary{TotalOps: 3, Satisfied: 3}
	updated, _ := m.Update(JobDoneMsg{Summary: sum})
	m = updated.(Model)

	require.True(t, m.IsFinished())
	require.Equal(t, sum, m.Summary())
}
