package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reeveops/reeve/internal/history"
	"github.com/reeveops/reeve/internal/logger"
	"github.com/reeveops/reeve/internal/model"
)

func seedHistory(t *testing.T, dir string, started time.Time, dryRun bool) string {
	t.Helper()

	log, err := logger.New(logger.Options{Level: "error", HumanReadable: true})
	require.NoError(t, err)

	hist, err := history.Open(dir, log)
	require.NoError(t, err)

	res := model.NewSuccessResult("nginx", map[string]model.Change{
		"state": {Old: "stopped", New: "running"},
	}, "Start succeeded for nginx")
	res.OpID = "nginx"
	res.Adapter = "service"

	summary := &model.RunSummary{}
	summary.Add(res)
	summary.Duration = 1500 * time.Millisecond

	jid := model.NewJID(started)
	require.NoError(t, hist.Save(history.NewRecord(jid, "edge", dryRun, summary)))
	require.NoError(t, hist.Close())

	return jid
}

func runHistory(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newHistoryCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestHistoryListShowsRecordedJobs(t *testing.T) {
	dir := t.TempDir()
	jid := seedHistory(t, dir, time.Now(), false)

	out, err := runHistory(t, "list", "--dir", dir)
	require.NoError(t, err)
	require.Contains(t, out, jid)
	require.Contains(t, out, "edge")
	require.Contains(t, out, "drift")
}

func TestHistoryListMarksPreviewRuns(t *testing.T) {
	dir := t.TempDir()
	seedHistory(t, dir, time.Now(), true)

	out, err := runHistory(t, "list", "--dir", dir)
	require.NoError(t, err)
	require.Contains(t, out, "(preview)")
}

func TestHistoryListEmpty(t *testing.T) {
	out, err := runHistory(t, "list", "--dir", t.TempDir())
	require.NoError(t, err)
	require.Contains(t, out, "no jobs recorded")
}

func TestHistoryShowPrintsWireResults(t *testing.T) {
	dir := t.TempDir()
	jid := seedHistory(t, dir, time.Now(), false)

	out, err := runHistory(t, "show", jid, "--dir", dir)
	require.NoError(t, err)
	require.Contains(t, out, `"name": "nginx"`)
	require.Contains(t, out, `"result": true`)
	require.Contains(t, out, "Start succeeded for nginx")
}

func TestHistoryShowUnknownJID(t *testing.T) {
	_, err := runHistory(t, "show", "20990101000000000000", "--dir", t.TempDir())
	require.Error(t, err)
	require.Contains(t, err.Error(), "no job record")
}

func TestHistoryPruneDeletesOldRecords(t *testing.T) {
	dir := t.TempDir()
	old := seedHistory(t, dir, time.Now().Add(-48*time.Hour), false)

	out, err := runHistory(t, "prune", "--dir", dir, "--older-than", "24h")
	require.NoError(t, err)
	require.Contains(t, out, "pruned 1 job record(s)")

	out, err = runHistory(t, "list", "--dir", dir)
	require.NoError(t, err)
	require.NotContains(t, out, old)
}

func TestHistoryPruneKeepsRecentRecords(t *testing.T) {
	dir := t.TempDir()
	jid := seedHistory(t, dir, time.Now(), false)

	out, err := runHistory(t, "prune", "--dir", dir, "--older-than", "24h")
	require.NoError(t, err)
	require.Contains(t, out, "pruned 0 job record(s)")

	out, err = runHistory(t, "list", "--dir", dir)
	require.NoError(t, err)
	require.Contains(t, out, jid)
}
