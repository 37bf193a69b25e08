// Package serviceadapter manages init-system services through the
// manager's control binary (systemctl by default). It probes unit
// availability, activity and boot enablement, and converges targets by
// dispatching start/stop/enable/disable commands.
package serviceadapter

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/reeveops/reeve/internal/adapter"
)

const defaultManager = "systemctl"

// Params is the parameter schema for service operations.
type Params struct {
	// Manager is the service control binary. Anything with a
	// systemctl-compatible verb set works (systemctl, a wrapper script).
	Manager string `yaml:"manager"`
}

// runner executes one manager command and reports its combined output and
// exit code. A non-nil error means the command never ran at all.
type runner interface {
	run(ctx context.Context, name string, args ...string) (output string, exitCode int, err error)
}

type execRunner struct{}

func (execRunner) run(ctx context.Context, name string, args ...string) (string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(output), exitErr.ExitCode(), nil
		}
		return string(output), 0, err
	}
	return string(output), 0, nil
}

type serviceAdapter struct {
	run runner
}

// New creates a service adapter backed by the real command runner.
func New() adapter.Adapter {
	return &serviceAdapter{run: execRunner{}}
}

var _ adapter.Adapter = (*serviceAdapter)(nil)
var _ adapter.RequestValidator = (*serviceAdapter)(nil)

func (a *serviceAdapter) Metadata() adapter.Metadata {
	return adapter.Metadata{
		Name:        "service",
		Version:     "1.2.0",
		APIVersion:  "1.x",
		Description: "Manages init-system services: running state and boot enablement.",
	}
}

func (a *serviceAdapter) Defaults() map[string]any {
	return map[string]any{"manager": defaultManager}
}

func (a *serviceAdapter) Schema() any {
	return Params{}
}

// ValidateRequest rejects requests the manager cannot honor. Unit files are
// not removable through the control binary, so absent targets are refused;
// declare state: stopped instead.
func (a *serviceAdapter) ValidateRequest(req *adapter.Request) error {
	if req.Absent {
		return fmt.Errorf("service '%s': unit files cannot be removed; declare state: stopped and enabled: false instead", req.Name)
	}
	for key, value := range req.Desired {
		switch key {
		case "state":
			s, ok := value.(string)
			if !ok || (s != "running" && s != "stopped") {
				return fmt.Errorf("service '%s': state must be 'running' or 'stopped', got '%v'", req.Name, value)
			}
		case "enabled":
			if _, ok := value.(bool); !ok {
				return fmt.Errorf("service '%s': enabled must be a boolean, got '%v'", req.Name, value)
			}
		default:
			return fmt.Errorf("service '%s': unknown attribute '%s'", req.Name, key)
		}
	}
	return nil
}

// Probe reads the unit's availability, activity and enablement. A unit the
// manager does not know is a clean absent, not an error; only a manager
// that cannot be executed at all fails the probe.
func (a *serviceAdapter) Probe(ctx context.Context, req *adapter.Request) (*adapter.State, error) {
	manager := req.StringParam("manager", defaultManager)

	_, code, err := a.run.run(ctx, manager, "cat", req.Name)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", manager, err)
	}
	if code != 0 {
		return &adapter.State{Exists: false}, nil
	}

	_, code, err = a.run.run(ctx, manager, "is-active", req.Name)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", manager, err)
	}
	state := "stopped"
	if code == 0 {
		state = "running"
	}

	_, code, err = a.run.run(ctx, manager, "is-enabled", req.Name)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", manager, err)
	}
	enabled := code == 0

	return &adapter.State{
		Exists: true,
		Attrs:  map[string]any{"state": state, "enabled": enabled},
	}, nil
}

// Invoke converges the unit on its desired attributes. State drift maps to
// start/stop, enablement drift to enable/disable. Custom verbs (restart,
// reload) replace the state command but still converge enablement.
func (a *serviceAdapter) Invoke(ctx context.Context, action adapter.Action) adapter.RawOutcome {
	req := action.Req
	manager := req.StringParam("manager", defaultManager)

	var commands [][]string

	switch action.Kind {
	case adapter.ActionDelete:
		commands = append(commands, []string{"stop", req.Name}, []string{"disable", req.Name})

	case adapter.ActionCustom:
		commands = append(commands, []string{action.CustomVerb, req.Name})
		if cmd, ok := enablementCommand(action, req.Name); ok {
			commands = append(commands, cmd)
		}

	default:
		if _, drifted := action.Diff["state"]; drifted || action.Kind == adapter.ActionCreate {
			verb := "stop"
			if stateWanted(req) == "running" {
				verb = "start"
			}
			commands = append(commands, []string{verb, req.Name})
		}
		if cmd, ok := enablementCommand(action, req.Name); ok {
			commands = append(commands, cmd)
		}
	}

	if len(commands) == 0 {
		return adapter.OKOutcome(nil)
	}

	var lastOutput string
	for _, args := range commands {
		output, code, err := a.run.run(ctx, manager, args...)
		if err != nil {
			return adapter.ErrorOutcome(fmt.Errorf("run %s %s: %w", manager, strings.Join(args, " "), err))
		}
		if code != 0 {
			return adapter.RawOutcome{Success: false, Body: []byte(strings.TrimSpace(output)), StatusCode: code}
		}
		lastOutput = output
	}

	return adapter.OKOutcome([]byte(strings.TrimSpace(lastOutput)))
}

func stateWanted(req *adapter.Request) string {
	if s, ok := req.Desired["state"].(string); ok {
		return s
	}
	return "running"
}

func enablementCommand(action adapter.Action, name string) ([]string, bool) {
	change, drifted := action.Diff["enabled"]
	if !drifted && action.Kind != adapter.ActionCreate {
		return nil, false
	}
	want, ok := action.Req.Desired["enabled"].(bool)
	if !ok {
		if !drifted {
			return nil, false
		}
		want, ok = change.New.(bool)
		if !ok {
			return nil, false
		}
	}
	if want {
		return []string{"enable", name}, true
	}
	return []string{"disable", name}, true
}
