// Package repoadapter manages git working copies. The target name is the
// destination path; the desired attributes pin the remote URL and branch
// the checkout must track.
package repoadapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/reeveops/reeve/internal/adapter"
)

const defaultRemote = "origin"

// Params is the parameter schema for repo operations.
type Params struct {
	// Depth limits clone history when greater than zero.
	Depth int `yaml:"depth" validate:"omitempty,gte=0"`
	// Remote names the remote whose URL is compared against the desired
	// url attribute.
	Remote string `yaml:"remote"`
}

type repoAdapter struct{}

// New creates a repo adapter.
func New() adapter.Adapter {
	return &repoAdapter{}
}

var _ adapter.Adapter = (*repoAdapter)(nil)
var _ adapter.RequestValidator = (*repoAdapter)(nil)

func (a *repoAdapter) Metadata() adapter.Metadata {
	return adapter.Metadata{
		Name:        "repo",
		Version:     "1.1.0",
		APIVersion:  "1.x",
		Description: "Manages git working copies at a destination path.",
	}
}

func (a *repoAdapter) Defaults() map[string]any {
	return map[string]any{"remote": defaultRemote, "depth": 0}
}

func (a *repoAdapter) Schema() any {
	return Params{}
}

func (a *repoAdapter) ValidateRequest(req *adapter.Request) error {
	for key, value := range req.Desired {
		switch key {
		case "url", "branch":
			if s, ok := value.(string); !ok || s == "" {
				return fmt.Errorf("repo '%s': %s must be a non-empty string", req.Name, key)
			}
		default:
			return fmt.Errorf("repo '%s': unknown attribute '%s'", req.Name, key)
		}
	}
	if !req.Absent {
		if _, ok := req.Desired["url"]; !ok {
			return fmt.Errorf("repo '%s': desired 'url' is required", req.Name)
		}
	}
	return nil
}

// Probe inspects the destination path. A missing directory is a clean
// absent. A directory that exists but cannot be opened as a repository
// reports existence with no attributes, which surfaces as drift on every
// desired key.
func (a *repoAdapter) Probe(_ context.Context, req *adapter.Request) (*adapter.State, error) {
	if _, err := os.Stat(req.Name); err != nil {
		if os.IsNotExist(err) {
			return &adapter.State{Exists: false}, nil
		}
		return nil, fmt.Errorf("access destination '%s': %w", req.Name, err)
	}

	attrs := map[string]any{}
	state := &adapter.State{Exists: true, Attrs: attrs}

	if _, err := os.Stat(filepath.Join(req.Name, ".git")); err != nil {
		return state, nil
	}

	gitRepo, err := git.PlainOpen(req.Name)
	if err != nil {
		return state, nil
	}

	remoteName := req.StringParam("remote", defaultRemote)
	if remote, err := gitRepo.Remote(remoteName); err == nil && len(remote.Config().URLs) > 0 {
		attrs["url"] = remote.Config().URLs[0]
	}

	if head, err := gitRepo.Head(); err == nil {
		attrs["branch"] = head.Name().Short()
	}

	return state, nil
}

// Invoke converges the working copy. Creation clones; drift of any kind is
// resolved by removing the checkout and cloning fresh, so a half-converted
// directory never survives; absence removes the directory.
func (a *repoAdapter) Invoke(ctx context.Context, action adapter.Action) adapter.RawOutcome {
	req := action.Req

	switch action.Kind {
	case adapter.ActionDelete:
		if err := os.RemoveAll(req.Name); err != nil {
			return adapter.ErrorOutcome(fmt.Errorf("remove '%s': %w", req.Name, err))
		}
		return adapter.OKOutcome(nil)

	case adapter.ActionCreate, adapter.ActionUpdate:
		url, ok := req.Desired["url"].(string)
		if !ok || url == "" {
			return adapter.ErrorOutcome(fmt.Errorf("repo '%s': desired 'url' is required", req.Name))
		}

		if action.Kind == adapter.ActionUpdate {
			if err := os.RemoveAll(req.Name); err != nil {
				return adapter.ErrorOutcome(fmt.Errorf("remove drifted checkout '%s': %w", req.Name, err))
			}
		}

		if _, err := git.PlainCloneContext(ctx, req.Name, false, cloneOptions(req, url)); err != nil {
			return adapter.ErrorOutcome(fmt.Errorf("clone '%s' into '%s': %w", url, req.Name, err))
		}
		return adapter.OKOutcome(nil)

	default:
		return adapter.ErrorOutcome(fmt.Errorf("repo does not support verb '%s'", action.Verb()))
	}
}

func cloneOptions(req *adapter.Request, url string) *git.CloneOptions {
	opts := &git.CloneOptions{URL: url}

	if depth := intParam(req, "depth"); depth > 0 {
		opts.Depth = depth
	}
	if branch, ok := req.Desired["branch"].(string); ok && branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
		opts.SingleBranch = true
	}

	return opts
}

func intParam(req *adapter.Request, key string) int {
	switch v := req.Param(key, nil).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
