package engine

import (
	"context"

	"github.com/reeveops/reeve/internal/adapter"
	"github.com/reeveops/reeve/internal/condition"
	"github.com/reeveops/reeve/internal/config"
	"github.com/reeveops/reeve/internal/events"
	"github.com/reeveops/reeve/internal/facts"
	"github.com/reeveops/reeve/internal/logger"
	"github.com/reeveops/reeve/internal/model"
	"github.com/reeveops/reeve/internal/resolve"
)

// ExecutionContext contains runtime state shared across executor workers.
type ExecutionContext struct {
	Plan            *config.Plan
	DryRun          bool
	Verbose         bool
	ContinueOnError bool
	WorkerPool      chan struct{}
	Results         map[string]*model.ExecutionResult
	Logger          *logger.Logger
	Registry        *adapter.Registry
	Store           *resolve.SecureStore
	Facts           facts.Facts
	Conditions      *condition.Evaluator
	Events          *events.Bus
	JID             string
	Context         context.Context
}
