// Package adapters wires the built-in adapters into a registry.
package adapters

import (
	"github.com/reeveops/reeve/internal/adapter"
	asgadapter "github.com/reeveops/reeve/internal/adapters/asg"
	kvconfigadapter "github.com/reeveops/reeve/internal/adapters/kvconfig"
	repoadapter "github.com/reeveops/reeve/internal/adapters/repo"
	s3bucketadapter "github.com/reeveops/reeve/internal/adapters/s3bucket"
	serviceadapter "github.com/reeveops/reeve/internal/adapters/service"
)

// Register adds every built-in adapter to the registry and runs their
// initializers. Callers own the registry; nothing registers through
// package side effects.
func Register(reg *adapter.Registry) error {
	builtins := []adapter.Adapter{
		serviceadapter.New(),
		kvconfigadapter.New(),
		repoadapter.New(),
		asgadapter.New(),
		s3bucketadapter.New(),
	}

	for _, a := range builtins {
		if err := reg.Register(a); err != nil {
			return err
		}
	}

	return reg.InitializeAdapters()
}
