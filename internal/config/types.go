package config

import (
	"gopkg.in/yaml.v3"
)

// Plan represents the full reeve plan document.
type Plan struct {
	Version     string         `yaml:"version" validate:"required,semver"`
	Name        string         `yaml:"name" validate:"required,min=1,max=100"`
	Description string         `yaml:"description,omitempty"`
	Facts       map[string]any `yaml:"facts,omitempty"`
	Settings    Settings       `yaml:"settings,omitempty"`
	Store       StoreConfig    `yaml:"store,omitempty"`
	Operations  []Operation    `yaml:"operations" validate:"required,min=1,dive"`
}

// Settings holds global execution parameters.
type Settings struct {
	Parallel        int  `yaml:"parallel,omitempty" validate:"omitempty,min=1,max=32"`
	Timeout         int  `yaml:"timeout,omitempty" validate:"omitempty,min=1,max=360000"`
	ContinueOnError bool `yaml:"continue_on_error,omitempty"`
	DryRun          bool `yaml:"dry_run,omitempty"`
	Verbose         bool `yaml:"verbose,omitempty"`
	Verify          bool `yaml:"verify,omitempty"`
}

// StoreConfig points at the secure parameter store used during resolution.
type StoreConfig struct {
	Path     string `yaml:"path,omitempty"`
	Identity string `yaml:"identity,omitempty"`
}

// Operation describes an individual unit of enforcement in the DAG.
type Operation struct {
	ID      string `yaml:"id" validate:"required,op_id"`
	Name    string `yaml:"name,omitempty"`
	Adapter string `yaml:"adapter" validate:"required,oneof=service kvconfig repo asg s3bucket"`
	Ensure  string `yaml:"ensure,omitempty" validate:"omitempty,oneof=present absent"`

	// Action names a custom verb dispatched instead of create/update when
	// the target needs changing (restart, rotate).
	Action string `yaml:"action,omitempty"`

	// Desired holds the attribute values the target should converge on.
	Desired map[string]any `yaml:"desired,omitempty"`

	// Params holds explicit adapter parameters. Unset keys resolve through
	// the secure store and adapter defaults.
	Params map[string]any `yaml:"params,omitempty"`

	// When is a condition expression gating the operation.
	When string `yaml:"when,omitempty"`

	// Verify opts this operation in or out of the post-apply re-probe.
	// Unset inherits settings.verify.
	Verify *bool `yaml:"verify,omitempty"`

	Timeout  int      `yaml:"timeout,omitempty" validate:"omitempty,min=1,max=360000"`
	Requires []string `yaml:"requires,omitempty"`
	Enabled  bool     `yaml:"enabled,omitempty"`
}

// UnmarshalYAML customises operation decoding to apply defaults.
func (o *Operation) UnmarshalYAML(value *yaml.Node) error {
	type rawOperation struct {
		ID       string         `yaml:"id"`
		Name     string         `yaml:"name"`
		Adapter  string         `yaml:"adapter"`
		Ensure   string         `yaml:"ensure"`
		Action   string         `yaml:"action"`
		Desired  map[string]any `yaml:"desired"`
		Params   map[string]any `yaml:"params"`
		When     string         `yaml:"when"`
		Verify   *bool          `yaml:"verify"`
		Timeout  int            `yaml:"timeout"`
		Requires []string       `yaml:"requires"`
		Enabled  *bool          `yaml:"enabled"`
	}

	var raw rawOperation
	if err := value.Decode(&raw); err != nil {
		return err
	}

	o.ID = raw.ID
	o.Name = raw.Name
	o.Adapter = raw.Adapter
	o.Ensure = raw.Ensure
	o.Action = raw.Action
	o.Desired = raw.Desired
	o.Params = raw.Params
	o.When = raw.When
	o.Verify = raw.Verify
	o.Timeout = raw.Timeout
	o.Requires = append([]string(nil), raw.Requires...)

	if raw.Enabled != nil {
		o.Enabled = *raw.Enabled
	} else {
		o.Enabled = true
	}
	if o.Ensure == "" {
		o.Ensure = "present"
	}
	if o.Name == "" {
		o.Name = o.ID
	}
	return nil
}

// WantsAbsent reports whether the operation asks for target removal.
func (o *Operation) WantsAbsent() bool {
	return o.Ensure == "absent"
}

// EffectiveVerify resolves the operation's verify flag against the plan
// default.
func (o *Operation) EffectiveVerify(settings Settings) bool {
	if o.Verify != nil {
		return *o.Verify
	}
	return settings.Verify
}

// OperationMap builds a lookup table for operations by ID.
func OperationMap(ops []Operation) map[string]Operation {
	out := make(map[string]Operation, len(ops))
	for _, op := range ops {
		out[op.ID] = op
	}
	return out
}
