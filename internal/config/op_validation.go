package config

import (
	"fmt"
	"reflect"

	"gopkg.in/yaml.v3"

	reeveerrors "github.com/reeveops/reeve/pkg/errors"
)

// ValidateParams checks an operation's free-form params against the struct an
// adapter publishes via Schema(). It works by marshalling the params to YAML
// and unmarshalling onto a fresh instance of the schema type, so yaml tags on
// the schema drive field matching. A nil schema skips validation entirely.
func ValidateParams(opID string, schema any, params map[string]any) error {
	if schema == nil {
		return nil
	}

	target, ok := newSchemaInstance(schema)
	if !ok {
		return nil
	}

	data, err := yaml.Marshal(params)
	if err != nil {
		return reeveerrors.NewValidationError(opID, fmt.Sprintf("marshal params: %v", err), err)
	}

	if err := yaml.Unmarshal(data, target); err != nil {
		return reeveerrors.NewValidationError(opID, fmt.Sprintf("params do not match adapter schema: %v", err), err)
	}

	if err := validatorInstance().Struct(target); err != nil {
		return reeveerrors.NewValidationError(opID, fmt.Sprintf("invalid params: %v", err), err)
	}

	return nil
}

// newSchemaInstance returns a pointer to a zero value of the schema's struct
// type, suitable as an unmarshal target.
func newSchemaInstance(schema any) (any, bool) {
	t := reflect.TypeOf(schema)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, false
	}
	return reflect.New(t).Interface(), true
}
