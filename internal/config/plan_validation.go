package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	reeveerrors "github.com/reeveops/reeve/pkg/errors"
)

// ValidatePlan performs structural and cross-field validation on an entire
// plan.
func ValidatePlan(plan *Plan) error {
	if plan == nil {
		return reeveerrors.NewValidationError("plan", "plan is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(plan); err != nil {
		return convertValidationError(err)
	}

	opIndex := make(map[string]int, len(plan.Operations))

	for i, op := range plan.Operations {
		if _, exists := opIndex[op.ID]; exists {
			return reeveerrors.NewValidationError(fieldForOp(i, "id"), fmt.Sprintf("duplicate operation id %q", op.ID), nil)
		}

		if err := ValidateOperation(op); err != nil {
			return err
		}

		opIndex[op.ID] = i
	}

	for i, op := range plan.Operations {
		for _, dep := range op.Requires {
			if _, ok := opIndex[dep]; !ok {
				return reeveerrors.NewValidationError(fieldForOp(i, "requires"), fmt.Sprintf("references unknown operation %q", dep), nil)
			}
			if dep == op.ID {
				return reeveerrors.NewValidationError(fieldForOp(i, "requires"), "operation cannot require itself", nil)
			}
		}
	}

	if cycle := detectCycle(plan.Operations); len(cycle) > 0 {
		return reeveerrors.NewValidationError("operations", fmt.Sprintf("dependency cycle detected: %s", strings.Join(cycle, " -> ")), nil)
	}

	return nil
}

// ValidateOperation validates a single operation independent of the rest of
// the plan.
func ValidateOperation(op Operation) error {
	v := validatorInstance()
	if err := v.Struct(op); err != nil {
		return convertValidationError(err)
	}

	if op.WantsAbsent() && len(op.Desired) > 0 {
		return reeveerrors.NewValidationError(op.ID, "desired attributes conflict with ensure: absent", nil)
	}
	if op.WantsAbsent() && op.Action != "" {
		return reeveerrors.NewValidationError(op.ID, "custom action conflicts with ensure: absent", nil)
	}

	return nil
}

func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return reeveerrors.NewValidationError(field, msg, err)
	}

	return reeveerrors.NewValidationError("plan", err.Error(), err)
}

func yamlishFieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	parts := strings.Split(ns, ".")
	var lowered []string
	for _, part := range parts {
		lowered = append(lowered, strings.ToLower(part))
	}
	return strings.Join(lowered, ".")
}

func fieldForOp(index int, field string) string {
	return fmt.Sprintf("operations[%d].%s", index, field)
}
