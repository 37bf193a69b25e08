package engine

import (
	"fmt"

	"github.com/reeveops/reeve/internal/adapter"
	"github.com/reeveops/reeve/internal/model"
)

// Normalize converts a raw invocation outcome into the canonical result
// record. A successful outcome reports the diff the action was dispatched
// for; a failed one reports no changes at all, whatever the adapter claims.
func Normalize(outcome adapter.RawOutcome, diff map[string]model.Change, name, verb string) *model.ExecutionResult {
	if outcome.Success {
		return model.NewSuccessResult(name, diff, fmt.Sprintf("%s succeeded for %s", verb, name))
	}

	comment := fmt.Sprintf("%s failed for %s", verb, name)
	if detail := outcome.Message(); detail != "" {
		comment = fmt.Sprintf("%s: %s", comment, detail)
	}
	return model.NewFailureResult(name, comment)
}
