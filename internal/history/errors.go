package history

import (
	"fmt"
)

// ErrRecordNotFound is returned when no job record exists for a jid.
type ErrRecordNotFound struct {
	JID string
}

func (e ErrRecordNotFound) Error() string {
	return fmt.Sprintf("no job record for jid '%s'\nHint: run 'reeve history list' to see stored jobs", e.JID)
}

// ErrRecordCorrupt is returned when a stored record fails its checksum
// or no longer decodes.
type ErrRecordCorrupt struct {
	JID    string
	Reason string
}

func (e ErrRecordCorrupt) Error() string {
	return fmt.Sprintf("job record '%s' is corrupt: %s", e.JID, e.Reason)
}
