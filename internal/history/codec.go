package history

import (
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// recordVersion tags stored envelopes so the layout can evolve without
// guessing.
const recordVersion = 1

// envelope wraps a canonicalized record with its checksum. The record
// bytes are RFC 8785 canonical JSON, so two semantically equal records
// always carry the same checksum regardless of key order.
type envelope struct {
	Version  int             `json:"v"`
	Checksum string          `json:"sum"`
	Record   json.RawMessage `json:"record"`
}

func encodeRecord(rec *Record) ([]byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal job record: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize job record: %w", err)
	}
	return json.Marshal(envelope{
		Version:  recordVersion,
		Checksum: recordChecksum(canonical),
		Record:   canonical,
	})
}

// decodeRecord verifies and unpacks a stored envelope. The record
// bytes are re-canonicalized before checksum comparison, so a rewrite
// that only reorders keys is not treated as corruption.
func decodeRecord(jid string, data []byte) (*Record, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrRecordCorrupt{JID: jid, Reason: "envelope is not valid JSON"}
	}
	canonical, err := jcs.Transform(env.Record)
	if err != nil {
		return nil, ErrRecordCorrupt{JID: jid, Reason: "record is not valid JSON"}
	}
	if recordChecksum(canonical) != env.Checksum {
		return nil, ErrRecordCorrupt{JID: jid, Reason: "checksum mismatch"}
	}
	var rec Record
	if err := json.Unmarshal(env.Record, &rec); err != nil {
		return nil, ErrRecordCorrupt{JID: jid, Reason: "record does not decode"}
	}
	return &rec, nil
}
