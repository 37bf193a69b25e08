package model

import (
	"fmt"
	"time"
)

const jidLayout = "20060102150405"

// NewJID derives a job identifier from the given instant: the UTC timestamp
// down to microseconds, digits only. JIDs sort lexicographically in
// chronological order, which keeps history stores naturally ordered.
func NewJID(t time.Time) string {
	u := t.UTC()
	return u.Format(jidLayout) + fmt.Sprintf("%06d", u.Nanosecond()/1000)
}

// ParseJID recovers the instant a JID was minted at.
func ParseJID(jid string) (time.Time, error) {
	if len(jid) != len(jidLayout)+6 {
		return time.Time{}, fmt.Errorf("malformed jid %q", jid)
	}

	base, err := time.ParseInLocation(jidLayout, jid[:len(jidLayout)], time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed jid %q: %w", jid, err)
	}

	var micros int
	if _, err := fmt.Sscanf(jid[len(jidLayout):], "%06d", &micros); err != nil {
		return time.Time{}, fmt.Errorf("malformed jid %q: %w", jid, err)
	}

	return base.Add(time.Duration(micros) * time.Microsecond), nil
}
