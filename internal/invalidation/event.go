// Package invalidation consumes external "source refreshed" events over
// Kafka and discards the corresponding catalog/feature-list snapshots,
// generalizing the teacher's internal/invalidation event+kafkaconsumer
// pair from spatial-cell invalidation to per-DRS-id discard.
package invalidation

import (
	"fmt"
	"strings"
	"time"
)

// Event is one upstream "source refreshed" notification: the named
// dataset's Redis record and feature-list snapshots are dropped by the
// consumer's Discarder; in-process memos, including the OPeNDAP dataset
// memo, are left as they are.
type Event struct {
	Version int       `json:"version"`
	DrsID   string    `json:"drs_id"`
	Reason  string    `json:"reason,omitempty"`
	TS      time.Time `json:"ts"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("invalidation: version must be 1")
	}
	if strings.TrimSpace(e.DrsID) == "" {
		return fmt.Errorf("invalidation: drs_id is required")
	}
	if e.TS.IsZero() {
		return fmt.Errorf("invalidation: ts is required")
	}
	return nil
}
