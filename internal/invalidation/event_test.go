package invalidation

import (
	"testing"
	"time"
)

func TestEvent_ValidateRequiresDrsIDAndTimestamp(t *testing.T) {
	ev := Event{Version: 1, DrsID: "esacci.SST.day.L4.x.y.z.w.1-0.r1", TS: time.Now()}
	if err := ev.Validate(); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}

	missingDrsID := ev
	missingDrsID.DrsID = ""
	if err := missingDrsID.Validate(); err == nil {
		t.Fatalf("expected error for missing drs_id")
	}

	missingTS := ev
	missingTS.TS = time.Time{}
	if err := missingTS.Validate(); err == nil {
		t.Fatalf("expected error for missing ts")
	}

	badVersion := ev
	badVersion.Version = 2
	if err := badVersion.Validate(); err == nil {
		t.Fatalf("expected error for unsupported version")
	}
}
