package gekkoui

import (
	"fmt"
	"time"
)

// UiSyncStats counts what the UI instance synchronization did so far.
type UiSyncStats struct {
	Passes             int
	Instances          int
	Allocations        int
	Disposals          int
	AllocationFailures int
	LastPass           time.Duration
}

func (s *UiSyncStats) Reset() {
	*s = UiSyncStats{}
}

func (s *UiSyncStats) String() string {
	return fmt.Sprintf("ui sync: passes=%d instances=%d alloc=%d dispose=%d failed=%d last=%s",
		s.Passes, s.Instances, s.Allocations, s.Disposals, s.AllocationFailures, s.LastPass)
}
