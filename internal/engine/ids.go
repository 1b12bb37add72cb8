package engine

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// IDSource hands out task ids that are unique and sort in creation order,
// even when several are minted within the same millisecond.
type IDSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewIDSource returns an IDSource backed by crypto/rand.
func NewIDSource() *IDSource {
	return &IDSource{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// TaskID returns "task-" followed by a ULID for t.
func (s *IDSource) TaskID(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return "task-" + ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

// ScanTaskID is the id of the task created from a scan detection. It is
// derived from the scan session, so one detection yields at most one task.
func ScanTaskID(sessionID, itemID string) string {
	return "task-shelfie-" + sessionID + "-" + itemID
}
