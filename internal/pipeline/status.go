package pipeline

import (
	"sync"
	"time"
)

// LastResult is the most recent successful classification.
type LastResult struct {
	DonationID int64  `json:"donation_id"`
	Category   string `json:"category"`
	ItemName   string `json:"item_name"`
}

// Snapshot is the published pipeline state, overwritten on every tick.
type Snapshot struct {
	State             string      `json:"state"`
	StatusText        string      `json:"status_text"`
	MotionArea        int         `json:"motion_area"`
	CooldownRemaining float64     `json:"cooldown_remaining"`
	CameraActive      bool        `json:"camera_active"`
	LastResult        *LastResult `json:"last_result"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// StatusPublisher holds the current snapshot behind a read/write lock:
// single writer (the tick loop), any number of concurrent readers.
type StatusPublisher struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewStatusPublisher() *StatusPublisher {
	return &StatusPublisher{
		snap: Snapshot{
			State:      "idle",
			StatusText: "Pipeline not started",
			UpdatedAt:  time.Now().UTC(),
		},
	}
}

func (p *StatusPublisher) Publish(snap Snapshot) {
	snap.UpdatedAt = time.Now().UTC()
	p.mu.Lock()
	p.snap = snap
	p.mu.Unlock()
}

func (p *StatusPublisher) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}
