package store

import "context"

// StatusStore is implemented by RedisStatus and MemoryStatus.
type StatusStore interface {
    Set(ctx context.Context, jobID string, st Status) error
    Get(ctx context.Context, jobID string) (Status, bool, error)
    Close() error
}

// Well-known status values.
const (
    StatusQueued    = "queued"
    StatusRunning   = "running"
    StatusDone      = "done"
    StatusFailed    = "failed"
    StatusCancelled = "cancelled"
)
