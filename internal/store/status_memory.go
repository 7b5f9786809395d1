package store

import (
    "context"
    "sync"
)

// MemoryStatus is the in-process fallback used when no Redis URL is
// configured. Status survives only as long as the process.
type MemoryStatus struct {
    mu   sync.RWMutex
    jobs map[string]Status
}

func NewMemoryStatus() *MemoryStatus {
    return &MemoryStatus{jobs: map[string]Status{}}
}

// Set merges st into the stored entry the way the Redis store's HSet
// does: Status, Progress and Message are always written, Start, End and
// Metadata only when present.
func (s *MemoryStatus) Set(_ context.Context, jobID string, st Status) error {
    s.mu.Lock()
    cur := s.jobs[jobID]
    cur.Status = st.Status
    cur.Progress = st.Progress
    cur.Message = st.Message
    if st.Start != nil { cur.Start = st.Start }
    if st.End != nil { cur.End = st.End }
    if st.Metadata != nil { cur.Metadata = st.Metadata }
    s.jobs[jobID] = cur
    s.mu.Unlock()
    return nil
}

func (s *MemoryStatus) Get(_ context.Context, jobID string) (Status, bool, error) {
    s.mu.RLock()
    st, ok := s.jobs[jobID]
    s.mu.RUnlock()
    return st, ok, nil
}

func (s *MemoryStatus) Close() error { return nil }
