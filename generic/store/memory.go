// Package store provides RunStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/cashflow-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	runs       map[generic.RunID]generic.Run
	byContract map[generic.ContractID][]generic.RunID
}

func NewMemory() *Memory {
	return &Memory{
		runs:       make(map[generic.RunID]generic.Run),
		byContract: make(map[generic.ContractID][]generic.RunID),
	}
}

// SaveRun adds a run. Append-only.
func (m *Memory) SaveRun(_ context.Context, run generic.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[run.ID]; exists {
		return generic.ErrDuplicateRun
	}
	m.runs[run.ID] = run
	m.byContract[run.ContractID] = append(m.byContract[run.ContractID], run.ID)
	return nil
}

// GetRun returns a run by ID.
func (m *Memory) GetRun(_ context.Context, id generic.RunID) (generic.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return generic.Run{}, generic.ErrRunNotFound
	}
	return run, nil
}

// ListRuns returns the runs of one contract ordered by creation time.
func (m *Memory) ListRuns(_ context.Context, contractID generic.ContractID) ([]generic.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byContract[contractID]
	out := make([]generic.Run, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.runs[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

var _ generic.RunStore = (*Memory)(nil)
