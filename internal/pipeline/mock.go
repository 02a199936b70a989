package pipeline

import (
	"encoding/binary"

	"crossbot/pkg/types"
)

// MockClock is a deterministic TimeProvider handing out 0, 1, 2, …
// microseconds. Clone copies the current counter, so two stages built from
// the same mock produce identical independent sequences.
type MockClock struct {
	counter uint64
}

func NewMockClock() *MockClock { return &MockClock{} }

func (m *MockClock) Now() types.AccurateTimestamp {
	now := m.counter
	m.counter++
	return now
}

func (m *MockClock) Clone() TimeProvider { return &MockClock{counter: m.counter} }

// MockIDs is a deterministic IDProvider handing out SeqID(0), SeqID(1), …
type MockIDs struct {
	counter uint64
}

func NewMockIDs() *MockIDs { return &MockIDs{} }

func (m *MockIDs) NewRandom() types.MessageID {
	id := SeqID(m.counter)
	m.counter++
	return id
}

func (m *MockIDs) Clone() IDProvider { return &MockIDs{counter: m.counter} }

// SeqID maps a counter value onto a MessageID, for asserting causal links
// in tests.
func SeqID(n uint64) types.MessageID {
	var id types.MessageID
	binary.BigEndian.PutUint64(id[8:], n)
	return id
}
