// providers.go defines the time and id capabilities stages depend on.
//
// Each stage holds its own provider instances, cloned at build time, so
// there is no cross-stage contention and tests can hand every stage a
// deterministic sequence.
package pipeline

import (
	"time"

	"github.com/google/uuid"

	"crossbot/pkg/types"
)

// TimeProvider supplies creation timestamps in unix microseconds.
// MockClock's successive calls strictly increase; SystemClock's need not
// (see SystemClock).
type TimeProvider interface {
	Now() types.AccurateTimestamp
	Clone() TimeProvider
}

// IDProvider supplies fresh message ids.
type IDProvider interface {
	NewRandom() types.MessageID
	Clone() IDProvider
}

// SystemClock reads the wall clock. It is not strictly monotonic: two calls
// within the same microsecond return the same value, and a backward step of
// the wall clock is passed through uncorrected.
type SystemClock struct{}

func (c SystemClock) Now() types.AccurateTimestamp {
	return types.AccurateTimestamp(time.Now().UnixMicro())
}

func (c SystemClock) Clone() TimeProvider { return c }

// RandomIDs produces random v4 UUIDs.
type RandomIDs struct{}

func (p RandomIDs) NewRandom() types.MessageID { return uuid.New() }

func (p RandomIDs) Clone() IDProvider { return p }
