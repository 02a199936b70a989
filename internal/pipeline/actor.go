package pipeline

import (
	"context"

	"crossbot/pkg/types"
)

// Actor is a stateful message transformer hosted by a Stage.
//
// Act consumes one envelope and returns zero or more new payloads; the
// stage stamps metadata onto them. The actor may read the envelope's
// payload and metadata but must not mutate them. Calls are strictly
// serialized by the owning stage, so actor state needs no locking.
//
// Actors never observe Shutdown; the stage intercepts it.
type Actor interface {
	Act(ctx context.Context, msg types.Msg) ([]types.MsgData, error)
}
