// Package database handles the ledger's data model. It owns the transaction
// and block types, the proof of work that seals a block and the fixed width
// binary encoding both are stored with.
package database

import (
	"fmt"
	"time"
)

// EventHandler defines a function that is called when events occur in the
// processing of blocks. Passing nil turns narration off.
type EventHandler func(v string, args ...any)

// Clock provides the current time. It's the source of block timestamps.
type Clock func() time.Time

// timeLayout is how block timestamps are rendered for people.
const timeLayout = "15:04 UTC 02/01/2006"

// =============================================================================

// Now captures the current time in nanoseconds since the unix epoch from the
// specified clock. A nil clock uses the system clock.
func Now(clock Clock) (uint64, error) {
	if clock == nil {
		clock = time.Now
	}

	t := clock()
	if t.Before(time.Unix(0, 0)) {
		return 0, fmt.Errorf("clock is before the unix epoch: %s", t)
	}

	return uint64(t.UnixNano()), nil
}

// FormatTime renders a nanosecond timestamp for narration.
func FormatTime(nanos uint64) string {
	return time.Unix(0, int64(nanos)).UTC().Format(timeLayout)
}

// =============================================================================

// emit calls the event handler when one was provided.
func (ev EventHandler) emit(v string, args ...any) {
	if ev != nil {
		ev(v, args...)
	}
}
