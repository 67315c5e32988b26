package bus

import "time"

// Event is one notification on the bus. Kind is dot-separated, for example
// "sync.completed", and subscribers filter on its prefix.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
