// Package status enforces the message delivery state machine:
// sent -> delivered -> seen, terminal at seen, advanced only by the receiver.
package status

import (
	"fmt"
	"slices"

	"github.com/matheus3301/pollchat/internal/wire"
)

// validTransitions defines allowed forward moves. Skipping delivered is allowed.
var validTransitions = map[wire.Status][]wire.Status{
	wire.StatusSent:      {wire.StatusDelivered, wire.StatusSeen},
	wire.StatusDelivered: {wire.StatusSeen},
	wire.StatusSeen:      {},
}

var (
	// ErrInvalidTransition is an invalid-argument error for targets that are
	// not requestable or would move the status backward.
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", wire.ErrInvalidArgument)
	// ErrNotReceiver is returned when anyone but the receiver asks for a transition.
	ErrNotReceiver = fmt.Errorf("%w: only the receiver may change message status", wire.ErrForbidden)
)

// Requestable reports whether a client may ask for s.
func Requestable(s wire.Status) bool {
	return s == wire.StatusDelivered || s == wire.StatusSeen
}

// Transition validates a request by requesterID to move a message addressed to
// receiverID from current to target. It returns changed=false for a request
// that names the current status; such a request is accepted as a no-op.
func Transition(current wire.Status, receiverID, requesterID string, target wire.Status) (changed bool, err error) {
	if requesterID == "" || requesterID != receiverID {
		return false, ErrNotReceiver
	}
	if !Requestable(target) {
		return false, fmt.Errorf("%w: target %q must be delivered or seen", ErrInvalidTransition, target)
	}
	if current == target {
		return false, nil
	}
	allowed, ok := validTransitions[current]
	if !ok || !slices.Contains(allowed, target) {
		return false, fmt.Errorf("%w: from %s to %s", ErrInvalidTransition, current, target)
	}
	return true, nil
}

// Ahead reports whether target is strictly after current.
func Ahead(current, target wire.Status) bool {
	return target.Rank() > current.Rank()
}
