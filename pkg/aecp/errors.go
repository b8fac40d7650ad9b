package aecp

import (
	"errors"
	"fmt"

	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// Controller errors.
var (
	// ErrBusy means a command of the same class is already pending to
	// the target. The caller retries after that command resolves.
	ErrBusy = errors.New("command of this class already pending to target")

	// ErrTimedOut means the target did not respond within the timeout
	// across all retransmits.
	ErrTimedOut = errors.New("command timed out")

	// ErrEntityUnavailable means the target was evicted from the
	// registry while the command was in flight.
	ErrEntityUnavailable = errors.New("entity unavailable")

	// ErrUnknownEntity means the target is not in the registry.
	ErrUnknownEntity = errors.New("unknown entity")
)

// StatusError carries a non-success AEM response status. For acquisition
// and lock conflicts, Holder is the controller currently owning the
// entity.
type StatusError struct {
	Status wire.AEMStatus
	Holder wire.EntityID
}

// Error returns the status name, with the holder for conflicts.
func (e *StatusError) Error() string {
	if e.Holder != 0 {
		return fmt.Sprintf("AEM status %s (held by %s)", e.Status, e.Holder)
	}
	return fmt.Sprintf("AEM status %s", e.Status)
}

// statusErr converts a non-success status into a *StatusError, nil on
// success.
func statusErr(s wire.AEMStatus) error {
	if s.IsSuccess() {
		return nil
	}
	return &StatusError{Status: s}
}
