package acmp

import (
	"errors"
	"fmt"

	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// Engine errors.
var (
	// ErrBusy is returned when a connect or disconnect attempt is
	// already in flight for the same listener stream.
	ErrBusy = errors.New("connection attempt already in flight")

	// ErrTimedOut is returned when a command leg exhausted its
	// retransmit and nothing answered.
	ErrTimedOut = errors.New("connection command timed out")

	// ErrEntityUnavailable is returned when liveness eviction fails an
	// attempt or drops an established connection.
	ErrEntityUnavailable = errors.New("entity unavailable")

	// ErrUnknownEntity is returned when the talker or listener has not
	// been discovered.
	ErrUnknownEntity = errors.New("unknown entity")
)

// StatusError carries a non-success ACMP status answered by a peer.
// Semantic refusals are definitive; the engine does not retry them.
type StatusError struct {
	Status wire.ACMPStatus
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("acmp status %s", e.Status)
}

func statusErr(s wire.ACMPStatus) error {
	return &StatusError{Status: s}
}
