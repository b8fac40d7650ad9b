package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/avb-protocol/avdecc-go/pkg/acmp"
	"github.com/avb-protocol/avdecc-go/pkg/log"
	"github.com/avb-protocol/avdecc-go/pkg/persistence"
	"github.com/avb-protocol/avdecc-go/pkg/transport"
	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// Service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrAlreadyStarted = errors.New("service already started")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Worker timing defaults.
const (
	// DefaultSweepInterval bounds liveness and retry timer latency.
	DefaultSweepInterval = 250 * time.Millisecond

	// DefaultQueueSize is the inbound frame queue depth. The worker
	// drops frames when the queue is full rather than block an I/O
	// thread.
	DefaultQueueSize = 256
)

// ServiceState represents the service state.
type ServiceState uint8

const (
	// StateIdle - service created but not started.
	StateIdle ServiceState = iota

	// StateRunning - service worker is running.
	StateRunning

	// StateStopped - service has stopped.
	StateStopped
)

// String returns the state name.
func (s ServiceState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// ControllerConfig configures a ControllerService.
type ControllerConfig struct {
	// ControllerID identifies this controller on the wire.
	ControllerID wire.EntityID

	// Sender transmits raw frames.
	Sender transport.FrameSender

	// Clock supplies time. Nil uses the system clock.
	Clock transport.Clock

	// Bandwidth gates ACMP talker legs. Nil means always available.
	Bandwidth acmp.BandwidthPolicy

	// Logger receives protocol events. Nil disables logging.
	Logger log.Logger

	// LinkID tags log events with the transport attachment.
	LinkID string

	// SweepInterval and QueueSize override the defaults when nonzero.
	SweepInterval time.Duration
	QueueSize     int
}

// Validate checks the configuration.
func (c *ControllerConfig) Validate() error {
	if c.ControllerID == 0 {
		return fmt.Errorf("%w: controller ID is required", ErrInvalidConfig)
	}
	if c.Sender == nil {
		return fmt.Errorf("%w: frame sender is required", ErrInvalidConfig)
	}
	return nil
}

// EntityConfig configures an EntityService.
type EntityConfig struct {
	// Sender transmits raw frames.
	Sender transport.FrameSender

	// Clock supplies time. Nil uses the system clock.
	Clock transport.Clock

	// Store persists served entities' dynamic state. Nil disables
	// persistence.
	Store *persistence.StateStore

	// Logger receives protocol events. Nil disables logging.
	Logger log.Logger

	// LinkID tags log events with the transport attachment.
	LinkID string

	// SweepInterval and QueueSize override the defaults when nonzero.
	SweepInterval time.Duration
	QueueSize     int
}

// Validate checks the configuration.
func (c *EntityConfig) Validate() error {
	if c.Sender == nil {
		return fmt.Errorf("%w: frame sender is required", ErrInvalidConfig)
	}
	return nil
}

func sweepInterval(d time.Duration) time.Duration {
	if d == 0 {
		return DefaultSweepInterval
	}
	return d
}

func queueSize(n int) int {
	if n == 0 {
		return DefaultQueueSize
	}
	return n
}

func clockOrSystem(c transport.Clock) transport.Clock {
	if c == nil {
		return transport.SystemClock{}
	}
	return c
}
