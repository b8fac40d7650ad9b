// Package log captures AVDECC protocol events as a machine-readable
// trace, separate from operational logging.
//
// Engines emit an Event for every frame sent or received, every
// registry change, and every command or connection state transition.
// The trace is complete enough to replay a controller session offline:
// the avdecc-log tool consumes these files.
//
// Wiring a logger into a service:
//
//	// Console trace during development
//	cfg.Logger = log.NewSlogAdapter(slog.Default())
//
//	// Binary trace file for later analysis
//	cfg.Logger, _ = log.NewFileLogger("session.alog")
//
//	// Both at once
//	cfg.Logger = log.NewMultiLogger(console, file)
//
// Events carry a layer (transport, wire, service) and exactly one
// payload: FrameEvent for raw bytes, PDUEvent for decoded ADP/AECP/ACMP
// messages, DiscoveryEvent for registry changes, StateChangeEvent for
// command and stream lifecycle, ErrorEventData for faults.
//
// Files are a concatenation of CBOR-encoded events (integer map keys,
// canonical ordering). Reader iterates them with optional filtering.
package log
