package log

// Logger receives protocol events from the engines. Implementations
// must tolerate concurrent calls and return quickly; a slow logger
// stalls the service worker loop.
type Logger interface {
	Log(event Event)
}

// NoopLogger drops every event. The zero value is ready to use.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
