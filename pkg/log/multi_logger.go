package log

// MultiLogger fans each event out to every non-nil logger in the slice.
// Combine a FileLogger with a SlogAdapter to get both a replayable
// event file and live console output.
type MultiLogger []Logger

// NewMultiLogger builds a MultiLogger from the given loggers.
func NewMultiLogger(loggers ...Logger) MultiLogger {
	return MultiLogger(loggers)
}

// Log forwards the event to every logger.
func (m MultiLogger) Log(event Event) {
	for _, l := range m {
		if l != nil {
			l.Log(event)
		}
	}
}

var _ Logger = MultiLogger(nil)
