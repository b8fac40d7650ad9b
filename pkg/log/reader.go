package log

import (
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects a subset of events. Zero-valued fields match
// everything for that criterion.
type Filter struct {
	LinkID         string
	Direction      *Direction
	Layer          *Layer
	Category       *Category
	TimeStart      *time.Time // inclusive
	TimeEnd        *time.Time // exclusive
	RemoteEntityID uint64
}

func (f *Filter) matches(e Event) bool {
	switch {
	case f.LinkID != "" && e.LinkID != f.LinkID:
		return false
	case f.Direction != nil && e.Direction != *f.Direction:
		return false
	case f.Layer != nil && e.Layer != *f.Layer:
		return false
	case f.Category != nil && e.Category != *f.Category:
		return false
	case f.TimeStart != nil && e.Timestamp.Before(*f.TimeStart):
		return false
	case f.TimeEnd != nil && !e.Timestamp.Before(*f.TimeEnd):
		return false
	case f.RemoteEntityID != 0 && e.RemoteEntityID != f.RemoteEntityID:
		return false
	}
	return true
}

// Reader iterates events in a trace file, skipping those the filter
// rejects. Large files are streamed, not loaded whole.
type Reader struct {
	src     io.Closer
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader opens path for unfiltered iteration.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens path and yields only events matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{src: f, decoder: NewDecoder(f), filter: filter}, nil
}

// Next returns the next matching event, or io.EOF after the last one.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			return Event{}, err
		}
		if r.filter.matches(event) {
			return event, nil
		}
	}
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.src.Close()
}
