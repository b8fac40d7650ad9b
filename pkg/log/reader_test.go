package log

import (
	"io"
	"path/filepath"
	"testing"
	"time"
)

func writeTrace(t *testing.T, events []Event) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "trace.alog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

// drain reads every matching event from path.
func drain(t *testing.T, path string, filter Filter) []Event {
	t.Helper()

	reader, err := NewFilteredReader(path, filter)
	if err != nil {
		t.Fatalf("NewFilteredReader: %v", err)
	}
	defer reader.Close()

	var read []Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return read
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		read = append(read, event)
	}
}

func traceFixture() []Event {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	return []Event{
		{Timestamp: now, LinkID: "link-A", Direction: DirectionIn, Layer: LayerTransport, Category: CategoryMessage},
		{Timestamp: now.Add(time.Second), LinkID: "link-A", Direction: DirectionOut, Layer: LayerWire, Category: CategoryMessage, RemoteEntityID: 0x11},
		{Timestamp: now.Add(2 * time.Second), LinkID: "link-B", Direction: DirectionIn, Layer: LayerWire, Category: CategoryMessage, RemoteEntityID: 0x22},
		{Timestamp: now.Add(3 * time.Second), LinkID: "link-A", Direction: DirectionIn, Layer: LayerService, Category: CategoryDiscovery, RemoteEntityID: 0x11},
	}
}

func TestReaderPreservesOrder(t *testing.T) {
	path := writeTrace(t, traceFixture())

	read := drain(t, path, Filter{})
	if len(read) != 4 {
		t.Fatalf("events = %d, want 4", len(read))
	}
	for i := 1; i < len(read); i++ {
		if read[i].Timestamp.Before(read[i-1].Timestamp) {
			t.Errorf("event %d out of order", i)
		}
	}
}

func TestReaderEmptyFile(t *testing.T) {
	path := writeTrace(t, nil)

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer reader.Close()

	if _, err := reader.Next(); err != io.EOF {
		t.Errorf("Next on empty file = %v, want io.EOF", err)
	}
}

func TestReaderEOFAfterLastEvent(t *testing.T) {
	path := writeTrace(t, traceFixture()[:1])

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer reader.Close()

	if _, err := reader.Next(); err != nil {
		t.Fatalf("first Next: %v", err)
	}
	if _, err := reader.Next(); err != io.EOF {
		t.Errorf("second Next = %v, want io.EOF", err)
	}
}

func TestReaderFilters(t *testing.T) {
	path := writeTrace(t, traceFixture())

	wireLayer := LayerWire
	out := DirectionOut
	discovery := CategoryDiscovery

	tests := []struct {
		name   string
		filter Filter
		want   int
		check  func(Event) bool
	}{
		{
			name:   "by link ID",
			filter: Filter{LinkID: "link-A"},
			want:   3,
			check:  func(e Event) bool { return e.LinkID == "link-A" },
		},
		{
			name:   "by layer",
			filter: Filter{Layer: &wireLayer},
			want:   2,
			check:  func(e Event) bool { return e.Layer == LayerWire },
		},
		{
			name:   "by direction",
			filter: Filter{Direction: &out},
			want:   1,
			check:  func(e Event) bool { return e.Direction == DirectionOut },
		},
		{
			name:   "by category",
			filter: Filter{Category: &discovery},
			want:   1,
			check:  func(e Event) bool { return e.Category == CategoryDiscovery },
		},
		{
			name:   "by remote entity",
			filter: Filter{RemoteEntityID: 0x11},
			want:   2,
			check:  func(e Event) bool { return e.RemoteEntityID == 0x11 },
		},
		{
			name:   "combined",
			filter: Filter{LinkID: "link-A", Layer: &wireLayer, Direction: &out},
			want:   1,
			check:  func(e Event) bool { return e.LinkID == "link-A" && e.Layer == LayerWire },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			read := drain(t, path, tt.filter)
			if len(read) != tt.want {
				t.Fatalf("events = %d, want %d", len(read), tt.want)
			}
			for i, e := range read {
				if !tt.check(e) {
					t.Errorf("event %d does not satisfy filter: %+v", i, e)
				}
			}
		})
	}
}

func TestReaderFilterByTimeRange(t *testing.T) {
	events := traceFixture()
	path := writeTrace(t, events)

	start := events[1].Timestamp
	end := events[3].Timestamp // exclusive
	read := drain(t, path, Filter{TimeStart: &start, TimeEnd: &end})

	if len(read) != 2 {
		t.Fatalf("events = %d, want 2", len(read))
	}
	if read[0].LinkID != "link-A" || read[1].LinkID != "link-B" {
		t.Errorf("unexpected events in window: %q, %q", read[0].LinkID, read[1].LinkID)
	}
}
