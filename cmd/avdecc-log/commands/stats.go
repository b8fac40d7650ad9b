package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/avb-protocol/avdecc-go/pkg/log"
	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Entities          map[uint64]*EntityStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// EntityStats holds statistics for traffic with a single remote entity.
type EntityStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	PDUs      int
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Entities:          make(map[uint64]*EntityStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByLayer[event.Layer]++
		stats.EventsByCategory[event.Category]++
		stats.EventsByDirection[event.Direction]++

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		if event.RemoteEntityID != 0 {
			ent, ok := stats.Entities[event.RemoteEntityID]
			if !ok {
				ent = &EntityStats{
					FirstSeen: event.Timestamp,
					LastSeen:  event.Timestamp,
				}
				stats.Entities[event.RemoteEntityID] = ent
			}
			ent.Events++
			if event.Timestamp.After(ent.LastSeen) {
				ent.LastSeen = event.Timestamp
			}
			if event.PDU != nil {
				ent.PDUs++
			}
		}

		if event.Error != nil {
			stats.Errors++
		}
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== AVDECC Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerWire, log.LayerService} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryDiscovery, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Remote Entities: %d\n", len(stats.Entities))
	if len(stats.Entities) > 0 {
		type entityInfo struct {
			id    uint64
			stats *EntityStats
		}
		entities := make([]entityInfo, 0, len(stats.Entities))
		for id, es := range stats.Entities {
			entities = append(entities, entityInfo{id, es})
		}
		sort.Slice(entities, func(i, j int) bool {
			return entities[i].stats.FirstSeen.Before(entities[j].stats.FirstSeen)
		})

		fmt.Fprintln(w, "")
		for _, e := range entities {
			duration := e.stats.LastSeen.Sub(e.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events (%d PDUs), duration %s\n",
				wire.EntityID(e.id), e.stats.Events, e.stats.PDUs, duration)
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
