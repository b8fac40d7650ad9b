// Package commands implements the avdecc-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/avb-protocol/avdecc-go/pkg/log"
	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Layer          *log.Layer
	Direction      *log.Direction
	Category       *log.Category
	RemoteEntityID uint64
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [link:id] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	linkID := shortenLinkID(event.LinkID)
	dir := event.Direction.String()

	var typeLabel string
	switch {
	case event.Frame != nil:
		typeLabel = "Frame"
	case event.PDU != nil:
		typeLabel = pduTypeLabel(event.PDU)
	case event.Discovery != nil:
		typeLabel = "Discovery"
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [link:%s] %-3s %s %s\n", ts, linkID, dir, event.Layer, typeLabel)

	if event.RemoteEntityID != 0 {
		fmt.Fprintf(w, "  Remote: %s\n", wire.EntityID(event.RemoteEntityID))
	}

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.PDU != nil:
		formatPDUDetails(w, event.PDU)
	case event.Discovery != nil:
		formatDiscoveryDetails(w, event.Discovery)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenLinkID returns the first 8 characters of the link ID.
func shortenLinkID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// pduTypeLabel names a PDU by its subtype and message type.
func pduTypeLabel(pdu *log.PDUEvent) string {
	switch pdu.Subtype {
	case wire.SubtypeADP:
		return wire.ADPMessageType(pdu.MessageType).String()
	case wire.SubtypeAECP:
		return wire.AECPMessageType(pdu.MessageType).String()
	case wire.SubtypeACMP:
		return wire.ACMPMessageType(pdu.MessageType).String()
	default:
		return fmt.Sprintf("SUBTYPE_0x%02X", pdu.Subtype)
	}
}

// formatFrameDetails writes frame-specific details.
func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", frame.Size)
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(frame.Data))
		if frame.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

// formatPDUDetails writes decoded PDU details.
func formatPDUDetails(w io.Writer, pdu *log.PDUEvent) {
	if pdu.SequenceID != 0 {
		fmt.Fprintf(w, "  SequenceID: %d\n", pdu.SequenceID)
	}
	if pdu.TargetEntityID != 0 {
		fmt.Fprintf(w, "  Target: %s\n", wire.EntityID(pdu.TargetEntityID))
	}
	if pdu.ControllerEntityID != 0 {
		fmt.Fprintf(w, "  Controller: %s\n", wire.EntityID(pdu.ControllerEntityID))
	}
	if pdu.CommandType != nil {
		fmt.Fprintf(w, "  Command: %s\n", wire.AEMCommandType(*pdu.CommandType))
	}
	if pdu.Status != nil {
		fmt.Fprintf(w, "  Status: %d\n", *pdu.Status)
	}
	if pdu.ProcessingTime != nil {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(*pdu.ProcessingTime))
	}
}

// formatDiscoveryDetails writes registry change details.
func formatDiscoveryDetails(w io.Writer, d *log.DiscoveryEvent) {
	fmt.Fprintf(w, "  Change: %s\n", d.Change)
	fmt.Fprintf(w, "  Entity: %s\n", wire.EntityID(d.EntityID))
	if d.AvailableIndex != 0 {
		fmt.Fprintf(w, "  AvailableIndex: %d\n", d.AvailableIndex)
	}
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity)
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer)
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Code != nil {
		fmt.Fprintf(w, "  Code: %d\n", *err.Code)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseLayerFlag parses a layer string from command-line flag (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	return parseLayer(s)
}

func parseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "wire":
		return log.LayerWire, nil
	case "service":
		return log.LayerService, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, wire, or service)", s)
	}
}

// ParseDirectionFlag parses a direction string from command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	return parseDirection(s)
}

func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	return parseCategory(s)
}

func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "discovery":
		return log.CategoryDiscovery, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, discovery, state, or error)", s)
	}
}

// ParseEntityFlag parses a hex entity ID from a command-line flag.
func ParseEntityFlag(s string) (uint64, error) {
	return parseEntity(s)
}

func parseEntity(s string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid entity ID: %s", s)
	}
	return id, nil
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		if filter.Layer != nil && event.Layer != *filter.Layer {
			continue
		}
		if filter.Direction != nil && event.Direction != *filter.Direction {
			continue
		}
		if filter.Category != nil && event.Category != *filter.Category {
			continue
		}
		if filter.RemoteEntityID != 0 && event.RemoteEntityID != filter.RemoteEntityID {
			continue
		}

		formatEvent(output, event)
	}

	return nil
}
