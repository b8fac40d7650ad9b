package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/avb-protocol/avdecc-go/pkg/log"
	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

func TestFormatFrameEvent(t *testing.T) {
	ts := time.Date(2026, 3, 14, 10, 15, 32, 123456000, time.UTC)
	event := log.Event{
		Timestamp: ts,
		LinkID:    "abc12345-6789-0123-4567-890abcdef012",
		Direction: log.DirectionOut,
		Layer:     log.LayerTransport,
		Category:  log.CategoryMessage,
		Frame: &log.FrameEvent{
			Size: 68,
			Data: []byte{0xFA, 0x00, 0x40, 0x38},
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "2026-03-14T10:15:32.123456Z") {
		t.Errorf("expected microsecond timestamp, got: %s", output)
	}
	if !strings.Contains(output, "[link:abc12345]") {
		t.Errorf("expected shortened link ID, got: %s", output)
	}
	if !strings.Contains(output, "OUT") {
		t.Errorf("expected OUT direction, got: %s", output)
	}
	if !strings.Contains(output, "TRANSPORT") {
		t.Errorf("expected TRANSPORT layer, got: %s", output)
	}
	if !strings.Contains(output, "68 bytes") {
		t.Errorf("expected frame size, got: %s", output)
	}
	if !strings.Contains(output, "fa004038") {
		t.Errorf("expected hex frame data, got: %s", output)
	}
}

func TestFormatPDUEventCommand(t *testing.T) {
	cmdType := uint16(wire.AEMReadDescriptor)
	event := log.Event{
		Timestamp:      time.Date(2026, 3, 14, 10, 15, 32, 0, time.UTC),
		LinkID:         "abc12345-6789-0123-4567-890abcdef012",
		Direction:      log.DirectionOut,
		Layer:          log.LayerWire,
		Category:       log.CategoryMessage,
		RemoteEntityID: 0x1122334455667788,
		PDU: &log.PDUEvent{
			Subtype:            wire.SubtypeAECP,
			MessageType:        uint8(wire.AECPAEMCommand),
			SequenceID:         42,
			TargetEntityID:     0x1122334455667788,
			ControllerEntityID: 0x0102030405060708,
			CommandType:        &cmdType,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "AEM_COMMAND") {
		t.Errorf("expected AEM_COMMAND label, got: %s", output)
	}
	if !strings.Contains(output, "SequenceID: 42") {
		t.Errorf("expected sequence ID, got: %s", output)
	}
	if !strings.Contains(output, "Command: READ_DESCRIPTOR") {
		t.Errorf("expected command name, got: %s", output)
	}
	if !strings.Contains(output, "Target: 0x1122334455667788") {
		t.Errorf("expected target entity, got: %s", output)
	}
	if !strings.Contains(output, "Controller: 0x0102030405060708") {
		t.Errorf("expected controller entity, got: %s", output)
	}
}

func TestFormatPDUEventResponse(t *testing.T) {
	status := uint8(0)
	processingTime := 2333 * time.Microsecond
	event := log.Event{
		Timestamp: time.Date(2026, 3, 14, 10, 15, 32, 0, time.UTC),
		LinkID:    "abc12345",
		Direction: log.DirectionIn,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		PDU: &log.PDUEvent{
			Subtype:        wire.SubtypeAECP,
			MessageType:    uint8(wire.AECPAEMResponse),
			SequenceID:     42,
			Status:         &status,
			ProcessingTime: &processingTime,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "AEM_RESPONSE") {
		t.Errorf("expected AEM_RESPONSE label, got: %s", output)
	}
	if !strings.Contains(output, "Status: 0") {
		t.Errorf("expected status, got: %s", output)
	}
	if !strings.Contains(output, "Duration: 2.333ms") {
		t.Errorf("expected duration, got: %s", output)
	}
}

func TestFormatDiscoveryEvent(t *testing.T) {
	event := log.Event{
		Timestamp: time.Date(2026, 3, 14, 10, 15, 32, 0, time.UTC),
		LinkID:    "abc12345",
		Direction: log.DirectionIn,
		Layer:     log.LayerService,
		Category:  log.CategoryDiscovery,
		Discovery: &log.DiscoveryEvent{
			Change:         log.DiscoveryRestarted,
			EntityID:       0x1122334455667788,
			AvailableIndex: 7,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "Change: RESTARTED") {
		t.Errorf("expected RESTARTED change, got: %s", output)
	}
	if !strings.Contains(output, "Entity: 0x1122334455667788") {
		t.Errorf("expected entity ID, got: %s", output)
	}
	if !strings.Contains(output, "AvailableIndex: 7") {
		t.Errorf("expected available index, got: %s", output)
	}
}

func TestFormatErrorEvent(t *testing.T) {
	code := 5
	event := log.Event{
		Timestamp: time.Date(2026, 3, 14, 10, 15, 32, 0, time.UTC),
		LinkID:    "abc12345",
		Direction: log.DirectionIn,
		Layer:     log.LayerWire,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerWire,
			Message: "truncated PDU",
			Code:    &code,
			Context: "parsing ADP advertisement",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "Error") {
		t.Errorf("expected Error label, got: %s", output)
	}
	if !strings.Contains(output, "Message: truncated PDU") {
		t.Errorf("expected error message, got: %s", output)
	}
	if !strings.Contains(output, "Code: 5") {
		t.Errorf("expected code, got: %s", output)
	}
	if !strings.Contains(output, "Context: parsing ADP advertisement") {
		t.Errorf("expected context, got: %s", output)
	}
}

func TestParseFlagHelpers(t *testing.T) {
	if l, err := ParseLayerFlag("Wire"); err != nil || l != log.LayerWire {
		t.Errorf("ParseLayerFlag(Wire) = %v, %v", l, err)
	}
	if _, err := ParseLayerFlag("bogus"); err == nil {
		t.Error("expected error for unknown layer")
	}

	if d, err := ParseDirectionFlag("IN"); err != nil || d != log.DirectionIn {
		t.Errorf("ParseDirectionFlag(IN) = %v, %v", d, err)
	}
	if _, err := ParseDirectionFlag("sideways"); err == nil {
		t.Error("expected error for unknown direction")
	}

	if c, err := ParseCategoryFlag("discovery"); err != nil || c != log.CategoryDiscovery {
		t.Errorf("ParseCategoryFlag(discovery) = %v, %v", c, err)
	}
	if _, err := ParseCategoryFlag("snapshot"); err == nil {
		t.Error("expected error for unknown category")
	}

	if id, err := ParseEntityFlag("0x1122334455667788"); err != nil || id != 0x1122334455667788 {
		t.Errorf("ParseEntityFlag = %#x, %v", id, err)
	}
	if _, err := ParseEntityFlag("not-hex"); err == nil {
		t.Error("expected error for malformed entity ID")
	}
}

func TestRunViewFiltersEvents(t *testing.T) {
	path := writeTestLog(t)

	var buf bytes.Buffer
	layer := log.LayerWire
	if err := RunView(path, ViewFilter{Layer: &layer}, &buf); err != nil {
		t.Fatalf("RunView: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "AEM_COMMAND") {
		t.Errorf("expected wire event in output, got: %s", output)
	}
	if strings.Contains(output, "Frame") {
		t.Errorf("transport event should be filtered out, got: %s", output)
	}
}
