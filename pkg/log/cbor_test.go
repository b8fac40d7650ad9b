package log

import (
	"bytes"
	"io"
	"testing"
	"time"
)

func TestEventCBORRoundTrip(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456789, time.UTC)
	original := Event{
		Timestamp:      ts,
		LinkID:         "abc12345-def6-7890-abcd-ef1234567890",
		Direction:      DirectionOut,
		Layer:          LayerWire,
		Category:       CategoryMessage,
		LocalRole:      RoleController,
		LocalEntityID:  0x0011223344556677,
		RemoteEntityID: 0x8899AABBCCDDEEFF,
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	// Compare fields
	if !decoded.Timestamp.Equal(original.Timestamp) {
		t.Errorf("Timestamp: got %v, want %v", decoded.Timestamp, original.Timestamp)
	}
	if decoded.LinkID != original.LinkID {
		t.Errorf("LinkID: got %q, want %q", decoded.LinkID, original.LinkID)
	}
	if decoded.Direction != original.Direction {
		t.Errorf("Direction: got %v, want %v", decoded.Direction, original.Direction)
	}
	if decoded.Layer != original.Layer {
		t.Errorf("Layer: got %v, want %v", decoded.Layer, original.Layer)
	}
	if decoded.Category != original.Category {
		t.Errorf("Category: got %v, want %v", decoded.Category, original.Category)
	}
	if decoded.LocalRole != original.LocalRole {
		t.Errorf("LocalRole: got %v, want %v", decoded.LocalRole, original.LocalRole)
	}
	if decoded.LocalEntityID != original.LocalEntityID {
		t.Errorf("LocalEntityID: got %#x, want %#x", decoded.LocalEntityID, original.LocalEntityID)
	}
	if decoded.RemoteEntityID != original.RemoteEntityID {
		t.Errorf("RemoteEntityID: got %#x, want %#x", decoded.RemoteEntityID, original.RemoteEntityID)
	}
}

func TestFrameEventCBORRoundTrip(t *testing.T) {
	original := Event{
		Timestamp: time.Now(),
		LinkID:    "link-123",
		Direction: DirectionIn,
		Layer:     LayerTransport,
		Category:  CategoryMessage,
		Frame: &FrameEvent{
			Size:      256,
			Data:      []byte{0x01, 0x02, 0x03, 0x04, 0x05},
			Truncated: true,
		},
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.Frame == nil {
		t.Fatal("Frame is nil")
	}
	if decoded.Frame.Size != original.Frame.Size {
		t.Errorf("Frame.Size: got %d, want %d", decoded.Frame.Size, original.Frame.Size)
	}
	if string(decoded.Frame.Data) != string(original.Frame.Data) {
		t.Errorf("Frame.Data: got %v, want %v", decoded.Frame.Data, original.Frame.Data)
	}
	if decoded.Frame.Truncated != original.Frame.Truncated {
		t.Errorf("Frame.Truncated: got %v, want %v", decoded.Frame.Truncated, original.Frame.Truncated)
	}
}

func TestPDUEventCBORRoundTrip(t *testing.T) {
	cmd := uint16(0x0004)
	status := uint8(0x00)
	processingTime := 2 * time.Millisecond

	tests := []struct {
		name string
		pdu  *PDUEvent
	}{
		{
			name: "command",
			pdu: &PDUEvent{
				Subtype:            0xFB,
				MessageType:        0,
				SequenceID:         100,
				TargetEntityID:     0x0102030405060708,
				ControllerEntityID: 0x1112131415161718,
				CommandType:        &cmd,
			},
		},
		{
			name: "response",
			pdu: &PDUEvent{
				Subtype:            0xFB,
				MessageType:        1,
				SequenceID:         100,
				TargetEntityID:     0x0102030405060708,
				ControllerEntityID: 0x1112131415161718,
				CommandType:        &cmd,
				Status:             &status,
				ProcessingTime:     &processingTime,
			},
		},
		{
			name: "advertisement",
			pdu: &PDUEvent{
				Subtype:        0xFA,
				MessageType:    0,
				TargetEntityID: 0x0102030405060708,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := Event{
				Timestamp: time.Now(),
				LinkID:    "link-1",
				Direction: DirectionOut,
				Layer:     LayerWire,
				Category:  CategoryMessage,
				PDU:       tt.pdu,
			}

			data, err := EncodeEvent(original)
			if err != nil {
				t.Fatalf("EncodeEvent failed: %v", err)
			}
			decoded, err := DecodeEvent(data)
			if err != nil {
				t.Fatalf("DecodeEvent failed: %v", err)
			}

			if decoded.PDU == nil {
				t.Fatal("PDU is nil")
			}
			if decoded.PDU.Subtype != tt.pdu.Subtype {
				t.Errorf("Subtype: got %#x, want %#x", decoded.PDU.Subtype, tt.pdu.Subtype)
			}
			if decoded.PDU.MessageType != tt.pdu.MessageType {
				t.Errorf("MessageType: got %d, want %d", decoded.PDU.MessageType, tt.pdu.MessageType)
			}
			if decoded.PDU.SequenceID != tt.pdu.SequenceID {
				t.Errorf("SequenceID: got %d, want %d", decoded.PDU.SequenceID, tt.pdu.SequenceID)
			}
			if decoded.PDU.TargetEntityID != tt.pdu.TargetEntityID {
				t.Errorf("TargetEntityID: got %#x, want %#x", decoded.PDU.TargetEntityID, tt.pdu.TargetEntityID)
			}
			if (decoded.PDU.CommandType == nil) != (tt.pdu.CommandType == nil) {
				t.Fatalf("CommandType presence mismatch")
			}
			if tt.pdu.CommandType != nil && *decoded.PDU.CommandType != *tt.pdu.CommandType {
				t.Errorf("CommandType: got %#x, want %#x", *decoded.PDU.CommandType, *tt.pdu.CommandType)
			}
			if (decoded.PDU.Status == nil) != (tt.pdu.Status == nil) {
				t.Fatalf("Status presence mismatch")
			}
			if tt.pdu.Status != nil && *decoded.PDU.Status != *tt.pdu.Status {
				t.Errorf("Status: got %d, want %d", *decoded.PDU.Status, *tt.pdu.Status)
			}
			if (decoded.PDU.ProcessingTime == nil) != (tt.pdu.ProcessingTime == nil) {
				t.Fatalf("ProcessingTime presence mismatch")
			}
			if tt.pdu.ProcessingTime != nil && *decoded.PDU.ProcessingTime != *tt.pdu.ProcessingTime {
				t.Errorf("ProcessingTime: got %v, want %v", *decoded.PDU.ProcessingTime, *tt.pdu.ProcessingTime)
			}
		})
	}
}

func TestDiscoveryEventCBORRoundTrip(t *testing.T) {
	original := Event{
		Timestamp:      time.Now(),
		LinkID:         "link-1",
		Direction:      DirectionIn,
		Layer:          LayerService,
		Category:       CategoryDiscovery,
		RemoteEntityID: 0xAABBCCDDEEFF0011,
		Discovery: &DiscoveryEvent{
			Change:         DiscoveryRestarted,
			EntityID:       0xAABBCCDDEEFF0011,
			AvailableIndex: 7,
		},
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.Discovery == nil {
		t.Fatal("Discovery is nil")
	}
	if decoded.Discovery.Change != DiscoveryRestarted {
		t.Errorf("Change: got %v, want %v", decoded.Discovery.Change, DiscoveryRestarted)
	}
	if decoded.Discovery.EntityID != original.Discovery.EntityID {
		t.Errorf("EntityID: got %#x, want %#x", decoded.Discovery.EntityID, original.Discovery.EntityID)
	}
	if decoded.Discovery.AvailableIndex != 7 {
		t.Errorf("AvailableIndex: got %d, want 7", decoded.Discovery.AvailableIndex)
	}
}

func TestStateChangeEventCBORRoundTrip(t *testing.T) {
	original := Event{
		Timestamp: time.Now(),
		LinkID:    "link-1",
		Direction: DirectionIn,
		Layer:     LayerService,
		Category:  CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   StateEntityConnection,
			OldState: "CONNECTING",
			NewState: "CONNECTED",
			Reason:   "talker response",
		},
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.StateChange == nil {
		t.Fatal("StateChange is nil")
	}
	if decoded.StateChange.Entity != StateEntityConnection {
		t.Errorf("Entity: got %v, want %v", decoded.StateChange.Entity, StateEntityConnection)
	}
	if decoded.StateChange.OldState != "CONNECTING" || decoded.StateChange.NewState != "CONNECTED" {
		t.Errorf("states: got %q -> %q", decoded.StateChange.OldState, decoded.StateChange.NewState)
	}
	if decoded.StateChange.Reason != "talker response" {
		t.Errorf("Reason: got %q", decoded.StateChange.Reason)
	}
}

func TestErrorEventCBORRoundTrip(t *testing.T) {
	code := 5
	original := Event{
		Timestamp: time.Now(),
		LinkID:    "link-1",
		Direction: DirectionIn,
		Layer:     LayerWire,
		Category:  CategoryError,
		Error: &ErrorEventData{
			Layer:   LayerWire,
			Message: "short frame",
			Code:    &code,
			Context: "decode ADPDU",
		},
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.Error == nil {
		t.Fatal("Error is nil")
	}
	if decoded.Error.Message != "short frame" {
		t.Errorf("Message: got %q", decoded.Error.Message)
	}
	if decoded.Error.Code == nil || *decoded.Error.Code != 5 {
		t.Errorf("Code: got %v, want 5", decoded.Error.Code)
	}
	if decoded.Error.Context != "decode ADPDU" {
		t.Errorf("Context: got %q", decoded.Error.Context)
	}
}

func TestEncoderDecoderStream(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	events := []Event{
		{Timestamp: time.Now(), LinkID: "a", Direction: DirectionIn, Layer: LayerTransport},
		{Timestamp: time.Now(), LinkID: "b", Direction: DirectionOut, Layer: LayerWire},
		{Timestamp: time.Now(), LinkID: "c", Direction: DirectionIn, Layer: LayerService},
	}
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
	}

	dec := NewDecoder(&buf)
	for i := range events {
		var got Event
		if err := dec.Decode(&got); err != nil {
			t.Fatalf("Decode %d failed: %v", i, err)
		}
		if got.LinkID != events[i].LinkID {
			t.Errorf("event %d: LinkID got %q, want %q", i, got.LinkID, events[i].LinkID)
		}
	}

	var extra Event
	if err := dec.Decode(&extra); err != io.EOF {
		t.Errorf("expected io.EOF after last event, got %v", err)
	}
}
