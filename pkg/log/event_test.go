package log

import (
	"fmt"
	"testing"
)

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		val  fmt.Stringer
		want string
	}{
		{DirectionIn, "IN"},
		{DirectionOut, "OUT"},
		{Direction(99), "UNKNOWN"},
		{LayerTransport, "TRANSPORT"},
		{LayerWire, "WIRE"},
		{LayerService, "SERVICE"},
		{CategoryMessage, "MESSAGE"},
		{CategoryDiscovery, "DISCOVERY"},
		{CategoryState, "STATE"},
		{CategoryError, "ERROR"},
		{RoleEntity, "ENTITY"},
		{RoleController, "CONTROLLER"},
		{DiscoveryAdded, "ADDED"},
		{DiscoveryRestarted, "RESTARTED"},
		{DiscoveryDeparted, "DEPARTED"},
		{DiscoveryExpired, "EXPIRED"},
		{StateEntityCommand, "COMMAND"},
		{StateEntityConnection, "CONNECTION"},
		{StateEntityAcquisition, "ACQUISITION"},
	}

	for _, tt := range tests {
		if got := tt.val.String(); got != tt.want {
			t.Errorf("%T(%v).String() = %q, want %q", tt.val, tt.val, got, tt.want)
		}
	}
}

// Enum values are persisted in trace files; renumbering breaks replay
// of existing captures.
func TestEnumWireStability(t *testing.T) {
	tests := []struct {
		name string
		got  uint8
		want uint8
	}{
		{"DirectionIn", uint8(DirectionIn), 0},
		{"DirectionOut", uint8(DirectionOut), 1},
		{"LayerTransport", uint8(LayerTransport), 0},
		{"LayerWire", uint8(LayerWire), 1},
		{"LayerService", uint8(LayerService), 2},
		{"CategoryMessage", uint8(CategoryMessage), 0},
		{"CategoryDiscovery", uint8(CategoryDiscovery), 1},
		{"CategoryState", uint8(CategoryState), 2},
		{"CategoryError", uint8(CategoryError), 3},
		{"DiscoveryAdded", uint8(DiscoveryAdded), 0},
		{"DiscoveryUpdated", uint8(DiscoveryUpdated), 1},
		{"DiscoveryRestarted", uint8(DiscoveryRestarted), 2},
		{"DiscoveryDeparted", uint8(DiscoveryDeparted), 3},
		{"DiscoveryExpired", uint8(DiscoveryExpired), 4},
		{"StateEntityCommand", uint8(StateEntityCommand), 0},
		{"StateEntityConnection", uint8(StateEntityConnection), 1},
		{"StateEntityAcquisition", uint8(StateEntityAcquisition), 2},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}
