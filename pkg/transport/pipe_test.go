package transport

import (
	"testing"

	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

func TestPipeUnicastDelivery(t *testing.T) {
	p := NewPipe()
	defer p.Close()

	macA := wire.MacAddress{0x02, 0, 0, 0, 0, 0x0A}
	macB := wire.MacAddress{0x02, 0, 0, 0, 0, 0x0B}
	macC := wire.MacAddress{0x02, 0, 0, 0, 0, 0x0C}

	a, err := p.Attach(macA)
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	b, _ := p.Attach(macB)
	c, _ := p.Attach(macC)

	var gotB, gotC []Frame
	b.SetReceiver(func(f Frame) { gotB = append(gotB, f) })
	c.SetReceiver(func(f Frame) { gotC = append(gotC, f) })

	if err := a.SendFrame(macB, []byte{0x01, 0x02}); err != nil {
		t.Fatalf("SendFrame failed: %v", err)
	}

	if len(gotB) != 1 {
		t.Fatalf("B received %d frames, want 1", len(gotB))
	}
	if gotB[0].Source != macA {
		t.Errorf("source = %v, want %v", gotB[0].Source, macA)
	}
	if len(gotC) != 0 {
		t.Errorf("C received %d frames, want 0", len(gotC))
	}
}

func TestPipeMulticastDelivery(t *testing.T) {
	p := NewPipe()
	defer p.Close()

	a, _ := p.Attach(wire.MacAddress{0x02, 0, 0, 0, 0, 0x0A})
	b, _ := p.Attach(wire.MacAddress{0x02, 0, 0, 0, 0, 0x0B})
	c, _ := p.Attach(wire.MacAddress{0x02, 0, 0, 0, 0, 0x0C})

	var gotA, gotB, gotC int
	a.SetReceiver(func(Frame) { gotA++ })
	b.SetReceiver(func(Frame) { gotB++ })
	c.SetReceiver(func(Frame) { gotC++ })

	if err := a.SendFrame(wire.AVDECCMulticast, []byte{0xFA}); err != nil {
		t.Fatalf("SendFrame failed: %v", err)
	}

	// Sender does not hear its own multicast
	if gotA != 0 {
		t.Errorf("A received %d frames, want 0", gotA)
	}
	if gotB != 1 || gotC != 1 {
		t.Errorf("B/C received %d/%d frames, want 1/1", gotB, gotC)
	}
}

func TestPipePayloadCopied(t *testing.T) {
	p := NewPipe()
	defer p.Close()

	macB := wire.MacAddress{0x02, 0, 0, 0, 0, 0x0B}
	a, _ := p.Attach(wire.MacAddress{0x02, 0, 0, 0, 0, 0x0A})
	b, _ := p.Attach(macB)

	var got Frame
	b.SetReceiver(func(f Frame) { got = f })

	payload := []byte{0x01, 0x02, 0x03}
	if err := a.SendFrame(macB, payload); err != nil {
		t.Fatalf("SendFrame failed: %v", err)
	}
	payload[0] = 0xFF

	if got.Payload[0] != 0x01 {
		t.Error("delivered payload aliases the sender's buffer")
	}
}

func TestPipeLinkIDsUnique(t *testing.T) {
	p := NewPipe()
	defer p.Close()

	a, _ := p.Attach(wire.MacAddress{0x02, 0, 0, 0, 0, 0x0A})
	b, _ := p.Attach(wire.MacAddress{0x02, 0, 0, 0, 0, 0x0B})

	if a.LinkID() == "" || b.LinkID() == "" {
		t.Fatal("empty link ID")
	}
	if a.LinkID() == b.LinkID() {
		t.Error("link IDs collide")
	}
}

func TestPipeClosedEndpoint(t *testing.T) {
	p := NewPipe()
	defer p.Close()

	macB := wire.MacAddress{0x02, 0, 0, 0, 0, 0x0B}
	a, _ := p.Attach(wire.MacAddress{0x02, 0, 0, 0, 0, 0x0A})
	b, _ := p.Attach(macB)

	var got int
	b.SetReceiver(func(Frame) { got++ })
	b.Close()

	if err := a.SendFrame(macB, []byte{0x01}); err != nil {
		t.Fatalf("SendFrame failed: %v", err)
	}
	if got != 0 {
		t.Errorf("closed endpoint received %d frames", got)
	}

	if err := b.SendFrame(macB, []byte{0x01}); err != ErrEndpointClosed {
		t.Errorf("send on closed endpoint: got %v, want ErrEndpointClosed", err)
	}
}

func TestPipeClose(t *testing.T) {
	p := NewPipe()
	a, _ := p.Attach(wire.MacAddress{0x02, 0, 0, 0, 0, 0x0A})
	p.Close()

	if err := a.SendFrame(wire.AVDECCMulticast, []byte{0x01}); err != ErrPipeClosed {
		t.Errorf("send on closed pipe: got %v, want ErrPipeClosed", err)
	}
	if _, err := p.Attach(wire.MacAddress{0x02, 0, 0, 0, 0, 0x0B}); err != ErrPipeClosed {
		t.Errorf("attach on closed pipe: got %v, want ErrPipeClosed", err)
	}
}
