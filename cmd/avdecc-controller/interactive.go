package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/avb-protocol/avdecc-go/pkg/acmp"
	"github.com/avb-protocol/avdecc-go/pkg/adp"
	"github.com/avb-protocol/avdecc-go/pkg/service"
	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

const commandTimeout = 10 * time.Second

// shell is the interactive command loop over a controller service.
type shell struct {
	svc *service.ControllerService
	rl  *readline.Instance
}

func newShell(svc *service.ControllerService) (*shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "avdecc> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	s := &shell{svc: svc, rl: rl}
	svc.OnEntityChange(s.handleEntityChange)
	svc.OnConnectionChange(s.handleConnectionChange)
	return s, nil
}

// Stdout returns a writer that coordinates with the readline input.
func (s *shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Run starts the interactive command loop.
func (s *shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()

		case "discover":
			s.cmdDiscover()

		case "list", "ls":
			s.cmdList()

		case "read", "r":
			s.cmdRead(ctx, args)

		case "acquire":
			s.cmdAcquire(ctx, args)

		case "release":
			s.cmdRelease(ctx, args)

		case "lock":
			s.cmdLock(ctx, args)

		case "unlock":
			s.cmdUnlock(ctx, args)

		case "get":
			s.cmdGetControl(ctx, args)

		case "set":
			s.cmdSetControl(ctx, args)

		case "connect":
			s.cmdConnect(ctx, args)

		case "disconnect":
			s.cmdDisconnect(ctx, args)

		case "connections", "conns":
			s.cmdConnections()

		case "status":
			s.cmdStatus()

		case "quit", "exit", "q":
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(s.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (s *shell) printHelp() {
	fmt.Fprintln(s.rl.Stdout(), `
AVDECC Controller Commands:
  Discovery:
    discover                     - Multicast ENTITY_DISCOVER
    list                         - List discovered entities

  Enumeration & Control:
    read <entity> <type> <index> - Read a descriptor (type name or hex)
    acquire <entity> [persistent]- Acquire exclusive control
    release <entity>             - Release an acquisition
    lock <entity>                - Take the short-term lock
    unlock <entity>              - Release the lock
    get <entity> <control>       - Read a control value
    set <entity> <control> <hex> - Write a control value (hex octets)

  Stream Connections:
    connect <talker> <t-idx> <listener> <l-idx> - Connect a stream
    disconnect <listener> <l-idx>               - Disconnect a stream
    connections                                 - List local connection state

  General:
    status                       - Show controller status
    help                         - Show this help
    quit                         - Exit

  Entity IDs are hex (a unique suffix of a discovered ID also works).`)
}

func (s *shell) cmdDiscover() {
	if err := s.svc.Discover(0); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Discover failed: %v\n", err)
		return
	}
	fmt.Fprintln(s.rl.Stdout(), "ENTITY_DISCOVER sent")
}

func (s *shell) cmdList() {
	entities := s.svc.ListDiscoveredEntities()
	if len(entities) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "No entities discovered")
		return
	}

	fmt.Fprintf(s.rl.Stdout(), "\nDiscovered Entities (%d):\n", len(entities))
	fmt.Fprintln(s.rl.Stdout(), "-------------------------------------------")
	for _, e := range entities {
		fmt.Fprintf(s.rl.Stdout(), "  %s\n", e.EntityID)
		fmt.Fprintf(s.rl.Stdout(), "      Generation:      %s\n", e.Generation)
		fmt.Fprintf(s.rl.Stdout(), "      Available index: %d\n", e.AvailableIndex)
		fmt.Fprintf(s.rl.Stdout(), "      Talker/Listener: %v / %v\n",
			e.TalkerCapabilities.Implemented(), e.ListenerCapabilities.Implemented())
		fmt.Fprintf(s.rl.Stdout(), "      Last seen:       %s\n", e.LastSeen.Format("15:04:05"))
	}
	fmt.Fprintln(s.rl.Stdout())
}

func (s *shell) cmdRead(ctx context.Context, args []string) {
	if len(args) < 3 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: read <entity> <type> <index>")
		fmt.Fprintln(s.rl.Stdout(), "  Example: read 0x1122 ENTITY 0")
		return
	}
	target, ok := s.resolveEntity(args[0])
	if !ok {
		return
	}
	descType, err := parseDescriptorType(args[1])
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid descriptor type: %v\n", err)
		return
	}
	index, err := strconv.ParseUint(args[2], 10, 16)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid index: %v\n", err)
		return
	}

	ctx, cancelCmd := context.WithTimeout(ctx, commandTimeout)
	defer cancelCmd()
	resp, err := s.svc.ReadDescriptor(ctx, target, 0, descType, uint16(index))
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Read failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "%s[%d] (%d bytes):\n", descType, index, len(resp.Descriptor))
	fmt.Fprintln(s.rl.Stdout(), hex.Dump(resp.Descriptor))
}

func (s *shell) cmdAcquire(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: acquire <entity> [persistent]")
		return
	}
	target, ok := s.resolveEntity(args[0])
	if !ok {
		return
	}
	persistent := len(args) > 1 && args[1] == "persistent"

	ctx, cancelCmd := context.WithTimeout(ctx, commandTimeout)
	defer cancelCmd()
	if err := s.svc.AcquireEntity(ctx, target, persistent); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Acquire failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "Acquired %s\n", target)
}

func (s *shell) cmdRelease(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: release <entity>")
		return
	}
	target, ok := s.resolveEntity(args[0])
	if !ok {
		return
	}
	ctx, cancelCmd := context.WithTimeout(ctx, commandTimeout)
	defer cancelCmd()
	if err := s.svc.ReleaseEntity(ctx, target); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Release failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "Released %s\n", target)
}

func (s *shell) cmdLock(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: lock <entity>")
		return
	}
	target, ok := s.resolveEntity(args[0])
	if !ok {
		return
	}
	ctx, cancelCmd := context.WithTimeout(ctx, commandTimeout)
	defer cancelCmd()
	if err := s.svc.LockEntity(ctx, target); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Lock failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "Locked %s\n", target)
}

func (s *shell) cmdUnlock(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: unlock <entity>")
		return
	}
	target, ok := s.resolveEntity(args[0])
	if !ok {
		return
	}
	ctx, cancelCmd := context.WithTimeout(ctx, commandTimeout)
	defer cancelCmd()
	if err := s.svc.UnlockEntity(ctx, target); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Unlock failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "Unlocked %s\n", target)
}

func (s *shell) cmdGetControl(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: get <entity> <control-index>")
		return
	}
	target, ok := s.resolveEntity(args[0])
	if !ok {
		return
	}
	index, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid control index: %v\n", err)
		return
	}

	ctx, cancelCmd := context.WithTimeout(ctx, commandTimeout)
	defer cancelCmd()
	values, err := s.svc.GetControl(ctx, target, uint16(index))
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Get failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "CONTROL[%d] = %x\n", index, values)
}

func (s *shell) cmdSetControl(ctx context.Context, args []string) {
	if len(args) < 3 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: set <entity> <control-index> <hex-octets>")
		fmt.Fprintln(s.rl.Stdout(), "  Example: set 0x1122 0 007f")
		return
	}
	target, ok := s.resolveEntity(args[0])
	if !ok {
		return
	}
	index, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid control index: %v\n", err)
		return
	}
	values, err := hex.DecodeString(args[2])
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid value: %v\n", err)
		return
	}

	ctx, cancelCmd := context.WithTimeout(ctx, commandTimeout)
	defer cancelCmd()
	if err := s.svc.SetControl(ctx, target, uint16(index), values); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Set failed: %v\n", err)
		return
	}
	fmt.Fprintln(s.rl.Stdout(), "OK")
}

func (s *shell) cmdConnect(ctx context.Context, args []string) {
	if len(args) < 4 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: connect <talker> <talker-index> <listener> <listener-index>")
		return
	}
	talker, ok := s.resolveEntity(args[0])
	if !ok {
		return
	}
	talkerIdx, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid talker index: %v\n", err)
		return
	}
	listener, ok := s.resolveEntity(args[2])
	if !ok {
		return
	}
	listenerIdx, err := strconv.ParseUint(args[3], 10, 16)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid listener index: %v\n", err)
		return
	}

	ctx, cancelCmd := context.WithTimeout(ctx, commandTimeout)
	defer cancelCmd()
	conn, err := s.svc.ConnectStream(ctx, talker, uint16(talkerIdx), listener, uint16(listenerIdx))
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Connect failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "Connected: stream %#016x -> %s[%d]\n",
		conn.StreamID, conn.ListenerEntityID, conn.ListenerUniqueID)
}

func (s *shell) cmdDisconnect(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: disconnect <listener> <listener-index>")
		return
	}
	listener, ok := s.resolveEntity(args[0])
	if !ok {
		return
	}
	listenerIdx, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid listener index: %v\n", err)
		return
	}

	ctx, cancelCmd := context.WithTimeout(ctx, commandTimeout)
	defer cancelCmd()
	if err := s.svc.DisconnectStream(ctx, listener, uint16(listenerIdx)); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Disconnect failed: %v\n", err)
		return
	}
	fmt.Fprintln(s.rl.Stdout(), "Disconnected")
}

func (s *shell) cmdConnections() {
	conns := s.svc.Connections()
	if len(conns) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "No connections")
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "\nConnections (%d):\n", len(conns))
	for _, c := range conns {
		fmt.Fprintf(s.rl.Stdout(), "  %s[%d] -> %s[%d]  %s  stream %#016x\n",
			c.TalkerEntityID, c.TalkerUniqueID,
			c.ListenerEntityID, c.ListenerUniqueID,
			c.State, c.StreamID)
	}
	fmt.Fprintln(s.rl.Stdout())
}

func (s *shell) cmdStatus() {
	fmt.Fprintln(s.rl.Stdout(), "\nController Status")
	fmt.Fprintln(s.rl.Stdout(), "-------------------------------------------")
	fmt.Fprintf(s.rl.Stdout(), "  Service state:      %s\n", s.svc.State())
	fmt.Fprintf(s.rl.Stdout(), "  Discovered:         %d\n", len(s.svc.ListDiscoveredEntities()))
	fmt.Fprintf(s.rl.Stdout(), "  Connections:        %d\n", len(s.svc.Connections()))
	fmt.Fprintf(s.rl.Stdout(), "  Dropped frames:     %d\n", s.svc.DroppedFrames())
	fmt.Fprintln(s.rl.Stdout())
}

// resolveEntity parses a hex entity ID, also accepting a unique suffix
// of a discovered entity's ID.
func (s *shell) resolveEntity(arg string) (wire.EntityID, bool) {
	if id, err := parseEntityID(arg); err == nil {
		if _, known := s.svc.DiscoveredEntity(id); known {
			return id, true
		}
	}

	needle := strings.ToLower(strings.TrimPrefix(arg, "0x"))
	var match wire.EntityID
	var matches int
	for _, e := range s.svc.ListDiscoveredEntities() {
		full := strings.ToLower(strings.TrimPrefix(e.EntityID.String(), "0x"))
		if strings.HasSuffix(full, needle) {
			match = e.EntityID
			matches++
		}
	}
	switch matches {
	case 1:
		return match, true
	case 0:
		fmt.Fprintf(s.rl.Stdout(), "Unknown entity: %s (use 'list')\n", arg)
		return 0, false
	default:
		fmt.Fprintf(s.rl.Stdout(), "Ambiguous entity: %s matches %d IDs\n", arg, matches)
		return 0, false
	}
}

// parseDescriptorType accepts a descriptor type name or a hex value.
func parseDescriptorType(s string) (wire.DescriptorType, error) {
	switch strings.ToUpper(s) {
	case "ENTITY":
		return wire.DescriptorEntity, nil
	case "CONFIGURATION":
		return wire.DescriptorConfiguration, nil
	case "STREAM_INPUT":
		return wire.DescriptorStreamInput, nil
	case "STREAM_OUTPUT":
		return wire.DescriptorStreamOutput, nil
	case "CONTROL":
		return wire.DescriptorControl, nil
	case "CLOCK_DOMAIN":
		return wire.DescriptorClockDomain, nil
	case "AVB_INTERFACE":
		return wire.DescriptorAVBInterface, nil
	case "CLOCK_SOURCE":
		return wire.DescriptorClockSource, nil
	case "LOCALE":
		return wire.DescriptorLocale, nil
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 16)
	if err != nil {
		return 0, err
	}
	return wire.DescriptorType(v), nil
}

func (s *shell) handleEntityChange(n adp.Notification) {
	fmt.Fprintf(s.rl.Stdout(), "\n[%s] Entity %s: %s\n",
		time.Now().Format("15:04:05"), n.Entity.EntityID, n.Kind)
	s.rl.Refresh()
}

func (s *shell) handleConnectionChange(n acmp.Notification) {
	var what string
	switch n.Kind {
	case acmp.ConnectionEstablished:
		what = "established"
	case acmp.ConnectionReleased:
		what = "released"
	case acmp.ConnectionFailed:
		what = "FAILED"
	default:
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "\n[%s] Connection %s[%d] -> %s[%d] %s\n",
		time.Now().Format("15:04:05"),
		n.Conn.TalkerEntityID, n.Conn.TalkerUniqueID,
		n.Conn.ListenerEntityID, n.Conn.ListenerUniqueID, what)
	s.rl.Refresh()
}
