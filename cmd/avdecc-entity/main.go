// Command avdecc-entity runs a simulated AVDECC entity.
//
// It loads an entity definition from YAML, serves it from an
// EntityService and offers an interactive shell to mutate the entity's
// dynamic state: control values, active configuration, availability.
//
// Usage:
//
//	avdecc-entity -file entity.yaml [flags]
//
// Flags:
//
//	-file string        Entity definition YAML (required)
//	-valid-time int     Override advertised validity period in seconds
//	-generation string  Wire generation: 2013, 2021 (default "2021")
//	-state-dir string   Directory for persistent state
//	-log string         Write CBOR protocol events to this file
//
// Examples:
//
//	# Simulate a device that survives restarts
//	avdecc-entity -file dac.yaml -state-dir /var/lib/avdecc
//
//	# A legacy 2013-generation device with a short validity period
//	avdecc-entity -file old-amp.yaml -generation 2013 -valid-time 4
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/chzyer/readline"

	"github.com/avb-protocol/avdecc-go/pkg/compat"
	"github.com/avb-protocol/avdecc-go/pkg/entityfile"
	"github.com/avb-protocol/avdecc-go/pkg/log"
	"github.com/avb-protocol/avdecc-go/pkg/model"
	"github.com/avb-protocol/avdecc-go/pkg/persistence"
	"github.com/avb-protocol/avdecc-go/pkg/service"
	"github.com/avb-protocol/avdecc-go/pkg/transport"
	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

type config struct {
	File       string
	ValidTime  int
	Generation string
	StateDir   string
	LogFile    string
}

var cfg config

func init() {
	flag.StringVar(&cfg.File, "file", "", "Entity definition YAML (required)")
	flag.IntVar(&cfg.ValidTime, "valid-time", 0, "Override advertised validity period in seconds")
	flag.StringVar(&cfg.Generation, "generation", "2021", "Wire generation: 2013, 2021")
	flag.StringVar(&cfg.StateDir, "state-dir", "", "Directory for persistent state")
	flag.StringVar(&cfg.LogFile, "log", "", "Write CBOR protocol events to this file")
}

func main() {
	flag.Parse()
	stdlog.SetFlags(stdlog.Ltime)

	if cfg.File == "" {
		stdlog.Fatal("-file is required")
	}

	def, err := entityfile.Load(cfg.File)
	if err != nil {
		stdlog.Fatalf("Failed to load entity definition: %v", err)
	}
	if cfg.ValidTime != 0 {
		def.ValidTime = cfg.ValidTime
	}
	entity, err := def.Build()
	if err != nil {
		stdlog.Fatalf("Failed to build entity: %v", err)
	}

	gen := compat.Gen2021
	switch cfg.Generation {
	case "2021":
	case "2013":
		gen = compat.Gen2013
	default:
		stdlog.Fatalf("Unknown generation %q (use 2013 or 2021)", cfg.Generation)
	}

	var logger log.Logger = log.NoopLogger{}
	if cfg.LogFile != "" {
		fl, err := log.NewFileLogger(cfg.LogFile)
		if err != nil {
			stdlog.Fatalf("Failed to open event log: %v", err)
		}
		defer fl.Close()
		logger = fl
	}

	var store *persistence.StateStore
	if cfg.StateDir != "" {
		store = persistence.NewStateStore(filepath.Join(cfg.StateDir, "state.json"))
	}

	pipe := transport.NewPipe()
	defer pipe.Close()
	ep, err := pipe.Attach(entityMAC(entity))
	if err != nil {
		stdlog.Fatalf("Failed to attach endpoint: %v", err)
	}

	svc, err := service.NewEntityService(service.EntityConfig{
		Sender: ep,
		Store:  store,
		Logger: logger,
		LinkID: ep.LinkID(),
	})
	if err != nil {
		stdlog.Fatalf("Failed to create entity service: %v", err)
	}
	ep.SetReceiver(svc.HandleFrame)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		stdlog.Fatalf("Failed to start service: %v", err)
	}
	defer func() { _ = svc.Stop() }()

	if err := svc.Serve(entity, gen); err != nil {
		stdlog.Fatalf("Failed to serve entity: %v", err)
	}
	stdlog.Printf("Entity %s (%s) serving, generation %s", entity.EntityID, def.Name, gen)

	sim, err := newSimulator(svc, entity, gen)
	if err != nil {
		stdlog.Fatalf("Failed to create shell: %v", err)
	}
	stdlog.SetOutput(sim.Stdout())
	go sim.Run(ctx, cancel)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		stdlog.Printf("Received signal: %v", sig)
	case <-ctx.Done():
	}

	stdlog.Println("Departing...")
	_ = svc.Depart(entity.EntityID)
}

// entityMAC derives a locally administered MAC from the entity ID.
func entityMAC(e *model.LocalEntity) wire.MacAddress {
	id := uint64(e.EntityID)
	return wire.MacAddress{
		0x02, 0xE0,
		byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id),
	}
}

// simulator is the interactive shell over a served entity.
type simulator struct {
	svc    *service.EntityService
	entity *model.LocalEntity
	gen    compat.Generation
	rl     *readline.Instance

	serving bool
}

func newSimulator(svc *service.EntityService, entity *model.LocalEntity, gen compat.Generation) (*simulator, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "entity> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &simulator{svc: svc, entity: entity, gen: gen, rl: rl, serving: true}, nil
}

// Stdout returns a writer that coordinates with the readline input.
func (s *simulator) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Run starts the interactive command loop.
func (s *simulator) Run(ctx context.Context, cancel context.CancelFunc) {
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

		case "status":
			s.cmdStatus()

		case "control":
			s.cmdControl(args)

		case "config":
			s.cmdConfig(args)

		case "bump":
			s.cmdBump()

		case "depart":
			s.cmdDepart()

		case "serve":
			s.cmdServe()

		case "quit", "exit", "q":
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(s.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (s *simulator) printHelp() {
	fmt.Fprintln(s.rl.Stdout(), `
AVDECC Entity Commands:
  status              - Show entity status
  control <idx> <hex> - Set a control value locally
  config <idx>        - Switch the active configuration
  bump                - Increment available_index (simulate a change)
  depart              - Send ENTITY_DEPARTING and stop advertising
  serve               - Resume advertising after a depart
  help                - Show this help
  quit                - Exit`)
}

func (s *simulator) cmdStatus() {
	fmt.Fprintln(s.rl.Stdout(), "\nEntity Status")
	fmt.Fprintln(s.rl.Stdout(), "-------------------------------------------")
	fmt.Fprintf(s.rl.Stdout(), "  Entity ID:        %s\n", s.entity.EntityID)
	fmt.Fprintf(s.rl.Stdout(), "  Service state:    %s\n", s.svc.State())
	fmt.Fprintf(s.rl.Stdout(), "  Advertising:      %v\n", s.serving)
	fmt.Fprintf(s.rl.Stdout(), "  Generation:       %s\n", s.gen)
	fmt.Fprintf(s.rl.Stdout(), "  Available index:  %d\n", s.entity.AvailableIndex())
	fmt.Fprintf(s.rl.Stdout(), "  Configuration:    %d\n", s.entity.CurrentConfiguration())
	if holder, held := s.entity.AcquiredBy(); held {
		fmt.Fprintf(s.rl.Stdout(), "  Acquired by:      %s\n", holder)
	}
	if locker := s.entity.LockedBy(); locker != 0 {
		fmt.Fprintf(s.rl.Stdout(), "  Locked by:        %s\n", locker)
	}
	fmt.Fprintln(s.rl.Stdout())
}

func (s *simulator) cmdControl(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: control <index> <hex-octets>")
		return
	}
	index, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid index: %v\n", err)
		return
	}
	value, err := hex.DecodeString(args[1])
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid value: %v\n", err)
		return
	}
	if err := s.entity.SetControlValue(0, uint16(index), value); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Set failed: %v\n", err)
		return
	}
	fmt.Fprintln(s.rl.Stdout(), "OK")
}

func (s *simulator) cmdConfig(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: config <index>")
		return
	}
	index, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid index: %v\n", err)
		return
	}
	if err := s.entity.SetConfiguration(uint16(index)); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Switch failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "Active configuration: %d\n", index)
}

func (s *simulator) cmdBump() {
	fmt.Fprintf(s.rl.Stdout(), "available_index = %d\n", s.entity.BumpAvailableIndex())
}

func (s *simulator) cmdDepart() {
	if !s.serving {
		fmt.Fprintln(s.rl.Stdout(), "Not advertising")
		return
	}
	if err := s.svc.Depart(s.entity.EntityID); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Depart failed: %v\n", err)
		return
	}
	s.serving = false
	fmt.Fprintln(s.rl.Stdout(), "ENTITY_DEPARTING sent")
}

func (s *simulator) cmdServe() {
	if s.serving {
		fmt.Fprintln(s.rl.Stdout(), "Already advertising")
		return
	}
	if err := s.svc.Serve(s.entity, s.gen); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Serve failed: %v\n", err)
		return
	}
	s.serving = true
	fmt.Fprintln(s.rl.Stdout(), "Advertising resumed")
}
