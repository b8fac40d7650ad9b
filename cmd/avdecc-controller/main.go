// Command avdecc-controller is an interactive AVDECC controller.
//
// It runs a ControllerService on an in-memory segment and can simulate
// any number of entities on the same segment from YAML definitions, so
// the full discovery, enumeration and connection management flow can be
// exercised end to end.
//
// Usage:
//
//	avdecc-controller [flags]
//
// Flags:
//
//	-controller-id string  Controller entity ID as hex (default 0x0000C0FFEE000001)
//	-entity path           Entity definition YAML to simulate (repeatable)
//	-generation string     Wire generation for simulated entities: 2013, 2021 (default "2021")
//	-state-dir string      Directory for simulated entities' persistent state
//	-log string            Write CBOR protocol events to this file
//
// Examples:
//
//	# Controller with two simulated devices
//	avdecc-controller -entity dac.yaml -entity mixer.yaml
//
//	# Talk to a 2013-generation device, capturing the wire traffic
//	avdecc-controller -entity old-amp.yaml -generation 2013 -log session.cbor
package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/avb-protocol/avdecc-go/pkg/compat"
	"github.com/avb-protocol/avdecc-go/pkg/entityfile"
	"github.com/avb-protocol/avdecc-go/pkg/log"
	"github.com/avb-protocol/avdecc-go/pkg/persistence"
	"github.com/avb-protocol/avdecc-go/pkg/service"
	"github.com/avb-protocol/avdecc-go/pkg/transport"
	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

type config struct {
	ControllerID string
	EntityFiles  stringList
	Generation   string
	StateDir     string
	LogFile      string
}

// stringList collects a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

var cfg config

func init() {
	flag.StringVar(&cfg.ControllerID, "controller-id", "0x0000C0FFEE000001", "Controller entity ID as hex")
	flag.Var(&cfg.EntityFiles, "entity", "Entity definition YAML to simulate (repeatable)")
	flag.StringVar(&cfg.Generation, "generation", "2021", "Wire generation for simulated entities: 2013, 2021")
	flag.StringVar(&cfg.StateDir, "state-dir", "", "Directory for simulated entities' persistent state")
	flag.StringVar(&cfg.LogFile, "log", "", "Write CBOR protocol events to this file")
}

func main() {
	flag.Parse()
	stdlog.SetFlags(stdlog.Ltime)

	controllerID, err := parseEntityID(cfg.ControllerID)
	if err != nil {
		stdlog.Fatalf("Invalid controller ID: %v", err)
	}
	gen, err := parseGeneration(cfg.Generation)
	if err != nil {
		stdlog.Fatalf("Invalid generation: %v", err)
	}

	var logger log.Logger = log.NoopLogger{}
	if cfg.LogFile != "" {
		fl, err := log.NewFileLogger(cfg.LogFile)
		if err != nil {
			stdlog.Fatalf("Failed to open event log: %v", err)
		}
		defer fl.Close()
		logger = fl
		stdlog.Printf("Writing protocol events to %s", cfg.LogFile)
	}

	pipe := transport.NewPipe()
	defer pipe.Close()

	ctrlEP, err := pipe.Attach(wire.MacAddress{0x02, 0xC0, 0x00, 0x00, 0x00, 0x01})
	if err != nil {
		stdlog.Fatalf("Failed to attach controller endpoint: %v", err)
	}

	ctrl, err := service.NewControllerService(service.ControllerConfig{
		ControllerID: controllerID,
		Sender:       ctrlEP,
		Logger:       logger,
		LinkID:       ctrlEP.LinkID(),
	})
	if err != nil {
		stdlog.Fatalf("Failed to create controller service: %v", err)
	}
	ctrlEP.SetReceiver(ctrl.HandleFrame)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ctrl.Start(ctx); err != nil {
		stdlog.Fatalf("Failed to start controller: %v", err)
	}
	defer func() { _ = ctrl.Stop() }()
	stdlog.Printf("Controller %s started (state: %s)", controllerID, ctrl.State())

	if len(cfg.EntityFiles) > 0 {
		entSvc, err := startSimulatedEntities(ctx, pipe, gen, logger)
		if err != nil {
			stdlog.Fatalf("Failed to start simulated entities: %v", err)
		}
		defer func() { _ = entSvc.Stop() }()
	}

	shell, err := newShell(ctrl)
	if err != nil {
		stdlog.Fatalf("Failed to create shell: %v", err)
	}
	stdlog.SetOutput(shell.Stdout())
	go shell.Run(ctx, cancel)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		stdlog.Printf("Received signal: %v", sig)
	case <-ctx.Done():
	}
	stdlog.Println("Shutting down...")
}

// startSimulatedEntities loads every -entity definition and serves them
// from one EntityService attached to the segment.
func startSimulatedEntities(ctx context.Context, pipe *transport.Pipe, gen compat.Generation, logger log.Logger) (*service.EntityService, error) {
	devEP, err := pipe.Attach(wire.MacAddress{0x02, 0xE0, 0x00, 0x00, 0x00, 0x01})
	if err != nil {
		return nil, err
	}

	var store *persistence.StateStore
	if cfg.StateDir != "" {
		store = persistence.NewStateStore(filepath.Join(cfg.StateDir, "entities.json"))
	}

	svc, err := service.NewEntityService(service.EntityConfig{
		Sender: devEP,
		Store:  store,
		Logger: logger,
		LinkID: devEP.LinkID(),
	})
	if err != nil {
		return nil, err
	}
	devEP.SetReceiver(svc.HandleFrame)

	if err := svc.Start(ctx); err != nil {
		return nil, err
	}

	for _, path := range cfg.EntityFiles {
		def, err := entityfile.Load(path)
		if err != nil {
			return nil, err
		}
		entity, err := def.Build()
		if err != nil {
			return nil, err
		}
		if err := svc.Serve(entity, gen); err != nil {
			return nil, err
		}
		stdlog.Printf("Simulating entity %s (%s) from %s", entity.EntityID, def.Name, path)
	}
	return svc, nil
}

func parseEntityID(s string) (wire.EntityID, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 64)
	if err != nil {
		return 0, err
	}
	return wire.EntityID(v), nil
}

func parseGeneration(s string) (compat.Generation, error) {
	switch s {
	case "2013":
		return compat.Gen2013, nil
	case "2021":
		return compat.Gen2021, nil
	default:
		return 0, fmt.Errorf("unknown generation %q (use 2013 or 2021)", s)
	}
}
