// Package service provides high-level orchestration for AVDECC
// controllers and entities.
//
// This package ties the protocol engines together into cohesive APIs:
//
// # ControllerService
//
// ControllerService runs the controller side. It owns the single worker
// goroutine that serializes inbound frame dispatch, timer sweeps and
// state mutation. I/O layers deliver raw frames through HandleFrame;
// the worker routes them by AVTP subtype to the discovery, command and
// connection engines. Callers use the exported operations, which park
// on the engines until the worker resolves them.
//
// Example usage:
//
//	svc, err := service.NewControllerService(service.ControllerConfig{
//		ControllerID: 0x0011223344556677,
//		Sender:       endpoint,
//	})
//	svc.Start(ctx)
//	defer svc.Stop()
//
//	entities := svc.ListDiscoveredEntities()
//
// # EntityService
//
// EntityService runs one or more local entities: the ADP advertiser,
// the AEM command responder and the ACMP connection responder, over the
// same worker-loop pattern. Served entities persist their
// available_index high-water mark and current configuration through an
// optional state store.
package service
