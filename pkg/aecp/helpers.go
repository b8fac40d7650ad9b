package aecp

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/avb-protocol/avdecc-go/pkg/compat"
	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// codecFor returns the wire codec for a target's generation, defaulting
// to the canonical layout for targets whose generation is unknown.
func (c *Controller) codecFor(target wire.EntityID) compat.Codec {
	if ent, ok := c.cfg.Registry.Get(target); ok {
		return compat.ForGeneration(ent.Generation)
	}
	return compat.ForGeneration(compat.Gen2021)
}

// ReadDescriptor reads one descriptor from a remote entity. The
// descriptor type is translated to the target's wire numbering on the
// way out and back.
func (c *Controller) ReadDescriptor(ctx context.Context, target wire.EntityID, configIndex uint16, t wire.DescriptorType, index uint16) (*wire.ReadDescriptorResponse, error) {
	codec := c.codecFor(target)
	wireType, err := codec.DescriptorTypeToWire(t)
	if err != nil {
		return nil, err
	}

	cmd := &wire.ReadDescriptorCommand{
		ConfigurationIndex: configIndex,
		DescriptorType:     wire.DescriptorType(wireType),
		DescriptorIndex:    index,
	}
	res, err := c.SendCommand(ctx, target, wire.AEMReadDescriptor, cmd.Marshal())
	if err != nil {
		return nil, err
	}
	if err := statusErr(res.Status); err != nil {
		return nil, err
	}

	resp, err := wire.UnmarshalReadDescriptorResponse(res.Payload)
	if err != nil {
		return nil, err
	}
	// Rewrite the embedded descriptor_type octets to canonical numbering.
	if len(resp.Descriptor) >= 2 {
		raw := binary.BigEndian.Uint16(resp.Descriptor[0:2])
		canonical, err := codec.DescriptorTypeFromWire(raw)
		if err != nil {
			return nil, err
		}
		binary.BigEndian.PutUint16(resp.Descriptor[0:2], uint16(canonical))
	}
	return resp, nil
}

// AcquireEntity acquires a remote entity. On conflict it returns the
// holding controller's ID inside a *StatusError.
func (c *Controller) AcquireEntity(ctx context.Context, target wire.EntityID, persistent bool) error {
	var flags uint32
	if persistent {
		flags |= wire.AcquireFlagPersistent
	}
	return c.acquireOp(ctx, target, flags)
}

// ReleaseEntity releases a previously acquired entity.
func (c *Controller) ReleaseEntity(ctx context.Context, target wire.EntityID) error {
	return c.acquireOp(ctx, target, wire.AcquireFlagRelease)
}

func (c *Controller) acquireOp(ctx context.Context, target wire.EntityID, flags uint32) error {
	p := &wire.AcquireEntityPayload{
		Flags:          flags,
		DescriptorType: wire.DescriptorEntity,
	}
	res, err := c.SendCommand(ctx, target, wire.AEMAcquireEntity, p.Marshal())
	if err != nil {
		return err
	}
	if res.Status == wire.AEMStatusEntityAcquired {
		if resp, perr := wire.UnmarshalAcquireEntityPayload(res.Payload); perr == nil {
			return &StatusError{Status: res.Status, Holder: resp.OwnerID}
		}
	}
	return statusErr(res.Status)
}

// LockEntity locks a remote entity. On conflict it returns the holding
// controller's ID inside a *StatusError.
func (c *Controller) LockEntity(ctx context.Context, target wire.EntityID) error {
	return c.lockOp(ctx, target, 0)
}

// UnlockEntity releases the lock.
func (c *Controller) UnlockEntity(ctx context.Context, target wire.EntityID) error {
	return c.lockOp(ctx, target, wire.LockFlagUnlock)
}

func (c *Controller) lockOp(ctx context.Context, target wire.EntityID, flags uint32) error {
	p := &wire.LockEntityPayload{
		Flags:          flags,
		DescriptorType: wire.DescriptorEntity,
	}
	res, err := c.SendCommand(ctx, target, wire.AEMLockEntity, p.Marshal())
	if err != nil {
		return err
	}
	if res.Status == wire.AEMStatusEntityLocked {
		if resp, perr := wire.UnmarshalLockEntityPayload(res.Payload); perr == nil {
			return &StatusError{Status: res.Status, Holder: resp.LockedID}
		}
	}
	return statusErr(res.Status)
}

// GetControl reads a CONTROL descriptor's current value blob.
func (c *Controller) GetControl(ctx context.Context, target wire.EntityID, index uint16) ([]byte, error) {
	p := &wire.ControlPayload{DescriptorType: wire.DescriptorControl, DescriptorIndex: index}
	res, err := c.SendCommand(ctx, target, wire.AEMGetControl, p.Marshal())
	if err != nil {
		return nil, err
	}
	if err := statusErr(res.Status); err != nil {
		return nil, err
	}
	resp, err := wire.UnmarshalControlPayload(res.Payload)
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// SetControl writes a CONTROL descriptor's value blob.
func (c *Controller) SetControl(ctx context.Context, target wire.EntityID, index uint16, values []byte) error {
	p := &wire.ControlPayload{
		DescriptorType:  wire.DescriptorControl,
		DescriptorIndex: index,
		Values:          values,
	}
	res, err := c.SendCommand(ctx, target, wire.AEMSetControl, p.Marshal())
	if err != nil {
		return err
	}
	return statusErr(res.Status)
}

// StartStreaming starts streaming on a stream descriptor.
func (c *Controller) StartStreaming(ctx context.Context, target wire.EntityID, t wire.DescriptorType, index uint16) error {
	return c.streamingOp(ctx, target, wire.AEMStartStreaming, t, index)
}

// StopStreaming stops streaming on a stream descriptor.
func (c *Controller) StopStreaming(ctx context.Context, target wire.EntityID, t wire.DescriptorType, index uint16) error {
	return c.streamingOp(ctx, target, wire.AEMStopStreaming, t, index)
}

func (c *Controller) streamingOp(ctx context.Context, target wire.EntityID, cmd wire.AEMCommandType, t wire.DescriptorType, index uint16) error {
	if t != wire.DescriptorStreamInput && t != wire.DescriptorStreamOutput {
		return fmt.Errorf("streaming targets a stream descriptor, got %s", t)
	}
	p := &wire.StreamingPayload{DescriptorType: t, DescriptorIndex: index}
	res, err := c.SendCommand(ctx, target, cmd, p.Marshal())
	if err != nil {
		return err
	}
	return statusErr(res.Status)
}

// GetConfiguration reads the target's active configuration index.
func (c *Controller) GetConfiguration(ctx context.Context, target wire.EntityID) (uint16, error) {
	res, err := c.SendCommand(ctx, target, wire.AEMGetConfiguration, nil)
	if err != nil {
		return 0, err
	}
	if err := statusErr(res.Status); err != nil {
		return 0, err
	}
	resp, err := wire.UnmarshalConfigurationPayload(res.Payload)
	if err != nil {
		return 0, err
	}
	return resp.ConfigurationIndex, nil
}

// SetConfiguration switches the target's active configuration.
func (c *Controller) SetConfiguration(ctx context.Context, target wire.EntityID, index uint16) error {
	p := &wire.ConfigurationPayload{ConfigurationIndex: index}
	res, err := c.SendCommand(ctx, target, wire.AEMSetConfiguration, p.Marshal())
	if err != nil {
		return err
	}
	return statusErr(res.Status)
}

// HolderOf extracts the conflict holder from an acquisition or lock
// error, if present.
func HolderOf(err error) (wire.EntityID, bool) {
	var se *StatusError
	if errors.As(err, &se) && se.Holder != 0 {
		return se.Holder, true
	}
	return 0, false
}
