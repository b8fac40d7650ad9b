package log

import (
	"context"
	"fmt"
	"log/slog"
)

// SlogAdapter mirrors trace events onto a slog.Logger at debug level.
// It is meant for development consoles; traces intended for replay
// should go through FileLogger, which preserves the full payload.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

func entityAttr(key string, id uint64) slog.Attr {
	return slog.String(key, fmt.Sprintf("0x%016X", id))
}

// Log emits one debug record per event.
func (a *SlogAdapter) Log(event Event) {
	attrs := make([]slog.Attr, 0, 12)
	attrs = append(attrs,
		slog.String("link_id", event.LinkID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	)
	if event.LocalEntityID != 0 {
		attrs = append(attrs, entityAttr("local_entity", event.LocalEntityID))
	}
	if event.RemoteEntityID != 0 {
		attrs = append(attrs, entityAttr("remote_entity", event.RemoteEntityID))
	}
	attrs = appendPayloadAttrs(attrs, event)

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "avdecc", attrs...)
}

func appendPayloadAttrs(attrs []slog.Attr, event Event) []slog.Attr {
	switch {
	case event.Frame != nil:
		f := event.Frame
		attrs = append(attrs, slog.Int("frame_size", f.Size), slog.Bool("truncated", f.Truncated))

	case event.PDU != nil:
		p := event.PDU
		attrs = append(attrs,
			slog.Uint64("subtype", uint64(p.Subtype)),
			slog.Uint64("msg_type", uint64(p.MessageType)),
			slog.Uint64("seq_id", uint64(p.SequenceID)),
		)
		if p.TargetEntityID != 0 {
			attrs = append(attrs, entityAttr("target", p.TargetEntityID))
		}
		if p.CommandType != nil {
			attrs = append(attrs, slog.Uint64("command", uint64(*p.CommandType)))
		}
		if p.Status != nil {
			attrs = append(attrs, slog.Uint64("status", uint64(*p.Status)))
		}
		if p.ProcessingTime != nil {
			attrs = append(attrs, slog.Duration("processing_time", *p.ProcessingTime))
		}

	case event.Discovery != nil:
		d := event.Discovery
		attrs = append(attrs,
			slog.String("change", d.Change.String()),
			entityAttr("entity", d.EntityID),
			slog.Uint64("available_index", uint64(d.AvailableIndex)),
		)

	case event.StateChange != nil:
		sc := event.StateChange
		attrs = append(attrs,
			slog.String("entity", sc.Entity.String()),
			slog.String("old_state", sc.OldState),
			slog.String("new_state", sc.NewState),
		)
		if sc.Reason != "" {
			attrs = append(attrs, slog.String("reason", sc.Reason))
		}

	case event.Error != nil:
		e := event.Error
		attrs = append(attrs,
			slog.String("error_layer", e.Layer.String()),
			slog.String("error_msg", e.Message),
			slog.String("error_context", e.Context),
		)
		if e.Code != nil {
			attrs = append(attrs, slog.Int("error_code", *e.Code))
		}
	}
	return attrs
}

var _ Logger = (*SlogAdapter)(nil)
