package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/avb-protocol/avdecc-go/pkg/log"
	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// RunExport exports the log file to the specified format.
func RunExport(path, format, output string) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "link_id", "direction", "layer", "category", "remote_entity", "type", "sequence_id"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		eventType := "unknown"
		seqID := ""
		switch {
		case event.Frame != nil:
			eventType = "frame"
		case event.PDU != nil:
			eventType = pduTypeLabel(event.PDU)
			seqID = fmt.Sprintf("%d", event.PDU.SequenceID)
		case event.Discovery != nil:
			eventType = event.Discovery.Change.String()
		case event.StateChange != nil:
			eventType = "state"
		case event.Error != nil:
			eventType = "error"
		}

		remote := ""
		if event.RemoteEntityID != 0 {
			remote = wire.EntityID(event.RemoteEntityID).String()
		}

		row := []string{
			event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
			event.LinkID,
			event.Direction.String(),
			event.Layer.String(),
			event.Category.String(),
			remote,
			eventType,
			seqID,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}
