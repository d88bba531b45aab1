package cells

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
)

// DecodeSnapshot parses a persisted cells document. Entries that fail to
// decode are skipped with a warning; a document that is not a JSON object
// is an error.
func DecodeSnapshot(raw []byte, logger *log.Logger) (Snapshot, error) {
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("cells: %w", err)
	}
	if entries == nil {
		return nil, fmt.Errorf("cells: not an object")
	}
	out := make(Snapshot, len(entries))
	for k, v := range entries {
		var r Record
		if err := decodeRecord(v, &r); err != nil {
			if logger != nil {
				logger.Warn("skip malformed cell", "key", k, "err", err)
			}
			continue
		}
		out[k] = r
	}
	return out, nil
}

func decodeRecord(v json.RawMessage, r *Record) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(v, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("record is null")
	}
	raw, ok := fields["tokenValue"]
	if !ok {
		return fmt.Errorf("missing tokenValue")
	}
	return json.Unmarshal(raw, &r.Token)
}

func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}
