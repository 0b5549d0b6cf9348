package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotObject is returned when a stored value is valid JSON but not an
// object.
var ErrNotObject = errors.New("stored session is not an object")

// MergeOverDefaults overlays the top-level keys of a stored JSON object on
// the default session. Keys missing from older blobs keep their defaults;
// nested objects are replaced wholesale, not merged.
func MergeOverDefaults(raw json.RawMessage) (Session, error) {
	var stored map[string]json.RawMessage
	if err := json.Unmarshal(raw, &stored); err != nil || stored == nil {
		return Default(), ErrNotObject
	}

	base, err := json.Marshal(Default())
	if err != nil {
		return Default(), fmt.Errorf("encode defaults: %w", err)
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &merged); err != nil {
		return Default(), fmt.Errorf("decode defaults: %w", err)
	}
	for k, v := range stored {
		merged[k] = v
	}

	buf, err := json.Marshal(merged)
	if err != nil {
		return Default(), fmt.Errorf("encode merged session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(buf, &s); err != nil {
		return Default(), fmt.Errorf("decode merged session: %w", err)
	}
	s.CurrentStep = ClampStep(s.CurrentStep)
	if s.Logs == nil {
		s.Logs = []LogEntry{}
	}
	return s, nil
}
