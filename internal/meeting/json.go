package meeting

import (
	"encoding/json"
	"fmt"
)

// ToJSON renders the meeting in its plain-object form.
func (m *Meeting) ToJSON() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode meeting %s: %w", m.ID, err)
	}
	return data, nil
}

// FromJSON decodes a meeting previously produced by ToJSON. Fields are taken
// as stored; no defaults are applied so the pair round-trips exactly.
func FromJSON(data []byte) (*Meeting, error) {
	var m Meeting
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode meeting: %w", err)
	}
	return &m, nil
}
