package news

import (
	"encoding/json"
	"maps"
)

// Metadata carries the open-ended per-record annotations. Known keys are
// typed; anything else read from storage is kept in Extra so it survives a
// load/save round trip.
type Metadata struct {
	Category      string          `json:"category,omitempty"`
	IsAlert       bool            `json:"is_alert"`
	AlertKeyword  string          `json:"alert_keyword,omitempty"`
	AlertSeverity string          `json:"alert_severity,omitempty"`
	Region        string          `json:"region,omitempty"`
	Domain        string          `json:"domain,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
	IntelType     string          `json:"intel_type,omitempty"`
	IntelTopics   []string        `json:"intel_topics,omitempty"`
	Raw           json.RawMessage `json:"raw,omitempty"`

	Extra map[string]any `json:"-"`
}

var knownMetadataKeys = map[string]struct{}{
	"category":       {},
	"is_alert":       {},
	"alert_keyword":  {},
	"alert_severity": {},
	"region":         {},
	"domain":         {},
	"image_url":      {},
	"intel_type":     {},
	"intel_topics":   {},
	"raw":            {},
}

type metadataFields Metadata

// MarshalJSON implements json.Marshaler.
func (m Metadata) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(metadataFields(m))
	if err != nil || len(m.Extra) == 0 {
		return base, err
	}

	merged := make(map[string]json.RawMessage, len(m.Extra)+len(knownMetadataKeys))
	for k, v := range m.Extra {
		if _, known := knownMetadataKeys[k]; known {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		merged[k] = raw
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	maps.Copy(merged, fields)
	return json.Marshal(merged)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var fields metadataFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k, v := range all {
		if _, known := knownMetadataKeys[k]; known {
			continue
		}
		if fields.Extra == nil {
			fields.Extra = make(map[string]any)
		}
		fields.Extra[k] = v
	}

	*m = Metadata(fields)
	return nil
}

func (m Metadata) clone() Metadata {
	out := m
	out.IntelTopics = cloneStrings(m.IntelTopics)
	if m.Raw != nil {
		out.Raw = append(json.RawMessage(nil), m.Raw...)
	}
	if m.Extra != nil {
		out.Extra = maps.Clone(m.Extra)
	}
	return out
}
