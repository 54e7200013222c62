package news

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMetadataKeepsUnknownKeys(t *testing.T) {
	in := `{"category":"tech","is_alert":true,"alert_keyword":"breaking","score":2,"tags":["a"],"raw":{"x":[1,2]}}`

	var m Metadata
	if err := json.Unmarshal([]byte(in), &m); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if m.Category != "tech" || !m.IsAlert || m.AlertKeyword != "breaking" {
		t.Errorf("Known fields not decoded: %+v", m)
	}
	if m.Extra["score"] != float64(2) {
		t.Errorf("Expected score in Extra, got %v", m.Extra["score"])
	}
	if _, ok := m.Extra["category"]; ok {
		t.Error("Known keys must not be duplicated into Extra")
	}
	if string(m.Raw) != `{"x":[1,2]}` {
		t.Errorf("Unexpected raw %s", m.Raw)
	}

	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var back Metadata
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.Extra["score"] != float64(2) || back.Category != "tech" {
		t.Errorf("Round trip lost fields: %s", out)
	}
}

func TestMetadataAlwaysEmitsIsAlert(t *testing.T) {
	out, err := json.Marshal(Metadata{})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(out), `"is_alert":false`) {
		t.Errorf("Expected is_alert in %s", out)
	}
}

func TestMetadataKnownFieldsWinOverExtra(t *testing.T) {
	m := Metadata{Region: "MENA", Extra: map[string]any{"region": "EUROPE", "note": "kept"}}

	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(out, &fields); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if fields["region"] != "MENA" || fields["note"] != "kept" {
		t.Errorf("Unexpected output %s", out)
	}
}
