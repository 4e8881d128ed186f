package config

import (
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// TestConfigTags checks that the serialized keys match the viper keys.
func TestConfigTags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = debugLevel

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("json.Marshal() error: %v", err)
	}
	var asJSON map[string]any
	if err := json.Unmarshal(data, &asJSON); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}
	decoder, ok := asJSON["decoder"].(map[string]any)
	if !ok {
		t.Fatalf("Expected decoder object, got %T", asJSON["decoder"])
	}
	for _, key := range []string{"beam_widths", "dict_ratio", "worst_dict_cert", "clean"} {
		if _, ok := decoder[key]; !ok {
			t.Errorf("Expected decoder key %s in JSON", key)
		}
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("yaml.Marshal() error: %v", err)
	}
	for _, key := range []string{"log_level: debug", "rate_limit:", "pass_through:"} {
		if !strings.Contains(string(out), key) {
			t.Errorf("Expected %q in YAML output", key)
		}
	}
}
