// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestConfigure_AppliesServiceAndLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "warn", Service: "cachetest", Version: "v1"})
	mu.Lock()
	base = base.Output(&buf)
	mu.Unlock()

	logger().Info().Msg("should be filtered")
	logger().Warn().Msg("should appear")

	lines := bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected 1 line at warn level, got %d: %s", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["service"] != "cachetest" {
		t.Errorf("service = %v, want cachetest", entry["service"])
	}
	if entry["message"] != "should appear" {
		t.Errorf("message = %v, want %q", entry["message"], "should appear")
	}
}

func TestWithComponent_TagsComponentField(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "info"})
	mu.Lock()
	base = base.Output(&buf)
	mu.Unlock()

	WithComponent("syncengine.pipeline").Info().Msg("hi")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry[FieldComponent] != "syncengine.pipeline" {
		t.Errorf("component = %v, want syncengine.pipeline", entry[FieldComponent])
	}
}
