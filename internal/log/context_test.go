// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextWithRequestID(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		requestID string
		want      string
	}{
		{name: "nil context", ctx: nil, requestID: "test-id-123", want: "test-id-123"},
		{name: "background context", ctx: context.Background(), requestID: "req-456", want: "req-456"},
		{name: "empty request ID", ctx: context.Background(), requestID: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithRequestID(tt.ctx, tt.requestID)
			got := RequestIDFromContext(ctx)
			if got != tt.want {
				t.Errorf("RequestIDFromContext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRequestIDFromContextEmpty(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{name: "nil context", ctx: nil, want: ""},
		{name: "context without request ID", ctx: context.Background(), want: ""},
		{name: "context with wrong type", ctx: context.WithValue(context.Background(), requestIDKey, 123), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RequestIDFromContext(tt.ctx)
			if got != tt.want {
				t.Errorf("RequestIDFromContext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithContext_AddsRequestIDField(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "info"})
	mu.Lock()
	base = base.Output(&buf)
	mu.Unlock()

	ctx := ContextWithRequestID(context.Background(), "req-789")
	WithContext(ctx, WithComponent("test")).Info().Msg("hi")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry[FieldRequestID] != "req-789" {
		t.Errorf("request_id = %v, want req-789", entry[FieldRequestID])
	}
}

func TestWithContext_EmptyContextLeavesLoggerUnchanged(t *testing.T) {
	baseLogger := WithComponent("test")
	logger := WithContext(context.Background(), baseLogger)
	if logger.GetLevel() != baseLogger.GetLevel() {
		t.Error("logger level should be preserved")
	}
}

func TestBase(t *testing.T) {
	Configure(Config{})
	if baseLogger := Base(); baseLogger.GetLevel() > zerolog.PanicLevel {
		t.Error("expected a valid base logger with a reasonable log level")
	}
}
