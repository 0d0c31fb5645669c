package db

import (
	"context"
	"testing"
)

func TestTxFromContext_Nil(t *testing.T) {
	tx := TxFromContext(context.Background())
	if tx != nil {
		t.Error("expected nil tx from empty context")
	}
}

func TestTxFromContext_WithWrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), DBTxKey, "not-a-tx")
	tx := TxFromContext(ctx)
	if tx != nil {
		t.Error("expected nil when context value is wrong type")
	}
}

func TestFormatCode(t *testing.T) {
	tests := []struct {
		prefix string
		year   int
		value  int
		want   string
	}{
		{"EARN", 2026, 1, "EARN-2026-0001"},
		{"EARN", 2026, 42, "EARN-2026-0042"},
		{"DPAY", 2025, 9999, "DPAY-2025-9999"},
		{"RCPT", 2026, 10000, "RCPT-2026-10000"},
	}
	for _, tt := range tests {
		if got := FormatCode(tt.prefix, tt.year, tt.value); got != tt.want {
			t.Errorf("FormatCode(%q, %d, %d) = %q, want %q", tt.prefix, tt.year, tt.value, got, tt.want)
		}
	}
}
