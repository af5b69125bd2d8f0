package logger

import (
	"testing"

	"github.com/bitandsolution/stadium-hospitality-manager/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LogConfig
		wantErr bool
	}{
		{"json info", config.LogConfig{Level: "info", Format: "json"}, false},
		{"console debug", config.LogConfig{Level: "debug", Format: "console"}, false},
		{"非法级别", config.LogConfig{Level: "verbose", Format: "json"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLogger(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("期望 wantErr=%v，实际 err=%v", tt.wantErr, err)
			}
			if err == nil && l == nil {
				t.Error("logger 不应为 nil")
			}
		})
	}
}
