package handlers

import (
	"testing"
)

func TestHealthHandler_Health(t *testing.T) {
	tests := []struct {
		name    string
		version string
	}{
		{"release", "v1.2.0"},
		{"dev version", "dev"},
		{"empty version", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := NewHealthHandler(tt.version).Health(t.Context(), nil)
			if err != nil {
				t.Fatalf("Health() error = %v", err)
			}
			if resp.Status != "ok" {
				t.Errorf("Status = %q, want %q", resp.Status, "ok")
			}
			if resp.Version != tt.version {
				t.Errorf("Version = %q, want %q", resp.Version, tt.version)
			}
		})
	}
}
