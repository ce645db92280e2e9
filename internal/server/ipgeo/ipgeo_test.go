package ipgeo

import (
	"net/netip"
	"testing"
)

func TestLookup_Unrouted(t *testing.T) {
	var c *Checker
	tests := []struct {
		ip   string
		want string
	}{
		{"127.0.0.1", Local},
		{"::1", Local},
		{"::ffff:127.0.0.1", Local},
		{"10.0.0.1", Local},
		{"192.168.1.1", Local},
		{"fe80::1", Local},
		{"0.0.0.0", Local},
		{"100.64.0.1", Tailscale},
		{"100.127.255.254", Tailscale},
		{"100.63.255.255", ""},
		{"100.128.0.0", ""},
		{"8.8.8.8", ""},
	}
	for _, tt := range tests {
		if got := c.Lookup(netip.MustParseAddr(tt.ip)); got != tt.want {
			t.Errorf("Lookup(%s) = %q, want %q", tt.ip, got, tt.want)
		}
	}
}

func TestCountryCode(t *testing.T) {
	var c *Checker
	for ip, want := range map[string]string{
		"127.0.0.1":   Local,
		"100.100.1.1": Tailscale,
		"not-an-ip":   "",
		"":            "",
	} {
		if got := c.CountryCode(ip); got != want {
			t.Errorf("CountryCode(%q) = %q, want %q", ip, got, want)
		}
	}
	if got := c.DatabaseType(); got != "" {
		t.Errorf("DatabaseType() = %q", got)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil checker = %v", err)
	}
}

func TestOpen_Missing(t *testing.T) {
	if _, err := Open(t.TempDir() + "/missing.mmdb"); err == nil {
		t.Error("Open() of a missing file should fail")
	}
}
