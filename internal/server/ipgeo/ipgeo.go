// Package ipgeo tags client addresses with a country code for the request log.
package ipgeo

import (
	"fmt"
	"net/netip"

	"github.com/oschwald/maxminddb-golang/v2"
)

// Labels used for addresses that are never looked up.
const (
	Local     = "local"
	Tailscale = "tailscale"
)

// tailnet is the CGNAT range Tailscale assigns node addresses from.
var tailnet = netip.MustParsePrefix("100.64.0.0/10")

// Checker maps client addresses to ISO 3166-1 alpha-2 country codes.
//
// A nil Checker still labels non-routable addresses; everything else maps
// to "".
type Checker struct {
	db *maxminddb.Reader
	// kind is the MMDB database type, e.g. "GeoLite2-Country".
	kind string
}

// Open opens a MaxMind country or city database.
func Open(path string) (*Checker, error) {
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ipgeo: %w", err)
	}
	return &Checker{db: db, kind: db.Metadata.DatabaseType}, nil
}

// DatabaseType returns the type recorded in the database metadata.
func (c *Checker) DatabaseType() string {
	if c == nil {
		return ""
	}
	return c.kind
}

// Close releases the database.
func (c *Checker) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// CountryCode parses ip, as returned by reqctx.GetClientIP, and labels it
// with Lookup. Unparsable input yields "".
func (c *Checker) CountryCode(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return ""
	}
	return c.Lookup(addr)
}

// Lookup returns Local for loopback, private, link-local and unspecified
// addresses, Tailscale for tailnet addresses, and otherwise the country
// code found in the database, "" when there is none.
func (c *Checker) Lookup(addr netip.Addr) string {
	addr = addr.Unmap()
	switch {
	case addr.IsLoopback(), addr.IsPrivate(), addr.IsUnspecified(), addr.IsLinkLocalUnicast():
		return Local
	case tailnet.Contains(addr):
		return Tailscale
	case c == nil || c.db == nil:
		return ""
	}
	var rec struct {
		Country struct {
			ISOCode string `maxminddb:"iso_code"`
		} `maxminddb:"country"`
	}
	if err := c.db.Lookup(addr).Decode(&rec); err != nil {
		return ""
	}
	return rec.Country.ISOCode
}
