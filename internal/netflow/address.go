package netflow

import (
	"net/netip"

	"github.com/nao1215/defensys/internal/model"
)

// specialPurpose lists reserved ranges treated as private in addition to
// RFC 1918, loopback, link-local and unspecified addresses.
var specialPurpose = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("192.0.0.0/29"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("100::/64"),
	netip.MustParsePrefix("2001::/23"),
	netip.MustParsePrefix("2001:db8::/32"),
}

// parseAddr parses an IP address field.
func parseAddr(field, raw string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Addr{}, &model.MalformedRecordError{Field: field, Value: raw}
	}
	return addr.Unmap(), nil
}

// isPrivate reports whether addr belongs to a private or reserved range.
func isPrivate(addr netip.Addr) bool {
	if addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsUnspecified() {
		return true
	}
	for _, p := range specialPurpose {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// sameSubnet reports whether dst lies in the /bits network of src.
func sameSubnet(src, dst netip.Addr, bits int) bool {
	if src.BitLen() != dst.BitLen() || bits > src.BitLen() {
		return false
	}
	prefix, err := src.Prefix(bits)
	if err != nil {
		return false
	}
	return prefix.Contains(dst)
}
