package geoip

import "net/netip"

// IsLocal reports whether ip is a loopback, private, link-local or
// unspecified address. Such addresses are never sent to the lookup service.
func IsLocal(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsUnspecified()
}

// Routable reports whether ip parses and is not local.
func Routable(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	return !IsLocal(addr.String())
}
