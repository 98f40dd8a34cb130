package discovery

import (
	"errors"
	"fmt"
	"iter"
	"net/netip"
	"strings"
)

// ErrInvalidRange is returned for anything that is not an IPv4 CIDR block
var ErrInvalidRange = errors.New("invalid address range")

// ParseRange parses an IPv4 CIDR block such as "192.168.1.0/24".
// Host bits are masked off, so "10.0.0.3/30" yields 10.0.0.0/30.
func ParseRange(cidr string) (netip.Prefix, error) {
	prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr))
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: %q: %v", ErrInvalidRange, cidr, err)
	}
	if !prefix.Addr().Is4() {
		return netip.Prefix{}, fmt.Errorf("%w: %q is not IPv4", ErrInvalidRange, cidr)
	}
	return prefix.Masked(), nil
}

// Hosts yields every address in prefix in ascending order, including the
// network and broadcast addresses. Addresses are produced on demand.
func Hosts(prefix netip.Prefix) iter.Seq[netip.Addr] {
	prefix = prefix.Masked()
	return func(yield func(netip.Addr) bool) {
		if !prefix.IsValid() {
			return
		}
		for ip := prefix.Addr(); ip.IsValid() && prefix.Contains(ip); ip = ip.Next() {
			if !yield(ip) {
				return
			}
		}
	}
}

// RangeSize returns the number of addresses Hosts yields for an IPv4 prefix
func RangeSize(prefix netip.Prefix) uint64 {
	if !prefix.IsValid() || !prefix.Addr().Is4() {
		return 0
	}
	return uint64(1) << (32 - prefix.Bits())
}
