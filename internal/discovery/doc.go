// Package discovery finds Tasmota devices on the local network.
//
// Scanner probes every address of an IPv4 CIDR block with a "Status 2"
// query on a bounded worker pool and keeps the addresses whose firmware
// version contains the Tasmota marker:
//
//	scanner := discovery.NewScanner(deviceconfig.NewClient())
//	devices, err := scanner.Scan(ctx, "192.168.1.0/24")
//
// MDNSBrowser is a faster alternative on networks with multicast: it listens
// for "_http._tcp" advertisements and probes only the advertising hosts.
//
// Ranges are expanded lazily through Hosts, so a /16 does not allocate
// 65536 addresses up front. IPv6 ranges are rejected with ErrInvalidRange.
package discovery
