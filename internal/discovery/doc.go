// Package discovery finds lights on the local network.
//
// The lights speak an SSDP-like advertisement protocol: a fixed ASCII
// search datagram is multicast to 239.255.255.250:1982 and every device
// answers with a CRLF-separated header block carrying its control address
// and current properties.
//
// # Search Process
//
// The engine works as follows:
//  1. Resolves the machine's outbound address via the AddressResolver
//  2. Binds an ephemeral UDP socket on that address
//  3. Sends the search datagram to the multicast group from that socket,
//     so replies route back to the same listener
//  4. Collects reply payloads until the stop policy is satisfied
//  5. Closes the socket before returning, on every path
//
// Two stop policies exist. CollectExactly(n) blocks until n payloads have
// arrived or a ceiling timeout (5s default) elapses; partial results are
// still returned, and late replies beyond the quota are dropped.
// CollectForDuration(d) blocks for exactly d and returns everything
// received in that window.
//
// Zero replies is an empty result, not an error. Failing to resolve a
// local address or bind the listener is a setup failure.
//
// # Advertisements
//
// ParseAdvertisement turns one raw reply into a flat property map: the
// status line is discarded, the Location line is split into ip and port,
// and every other line is a Key: Value pair. A reply missing any required
// property is rejected as a decode failure; callers discard it and keep
// the rest of the batch.
package discovery
