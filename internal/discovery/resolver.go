package discovery

import (
	"net"

	"github.com/lumenlab/lumen/internal/faults"
)

// AddressResolver reports the local address the engine should listen on.
// It exists as an interface so tests and unusual network setups can supply
// their own answer.
type AddressResolver interface {
	// LocalAddress returns the machine's outbound IP on the LAN.
	LocalAddress() (net.IP, error)
}

// RouteResolver resolves the outbound address by asking the kernel which
// source address it would use for an external destination. No packet is
// sent; the connect is only a route lookup.
type RouteResolver struct{}

// routeProbeTarget is any external address; it is never contacted.
const routeProbeTarget = "8.8.8.8:80"

// LocalAddress implements AddressResolver.
func (RouteResolver) LocalAddress() (net.IP, error) {
	conn, err := net.Dial("udp4", routeProbeTarget)
	if err != nil {
		return nil, faults.Setup("cannot determine local outbound address", err)
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil {
		return nil, faults.Setup("local outbound address unavailable", nil)
	}
	return addr.IP, nil
}

// StaticResolver always answers with a fixed IP. Useful for tests and for
// hosts with multiple interfaces where the route probe picks the wrong one.
type StaticResolver struct {
	IP net.IP
}

// LocalAddress implements AddressResolver.
func (r StaticResolver) LocalAddress() (net.IP, error) {
	if r.IP == nil {
		return nil, faults.Setup("static resolver has no address", nil)
	}
	return r.IP, nil
}
