package discovery

import (
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/lumenlab/lumen/internal/faults"
	"github.com/lumenlab/lumen/internal/logging"
)

const (
	// MulticastGroup is the advertisement group and port the lights join.
	MulticastGroup = "239.255.255.250:1982"

	// SearchPayload is the fixed search datagram. The devices match it
	// byte for byte; do not reorder or re-terminate the lines.
	SearchPayload = "M-SEARCH * HTTP/1.1\r\n" +
		"HOST: 239.255.255.250:1982\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"ST: wifi_bulb"

	// DefaultCeiling bounds a CollectExactly search that never fills its
	// quota.
	DefaultCeiling = 5 * time.Second

	// maxDatagramSize is the largest advertisement the engine accepts.
	maxDatagramSize = 2048
)

type policyKind int

const (
	policyExactly policyKind = iota
	policyDuration
)

// Policy is a search stop policy: collect a fixed number of replies or
// collect for a fixed window.
type Policy struct {
	kind   policyKind
	count  int
	window time.Duration
}

// CollectExactly stops the search once n payloads have arrived. A ceiling
// timeout still bounds the call; partial results are returned on expiry.
func CollectExactly(n int) Policy {
	return Policy{kind: policyExactly, count: n}
}

// CollectForDuration collects everything that arrives within the window.
func CollectForDuration(window time.Duration) Policy {
	return Policy{kind: policyDuration, window: window}
}

// String returns a human-readable description of the policy.
func (p Policy) String() string {
	if p.kind == policyExactly {
		return fmt.Sprintf("collect-exactly(%d)", p.count)
	}
	return fmt.Sprintf("collect-for(%s)", p.window)
}

// Engine performs the multicast search round-trip.
type Engine struct {
	// Resolver supplies the local address to listen on.
	Resolver AddressResolver

	// Group is the multicast target. Defaults to MulticastGroup; tests
	// point it at a loopback responder.
	Group string

	// Ceiling bounds CollectExactly searches. Defaults to DefaultCeiling.
	Ceiling time.Duration
}

// NewEngine creates an engine with default settings.
func NewEngine() *Engine {
	return &Engine{
		Resolver: RouteResolver{},
		Group:    MulticastGroup,
		Ceiling:  DefaultCeiling,
	}
}

// Search sends one search datagram and collects raw advertisement payloads
// under the given stop policy. The listening socket is closed before the
// call returns, on both the success and timeout paths. Zero replies is an
// empty result, never an error.
func (e *Engine) Search(policy Policy) ([][]byte, error) {
	localIP, err := e.resolver().LocalAddress()
	if err != nil {
		return nil, faults.Setup("discovery needs a local address", err)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: localIP, Port: 0})
	if err != nil {
		return nil, faults.Setup("cannot bind discovery listener", err)
	}
	defer conn.Close()

	group, err := net.ResolveUDPAddr("udp4", e.group())
	if err != nil {
		return nil, faults.Setup(fmt.Sprintf("invalid multicast group %q", e.group()), err)
	}

	// Sending from the listening socket makes replies route back to it.
	if _, err := conn.WriteToUDP([]byte(SearchPayload), group); err != nil {
		return nil, faults.Setup("cannot send search datagram", err)
	}

	logging.Info("discovery search sent",
		zap.String("group", group.String()),
		zap.String("listener", conn.LocalAddr().String()),
		zap.String("policy", policy.String()),
	)

	payloads := make(chan []byte, 64)
	done := make(chan struct{})
	defer close(done)

	go receiveAdvertisements(conn, payloads, done)

	return collect(policy, e.ceiling(), payloads), nil
}

// receiveAdvertisements reads datagrams until the socket closes or the
// search returns.
func receiveAdvertisements(conn *net.UDPConn, payloads chan<- []byte, done <-chan struct{}) {
	for {
		buf := make([]byte, maxDatagramSize)
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			// Socket closed by the deferred cleanup; the worker ends here.
			return
		}
		logging.Debug("advertisement received",
			zap.String("src", src.String()),
			zap.Int("length", n),
		)
		select {
		case payloads <- buf[:n]:
		case <-done:
			return
		}
	}
}

// collect applies the stop policy to the payload stream.
func collect(policy Policy, ceiling time.Duration, payloads <-chan []byte) [][]byte {
	results := make([][]byte, 0, 8)

	switch policy.kind {
	case policyExactly:
		timer := time.NewTimer(ceiling)
		defer timer.Stop()
		for len(results) < policy.count {
			select {
			case p := <-payloads:
				results = append(results, p)
			case <-timer.C:
				logging.Warn("discovery ceiling reached with partial results",
					zap.Int("collected", len(results)),
					zap.Int("requested", policy.count),
				)
				return results
			}
		}
		// Replies arriving after the quota are dropped on the floor; this
		// bounds worst-case processing on networks with duplicate
		// responders.
		return results

	default:
		timer := time.NewTimer(policy.window)
		defer timer.Stop()
		for {
			select {
			case p := <-payloads:
				results = append(results, p)
			case <-timer.C:
				return results
			}
		}
	}
}

func (e *Engine) resolver() AddressResolver {
	if e.Resolver == nil {
		return RouteResolver{}
	}
	return e.Resolver
}

func (e *Engine) group() string {
	if e.Group == "" {
		return MulticastGroup
	}
	return e.Group
}

func (e *Engine) ceiling() time.Duration {
	if e.Ceiling <= 0 {
		return DefaultCeiling
	}
	return e.Ceiling
}
