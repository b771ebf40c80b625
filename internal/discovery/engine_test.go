package discovery

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/lumenlab/lumen/internal/faults"
)

// startResponder runs a fake device on loopback UDP. On receiving the
// search datagram it sends `replies` advertisement payloads back to the
// searcher, spaced by `gap`.
func startResponder(t *testing.T, replies int, gap time.Duration) (group string) {
	t.Helper()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("responder listen: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	go func() {
		buf := make([]byte, maxDatagramSize)
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		if string(buf[:n]) != SearchPayload {
			// A wrong search payload gets no replies; the test then
			// times out and fails, which is the point.
			return
		}
		for i := 0; i < replies; i++ {
			payload := fmt.Sprintf("HTTP/1.1 200 OK\r\nid: 0x%04x\r\n", i)
			_, _ = conn.WriteToUDP([]byte(payload), src)
			time.Sleep(gap)
		}
	}()

	return conn.LocalAddr().String()
}

func loopbackEngine(group string, ceiling time.Duration) *Engine {
	return &Engine{
		Resolver: StaticResolver{IP: net.IPv4(127, 0, 0, 1)},
		Group:    group,
		Ceiling:  ceiling,
	}
}

func TestSearch_CollectExactly_StopsAtQuota(t *testing.T) {
	group := startResponder(t, 5, 10*time.Millisecond)
	engine := loopbackEngine(group, 3*time.Second)

	payloads, err := engine.Search(CollectExactly(2))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(payloads) != 2 {
		t.Errorf("Search() returned %d payloads, want exactly 2", len(payloads))
	}
}

func TestSearch_CollectExactly_PartialOnCeiling(t *testing.T) {
	group := startResponder(t, 2, 0)
	engine := loopbackEngine(group, 500*time.Millisecond)

	payloads, err := engine.Search(CollectExactly(5))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(payloads) != 2 {
		t.Errorf("Search() returned %d payloads, want the 2 partial results", len(payloads))
	}
}

func TestSearch_CollectForDuration_TakesEverything(t *testing.T) {
	group := startResponder(t, 3, 10*time.Millisecond)
	engine := loopbackEngine(group, DefaultCeiling)

	payloads, err := engine.Search(CollectForDuration(700 * time.Millisecond))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(payloads) != 3 {
		t.Errorf("Search() returned %d payloads, want 3", len(payloads))
	}
}

func TestSearch_NoReplies_EmptyNotError(t *testing.T) {
	// A responder that never answers: listen but send nothing.
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer conn.Close()

	engine := loopbackEngine(conn.LocalAddr().String(), DefaultCeiling)
	payloads, err := engine.Search(CollectForDuration(200 * time.Millisecond))
	if err != nil {
		t.Fatalf("Search() error = %v, want nil on zero replies", err)
	}
	if len(payloads) != 0 {
		t.Errorf("Search() returned %d payloads, want 0", len(payloads))
	}
}

func TestSearch_ResolverFailureIsSetup(t *testing.T) {
	engine := &Engine{
		Resolver: StaticResolver{}, // no address configured
		Group:    MulticastGroup,
	}

	_, err := engine.Search(CollectExactly(1))
	if err == nil {
		t.Fatal("Search() error = nil, want setup failure")
	}
	if !faults.IsSetup(err) {
		t.Errorf("error kind = %v, want setup", faults.KindOf(err))
	}
}

func TestSearch_BadGroupIsSetup(t *testing.T) {
	engine := &Engine{
		Resolver: StaticResolver{IP: net.IPv4(127, 0, 0, 1)},
		Group:    "not-an-address",
	}

	_, err := engine.Search(CollectExactly(1))
	if err == nil {
		t.Fatal("Search() error = nil, want setup failure")
	}
	if !faults.IsSetup(err) {
		t.Errorf("error kind = %v, want setup", faults.KindOf(err))
	}
}

func TestPolicy_String(t *testing.T) {
	if got := CollectExactly(3).String(); got != "collect-exactly(3)" {
		t.Errorf("String() = %q", got)
	}
	if got := CollectForDuration(2 * time.Second).String(); got != "collect-for(2s)" {
		t.Errorf("String() = %q", got)
	}
}
