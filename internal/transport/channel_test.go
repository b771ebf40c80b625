package transport

import (
	"net"
	"testing"
	"time"

	"github.com/lumenlab/lumen/internal/faults"
	"github.com/lumenlab/lumen/internal/protocol"
)

// captureHandler records dispatched messages on buffered channels so tests
// can wait for them with a timeout.
type captureHandler struct {
	results      chan *protocol.Result
	errors       chan *protocol.ErrorReply
	pushes       chan *protocol.Push
	unrecognized chan []byte
}

func newCaptureHandler() *captureHandler {
	return &captureHandler{
		results:      make(chan *protocol.Result, 8),
		errors:       make(chan *protocol.ErrorReply, 8),
		pushes:       make(chan *protocol.Push, 8),
		unrecognized: make(chan []byte, 8),
	}
}

func (h *captureHandler) HandleResult(res *protocol.Result)      { h.results <- res }
func (h *captureHandler) HandleError(rep *protocol.ErrorReply)   { h.errors <- rep }
func (h *captureHandler) HandleProps(push *protocol.Push)        { h.pushes <- push }
func (h *captureHandler) HandleUnrecognized(raw []byte, _ error) { h.unrecognized <- raw }

// startServer runs a one-connection TCP server and hands the accepted
// connection to the test through a channel.
func startServer(t *testing.T) (addr string, conns chan net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	conns = make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conns <- conn
	}()
	return ln.Addr().String(), conns
}

func waitConn(t *testing.T, conns chan net.Conn) net.Conn {
	t.Helper()
	select {
	case conn := <-conns:
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted a connection")
		return nil
	}
}

func TestDial_ReadyAndDispatch(t *testing.T) {
	addr, conns := startServer(t)
	handler := newCaptureHandler()
	readyCalled := make(chan struct{}, 1)

	ch, err := Dial(addr, Options{
		ReceiveLoop: true,
		Handler:     handler,
		OnReady:     func() { readyCalled <- struct{}{} },
	})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer ch.Close()

	select {
	case <-readyCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("OnReady never fired")
	}
	if got := ch.State(); got != StateReady {
		t.Errorf("State() = %v, want ready", got)
	}
	if ch.LocalAddr() == nil {
		t.Error("LocalAddr() = nil after Ready")
	}

	conn := waitConn(t, conns)
	lines := []string{
		`{"id":1,"result":["ok"]}` + "\r\n",
		`{"id":2,"error":{"code":-5000,"message":"general error"}}` + "\r\n",
		`{"method":"props","params":{"power":"off"}}` + "\r\n",
		"garbage that is not json\r\n",
	}
	for _, line := range lines {
		if _, err := conn.Write([]byte(line)); err != nil {
			t.Fatalf("server write: %v", err)
		}
	}

	select {
	case res := <-handler.results:
		if res.ID != 1 || len(res.Values) != 1 || res.Values[0] != "ok" {
			t.Errorf("result = %v, want id=1 values=[ok]", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("result never dispatched")
	}
	select {
	case rep := <-handler.errors:
		if rep.ID != 2 || rep.Code != -5000 {
			t.Errorf("error reply = %v, want id=2 code=-5000", rep)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error reply never dispatched")
	}
	select {
	case push := <-handler.pushes:
		if push.Params["power"] != "off" {
			t.Errorf("push power = %v, want off", push.Params["power"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("push never dispatched")
	}
	select {
	case <-handler.unrecognized:
	case <-time.After(2 * time.Second):
		t.Fatal("unrecognized payload never reported")
	}
}

func TestDial_RefusedIsSetupFailure(t *testing.T) {
	// Bind then close to get a port nothing is listening on.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	failed := make(chan struct{}, 1)
	ch, err := Dial(addr, Options{
		DialTimeout: 500 * time.Millisecond,
		OnFailed:    func(error) { failed <- struct{}{} },
	})
	if err == nil {
		ch.Close()
		t.Fatal("Dial() error = nil, want setup failure")
	}
	if !faults.IsSetup(err) {
		t.Errorf("error kind = %v, want setup", faults.KindOf(err))
	}
	select {
	case <-failed:
	case <-time.After(time.Second):
		t.Fatal("OnFailed never fired")
	}
}

func TestChannel_Send(t *testing.T) {
	addr, conns := startServer(t)

	ch, err := Dial(addr, Options{})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer ch.Close()

	conn := waitConn(t, conns)
	payload := []byte(`{"id":1,"method":"toggle","params":[]}` + "\r\n")
	ch.Send(payload)

	buf := make([]byte, len(payload))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Read(buf); err != nil {
		t.Fatalf("server read: %v", err)
	}
	if string(buf) != string(payload) {
		t.Errorf("server received %q, want %q", buf, payload)
	}
}

func TestChannel_CloseIsIdempotent(t *testing.T) {
	addr, conns := startServer(t)
	cancelled := make(chan struct{}, 4)

	ch, err := Dial(addr, Options{
		ReceiveLoop: true,
		Handler:     newCaptureHandler(),
		OnCancelled: func() { cancelled <- struct{}{} },
	})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	waitConn(t, conns)

	ch.Close()
	ch.Close()

	if got := ch.State(); got != StateCancelled {
		t.Errorf("State() = %v, want cancelled", got)
	}
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("OnCancelled never fired")
	}
	select {
	case <-cancelled:
		t.Error("OnCancelled fired more than once")
	case <-time.After(100 * time.Millisecond):
	}

	// Send after close is a silent no-op.
	ch.Send([]byte("late\r\n"))
}

func TestChannel_FailsOnPeerClose(t *testing.T) {
	addr, conns := startServer(t)
	failed := make(chan error, 1)

	ch, err := Dial(addr, Options{
		ReceiveLoop: true,
		Handler:     newCaptureHandler(),
		OnFailed:    func(err error) { failed <- err },
	})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	conn := waitConn(t, conns)
	_ = conn.Close()

	select {
	case err := <-failed:
		if !faults.IsTransport(err) {
			t.Errorf("failure kind = %v, want transport", faults.KindOf(err))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnFailed never fired after peer close")
	}
	if got := ch.State(); got != StateFailed {
		t.Errorf("State() = %v, want failed", got)
	}

	// Failed is terminal: a later Close does not move the channel.
	ch.Close()
	if got := ch.State(); got != StateFailed {
		t.Errorf("State() after Close = %v, want failed", got)
	}
}

func TestAdopt(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	ch := Adopt(server, Options{})
	defer ch.Close()

	if got := ch.State(); got != StateReady {
		t.Errorf("State() = %v, want ready", got)
	}

	payload := []byte(`{"id":3,"method":"set_rgb","params":[255,"sudden",0]}` + "\r\n")
	go ch.Send(payload)

	buf := make([]byte, len(payload))
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := client.Read(buf); err != nil {
		t.Fatalf("peer read: %v", err)
	}
	if string(buf) != string(payload) {
		t.Errorf("peer received %q, want %q", buf, payload)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateSetup, "setup"},
		{StatePreparing, "preparing"},
		{StateReady, "ready"},
		{StateWaiting, "waiting"},
		{StateFailed, "failed"},
		{StateCancelled, "cancelled"},
		{State(42), "state(42)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.expected)
		}
	}
}
