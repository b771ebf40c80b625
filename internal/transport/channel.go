package transport

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lumenlab/lumen/internal/faults"
	"github.com/lumenlab/lumen/internal/logging"
	"github.com/lumenlab/lumen/internal/protocol"
)

// DefaultDialTimeout bounds one connection attempt.
const DefaultDialTimeout = 3 * time.Second

// maxLineSize caps one inbound message; anything longer is a protocol
// violation and terminates the receive loop.
const maxLineSize = 64 * 1024

// State is the lifecycle state of a Channel.
type State int

const (
	// StateSetup is the initial state before any connection attempt.
	StateSetup State = iota
	// StatePreparing means a connection attempt is in flight.
	StatePreparing
	// StateReady means the session is established and usable.
	StateReady
	// StateWaiting means a transient connect failure occurred; a bounded
	// re-dial may still reach Ready.
	StateWaiting
	// StateFailed is terminal: a transport error ended the session.
	StateFailed
	// StateCancelled is terminal: the channel was explicitly closed.
	StateCancelled
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateSetup:
		return "setup"
	case StatePreparing:
		return "preparing"
	case StateReady:
		return "ready"
	case StateWaiting:
		return "waiting"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", s)
	}
}

// MessageHandler receives decoded inbound messages from a channel's receive
// loop. Implementations must not block for long; they run on the loop's
// goroutine.
type MessageHandler interface {
	// HandleResult delivers a synchronous reply.
	HandleResult(res *protocol.Result)
	// HandleError delivers a device-side error reply.
	HandleError(rep *protocol.ErrorReply)
	// HandleProps delivers an unsolicited state-update push.
	HandleProps(push *protocol.Push)
	// HandleUnrecognized delivers a payload that matched no known shape.
	HandleUnrecognized(raw []byte, err error)
}

// Options configures a Channel at construction time.
type Options struct {
	// ReceiveLoop enables the continuous receive loop. The side channel
	// runs without one; it carries no replies.
	ReceiveLoop bool
	// Handler receives decoded inbound messages. May be nil when
	// ReceiveLoop is false.
	Handler MessageHandler
	// DialTimeout bounds each connection attempt. Zero means
	// DefaultDialTimeout.
	DialTimeout time.Duration

	// Lifecycle notifications. All optional.
	OnReady     func()
	OnCancelled func()
	OnFailed    func(err error)
}

// Channel is one TCP control session to a device.
type Channel struct {
	mu     sync.Mutex
	sendMu sync.Mutex

	state     State
	conn      net.Conn
	localAddr net.Addr
	remote    string
	opts      Options
}

// Dial opens a channel to a remote control address. It blocks the caller
// until the session is Ready or the attempt has definitively failed.
func Dial(addr string, opts Options) (*Channel, error) {
	c := &Channel{state: StateSetup, remote: addr, opts: opts}
	if c.opts.DialTimeout <= 0 {
		c.opts.DialTimeout = DefaultDialTimeout
	}

	c.setState(StatePreparing)
	conn, err := net.DialTimeout("tcp", addr, c.opts.DialTimeout)
	if err != nil {
		// Transient connect failures get exactly one more attempt.
		c.setState(StateWaiting)
		logging.Warn("connect attempt failed, retrying once",
			zap.String("remote_addr", addr),
			zap.Error(err),
		)
		conn, err = net.DialTimeout("tcp", addr, c.opts.DialTimeout)
		if err != nil {
			c.setState(StateFailed)
			if c.opts.OnFailed != nil {
				c.opts.OnFailed(err)
			}
			return nil, faults.Setup(fmt.Sprintf("cannot open control connection to %s", addr), err)
		}
	}

	c.becomeReady(conn)
	return c, nil
}

// Adopt wraps an already-accepted inbound connection in a Channel. The
// side-channel negotiator uses this to promote the rendezvous connection.
func Adopt(conn net.Conn, opts Options) *Channel {
	c := &Channel{state: StateSetup, remote: conn.RemoteAddr().String(), opts: opts}
	c.becomeReady(conn)
	return c
}

// becomeReady records the local address, fires the readiness notification,
// and arms the receive loop if configured.
func (c *Channel) becomeReady(conn net.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.localAddr = conn.LocalAddr()
	c.state = StateReady
	c.mu.Unlock()

	logging.LogChannelEvent(c.remote, "ready")
	if c.opts.OnReady != nil {
		c.opts.OnReady()
	}
	if c.opts.ReceiveLoop {
		go c.receiveLoop(conn)
	}
}

// Send writes one encoded payload to the session. Best-effort: a write
// failure transitions the channel to Failed and fires the failure
// notification instead of returning an error to the caller.
func (c *Channel) Send(payload []byte) {
	c.mu.Lock()
	if c.state != StateReady {
		state := c.state
		c.mu.Unlock()
		logging.Warn("send dropped, channel not ready",
			zap.String("remote_addr", c.remote),
			zap.String("state", state.String()),
		)
		return
	}
	conn := c.conn
	c.mu.Unlock()

	c.sendMu.Lock()
	_, err := conn.Write(payload)
	c.sendMu.Unlock()
	if err != nil {
		c.fail(err)
	}
}

// Close cancels the channel. Idempotent; a Failed channel stays Failed.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.state == StateCancelled || c.state == StateFailed {
		c.mu.Unlock()
		return
	}
	c.state = StateCancelled
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	logging.LogChannelEvent(c.remote, "cancelled")
	if c.opts.OnCancelled != nil {
		c.opts.OnCancelled()
	}
}

// State returns the current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LocalAddr returns the session's local address, recorded on entering
// Ready. Nil before that.
func (c *Channel) LocalAddr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.localAddr
}

// RemoteAddr returns the remote control address the channel talks to.
func (c *Channel) RemoteAddr() string {
	return c.remote
}

// receiveLoop reads newline-terminated messages until the first read
// error, then terminates permanently.
func (c *Channel) receiveLoop(conn net.Conn) {
	reader := bufio.NewReaderSize(conn, maxLineSize)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			c.mu.Lock()
			cancelled := c.state == StateCancelled
			c.mu.Unlock()
			if !cancelled {
				logging.Warn("receive loop terminated",
					zap.String("remote_addr", c.remote),
					zap.Error(err),
				)
				c.fail(err)
			}
			return
		}
		c.dispatch(line)
	}
}

// dispatch decodes one inbound line and routes it to the handler.
func (c *Channel) dispatch(line []byte) {
	logging.LogRawPayload("channel payload received", line)
	handler := c.opts.Handler
	if handler == nil {
		return
	}

	msg, err := protocol.Decode(line)
	if err != nil {
		handler.HandleUnrecognized(line, err)
		return
	}
	switch m := msg.(type) {
	case *protocol.Result:
		handler.HandleResult(m)
	case *protocol.ErrorReply:
		handler.HandleError(m)
	case *protocol.Push:
		handler.HandleProps(m)
	default:
		handler.HandleUnrecognized(line, nil)
	}
}

// fail transitions to Failed unless the channel is already terminal.
func (c *Channel) fail(err error) {
	c.mu.Lock()
	if c.state == StateFailed || c.state == StateCancelled {
		c.mu.Unlock()
		return
	}
	c.state = StateFailed
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	logging.LogChannelEvent(c.remote, "failed")
	if c.opts.OnFailed != nil {
		c.opts.OnFailed(faults.Transport("control channel failed", err))
	}
}

// setState records an intermediate (pre-Ready) state transition.
func (c *Channel) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	logging.Debug("channel state",
		zap.String("remote_addr", c.remote),
		zap.String("state", state.String()),
	)
}
