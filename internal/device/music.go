package device

import (
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/lumenlab/lumen/internal/discovery"
	"github.com/lumenlab/lumen/internal/faults"
	"github.com/lumenlab/lumen/internal/logging"
	"github.com/lumenlab/lumen/internal/protocol"
	"github.com/lumenlab/lumen/internal/transport"
)

// MusicAcceptTimeout bounds how long EnableMusic waits for the device to
// dial back before giving up.
const MusicAcceptTimeout = 1 * time.Second

// negotiationPhase tracks where a rendezvous handshake ended up. It exists
// for the logs; the handshake itself is driven by the select below.
type negotiationPhase int

const (
	phaseIdle negotiationPhase = iota
	phaseListening
	phaseMatched
	phaseTimedOut
)

func (p negotiationPhase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseListening:
		return "listening"
	case phaseMatched:
		return "matched"
	case phaseTimedOut:
		return "timed-out"
	default:
		return fmt.Sprintf("phase(%d)", p)
	}
}

// EnableMusic negotiates a side channel. The resolver picks which local
// address the device is told to dial back to; pass nil for the default
// route-probe resolver.
//
// On success the side channel is installed and subsequent commands route
// through it. On timeout the listener is torn down and the primary channel
// is left exactly as it was.
func (d *Device) EnableMusic(resolver discovery.AddressResolver) error {
	d.mu.Lock()
	already := d.side != nil
	d.mu.Unlock()
	if already {
		return faults.Validationf("music mode already active")
	}

	if resolver == nil {
		resolver = discovery.RouteResolver{}
	}
	localIP, err := resolver.LocalAddress()
	if err != nil {
		return faults.Setup("resolve local address for music mode", err)
	}

	listener, err := net.Listen("tcp4", net.JoinHostPort(localIP.String(), "0"))
	if err != nil {
		return faults.Setup("listen for music mode callback", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port
	phase := phaseListening
	logging.Info("music mode negotiation started",
		zap.String("device_id", d.id),
		zap.String("listen", listener.Addr().String()),
	)

	matched := make(chan net.Conn, 1)
	go d.acceptMatching(listener, matched)

	cmd, err := protocol.MusicOn(localIP.String(), port)
	if err != nil {
		listener.Close()
		return err
	}
	if err := d.Communicate(cmd); err != nil {
		listener.Close()
		return err
	}

	select {
	case conn := <-matched:
		phase = phaseMatched
		listener.Close()

		side := transport.Adopt(conn, transport.Options{
			ReceiveLoop: false,
			OnFailed: func(error) {
				d.dropSide()
			},
		})
		d.mu.Lock()
		d.side = side
		d.state.MusicOn = true
		d.mu.Unlock()

		logging.Info("music mode negotiation finished",
			zap.String("device_id", d.id),
			zap.Stringer("phase", phase),
			zap.String("peer", conn.RemoteAddr().String()),
		)
		return nil

	case <-time.After(MusicAcceptTimeout):
		phase = phaseTimedOut
		listener.Close()

		// The device may still dial back after the deadline; drain so a
		// late connection is closed instead of leaked.
		go func() {
			if conn, ok := <-matched; ok {
				conn.Close()
			}
		}()

		logging.Warn("music mode negotiation finished",
			zap.String("device_id", d.id),
			zap.Stringer("phase", phase),
		)
		return faults.NegotiationTimeout("device did not dial back for music mode")
	}
}

// acceptMatching accepts until a connection from the device's host arrives,
// delivers it on matched, and returns. Connections from any other peer are
// closed and waiting continues. Listener close ends the loop.
func (d *Device) acceptMatching(listener net.Listener, matched chan<- net.Conn) {
	defer close(matched)
	for {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
		if err != nil || host != d.host {
			logging.Warn("rejected music mode connection from unexpected peer",
				zap.String("device_id", d.id),
				zap.String("peer", conn.RemoteAddr().String()),
				zap.String("expected_host", d.host),
			)
			conn.Close()
			continue
		}
		matched <- conn
		return
	}
}

// DisableMusic asks the device to leave music mode over the primary
// channel. The side channel is dropped when the device confirms with a
// music_on=false push, or immediately here if the device already closed it.
func (d *Device) DisableMusic() error {
	cmd, err := protocol.MusicOff()
	if err != nil {
		return err
	}

	d.mu.Lock()
	primary := d.primary
	d.mu.Unlock()
	if primary == nil {
		return faults.Transport("device has no control channel", nil)
	}
	return d.sendOn(primary, cmd)
}
