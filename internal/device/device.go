package device

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/lumenlab/lumen/internal/discovery"
	"github.com/lumenlab/lumen/internal/faults"
	"github.com/lumenlab/lumen/internal/logging"
	"github.com/lumenlab/lumen/internal/protocol"
	"github.com/lumenlab/lumen/internal/transport"
)

// Info is the identity block of a light. Only Name is mutable, and only
// through a props push.
type Info struct {
	ID      string
	Name    string
	Model   string
	Support []string
}

// Device is one physical light: its identity plus the live session.
type Device struct {
	id   string
	host string
	addr string

	mu      sync.Mutex
	info    Info
	state   State
	primary *transport.Channel
	side    *transport.Channel

	// reqSeq and sessionTag together make request ids distinguishable
	// across rediscoveries of the same light. Diagnostic only.
	reqSeq     atomic.Int64
	sessionTag uint32
}

// New builds a Device from parsed advertisement properties and opens its
// primary control channel. The advertisement's state values seed the
// device state through the same coercion path pushes use, so a garbled
// value is logged and skipped rather than stored.
func New(props discovery.Properties) (*Device, error) {
	d := &Device{
		id:         props["id"],
		host:       props["ip"],
		addr:       props.Addr(),
		sessionTag: rand.Uint32(),
		info: Info{
			ID:      props["id"],
			Name:    props["name"],
			Model:   props["model"],
			Support: props.Support(),
		},
	}
	d.seedState(props)

	primary, err := transport.Dial(d.addr, transport.Options{
		ReceiveLoop: true,
		Handler:     &dispatcher{d: d},
	})
	if err != nil {
		return nil, err
	}
	d.primary = primary

	logging.Info("device session opened",
		zap.String("device_id", d.id),
		zap.String("addr", d.addr),
		zap.String("model", d.info.Model),
	)
	return d, nil
}

// seedState applies the advertisement's state properties.
func (d *Device) seedState(props discovery.Properties) {
	for _, name := range []string{"power", "bright", "color_mode", "ct", "rgb", "hue", "sat"} {
		raw, ok := props[name]
		if !ok {
			continue
		}
		if _, err := d.state.applyProperty(name, raw); err != nil {
			logging.Warn("advertisement property rejected",
				zap.String("device_id", d.id),
				zap.String("property", name),
				zap.String("value", raw),
				zap.Error(err),
			)
		}
	}
}

// ID returns the device's immutable protocol id.
func (d *Device) ID() string { return d.id }

// Host returns the device's control host.
func (d *Device) Host() string { return d.host }

// Addr returns the device's control address (host:port).
func (d *Device) Addr() string { return d.addr }

// Info returns a copy of the identity block.
func (d *Device) Info() Info {
	d.mu.Lock()
	defer d.mu.Unlock()
	info := d.info
	info.Support = append([]string(nil), d.info.Support...)
	return info
}

// State returns a snapshot of the last known state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.clone()
}

// Primary exposes the primary channel for lifecycle inspection.
func (d *Device) Primary() *transport.Channel {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.primary
}

// Side returns the side channel, or nil while none is active.
func (d *Device) Side() *transport.Channel {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.side
}

// Communicate stamps the command with the next request id and sends it on
// the active channel: the side channel while one is installed, else the
// primary. Delivery is fire-and-forget; whether the command applied is
// known only when the matching reply or push arrives.
func (d *Device) Communicate(cmd *protocol.Command) error {
	if cmd == nil {
		return faults.Validationf("nil command")
	}

	d.mu.Lock()
	ch := d.side
	if ch == nil {
		ch = d.primary
	}
	d.mu.Unlock()
	if ch == nil {
		return faults.Transport("device has no control channel", nil)
	}

	return d.sendOn(ch, cmd)
}

// sendOn encodes and sends a command on a specific channel.
func (d *Device) sendOn(ch *transport.Channel, cmd *protocol.Command) error {
	cmd.ID = int(d.reqSeq.Add(1))
	payload, err := cmd.Encode()
	if err != nil {
		return err
	}
	logging.Debug("command sent",
		zap.String("device_id", d.id),
		zap.String("request", fmt.Sprintf("%08x-%d", d.sessionTag, cmd.ID)),
		zap.String("method", cmd.Method),
	)
	ch.Send(payload)
	return nil
}

// Close cancels every channel the device owns.
func (d *Device) Close() {
	d.mu.Lock()
	side := d.side
	primary := d.primary
	d.side = nil
	d.mu.Unlock()

	if side != nil {
		side.Close()
	}
	if primary != nil {
		primary.Close()
	}
}

// ApplyProps applies one decoded props push. Each property is coerced and
// range checked independently: a failure is logged and skipped while the
// other properties in the same push still apply.
func (d *Device) ApplyProps(params map[string]any) {
	dropSide := false

	d.mu.Lock()
	for name, raw := range params {
		if name == "name" {
			value, ok := raw.(string)
			if !ok {
				logging.Warn("push property rejected",
					zap.String("device_id", d.id),
					zap.String("property", name),
					zap.Any("value", raw),
				)
				continue
			}
			d.info.Name = value
			continue
		}

		known, err := d.state.applyProperty(name, raw)
		switch {
		case err != nil:
			// Mismatched-type or out-of-range pushes are reported
			// distinctly from applied ones; last-known-good stays.
			logging.Warn("push property rejected",
				zap.String("device_id", d.id),
				zap.String("property", name),
				zap.Any("value", raw),
				zap.Error(err),
			)
		case !known:
			logging.Warn("unrecognized push property",
				zap.String("device_id", d.id),
				zap.String("property", name),
				zap.Any("value", raw),
			)
		default:
			logging.Debug("push property applied",
				zap.String("device_id", d.id),
				zap.String("property", name),
				zap.Any("value", raw),
			)
			if name == "music_on" && !d.state.MusicOn && d.side != nil {
				dropSide = true
			}
		}
	}
	d.mu.Unlock()

	if dropSide {
		d.dropSide()
	}
}

// dropSide closes and discards the side channel, if any.
func (d *Device) dropSide() {
	d.mu.Lock()
	side := d.side
	d.side = nil
	d.state.MusicOn = false
	d.mu.Unlock()

	if side != nil {
		side.Close()
		logging.Info("side channel closed", zap.String("device_id", d.id))
	}
}

// dispatcher adapts the device to the transport's message handler without
// exporting the handler methods on Device itself.
type dispatcher struct {
	d *Device
}

func (h *dispatcher) HandleResult(res *protocol.Result) {
	logging.Debug("reply received",
		zap.String("device_id", h.d.id),
		zap.String("reply", res.String()),
	)
}

func (h *dispatcher) HandleError(rep *protocol.ErrorReply) {
	logging.Warn("device rejected command",
		zap.String("device_id", h.d.id),
		zap.Int("request_id", rep.ID),
		zap.Int("code", rep.Code),
		zap.String("message", rep.Message),
	)
}

func (h *dispatcher) HandleProps(push *protocol.Push) {
	h.d.ApplyProps(push.Params)
}

func (h *dispatcher) HandleUnrecognized(raw []byte, err error) {
	logging.Warn("unrecognized payload from device",
		zap.String("device_id", h.d.id),
		zap.Error(err),
	)
	logging.LogRawPayload("unrecognized payload", raw)
}
