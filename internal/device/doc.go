// Package device models one physical light and its live control session.
//
// A Device is created from a discovery advertisement; construction opens
// the primary control channel and the device keeps it for its whole
// lifetime. Commands go out through Communicate, which stamps the request
// id and routes to the side channel when one is active, else to the
// primary.
//
// # State
//
// Device state is written only by decoded pushes and replies. Every
// inbound property value is individually type-coerced and re-checked
// against its closed protocol range before it is applied; a value that
// fails either step is logged and skipped while the rest of the same push
// still applies, so the state never holds an out-of-range value
// (last-known-good is retained).
//
// # Side Channel
//
// EnableMusic runs the rendezvous handshake: it opens an ephemeral TCP
// listener, tells the device (over the primary channel) to connect back to
// it, and promotes the first connection from the device's address into a
// second, reply-free control channel. Connections from any other peer are
// rejected and the listener keeps waiting. If no matching connection
// arrives within one second the listener is torn down and the caller gets
// a negotiation-timeout error; the primary channel is unaffected either
// way. The side channel is discarded when the device pushes music_on=false
// or when its connection fails.
package device
