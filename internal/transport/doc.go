// Package transport owns the TCP control channel to a single light.
//
// A Channel wraps one TCP session and drives it through a small state
// machine:
//
//	Setup → Preparing → Ready → {Waiting, Failed, Cancelled}
//
// Waiting is entered on a transient dial failure and can return to Ready
// (one bounded re-dial is attempted). Failed and Cancelled are terminal; no
// transition leaves them.
//
// A channel is constructed either by actively dialing a remote address
// (Dial) or by adopting an already-accepted inbound connection (Adopt, used
// for the side channel). Both paths share the same state machine and
// receive-loop logic.
//
// # Sending
//
// Send is fire-and-forget at the wire level: a transport failure is
// reported through the channel's failure notification, never returned to
// the sender. Whether a command actually applied is only known once the
// corresponding reply or props push arrives. Send is safe for concurrent
// use; writes are serialized internally.
//
// # Receiving
//
// When constructed with ReceiveLoop enabled, the channel runs an unbounded
// receive loop that re-arms after every successful read and terminates
// permanently on the first read error. Each line is decoded and dispatched
// to the MessageHandler as a result, an error reply, or a props push;
// unrecognized shapes go to HandleUnrecognized, never silently dropped.
package transport
