// Package faults defines the error taxonomy shared by the discovery,
// protocol, transport, and device layers.
//
// Every error raised by this module is a *DeviceError carrying one of the
// Kind values below. Callers should use the Is* predicates (or errors.As)
// rather than matching on message text.
//
//   - KindSetup: a socket could not be bound or opened; fatal to the call
//   - KindValidation: a command argument violates a protocol range; raised
//     before any network I/O
//   - KindDecode: a malformed or unrecognized payload; the surrounding
//     batch continues
//   - KindTransport: a mid-session send/receive failure; the channel is
//     terminal after this
//   - KindNegotiationTimeout: the side-channel rendezvous never matched
//   - KindDuplicateAlias: an alias candidate is already bound; recoverable
package faults
