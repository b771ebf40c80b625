// Package registry owns the set of known devices and their alias bindings.
//
// A discovery pass replaces the device set wholesale: every previously
// known device is closed and forgotten before the new advertisements are
// parsed, so a device object never outlives the pass that found it.
// Payloads that fail to parse are discarded individually; one bad
// advertisement never aborts the batch.
//
// Aliases live in two maps. The saved map (alias to device id) records
// intent and survives rediscovery. The live map (alias to device) is
// derived from it after every pass; an alias whose device is currently
// absent simply has no live entry and comes back when the device does.
//
// The registry is not safe for interleaved discovery and alias assignment.
// Callers run one pass at a time; command sending on already-resolved
// devices is unaffected.
package registry
