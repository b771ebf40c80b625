// Package protocol implements the control protocol spoken by the lights:
// newline-terminated JSON objects over TCP.
//
// # Requests
//
// Every request is a JSON object with a numeric id, a method name, and a
// positional parameter list:
//
//	{"id":1,"method":"set_bright","params":[50,"smooth",500]}
//
// Requests are built through the command builders (SetPower, SetBrightness,
// SetRGB, ...). Each builder validates its arguments against the closed
// protocol ranges before producing a Command; an out-of-range argument fails
// fast with a validation error and nothing is ever encoded. The ranges are:
//
//	brightness   1..100
//	hue          0..359
//	saturation   0..100
//	rgb          1..16777215
//	color temp   1700..6500 K
//	duration     >= 30 ms (smooth transitions), >= 50 ms (flow entries)
//
// # Responses
//
// Decode classifies every inbound line as exactly one of:
//
//	result  {"id":1,"result":["ok"]}
//	error   {"id":2,"error":{"code":-1,"message":"unsupported method"}}
//	push    {"method":"props","params":{"power":"on","bright":10}}
//
// A push carries no id; its property values are left raw for per-property
// coercion by the device layer. Anything that matches none of the three
// shapes is a decode failure, reported to the caller rather than silently
// dropped.
//
// # Flow Programs
//
// Color flow programs are accumulated through FlowTransition as ordered
// (duration, mode, value, brightness) tuples and serialized into the
// comma-joined expression string start_cf expects. The declared repeat count
// is checked against the accumulated tuple count at build time.
package protocol
