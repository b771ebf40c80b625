package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lumenlab/lumen/internal/faults"
)

// pushMethod is the method name carried by unsolicited property pushes.
const pushMethod = "props"

// Message is a decoded inbound payload: *Result, *ErrorReply, or *Push.
type Message interface {
	String() string
}

// Result is a synchronous reply to a request, correlated by id.
type Result struct {
	ID     int
	Values []string
}

func (r *Result) String() string {
	return fmt.Sprintf("Result{id=%d, values=[%s]}", r.ID, strings.Join(r.Values, ", "))
}

// ErrorReply is a device-side rejection of a request, correlated by id.
type ErrorReply struct {
	ID      int
	Code    int
	Message string
}

func (e *ErrorReply) String() string {
	return fmt.Sprintf("Error{id=%d, code=%d, message=%q}", e.ID, e.Code, e.Message)
}

// Push is an unsolicited state update. It carries no id; the property
// values stay raw (as decoded JSON) so each one can be coerced and range
// checked individually downstream.
type Push struct {
	Params map[string]any
}

func (p *Push) String() string {
	names := make([]string, 0, len(p.Params))
	for name := range p.Params {
		names = append(names, name)
	}
	return fmt.Sprintf("Push{properties=%d, names=%v}", len(p.Params), names)
}

// envelope matches every response shape the protocol produces.
type envelope struct {
	ID     *int            `json:"id"`
	Result []any           `json:"result"`
	Error  *errorBody      `json:"error"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Decode classifies one raw response payload as a result, an error reply,
// or a push. Anything that matches none of the three shapes is a decode
// failure.
func Decode(raw []byte) (Message, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, faults.Decode("empty payload", nil)
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, faults.Decode("payload is not a JSON object", err)
	}

	switch {
	case env.Error != nil && env.ID != nil:
		return &ErrorReply{ID: *env.ID, Code: env.Error.Code, Message: env.Error.Message}, nil

	case env.Method == pushMethod:
		if len(env.Params) == 0 {
			return nil, faults.Decode("props push without params", nil)
		}
		var params map[string]any
		if err := json.Unmarshal(env.Params, &params); err != nil {
			return nil, faults.Decode("props push params are not an object", err)
		}
		return &Push{Params: params}, nil

	case env.ID != nil && env.Result != nil:
		values := make([]string, len(env.Result))
		for i, v := range env.Result {
			values[i] = formatValue(v)
		}
		return &Result{ID: *env.ID, Values: values}, nil

	default:
		return nil, faults.Decode(fmt.Sprintf("unrecognized payload shape: %s", truncate(trimmed, 128)), nil)
	}
}

// formatValue renders a JSON result element as the protocol's string form.
// Integral numbers render without a decimal point.
func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

func truncate(data []byte, max int) string {
	if len(data) <= max {
		return string(data)
	}
	return string(data[:max]) + "..."
}
