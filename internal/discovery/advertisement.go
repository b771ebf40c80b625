package discovery

import (
	"fmt"
	"net"
	"strings"

	"github.com/lumenlab/lumen/internal/faults"
)

// locationScheme prefixes the control address in an advertisement's
// Location line.
const locationScheme = "yeelight://"

// RequiredProperties are the keys an advertisement must carry for the
// device to be accepted into the registry.
var RequiredProperties = []string{
	"ip", "port", "id", "power", "bright", "color_mode",
	"ct", "rgb", "hue", "sat", "name", "model", "support",
}

// Properties is the flat key/value view of one advertisement. Keys are
// lowercased; values keep their raw string form.
type Properties map[string]string

// ParseAdvertisement splits a raw advertisement into Properties.
//
// The payload is CRLF-separated header lines: the first line is a status
// line (discarded), the trailing CRLF yields an empty last line
// (discarded), the Location line is split into ip and port, and every
// other line is a Key: Value pair. A payload missing any required property
// is rejected with a decode failure.
func ParseAdvertisement(raw []byte) (Properties, error) {
	lines := strings.Split(string(raw), "\r\n")
	if len(lines) < 2 {
		return nil, faults.Decode("advertisement has no header lines", nil)
	}

	props := make(Properties, len(lines))
	// lines[0] is the status line.
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			return nil, faults.Decode(fmt.Sprintf("malformed header line %q", line), nil)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		if key == "location" {
			ip, port, err := splitLocation(line)
			if err != nil {
				return nil, err
			}
			props["ip"] = ip
			props["port"] = port
			continue
		}
		props[key] = value
	}

	if missing := missingProperties(props); len(missing) > 0 {
		return nil, faults.Decode(fmt.Sprintf("advertisement missing required properties %v", missing), nil)
	}
	return props, nil
}

// splitLocation extracts host and port from a Location line of the form
// "Location: yeelight://<ip>:<port>".
func splitLocation(line string) (ip, port string, err error) {
	_, value, _ := strings.Cut(line, ":")
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, locationScheme) {
		return "", "", faults.Decode(fmt.Sprintf("location %q does not use the %s scheme", value, locationScheme), nil)
	}
	hostport := strings.TrimPrefix(value, locationScheme)
	ip, port, splitErr := net.SplitHostPort(hostport)
	if splitErr != nil {
		return "", "", faults.Decode(fmt.Sprintf("location %q has no host:port", value), splitErr)
	}
	return ip, port, nil
}

// missingProperties lists required keys absent from the map. Present keys
// with empty values (an unnamed light reports "name: ") are fine.
func missingProperties(props Properties) []string {
	var missing []string
	for _, key := range RequiredProperties {
		if _, ok := props[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

// Addr returns the control address from the advertisement.
func (p Properties) Addr() string {
	return net.JoinHostPort(p["ip"], p["port"])
}

// Support returns the advertised method names as a slice.
func (p Properties) Support() []string {
	return strings.Fields(p["support"])
}
