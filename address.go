package multiprovider

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Supported endpoint schemes. Anything else fails pool construction before
// any network activity.
var supportedSchemes = map[string]struct{}{
	"http":  {},
	"https": {},
}

var (
	schemePattern = regexp.MustCompile(`^https?://`)
	ipv4Pattern   = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}(:\d+)?$`)
)

// parseEndpoint validates an endpoint address against the scheme allow-list.
func parseEndpoint(endpoint string) (*url.URL, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("multiprovider: unparseable endpoint address: %w", err)
	}
	if _, ok := supportedSchemes[u.Scheme]; !ok {
		return nil, &UnsupportedProtocolError{Scheme: u.Scheme}
	}
	if u.Host == "" {
		return nil, fmt.Errorf("multiprovider: endpoint address has no host")
	}
	return u, nil
}

// NormalizeProvider reduces an endpoint address to a low-cardinality metric
// label. An IPv4 literal (with optional port) is used verbatim; a DNS name
// is collapsed to its two highest domains so vendor paths and keys never
// reach label values. Anything else is an error.
func NormalizeProvider(endpoint string) (string, error) {
	stripped := schemePattern.ReplaceAllString(strings.ToLower(endpoint), "")

	host := stripped
	if i := strings.IndexByte(stripped, '/'); i >= 0 {
		host = stripped[:i]
	}

	if ipv4Pattern.MatchString(host) {
		return host, nil
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		return strings.Join(parts[len(parts)-2:], "."), nil
	}

	return "", fmt.Errorf("multiprovider: unhandled hostname format: hostname must be either an IP address or a valid provider address")
}
